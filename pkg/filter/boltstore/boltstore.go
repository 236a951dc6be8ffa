// Package boltstore persists filter state in a bbolt file so it survives a
// restart of the host.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/goliatone/go-formgrid/pkg/filter"
	"github.com/goliatone/go-formgrid/pkg/schema"
)

// Bucket names.
const (
	BucketFilters     = "dynamicgrid_filters"
	BucketSearchForms = "dynamicgrid_searchforms"
)

// DB implements filter.Persister on top of a bbolt database.
type DB struct {
	db     *bolt.DB
	logger logrus.FieldLogger
}

var _ filter.Persister = (*DB)(nil)

// Option customises a DB.
type Option func(*DB)

// WithLogger sets the logger used to report entries that cannot be decoded.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *DB) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Open opens (creating if needed) the database at path and ensures both
// buckets exist.
func Open(path string, opts ...Option) (*DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BucketFilters, BucketSearchForms} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("boltstore: init buckets: %w", err)
	}
	d := &DB{db: db, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Close releases the database file.
func (d *DB) Close() error {
	return d.db.Close()
}

// LoadFilters decodes every stored filter set. Legacy string-encoded date
// ranges are converted while decoding. Entries that fail to decode are logged
// and skipped.
func (d *DB) LoadFilters(_ context.Context) (map[string]filter.Set, error) {
	out := make(map[string]filter.Set)
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketFilters)).ForEach(func(k, v []byte) error {
			var set filter.Set
			if err := json.Unmarshal(v, &set); err != nil {
				d.skip(BucketFilters, k, err)
				return nil
			}
			out[string(k)] = set
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load filters: %w", err)
	}
	return out, nil
}

// LoadCatalogues decodes every stored field catalogue. Entries that fail to
// decode are logged and skipped.
func (d *DB) LoadCatalogues(_ context.Context) (map[string]schema.Catalogue, error) {
	out := make(map[string]schema.Catalogue)
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketSearchForms)).ForEach(func(k, v []byte) error {
			var catalogue schema.Catalogue
			if err := json.Unmarshal(v, &catalogue); err != nil {
				d.skip(BucketSearchForms, k, err)
				return nil
			}
			out[string(k)] = catalogue
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load catalogues: %w", err)
	}
	return out, nil
}

func (d *DB) skip(bucket string, key []byte, err error) {
	d.logger.WithFields(logrus.Fields{"bucket": bucket, "grid": string(key)}).WithError(err).Warn("boltstore: skipping unreadable entry")
}

// SaveFilter stores set under gridID, deleting the entry when set is empty.
func (d *DB) SaveFilter(_ context.Context, gridID string, set filter.Set) error {
	return d.put(BucketFilters, gridID, set, len(set) == 0)
}

// SaveCatalogue stores catalogue under gridID, deleting the entry when empty.
func (d *DB) SaveCatalogue(_ context.Context, gridID string, catalogue schema.Catalogue) error {
	return d.put(BucketSearchForms, gridID, catalogue, len(catalogue) == 0)
}

func (d *DB) put(bucket, key string, value any, remove bool) error {
	err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if remove {
			return b.Delete([]byte(key))
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("boltstore: save %s/%s: %w", bucket, key, err)
	}
	return nil
}

// OpenStore opens the database at path and returns a filter store primed from
// it. Closing the returned DB is the caller's responsibility.
func OpenStore(ctx context.Context, path string, opts ...filter.StoreOption) (*filter.Store, *DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	store, err := filter.OpenStore(ctx, append([]filter.StoreOption{filter.WithPersister(db)}, opts...)...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}
