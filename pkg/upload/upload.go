// Package upload validates and dispatches file uploads for file and multifile
// fields.
package upload

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formgrid/pkg/client"
	"github.com/goliatone/go-formgrid/pkg/schema"
	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

// FormField is the multipart part carrying the file content.
const FormField = "file"

// DefaultConcurrency bounds parallel uploads within a multi-file batch.
const DefaultConcurrency = 4

// File is a file selected by the user.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Uploader posts files to {baseURL}uploads.
type Uploader struct {
	url         string
	client      client.Uploader
	concurrency int
	logger      logrus.FieldLogger
}

// Option customises an Uploader.
type Option func(*Uploader)

// WithConcurrency bounds the number of files uploaded at once.
func WithConcurrency(n int) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// New returns an Uploader for baseURL, which is joined with "uploads" as is,
// so it normally ends with a slash.
func New(baseURL string, c client.Uploader, opts ...Option) (*Uploader, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, widgeterr.Configuration("upload", "base URL is required for file uploads")
	}
	if c == nil {
		return nil, widgeterr.Configuration("upload", "upload client is required")
	}
	u := &Uploader{
		url:         baseURL + "uploads",
		client:      c,
		concurrency: DefaultConcurrency,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u, nil
}

// URL returns the upload endpoint.
func (u *Uploader) URL() string { return u.url }

// Check validates files against the field limits without uploading anything.
func Check(field schema.Field, current any, files []File) error {
	if field.Type == schema.KindMultiFile {
		if field.MaxFiles > 0 && len(asList(current))+len(files) > field.MaxFiles {
			return &widgeterr.UploadConstraintError{
				Field:   field.Name,
				Message: fmt.Sprintf("Maximum %d files allowed", field.MaxFiles),
			}
		}
		for _, file := range files {
			if field.MaxSize > 0 && file.Size > field.MaxSize {
				return &widgeterr.UploadConstraintError{
					Field:   field.Name,
					Message: "Each file must not exceed " + FormatFileSize(field.MaxSize),
				}
			}
		}
		return nil
	}

	if len(files) > 0 && field.MaxSize > 0 && files[0].Size > field.MaxSize {
		return &widgeterr.UploadConstraintError{
			Field:   field.Name,
			Message: "File size must not exceed " + FormatFileSize(field.MaxSize),
		}
	}
	return nil
}

// Upload validates files and uploads them. For a file field the first file
// is uploaded and its response becomes the new value. For a multifile field
// every file is uploaded concurrently and the responses are appended to
// current in selection order. Constraint violations abort before any
// request is sent; uploads that completed before a later failure are not
// rolled back.
func (u *Uploader) Upload(ctx context.Context, field schema.Field, current any, files []File) (any, error) {
	if len(files) == 0 {
		return current, nil
	}
	if err := Check(field, current, files); err != nil {
		return current, err
	}

	if field.Type != schema.KindMultiFile {
		stored, err := u.send(ctx, field.Name, files[0])
		if err != nil {
			return current, err
		}
		return stored, nil
	}

	results := make([]any, len(files))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(u.concurrency)
	for idx, file := range files {
		idx, file := idx, file
		group.Go(func() error {
			stored, err := u.send(gctx, field.Name, file)
			if err != nil {
				return err
			}
			results[idx] = stored
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return current, err
	}

	next := append([]any{}, asList(current)...)
	return append(next, results...), nil
}

func (u *Uploader) send(ctx context.Context, field string, file File) (any, error) {
	id := uuid.NewString()
	log := u.logger.WithFields(logrus.Fields{"upload": id, "field": field, "file": file.Name})
	log.Debug("upload: sending")

	stored, err := u.client.Upload(ctx, u.url, FormField, file.Name, file.Content)
	if err != nil {
		log.WithError(err).Error("upload: failed")
		return nil, err
	}
	log.Debug("upload: stored")
	return client.Unwrap(stored), nil
}

// Remove drops the value at index from a multifile value, or clears a single
// file value.
func Remove(field schema.Field, current any, index int) any {
	if field.Type != schema.KindMultiFile {
		return ""
	}
	list := asList(current)
	if index < 0 || index >= len(list) {
		return append([]any{}, list...)
	}
	out := make([]any, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...)
}

// FormatFileSize renders bytes with binary units, e.g. "1.5 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	value = math.Round(value*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + units[i]
}

func asList(value any) []any {
	switch typed := value.(type) {
	case []any:
		return typed
	case []string:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = v
		}
		return out
	default:
		return nil
	}
}
