// Package config loads host configuration from TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
)

// Config is the full host configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	Grid   GridConfig   `koanf:"grid"`
	Upload UploadConfig `koanf:"upload"`
	Store  StoreConfig  `koanf:"store"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	BaseURL      string        `koanf:"base_url"`
	SchemaDir    string        `koanf:"schema_dir"`
	OpenAPI      string        `koanf:"openapi"`
	TemplatesDir string        `koanf:"templates_dir"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	File      string `koanf:"file"`
	FileSize  int    `koanf:"file_size"`
	FileCount int    `koanf:"file_count"`
	Compress  bool   `koanf:"compress"`
}

type GridConfig struct {
	PageSize      int    `koanf:"page_size"`
	PageSizes     []int  `koanf:"page_sizes"`
	DemoRecords   int    `koanf:"demo_records"`
	ExportBaseURL string `koanf:"export_base_url"`
}

type UploadConfig struct {
	Dir         string `koanf:"dir"`
	MaxSize     int64  `koanf:"max_size"`
	Concurrency int    `koanf:"concurrency"`
}

type StoreConfig struct {
	// Path of the bbolt file holding filter state. Empty keeps state in
	// memory.
	Path string `koanf:"path"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			FileSize:  10,
			FileCount: 3,
		},
		Grid: GridConfig{
			PageSize:    15,
			PageSizes:   []int{20, 50, 100, 200, 500},
			DemoRecords: 120,
		},
		Upload: UploadConfig{
			Dir:         "uploads",
			MaxSize:     10 << 20,
			Concurrency: 4,
		},
	}
}

func defaultMap() map[string]interface{} {
	d := Defaults()
	return map[string]interface{}{
		"server.addr":          d.Server.Addr,
		"server.read_timeout":  d.Server.ReadTimeout.String(),
		"server.write_timeout": d.Server.WriteTimeout.String(),
		"log.level":            d.Log.Level,
		"log.format":           d.Log.Format,
		"log.file_size":        d.Log.FileSize,
		"log.file_count":       d.Log.FileCount,
		"grid.page_size":       d.Grid.PageSize,
		"grid.page_sizes":      d.Grid.PageSizes,
		"grid.demo_records":    d.Grid.DemoRecords,
		"upload.dir":           d.Upload.Dir,
		"upload.max_size":      d.Upload.MaxSize,
		"upload.concurrency":   d.Upload.Concurrency,
	}
}

// Load reads path over the defaults. A missing file is not an error; keys
// absent from the file keep their default.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return Config{}, fmt.Errorf("config: load %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	var out Config
	if err := k.Unmarshal("", &out); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

// Validate rejects values the hosts cannot run with.
func (c Config) Validate() error {
	if c.Grid.PageSize <= 0 {
		return fmt.Errorf("config: grid.page_size must be positive, got %d", c.Grid.PageSize)
	}
	if c.Upload.MaxSize < 0 {
		return fmt.Errorf("config: upload.max_size must not be negative")
	}
	if c.Upload.Concurrency <= 0 {
		return fmt.Errorf("config: upload.concurrency must be positive, got %d", c.Upload.Concurrency)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
