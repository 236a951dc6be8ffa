// Package logging builds the logrus logger shared by the hosts.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/goliatone/go-formgrid/pkg/config"
)

// New returns a logger configured from cfg. When cfg.File is set, output goes
// to both stdout (or the optional writer) and a rotating file.
func New(cfg config.LogConfig, out ...io.Writer) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var writer io.Writer = os.Stdout
	if len(out) > 0 && out[0] != nil {
		writer = out[0]
	}
	if cfg.File != "" {
		writer = io.MultiWriter(writer, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.FileSize, // megabytes
			MaxBackups: cfg.FileCount,
			MaxAge:     28, // days
			Compress:   cfg.Compress,
		})
	}
	log.SetOutput(writer)
	return log, nil
}

func parseLevel(raw string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return logrus.InfoLevel, nil
	case "warning":
		return logrus.WarnLevel, nil
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return 0, fmt.Errorf("logging: %w", err)
	}
	return level, nil
}
