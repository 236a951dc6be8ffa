package demo

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formgrid/pkg/upload"
)

// StoredFile is the upload response and the value a file field keeps.
type StoredFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Uploads stores uploaded files in memory, or under dir when it is set.
type Uploads struct {
	mu      sync.RWMutex
	dir     string
	base    string
	maxSize int64
	files   map[string]StoredFile
	content map[string][]byte
	logger  logrus.FieldLogger
}

// NewUploads returns an upload store. maxSize <= 0 disables the size limit.
func NewUploads(dir, base string, maxSize int64, logger logrus.FieldLogger) (*Uploads, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Uploads{
		dir:     dir,
		base:    base,
		maxSize: maxSize,
		files:   make(map[string]StoredFile),
		content: make(map[string][]byte),
		logger:  logger,
	}, nil
}

// RegisterRoutes mounts POST /uploads and GET /uploads/{id}.
func (u *Uploads) RegisterRoutes(r chi.Router) {
	r.Post("/uploads", u.serveUpload)
	r.Get("/uploads/{id}", u.serveFile)
}

func (u *Uploads) serveUpload(w http.ResponseWriter, r *http.Request) {
	if u.maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, u.maxSize+(1<<20))
	}
	file, header, err := r.FormFile(upload.FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "File size must not exceed "+upload.FormatFileSize(u.maxSize))
			return
		}
		writeError(w, http.StatusBadRequest, "MISSING_FILE", err.Error())
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "READ_FAILED", err.Error())
		return
	}
	if u.maxSize > 0 && int64(len(content)) > u.maxSize {
		writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "File size must not exceed "+upload.FormatFileSize(u.maxSize))
		return
	}

	id := uuid.NewString()
	stored := StoredFile{
		ID:   id,
		Name: filepath.Base(header.Filename),
		Size: int64(len(content)),
		URL:  u.base + "/uploads/" + id,
	}
	if err := u.put(stored, content); err != nil {
		u.logger.WithError(err).WithField("upload", id).Error("demo: store upload")
		writeError(w, http.StatusInternalServerError, "STORE_FAILED", "could not store file")
		return
	}
	u.logger.WithFields(logrus.Fields{"upload": id, "file": stored.Name, "size": stored.Size}).Info("demo: upload stored")
	writeJSON(w, http.StatusOK, map[string]any{"data": stored})
}

func (u *Uploads) put(stored StoredFile, content []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dir != "" {
		if err := os.WriteFile(filepath.Join(u.dir, stored.ID), content, 0o600); err != nil {
			return err
		}
	} else {
		u.content[stored.ID] = content
	}
	u.files[stored.ID] = stored
	return nil
}

// Get returns a stored file and its content.
func (u *Uploads) Get(id string) (StoredFile, []byte, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	stored, ok := u.files[id]
	if !ok {
		return StoredFile{}, nil, false
	}
	if u.dir == "" {
		return stored, u.content[id], true
	}
	content, err := os.ReadFile(filepath.Join(u.dir, id))
	if err != nil {
		return StoredFile{}, nil, false
	}
	return stored, content, true
}

func (u *Uploads) serveFile(w http.ResponseWriter, r *http.Request) {
	stored, content, ok := u.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "file not found")
		return
	}
	http.ServeContent(w, r, stored.Name, epoch, bytes.NewReader(content))
}
