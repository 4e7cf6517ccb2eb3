// Package storage keeps product images in an object store. S3Storage talks to
// any S3-compatible backend; Memory is used when no bucket is configured.
package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"

	"comercialpereira/backend/internal/xid"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// Object is what Put returns: the key to delete later and the URL to show.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type ObjectStorage interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (Object, error)
	Delete(ctx context.Context, key string) error
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AllowedImageType reports whether contentType is an accepted product image.
func AllowedImageType(contentType string) bool {
	_, ok := imageExtensions[strings.ToLower(contentType)]
	return ok
}

// ImageKey builds a unique object key such as "products/12/img-<uuid>.png".
func ImageKey(productID int64, contentType string) string {
	ext := imageExtensions[strings.ToLower(contentType)]
	return path.Join("products", strconv.FormatInt(productID, 10), xid.New("img")+ext)
}

func joinURL(base string, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// Memory keeps objects in process. Useful for development and tests.
type Memory struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
	types   map[string]string
}

func NewMemory(baseURL string) *Memory {
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &Memory{
		baseURL: baseURL,
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *Memory) Put(_ context.Context, key string, contentType string, body io.Reader, _ int64) (Object, error) {
	if key == "" {
		return Object{}, errors.New("storage key is required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.types[key] = contentType
	m.mu.Unlock()
	return Object{Key: key, URL: joinURL(m.baseURL, key)}, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	delete(m.types, key)
	m.mu.Unlock()
	return nil
}

// Get returns a stored object and its content type.
func (m *Memory) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, m.types[key], ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ServeHTTP serves stored objects by key. Mount it behind http.StripPrefix
// with the same prefix as the base URL.
func (m *Memory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data, contentType, ok := m.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}
