package filestore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"csgclient/application/ports"
	"csgclient/domain/graph"
	"csgclient/domain/usecase"
	"csgclient/infrastructure/config"
	"csgclient/pkg/errors"
	"csgclient/pkg/observability"
)

// Store serves the use case catalog and recorded response files from a data
// directory. Decoded documents are cached and shared between callers, which
// must treat them as read-only.
type Store struct {
	dir         string
	catalogPath string
	schemaPath  string

	mu      sync.RWMutex
	catalog *usecase.Catalog

	cache   *lru.Cache[string, cachedDoc]
	metrics *observability.Collector
	logger  *zap.Logger
}

type cachedDoc struct {
	modTime time.Time
	size    int64
	doc     interface{}
}

var _ ports.UseCaseRepository = (*Store)(nil)

// NewStore opens the data directory. A missing catalog is not an error here;
// it is reported when the catalog is first requested.
func NewStore(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*Store, error) {
	dir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	cache, err := lru.New[string, cachedDoc](cfg.ResponseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}

	s := &Store{
		dir:         dir,
		catalogPath: filepath.Join(dir, cfg.CatalogFile),
		schemaPath:  filepath.Join(dir, cfg.SchemaFile),
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}

	if err := s.Reload(); err != nil {
		logger.Warn("Use case catalog not loaded", zap.String("path", s.catalogPath), zap.Error(err))
	}
	return s, nil
}

// Dir returns the absolute data directory
func (s *Store) Dir() string {
	return s.dir
}

// CatalogPath returns the absolute catalog file path
func (s *Store) CatalogPath() string {
	return s.catalogPath
}

// Catalog returns the current catalog, loading it if no load has succeeded yet
func (s *Store) Catalog(ctx context.Context) (*usecase.Catalog, error) {
	s.mu.RLock()
	c := s.catalog
	s.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	if err := s.Reload(); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFoundError("use case catalog")
		}
		return nil, errors.NewInternalError("use case catalog is invalid").WithCause(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, nil
}

// Reload re-reads the catalog file. On failure the previous catalog is kept.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.catalogPath)
	if err != nil {
		return err
	}
	c, err := usecase.ParseCatalog(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.catalog = c
	s.mu.Unlock()

	s.logger.Info("Use case catalog loaded",
		zap.String("path", s.catalogPath),
		zap.Int("use_cases", c.Len()),
	)
	return nil
}

// LoadResponse reads the recorded response of a use case
func (s *Store) LoadResponse(ctx context.Context, uc usecase.UseCase) (interface{}, error) {
	doc, err := s.ReadJSON(uc.ResponseFile)
	if err != nil {
		return nil, errors.Wrapf(err, "use case '%s'", uc.ID)
	}
	return doc, nil
}

// LoadSchema reads the local response schema document
func (s *Store) LoadSchema(ctx context.Context) (interface{}, error) {
	rel, err := filepath.Rel(s.dir, s.schemaPath)
	if err != nil {
		return nil, errors.NewInternalError("invalid schema path").WithCause(err)
	}
	return s.ReadJSON(rel)
}

// ReadJSON decodes a file under the data directory, using the cache while the
// file's modification time and size are unchanged.
func (s *Store) ReadJSON(name string) (interface{}, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("response file '%s'", name))
		}
		return nil, errors.NewInternalError(fmt.Sprintf("cannot stat '%s'", name)).WithCause(err)
	}

	if cached, ok := s.cache.Get(path); ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		s.metrics.RecordCacheHit()
		return cached.doc, nil
	}
	s.metrics.RecordCacheMiss()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("cannot read '%s'", name)).WithCause(err)
	}
	doc, err := graph.DecodeJSON(data)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("'%s' is not valid JSON", name)).WithCause(err)
	}

	s.cache.Add(path, cachedDoc{modTime: info.ModTime(), size: info.Size(), doc: doc})
	return doc, nil
}

// SaveJSON writes doc as indented JSON under the data directory and returns
// the absolute path written.
func (s *Store) SaveJSON(name string, doc interface{}) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename %s: %w", name, err)
	}

	s.cache.Remove(path)
	return path, nil
}

// resolve maps a catalog-relative name to an absolute path inside the data
// directory.
func (s *Store) resolve(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", errors.NewValidationError(fmt.Sprintf("invalid data file name '%s'", name))
	}
	path := filepath.Join(s.dir, name)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewValidationError(fmt.Sprintf("data file '%s' is outside the data directory", name))
	}
	return path, nil
}
