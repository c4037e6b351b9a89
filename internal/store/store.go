package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// Well-known document names under the collection state directory.
const (
	DirName       = ".collection"
	ConfigFile    = "collection.yaml"
	IndexFile     = "index.yaml"
	ProposalsFile = "proposals.yaml"
	LockFile      = "run.lock"
)

// Store persists a collection's structured documents. All writes are atomic
// (write-temp-then-rename in the target directory) so a crashed run never
// leaves a partially written index behind.
type Store struct {
	root string
	dir  string
}

// New creates a store for the given collection root.
func New(root string) *Store {
	return &Store{
		root: root,
		dir:  filepath.Join(root, DirName),
	}
}

// Root returns the collection root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the collection state directory.
func (s *Store) Dir() string { return s.dir }

// EnsureDir creates the state directory if it does not exist.
func (s *Store) EnsureDir() error {
	return os.MkdirAll(s.dir, 0o755)
}

// LoadConfig reads and validates the collection config document.
func (s *Store) LoadConfig() (*types.CollectionConfig, error) {
	var cfg types.CollectionConfig
	if err := s.ReadDocument(ConfigFile, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.ErrConfigNotFound
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig validates and persists the collection config document.
func (s *Store) SaveConfig(cfg *types.CollectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.WriteDocument(ConfigFile, cfg)
}

// LoadIndex reads the persisted index. A missing index document yields an
// empty index rather than an error; a first run has nothing to merge against.
func (s *Store) LoadIndex() (*types.CollectionIndex, error) {
	var ix types.CollectionIndex
	if err := s.ReadDocument(IndexFile, &ix); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.NewIndex(filepath.Base(s.root), ""), nil
		}
		return nil, err
	}
	if ix.Items == nil {
		ix.Items = []*types.CollectionItem{}
	}
	return &ix, nil
}

// SaveIndex persists the index atomically.
func (s *Store) SaveIndex(ix *types.CollectionIndex) error {
	ix.TotalItems = len(ix.Items)
	return s.WriteDocument(IndexFile, ix)
}

// HasIndex reports whether an index document exists.
func (s *Store) HasIndex() bool {
	_, err := os.Stat(filepath.Join(s.dir, IndexFile))
	return err == nil
}

// ReadDocument decodes a YAML document from the state directory.
func (s *Store) ReadDocument(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// WriteDocument encodes a YAML document into the state directory atomically.
func (s *Store) WriteDocument(name string, doc any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.EnsureDir(); err != nil {
		return err
	}
	return WriteFileAtomic(filepath.Join(s.dir, name), data)
}

// WriteRootFile writes a rendered view document at the collection root.
func (s *Store) WriteRootFile(name string, data []byte) error {
	return WriteFileAtomic(filepath.Join(s.root, name), data)
}

// WriteFileAtomic writes data to path via a temp file and rename. The temp
// file lives in the target directory so the rename stays on one filesystem.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
