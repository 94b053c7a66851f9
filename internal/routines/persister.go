package routines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	yaml "go.yaml.in/yaml/v3"
)

// Persister loads and stores the whole document.
type Persister interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// FilePersister writes JSON, or YAML when the path ends in .yaml/.yml.
// A missing file loads as an empty document.
type FilePersister struct {
	Path string
}

func (p FilePersister) yaml() bool {
	ext := strings.ToLower(filepath.Ext(p.Path))
	return ext == ".yaml" || ext == ".yml"
}

func (p FilePersister) Load(ctx context.Context) (Document, error) {
	b, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	doc := Document{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return doc, nil
	}
	if p.yaml() {
		err = yaml.Unmarshal(b, &doc)
	} else {
		err = json.Unmarshal(b, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.Path, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Save rewrites the file through a temp file and rename.
func (p FilePersister) Save(ctx context.Context, doc Document) error {
	var (
		b   []byte
		err error
	)
	if p.yaml() {
		b, err = yaml.Marshal(doc)
	} else {
		b, err = json.MarshalIndent(doc, "", "    ")
	}
	if err != nil {
		return err
	}
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(p.Path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.Path)
}

// MemoryPersister keeps the document in memory. Err, when set, fails Save.
type MemoryPersister struct {
	mu    sync.Mutex
	doc   Document
	saves int
	Err   error
}

func NewMemoryPersister(doc Document) *MemoryPersister {
	if doc == nil {
		doc = Document{}
	}
	return &MemoryPersister{doc: doc.clone()}
}

func (m *MemoryPersister) Load(ctx context.Context) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.clone(), nil
}

func (m *MemoryPersister) Save(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.doc = doc.clone()
	m.saves++
	return nil
}

func (m *MemoryPersister) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
