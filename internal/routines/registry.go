package routines

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotPersisted wraps write failures. The in-memory change stands.
	ErrNotPersisted = errors.New("routines not saved")
	// ErrNotLoaded wraps a failed Load. The registry then refuses to write
	// so the unreadable file is never replaced.
	ErrNotLoaded = errors.New("routines not loaded")
)

// Registry owns the in-memory document and writes it through a Persister
// after every mutation. A failed write leaves memory updated and returns the
// error: memory and disk may diverge until the next successful write.
type Registry struct {
	mu        sync.Mutex
	doc       Document
	persister Persister
	loadErr   error
}

func NewRegistry(p Persister) *Registry {
	return &Registry{doc: Document{}, persister: p}
}

// Load replaces the in-memory document with the persisted one.
func (r *Registry) Load(ctx context.Context) error {
	doc, err := r.persister.Load(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.loadErr = fmt.Errorf("%w: %w", ErrNotLoaded, err)
		return r.loadErr
	}
	r.doc = doc
	r.loadErr = nil
	return nil
}

// Put inserts or overwrites rt and persists.
func (r *Registry) Put(ctx context.Context, rt Routine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dests := r.doc[rt.TimeOfDay]
	if dests == nil {
		dests = map[int64]Entry{}
		r.doc[rt.TimeOfDay] = dests
	}
	dests[rt.Destination] = Entry{Message: rt.Message}
	return r.saveLocked(ctx)
}

// Delete removes k, dropping the time of day when it has no destinations
// left. It reports whether k existed; nothing is written when it did not.
func (r *Registry) Delete(ctx context.Context, k Key) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dests, ok := r.doc[k.TimeOfDay]
	if !ok {
		return false, nil
	}
	if _, ok := dests[k.Destination]; !ok {
		return false, nil
	}
	delete(dests, k.Destination)
	if len(dests) == 0 {
		delete(r.doc, k.TimeOfDay)
	}
	return true, r.saveLocked(ctx)
}

func (r *Registry) Get(k Key) (Routine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.doc[k.TimeOfDay][k.Destination]
	if !ok {
		return Routine{}, false
	}
	return Routine{TimeOfDay: k.TimeOfDay, Destination: k.Destination, Message: e.Message}, true
}

// List is a sorted snapshot.
func (r *Registry) List() []Routine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Routines()
}

// Times returns the number of distinct times of day.
func (r *Registry) Times() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.doc)
}

func (r *Registry) saveLocked(ctx context.Context) error {
	if r.loadErr != nil {
		return fmt.Errorf("%w: %w", ErrNotPersisted, r.loadErr)
	}
	if err := r.persister.Save(ctx, r.doc.clone()); err != nil {
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}
