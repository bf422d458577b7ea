package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/vmihailenco/msgpack/v5"
)

// Pebble stores the thread record in an embedded pebble database.
type Pebble struct {
	db  *pebble.DB
	key []byte
}

// PebbleOption configures OpenPebble.
type PebbleOption func(*pebbleOptions)

type pebbleOptions struct {
	fs  vfs.FS
	key string
}

// WithFS overrides the filesystem, e.g. vfs.NewMem() in tests.
func WithFS(fs vfs.FS) PebbleOption {
	return func(o *pebbleOptions) { o.fs = fs }
}

// WithKey stores the record under key instead of ThreadKey, so several
// profiles can share one database.
func WithKey(key string) PebbleOption {
	return func(o *pebbleOptions) { o.key = key }
}

// OpenPebble opens (or creates) the database at dir.
func OpenPebble(dir string, opts ...PebbleOption) (*Pebble, error) {
	o := pebbleOptions{key: ThreadKey}
	for _, opt := range opts {
		opt(&o)
	}
	popts := &pebble.Options{}
	if o.fs != nil {
		popts.FS = o.fs
	} else if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	db, err := pebble.Open(dir, popts)
	if err != nil {
		return nil, fmt.Errorf("open thread store: %w", err)
	}
	return &Pebble{db: db, key: []byte(o.key)}, nil
}

// Load implements ThreadStore.
func (p *Pebble) Load(context.Context) (string, error) {
	v, closer, err := p.db.Get(p.key)
	if errors.Is(err, pebble.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()

	var rec record
	if err := msgpack.Unmarshal(v, &rec); err != nil {
		return "", fmt.Errorf("decode thread record: %w", err)
	}
	return rec.ThreadID, nil
}

// Save implements ThreadStore.
func (p *Pebble) Save(_ context.Context, threadID string) error {
	data, err := msgpack.Marshal(record{ThreadID: threadID, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.db.Set(p.key, data, pebble.Sync)
}

// Clear implements ThreadStore.
func (p *Pebble) Clear(context.Context) error {
	return p.db.Delete(p.key, pebble.Sync)
}

// UpdatedAt returns when the record was last saved.
func (p *Pebble) UpdatedAt() (time.Time, bool, error) {
	v, closer, err := p.db.Get(p.key)
	if errors.Is(err, pebble.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	defer closer.Close()
	var rec record
	if err := msgpack.Unmarshal(v, &rec); err != nil {
		return time.Time{}, false, err
	}
	return rec.UpdatedAt, true, nil
}

// Close closes the database.
func (p *Pebble) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
