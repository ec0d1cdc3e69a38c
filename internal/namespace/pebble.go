package namespace

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend persists entries in a pebble database directory.
type PebbleBackend struct {
	db *pebble.DB
}

func OpenPebbleBackend(dir string) (*PebbleBackend, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("namespace: open pebble %s: %w", dir, err)
	}
	return &PebbleBackend{db: db}, nil
}

func (p *PebbleBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), data...), nil
}

func (p *PebbleBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *PebbleBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleBackend) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	opts := &pebble.IterOptions{LowerBound: []byte(prefix)}
	if upper := prefixUpperBound([]byte(prefix)); upper != nil {
		opts.UpperBound = upper
	}
	iter, err := p.db.NewIter(opts)
	if err != nil {
		return err
	}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			_ = iter.Close()
			return err
		}
		value := append([]byte(nil), iter.Value()...)
		if err := fn(string(iter.Key()), value); err != nil {
			_ = iter.Close()
			return err
		}
	}
	return iter.Close()
}

func (p *PebbleBackend) Close() error {
	return p.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with
// prefix, or nil when no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
