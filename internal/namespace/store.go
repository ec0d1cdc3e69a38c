package namespace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/danmuck/nslisting/internal/observability"
	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/binary"
	"github.com/danmuck/nslisting/internal/record"
	"github.com/danmuck/nslisting/internal/thriftgen"
	"github.com/rs/zerolog"
)

const Root = "/"

// Store is a directory of listings over a Backend. Mutations are serialized
// so check-then-write sequences stay consistent. Returned listings are owned
// by the caller.
type Store struct {
	mu      sync.Mutex
	backend Backend
	codec   protocol.Factory
	limits  protocol.Limits
	logger  zerolog.Logger
}

type Option func(*Store)

// WithCodec sets the protocol used for stored values. Changing it on an
// existing database makes earlier entries unreadable.
func WithCodec(f protocol.Factory) Option {
	return func(s *Store) { s.codec = f }
}

func WithLimits(l protocol.Limits) Option {
	return func(s *Store) { s.limits = l }
}

func NewStore(backend Backend, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		codec:   binary.Factory{},
		limits:  protocol.DefaultLimits(),
		logger:  logger.With().Str("component", "namespace").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// CleanPath returns the canonical absolute form of p.
func CleanPath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// ValidName reports whether name can be a single path component.
func ValidName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("%w: %q contains a separator", ErrInvalidName, name)
	}
	return nil
}

func childPath(parent, name string) string {
	if parent == Root {
		return Root + name
	}
	return parent + "/" + name
}

func childPrefix(parent string) string {
	if parent == Root {
		return Root
	}
	return parent + "/"
}

// Stat returns the listing stored at p. The root is a namespace named "/".
func (s *Store) Stat(ctx context.Context, p string) (*thriftgen.NamespaceListing, error) {
	p = CleanPath(p)
	if p == Root {
		return thriftgen.NewNamespaceListing(Root, true), nil
	}
	data, err := s.backend.Get(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, err
	}
	return s.decode(p, data)
}

func (s *Store) requireNamespace(ctx context.Context, p string) error {
	l, err := s.Stat(ctx, p)
	if err != nil {
		return err
	}
	if !l.GetIsNamespace() {
		return fmt.Errorf("%w: %s", ErrNotNamespace, p)
	}
	return nil
}

// List returns the direct children of parent in Compare order.
func (s *Store) List(ctx context.Context, parent string) ([]*thriftgen.NamespaceListing, error) {
	parent = CleanPath(parent)
	if err := s.requireNamespace(ctx, parent); err != nil {
		return nil, err
	}
	prefix := childPrefix(parent)
	var out []*thriftgen.NamespaceListing
	err := s.backend.Scan(ctx, prefix, func(key string, value []byte) error {
		if strings.Contains(key[len(prefix):], "/") {
			return nil
		}
		l, err := s.decode(key, value)
		if err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	thriftgen.SortNamespaceListings(out)
	return out, nil
}

// Put stores l under parent. Re-putting an entry of the same kind is a
// no-op overwrite; changing its kind fails with ErrExists.
func (s *Store) Put(ctx context.Context, parent string, l *thriftgen.NamespaceListing) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if err := ValidName(l.GetName()); err != nil {
		return err
	}
	parent = CleanPath(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireNamespace(ctx, parent); err != nil {
		return err
	}
	key := childPath(parent, l.GetName())
	existing, err := s.Stat(ctx, key)
	switch {
	case err == nil:
		if existing.GetIsNamespace() != l.GetIsNamespace() {
			return fmt.Errorf("%w: %s", ErrExists, key)
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}
	if err := s.write(ctx, key, l); err != nil {
		return err
	}
	s.logger.Debug().Str("path", key).Bool("is_namespace", l.GetIsNamespace()).Msg("put")
	return nil
}

// Delete removes parent/name. A namespace must be empty first.
func (s *Store) Delete(ctx context.Context, parent, name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	key := childPath(CleanPath(parent), name)

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.Stat(ctx, key)
	if err != nil {
		return err
	}
	if l.GetIsNamespace() {
		empty, err := s.isEmpty(ctx, key)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("%w: %s", ErrNotEmpty, key)
		}
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Debug().Str("path", key).Msg("delete")
	return nil
}

var errStopScan = errors.New("stop scan")

func (s *Store) isEmpty(ctx context.Context, p string) (bool, error) {
	err := s.backend.Scan(ctx, childPrefix(p), func(string, []byte) error {
		return errStopScan
	})
	if errors.Is(err, errStopScan) {
		return false, nil
	}
	return err == nil, err
}

// MkdirAll creates p and any missing parents as namespaces.
func (s *Store) MkdirAll(ctx context.Context, p string) error {
	p = CleanPath(p)
	if p == Root {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := Root
	for _, name := range strings.Split(strings.TrimPrefix(p, Root), "/") {
		if err := ValidName(name); err != nil {
			return err
		}
		cur = childPath(cur, name)
		l, err := s.Stat(ctx, cur)
		switch {
		case err == nil:
			if !l.GetIsNamespace() {
				return fmt.Errorf("%w: %s", ErrNotNamespace, cur)
			}
			continue
		case !errors.Is(err, ErrNotFound):
			return err
		}
		if err := s.write(ctx, cur, thriftgen.NewNamespaceListing(name, true)); err != nil {
			return err
		}
		s.logger.Debug().Str("path", cur).Msg("mkdir")
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, l *thriftgen.NamespaceListing) error {
	data, err := record.Marshal(l, s.codec)
	if err != nil {
		return fmt.Errorf("namespace: encode %s: %w", key, err)
	}
	observability.RecordEncode(s.codec.Name(), 1)
	return s.backend.Set(ctx, key, data)
}

func (s *Store) decode(key string, data []byte) (*thriftgen.NamespaceListing, error) {
	var l thriftgen.NamespaceListing
	err := record.UnmarshalWithLimits(data, &l, s.codec, s.limits)
	observability.RecordDecode(s.codec.Name(), err)
	if err != nil {
		s.logger.Error().Err(err).Str("path", key).Msg("corrupt entry")
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptEntry, key, err)
	}
	return &l, nil
}
