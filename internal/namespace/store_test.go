package namespace

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/compact"
	"github.com/danmuck/nslisting/internal/protocol/schema"
	"github.com/danmuck/nslisting/internal/testutil/testlog"
	"github.com/danmuck/nslisting/internal/thriftgen"
	"github.com/rs/zerolog/log"
)

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	s := NewStore(backend, log.Logger)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func names(ls []*thriftgen.NamespaceListing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.GetName())
	}
	return out
}

func exerciseStore(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.MkdirAll(ctx, "/hypertable/tables"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := s.Put(ctx, "/hypertable/tables", thriftgen.NewNamespaceListing("table1", false)); err != nil {
		t.Fatalf("put table1: %v", err)
	}
	if err := s.Put(ctx, "/hypertable/tables", thriftgen.NewNamespaceListing("archive", true)); err != nil {
		t.Fatalf("put archive: %v", err)
	}
	if err := s.Put(ctx, "hypertable/tables/", thriftgen.NewNamespaceListing("Zeta", false)); err != nil {
		t.Fatalf("put with uncleaned parent: %v", err)
	}

	ls, err := s.List(ctx, "/hypertable/tables")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := names(ls)
	want := []string{"Zeta", "archive", "table1"}
	if len(got) != len(want) {
		t.Fatalf("unexpected listing: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("listing order: got %v want %v", got, want)
		}
	}

	root, err := s.List(ctx, Root)
	if err != nil {
		t.Fatalf("list root: %v", err)
	}
	if len(root) != 1 || !root[0].Equal(thriftgen.NewNamespaceListing("hypertable", true)) {
		t.Fatalf("root must list only direct children: %v", names(root))
	}

	l, err := s.Stat(ctx, "/hypertable/tables/table1")
	if err != nil || !l.Equal(thriftgen.NewNamespaceListing("table1", false)) {
		t.Fatalf("stat table1: %v %v", l, err)
	}

	if err := s.Delete(ctx, "/hypertable", "tables"); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}
	if err := s.Delete(ctx, "/hypertable/tables", "table1"); err != nil {
		t.Fatalf("delete table1: %v", err)
	}
	if _, err := s.Stat(ctx, "/hypertable/tables/table1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStoreMemoryBackend(t *testing.T) {
	testlog.Start(t)
	exerciseStore(t, newTestStore(t, NewMemoryBackend()))
}

func TestStoreRootAlwaysExists(t *testing.T) {
	testlog.Start(t)
	s := newTestStore(t, NewMemoryBackend())
	l, err := s.Stat(context.Background(), "")
	if err != nil || !l.GetIsNamespace() || l.GetName() != Root {
		t.Fatalf("unexpected root: %v %v", l, err)
	}
	ls, err := s.List(context.Background(), "/")
	if err != nil || len(ls) != 0 {
		t.Fatalf("expected empty root, got %v %v", ls, err)
	}
	if err := s.MkdirAll(context.Background(), "/"); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}
}

func TestStorePutErrors(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	if err := s.Put(ctx, "/missing", thriftgen.NewNamespaceListing("x", false)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing parent, got %v", err)
	}
	if err := s.Put(ctx, "/", thriftgen.NewNamespaceListing("file", false)); err != nil {
		t.Fatalf("put file: %v", err)
	}
	if err := s.Put(ctx, "/file", thriftgen.NewNamespaceListing("x", false)); !errors.Is(err, ErrNotNamespace) {
		t.Fatalf("expected ErrNotNamespace, got %v", err)
	}
	if err := s.Put(ctx, "/", thriftgen.NewNamespaceListing("file", true)); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists on kind change, got %v", err)
	}
	if err := s.Put(ctx, "/", thriftgen.NewNamespaceListing("file", false)); err != nil {
		t.Fatalf("same-kind put must succeed: %v", err)
	}
	for _, bad := range []string{"", ".", "..", "a/b"} {
		if err := s.Put(ctx, "/", thriftgen.NewNamespaceListing(bad, false)); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", bad, err)
		}
	}
	incomplete := &thriftgen.NamespaceListing{}
	incomplete.SetName("x")
	if err := s.Put(ctx, "/", incomplete); !errors.Is(err, schema.ErrRequiredField) {
		t.Fatalf("expected required-field error, got %v", err)
	}
}

func TestStoreMkdirAllThroughFile(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())
	if err := s.Put(ctx, "/", thriftgen.NewNamespaceListing("f", false)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.MkdirAll(ctx, "/f/g"); !errors.Is(err, ErrNotNamespace) {
		t.Fatalf("expected ErrNotNamespace, got %v", err)
	}
	if err := s.MkdirAll(ctx, "/a/b"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := s.MkdirAll(ctx, "/a/b"); err != nil {
		t.Fatalf("mkdir must be idempotent: %v", err)
	}
}

func TestStoreDeleteMissing(t *testing.T) {
	testlog.Start(t)
	s := newTestStore(t, NewMemoryBackend())
	if err := s.Delete(context.Background(), "/", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(context.Background(), "/", "a/b"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestStoreCorruptEntryIsMalformed(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := newTestStore(t, backend)
	if err := backend.Set(ctx, "/bad", []byte{11, 0, 1, 0, 0}); err != nil {
		t.Fatalf("seed backend: %v", err)
	}
	_, err := s.List(ctx, "/")
	if !errors.Is(err, ErrCorruptEntry) || !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("expected corrupt malformed entry, got %v", err)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestStore(t, NewMemoryBackend())
	if err := s.MkdirAll(ctx, "/a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStoreWithCompactCodec(t *testing.T) {
	testlog.Start(t)
	ctx := context.Background()
	backend := NewMemoryBackend()
	s := NewStore(backend, log.Logger, WithCodec(compact.Factory{}))
	if err := s.Put(ctx, "/", thriftgen.NewNamespaceListing("c", true)); err != nil {
		t.Fatalf("put: %v", err)
	}
	raw, err := backend.Get(ctx, "/c")
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	// compact: field 1 string header is 0x18
	if len(raw) == 0 || raw[0] != 0x18 {
		t.Fatalf("expected compact encoding, got %v", raw)
	}
	l, err := s.Stat(ctx, "/c")
	if err != nil || !l.GetIsNamespace() {
		t.Fatalf("stat: %v %v", l, err)
	}
}
