package thriftgen

import (
	"fmt"
	"slices"

	"github.com/danmuck/nslisting/internal/protocol"
)

const listPrealloc = 1024

// WriteNamespaceListings encodes ls as LIST<STRUCT>. Every element is
// validated before anything is written.
func WriteNamespaceListings(w protocol.Writer, ls []*NamespaceListing) error {
	for i, l := range ls {
		if l == nil {
			return fmt.Errorf("NamespaceListing list: element %d is nil", i)
		}
		if err := l.Validate(); err != nil {
			return fmt.Errorf("NamespaceListing list: element %d: %w", i, err)
		}
	}
	if err := w.WriteListBegin(protocol.ListHeader{ElemType: protocol.TypeStruct, Size: len(ls)}); err != nil {
		return err
	}
	for _, l := range ls {
		if err := l.Write(w); err != nil {
			return err
		}
	}
	return w.WriteListEnd()
}

// ReadNamespaceListings decodes a LIST<STRUCT> of listings.
func ReadNamespaceListings(r protocol.Reader) ([]*NamespaceListing, error) {
	h, err := r.ReadListBegin()
	if err != nil {
		return nil, err
	}
	if h.Size > 0 && h.ElemType != protocol.TypeStruct {
		return nil, fmt.Errorf("%w: list of %s, want %s", protocol.ErrUnsupportedType, h.ElemType, protocol.TypeStruct)
	}
	out := make([]*NamespaceListing, 0, min(h.Size, listPrealloc))
	for i := 0; i < h.Size; i++ {
		var l NamespaceListing
		if err := l.Read(r); err != nil {
			return nil, fmt.Errorf("NamespaceListing list: element %d: %w", i, err)
		}
		out = append(out, &l)
	}
	return out, r.ReadListEnd()
}

// SortNamespaceListings sorts ls in place by Compare.
func SortNamespaceListings(ls []*NamespaceListing) {
	slices.SortStableFunc(ls, func(a, b *NamespaceListing) int {
		return a.Compare(b)
	})
}
