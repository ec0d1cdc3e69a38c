package record

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hasher accumulates a stable 64-bit hash over the present fields of a record.
type Hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func NewHasher() *Hasher {
	return &Hasher{d: xxhash.New()}
}

// Field mixes a field id and its presence. Absent fields contribute only this.
func (h *Hasher) Field(id int16, present bool) {
	binary.BigEndian.PutUint16(h.buf[:2], uint16(id))
	h.buf[2] = 0
	if present {
		h.buf[2] = 1
	}
	_, _ = h.d.Write(h.buf[:3])
}

func (h *Hasher) String(v string) {
	binary.BigEndian.PutUint64(h.buf[:8], uint64(len(v)))
	_, _ = h.d.Write(h.buf[:8])
	_, _ = h.d.WriteString(v)
}

func (h *Hasher) Bool(v bool) {
	h.buf[0] = 0
	if v {
		h.buf[0] = 1
	}
	_, _ = h.d.Write(h.buf[:1])
}

func (h *Hasher) Sum64() uint64 {
	return h.d.Sum64()
}
