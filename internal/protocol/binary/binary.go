// Package binary implements the fixed-width binary protocol strategy.
//
// Layout: field header = type byte + big-endian i16 id, stop = 0x00,
// integers big-endian, strings i32 length-prefixed, containers carry their
// element types and an i32 size.
package binary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/danmuck/nslisting/internal/protocol"
)

const (
	ProtocolID  uint32 = 1
	Name               = "binary"
	ContentType        = "application/x-thrift"
)

// Factory builds binary readers and writers.
type Factory struct{}

func (Factory) ID() uint32          { return ProtocolID }
func (Factory) Name() string        { return Name }
func (Factory) ContentType() string { return ContentType }

func (Factory) NewReader(r io.Reader, limits protocol.Limits) protocol.Reader {
	return NewReader(r, limits)
}

func (Factory) NewWriter(w io.Writer) protocol.Writer {
	return NewWriter(w)
}

// Reader decodes the binary protocol. It never reads past the end of the
// value it was asked for, so several records can share one stream.
type Reader struct {
	r      io.Reader
	limits protocol.Limits
	buf    [8]byte
}

func NewReader(r io.Reader, limits protocol.Limits) *Reader {
	return &Reader{r: r, limits: limits}
}

func (r *Reader) Limits() protocol.Limits { return r.limits }

func (r *Reader) ReadStructBegin() (protocol.StructHeader, error) {
	return protocol.StructHeader{}, nil
}

func (r *Reader) ReadStructEnd() error { return nil }

func (r *Reader) ReadFieldBegin() (protocol.FieldHeader, error) {
	t, err := r.readType()
	if err != nil {
		return protocol.FieldHeader{}, err
	}
	if t == protocol.TypeStop {
		return protocol.FieldHeader{Type: protocol.TypeStop}, nil
	}
	if !t.Valid() {
		return protocol.FieldHeader{}, fmt.Errorf("%w: %s", protocol.ErrUnsupportedType, t)
	}
	id, err := r.ReadI16()
	if err != nil {
		return protocol.FieldHeader{}, err
	}
	return protocol.FieldHeader{ID: id, Type: t}, nil
}

func (r *Reader) ReadFieldEnd() error { return nil }

func (r *Reader) ReadMapBegin() (protocol.MapHeader, error) {
	k, err := r.readType()
	if err != nil {
		return protocol.MapHeader{}, err
	}
	v, err := r.readType()
	if err != nil {
		return protocol.MapHeader{}, err
	}
	size, err := r.readSize()
	if err != nil {
		return protocol.MapHeader{}, err
	}
	return protocol.MapHeader{KeyType: k, ValueType: v, Size: size}, nil
}

func (r *Reader) ReadMapEnd() error { return nil }

func (r *Reader) ReadListBegin() (protocol.ListHeader, error) {
	t, err := r.readType()
	if err != nil {
		return protocol.ListHeader{}, err
	}
	size, err := r.readSize()
	if err != nil {
		return protocol.ListHeader{}, err
	}
	return protocol.ListHeader{ElemType: t, Size: size}, nil
}

func (r *Reader) ReadListEnd() error { return nil }

func (r *Reader) ReadSetBegin() (protocol.ListHeader, error) {
	return r.ReadListBegin()
}

func (r *Reader) ReadSetEnd() error { return nil }

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.readN(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, protocol.ErrInvalidBool
	}
}

func (r *Reader) ReadI8() (int8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (r *Reader) ReadI16() (int16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

func (r *Reader) ReadI32() (int32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadI64() (int64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadDouble() (float64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBinary()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadBinary() ([]byte, error) {
	n, err := r.ReadI32()
	if err != nil {
		return nil, err
	}
	if err := r.limits.CheckString(int64(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n == 0 {
		return out, nil
	}
	if err := r.fill(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Reader) readType() (protocol.Type, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return protocol.Type(b[0]), nil
}

func (r *Reader) readSize() (int, error) {
	n, err := r.ReadI32()
	if err != nil {
		return 0, err
	}
	if err := r.limits.CheckContainer(int64(n)); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *Reader) readN(n int) ([]byte, error) {
	b := r.buf[:n]
	if err := r.fill(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Reader) fill(b []byte) error {
	if _, err := io.ReadFull(r.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return protocol.ErrTruncated
		}
		return fmt.Errorf("%w: %w", protocol.ErrMalformed, err)
	}
	return nil
}

// Writer encodes the binary protocol.
type Writer struct {
	w   *bufio.Writer
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteStructBegin(protocol.StructHeader) error { return nil }

func (w *Writer) WriteStructEnd() error { return nil }

func (w *Writer) WriteFieldBegin(h protocol.FieldHeader) error {
	if err := w.w.WriteByte(byte(h.Type)); err != nil {
		return err
	}
	return w.WriteI16(h.ID)
}

func (w *Writer) WriteFieldEnd() error { return nil }

func (w *Writer) WriteFieldStop() error {
	return w.w.WriteByte(byte(protocol.TypeStop))
}

func (w *Writer) WriteMapBegin(h protocol.MapHeader) error {
	if err := w.w.WriteByte(byte(h.KeyType)); err != nil {
		return err
	}
	if err := w.w.WriteByte(byte(h.ValueType)); err != nil {
		return err
	}
	return w.writeLen(h.Size)
}

func (w *Writer) WriteMapEnd() error { return nil }

func (w *Writer) WriteListBegin(h protocol.ListHeader) error {
	if err := w.w.WriteByte(byte(h.ElemType)); err != nil {
		return err
	}
	return w.writeLen(h.Size)
}

func (w *Writer) WriteListEnd() error { return nil }

func (w *Writer) WriteSetBegin(h protocol.ListHeader) error {
	return w.WriteListBegin(h)
}

func (w *Writer) WriteSetEnd() error { return nil }

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.w.WriteByte(1)
	}
	return w.w.WriteByte(0)
}

func (w *Writer) WriteI8(v int8) error {
	return w.w.WriteByte(byte(v))
}

func (w *Writer) WriteI16(v int16) error {
	binary.BigEndian.PutUint16(w.buf[:2], uint16(v))
	_, err := w.w.Write(w.buf[:2])
	return err
}

func (w *Writer) WriteI32(v int32) error {
	binary.BigEndian.PutUint32(w.buf[:4], uint32(v))
	_, err := w.w.Write(w.buf[:4])
	return err
}

func (w *Writer) WriteI64(v int64) error {
	binary.BigEndian.PutUint64(w.buf[:8], uint64(v))
	_, err := w.w.Write(w.buf[:8])
	return err
}

func (w *Writer) WriteDouble(v float64) error {
	return w.WriteI64(int64(math.Float64bits(v)))
}

func (w *Writer) WriteString(v string) error {
	if err := w.writeLen(len(v)); err != nil {
		return err
	}
	_, err := w.w.WriteString(v)
	return err
}

func (w *Writer) WriteBinary(v []byte) error {
	if err := w.writeLen(len(v)); err != nil {
		return err
	}
	_, err := w.w.Write(v)
	return err
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}

func (w *Writer) writeLen(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return protocol.ErrInvalidLength
	}
	return w.WriteI32(int32(n))
}
