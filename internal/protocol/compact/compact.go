// Package compact implements the compact protocol strategy: field ids are
// delta-encoded into the type byte, integers are zigzag varints and bool
// fields carry their value in the field header.
package compact

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
	ProtocolID  uint32 = 2
	Name               = "compact"
	ContentType        = "application/vnd.apache.thrift.compact"
)

// Compact type nibbles.
const (
	ctStop      byte = 0x00
	ctBoolTrue  byte = 0x01
	ctBoolFalse byte = 0x02
	ctByte      byte = 0x03
	ctI16       byte = 0x04
	ctI32       byte = 0x05
	ctI64       byte = 0x06
	ctDouble    byte = 0x07
	ctBinary    byte = 0x08
	ctList      byte = 0x09
	ctSet       byte = 0x0A
	ctMap       byte = 0x0B
	ctStruct    byte = 0x0C
)

const maxVarintBytes = 10

var errVarintOverflow = fmt.Errorf("%w: varint overflow", protocol.ErrMalformed)

func toCompact(t protocol.Type) (byte, error) {
	switch t {
	case protocol.TypeStop:
		return ctStop, nil
	case protocol.TypeBool:
		return ctBoolTrue, nil
	case protocol.TypeByte:
		return ctByte, nil
	case protocol.TypeI16:
		return ctI16, nil
	case protocol.TypeI32:
		return ctI32, nil
	case protocol.TypeI64:
		return ctI64, nil
	case protocol.TypeDouble:
		return ctDouble, nil
	case protocol.TypeString:
		return ctBinary, nil
	case protocol.TypeList:
		return ctList, nil
	case protocol.TypeSet:
		return ctSet, nil
	case protocol.TypeMap:
		return ctMap, nil
	case protocol.TypeStruct:
		return ctStruct, nil
	default:
		return 0, fmt.Errorf("%w: %s", protocol.ErrUnsupportedType, t)
	}
}

func fromCompact(b byte) (protocol.Type, error) {
	switch b & 0x0F {
	case ctStop:
		return protocol.TypeStop, nil
	case ctBoolTrue, ctBoolFalse:
		return protocol.TypeBool, nil
	case ctByte:
		return protocol.TypeByte, nil
	case ctI16:
		return protocol.TypeI16, nil
	case ctI32:
		return protocol.TypeI32, nil
	case ctI64:
		return protocol.TypeI64, nil
	case ctDouble:
		return protocol.TypeDouble, nil
	case ctBinary:
		return protocol.TypeString, nil
	case ctList:
		return protocol.TypeList, nil
	case ctSet:
		return protocol.TypeSet, nil
	case ctMap:
		return protocol.TypeMap, nil
	case ctStruct:
		return protocol.TypeStruct, nil
	default:
		return 0, fmt.Errorf("%w: compact type 0x%x", protocol.ErrUnsupportedType, b&0x0F)
	}
}

// Factory builds compact readers and writers.
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

// Reader decodes the compact protocol.
type Reader struct {
	r      io.Reader
	limits protocol.Limits
	buf    [8]byte

	lastFieldID int16
	stack       []int16

	boolPending bool
	boolValue   bool
}

func NewReader(r io.Reader, limits protocol.Limits) *Reader {
	return &Reader{r: r, limits: limits}
}

func (r *Reader) Limits() protocol.Limits { return r.limits }

func (r *Reader) ReadStructBegin() (protocol.StructHeader, error) {
	r.stack = append(r.stack, r.lastFieldID)
	r.lastFieldID = 0
	return protocol.StructHeader{}, nil
}

func (r *Reader) ReadStructEnd() error {
	if len(r.stack) == 0 {
		return fmt.Errorf("%w: unbalanced struct end", protocol.ErrMalformed)
	}
	r.lastFieldID = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

func (r *Reader) ReadFieldBegin() (protocol.FieldHeader, error) {
	b, err := r.readByte()
	if err != nil {
		return protocol.FieldHeader{}, err
	}
	if b == ctStop {
		return protocol.FieldHeader{Type: protocol.TypeStop}, nil
	}
	t, err := fromCompact(b)
	if err != nil {
		return protocol.FieldHeader{}, err
	}
	var id int16
	if delta := int16(b >> 4); delta != 0 {
		id = r.lastFieldID + delta
	} else {
		id, err = r.ReadI16()
		if err != nil {
			return protocol.FieldHeader{}, err
		}
	}
	if t == protocol.TypeBool {
		r.boolPending = true
		r.boolValue = b&0x0F == ctBoolTrue
	}
	r.lastFieldID = id
	return protocol.FieldHeader{ID: id, Type: t}, nil
}

func (r *Reader) ReadFieldEnd() error { return nil }

func (r *Reader) ReadMapBegin() (protocol.MapHeader, error) {
	size, err := r.readSize()
	if err != nil {
		return protocol.MapHeader{}, err
	}
	if size == 0 {
		return protocol.MapHeader{}, nil
	}
	kv, err := r.readByte()
	if err != nil {
		return protocol.MapHeader{}, err
	}
	k, err := fromCompact(kv >> 4)
	if err != nil {
		return protocol.MapHeader{}, err
	}
	v, err := fromCompact(kv)
	if err != nil {
		return protocol.MapHeader{}, err
	}
	return protocol.MapHeader{KeyType: k, ValueType: v, Size: size}, nil
}

func (r *Reader) ReadMapEnd() error { return nil }

func (r *Reader) ReadListBegin() (protocol.ListHeader, error) {
	b, err := r.readByte()
	if err != nil {
		return protocol.ListHeader{}, err
	}
	t, err := fromCompact(b)
	if err != nil {
		return protocol.ListHeader{}, err
	}
	size := int(b >> 4)
	if size == 15 {
		size, err = r.readSize()
		if err != nil {
			return protocol.ListHeader{}, err
		}
	} else if err := r.limits.CheckContainer(int64(size)); err != nil {
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
	if r.boolPending {
		r.boolPending = false
		return r.boolValue, nil
	}
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case ctBoolTrue:
		return true, nil
	case ctBoolFalse, 0:
		return false, nil
	default:
		return false, protocol.ErrInvalidBool
	}
}

func (r *Reader) ReadI8() (int8, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	return int8(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.readZigzag()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, errVarintOverflow
	}
	return int16(v), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.readZigzag()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errVarintOverflow
	}
	return int32(v), nil
}

func (r *Reader) ReadI64() (int64, error) {
	return r.readZigzag()
}

func (r *Reader) ReadDouble() (float64, error) {
	b := r.buf[:8]
	if err := r.fill(b); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBinary()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadBinary() ([]byte, error) {
	n, err := r.readUvarint()
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt32 {
		return nil, protocol.ErrInvalidLength
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

func (r *Reader) readSize() (int, error) {
	n, err := r.readUvarint()
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		return 0, protocol.ErrInvalidLength
	}
	if err := r.limits.CheckContainer(int64(n)); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *Reader) readZigzag() (int64, error) {
	u, err := r.readUvarint()
	if err != nil {
		return 0, err
	}
	return int64(u>>1) ^ -int64(u&1), nil
}

func (r *Reader) readUvarint() (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			if i == maxVarintBytes-1 && b > 1 {
				return 0, errVarintOverflow
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7F) << s
		s += 7
	}
	return 0, errVarintOverflow
}

func (r *Reader) readByte() (byte, error) {
	b := r.buf[:1]
	if err := r.fill(b); err != nil {
		return 0, err
	}
	return b[0], nil
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

// Writer encodes the compact protocol.
type Writer struct {
	w   *bufio.Writer
	buf [binary.MaxVarintLen64]byte

	lastFieldID int16
	stack       []int16

	boolField   protocol.FieldHeader
	boolPending bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteStructBegin(protocol.StructHeader) error {
	w.stack = append(w.stack, w.lastFieldID)
	w.lastFieldID = 0
	return nil
}

func (w *Writer) WriteStructEnd() error {
	if len(w.stack) == 0 {
		return errors.New("compact: unbalanced struct end")
	}
	w.lastFieldID = w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

func (w *Writer) WriteFieldBegin(h protocol.FieldHeader) error {
	if h.Type == protocol.TypeBool {
		w.boolField = h
		w.boolPending = true
		return nil
	}
	ct, err := toCompact(h.Type)
	if err != nil {
		return err
	}
	return w.writeFieldHeader(ct, h.ID)
}

func (w *Writer) writeFieldHeader(ct byte, id int16) error {
	delta := int(id) - int(w.lastFieldID)
	if id > w.lastFieldID && delta <= 15 {
		if err := w.w.WriteByte(byte(delta)<<4 | ct); err != nil {
			return err
		}
	} else {
		if err := w.w.WriteByte(ct); err != nil {
			return err
		}
		if err := w.WriteI16(id); err != nil {
			return err
		}
	}
	w.lastFieldID = id
	return nil
}

func (w *Writer) WriteFieldEnd() error { return nil }

func (w *Writer) WriteFieldStop() error {
	return w.w.WriteByte(ctStop)
}

func (w *Writer) WriteMapBegin(h protocol.MapHeader) error {
	if h.Size < 0 || h.Size > math.MaxInt32 {
		return protocol.ErrInvalidLength
	}
	if h.Size == 0 {
		return w.w.WriteByte(0)
	}
	if err := w.writeUvarint(uint64(h.Size)); err != nil {
		return err
	}
	k, err := toCompact(h.KeyType)
	if err != nil {
		return err
	}
	v, err := toCompact(h.ValueType)
	if err != nil {
		return err
	}
	return w.w.WriteByte(k<<4 | v)
}

func (w *Writer) WriteMapEnd() error { return nil }

func (w *Writer) WriteListBegin(h protocol.ListHeader) error {
	if h.Size < 0 || h.Size > math.MaxInt32 {
		return protocol.ErrInvalidLength
	}
	ct, err := toCompact(h.ElemType)
	if err != nil {
		return err
	}
	if h.Size < 15 {
		return w.w.WriteByte(byte(h.Size)<<4 | ct)
	}
	if err := w.w.WriteByte(0xF0 | ct); err != nil {
		return err
	}
	return w.writeUvarint(uint64(h.Size))
}

func (w *Writer) WriteListEnd() error { return nil }

func (w *Writer) WriteSetBegin(h protocol.ListHeader) error {
	return w.WriteListBegin(h)
}

func (w *Writer) WriteSetEnd() error { return nil }

func (w *Writer) WriteBool(v bool) error {
	ct := ctBoolFalse
	if v {
		ct = ctBoolTrue
	}
	if w.boolPending {
		w.boolPending = false
		return w.writeFieldHeader(ct, w.boolField.ID)
	}
	return w.w.WriteByte(ct)
}

func (w *Writer) WriteI8(v int8) error {
	return w.w.WriteByte(byte(v))
}

func (w *Writer) WriteI16(v int16) error {
	return w.writeZigzag(int64(v))
}

func (w *Writer) WriteI32(v int32) error {
	return w.writeZigzag(int64(v))
}

func (w *Writer) WriteI64(v int64) error {
	return w.writeZigzag(v)
}

func (w *Writer) WriteDouble(v float64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], math.Float64bits(v))
	_, err := w.w.Write(w.buf[:8])
	return err
}

func (w *Writer) WriteString(v string) error {
	if err := w.writeUvarint(uint64(len(v))); err != nil {
		return err
	}
	_, err := w.w.WriteString(v)
	return err
}

func (w *Writer) WriteBinary(v []byte) error {
	if err := w.writeUvarint(uint64(len(v))); err != nil {
		return err
	}
	_, err := w.w.Write(v)
	return err
}

func (w *Writer) Flush() error {
	if w.boolPending {
		return fmt.Errorf("compact: bool field %d has no value", w.boolField.ID)
	}
	return w.w.Flush()
}

func (w *Writer) writeZigzag(v int64) error {
	return w.writeUvarint(uint64(v<<1) ^ uint64(v>>63))
}

func (w *Writer) writeUvarint(v uint64) error {
	n := binary.PutUvarint(w.buf[:], v)
	_, err := w.w.Write(w.buf[:n])
	return err
}
