package binary

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/nslisting/internal/protocol"
)

func TestWriteFieldsLayoutIsDeterministic(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	mustOK(t, w.WriteStructBegin(protocol.StructHeader{Name: "NamespaceListing"}))
	mustOK(t, w.WriteFieldBegin(protocol.FieldHeader{Name: "name", ID: 1, Type: protocol.TypeString}))
	mustOK(t, w.WriteString("table1"))
	mustOK(t, w.WriteFieldEnd())
	mustOK(t, w.WriteFieldBegin(protocol.FieldHeader{Name: "is_namespace", ID: 2, Type: protocol.TypeBool}))
	mustOK(t, w.WriteBool(false))
	mustOK(t, w.WriteFieldEnd())
	mustOK(t, w.WriteFieldStop())
	mustOK(t, w.WriteStructEnd())
	mustOK(t, w.Flush())

	want := []byte{
		11, 0, 1, 0, 0, 0, 6, 't', 'a', 'b', 'l', 'e', '1',
		2, 0, 2, 0,
		0,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("unexpected bytes:\n got=%v\nwant=%v", buf.Bytes(), want)
	}
}

func TestPrimitiveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	mustOK(t, w.WriteI8(-7))
	mustOK(t, w.WriteI16(-300))
	mustOK(t, w.WriteI32(1<<20))
	mustOK(t, w.WriteI64(-1<<40))
	mustOK(t, w.WriteDouble(3.25))
	mustOK(t, w.WriteBinary([]byte{0xde, 0xad}))
	mustOK(t, w.WriteListBegin(protocol.ListHeader{ElemType: protocol.TypeI32, Size: 3}))
	mustOK(t, w.WriteMapBegin(protocol.MapHeader{KeyType: protocol.TypeString, ValueType: protocol.TypeBool, Size: 2}))
	mustOK(t, w.Flush())

	r := NewReader(&buf, protocol.DefaultLimits())
	if v, err := r.ReadI8(); err != nil || v != -7 {
		t.Fatalf("i8: v=%d err=%v", v, err)
	}
	if v, err := r.ReadI16(); err != nil || v != -300 {
		t.Fatalf("i16: v=%d err=%v", v, err)
	}
	if v, err := r.ReadI32(); err != nil || v != 1<<20 {
		t.Fatalf("i32: v=%d err=%v", v, err)
	}
	if v, err := r.ReadI64(); err != nil || v != -1<<40 {
		t.Fatalf("i64: v=%d err=%v", v, err)
	}
	if v, err := r.ReadDouble(); err != nil || v != 3.25 {
		t.Fatalf("double: v=%v err=%v", v, err)
	}
	if v, err := r.ReadBinary(); err != nil || !bytes.Equal(v, []byte{0xde, 0xad}) {
		t.Fatalf("binary: v=%v err=%v", v, err)
	}
	lh, err := r.ReadListBegin()
	if err != nil || lh.ElemType != protocol.TypeI32 || lh.Size != 3 {
		t.Fatalf("list header: %+v err=%v", lh, err)
	}
	mh, err := r.ReadMapBegin()
	if err != nil || mh.KeyType != protocol.TypeString || mh.ValueType != protocol.TypeBool || mh.Size != 2 {
		t.Fatalf("map header: %+v err=%v", mh, err)
	}
}

func TestReadTruncatedIsMalformed(t *testing.T) {
	// string of declared length 5 with only 2 bytes present
	r := NewReader(bytes.NewReader([]byte{0, 0, 0, 5, 'a', 'b'}), protocol.DefaultLimits())
	_, err := r.ReadString()
	if !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if !protocol.IsMalformed(err) {
		t.Fatalf("expected malformed classification, got %v", err)
	}
}

func TestReadNegativeLengthRejected(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xfe}), protocol.DefaultLimits())
	_, err := r.ReadBinary()
	if !errors.Is(err, protocol.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestReadBinaryRespectsLimits(t *testing.T) {
	limits := protocol.DefaultLimits()
	limits.MaxStringBytes = 4
	r := NewReader(bytes.NewReader([]byte{0, 0, 0, 5, 'a', 'b', 'c', 'd', 'e'}), limits)
	_, err := r.ReadBinary()
	if !errors.Is(err, protocol.ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
}

func TestReadBoolRejectsUnknownByte(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{7}), protocol.DefaultLimits())
	_, err := r.ReadBool()
	if !errors.Is(err, protocol.ErrInvalidBool) {
		t.Fatalf("expected ErrInvalidBool, got %v", err)
	}
}

func TestReadFieldBeginUnsupportedType(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{5, 0, 1}), protocol.DefaultLimits())
	_, err := r.ReadFieldBegin()
	if !errors.Is(err, protocol.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestReaderDoesNotOverread(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	mustOK(t, w.WriteString("first"))
	mustOK(t, w.WriteString("second"))
	mustOK(t, w.Flush())

	src := bytes.NewReader(buf.Bytes())
	if v, err := NewReader(src, protocol.DefaultLimits()).ReadString(); err != nil || v != "first" {
		t.Fatalf("first: v=%q err=%v", v, err)
	}
	if v, err := NewReader(src, protocol.DefaultLimits()).ReadString(); err != nil || v != "second" {
		t.Fatalf("second: v=%q err=%v", v, err)
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
