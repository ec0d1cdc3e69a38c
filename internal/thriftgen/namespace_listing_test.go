package thriftgen

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/binary"
	"github.com/danmuck/nslisting/internal/protocol/compact"
	"github.com/danmuck/nslisting/internal/protocol/schema"
	"github.com/danmuck/nslisting/internal/record"
	"github.com/danmuck/nslisting/internal/testutil/testlog"
)

var factories = []protocol.Factory{binary.Factory{}, compact.Factory{}}

func TestTable1Scenario(t *testing.T) {
	testlog.Start(t)
	l := NewNamespaceListing("table1", false)
	if !l.IsSetName() || !l.IsSetIsNamespace() {
		t.Fatalf("constructor must set both fields: %s", l)
	}
	b, err := record.Marshal(l, binary.Factory{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := append([]byte{11, 0, 1, 0, 0, 0, 6}, "table1"...)
	want = append(want, 2, 0, 2, 0, 0)
	if !bytes.Equal(b, want) {
		t.Fatalf("unexpected bytes:\n got=%v\nwant=%v", b, want)
	}

	var got NamespaceListing
	if err := record.Unmarshal(b, &got, binary.Factory{}); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(l) || got.GetName() != "table1" || got.GetIsNamespace() {
		t.Fatalf("decoded mismatch: %s", &got)
	}

	got.Clear()
	if got.IsSetName() || got.IsSetIsNamespace() {
		t.Fatalf("Clear must unset all fields: %s", &got)
	}
	err = got.Validate()
	var ve *schema.ValidationError
	if !errors.As(err, &ve) || ve.Field != "name" {
		t.Fatalf("expected validation error on name, got %v", err)
	}
}

func TestRoundTripAllProtocols(t *testing.T) {
	testlog.Start(t)
	cases := []*NamespaceListing{
		NewNamespaceListing("table1", false),
		NewNamespaceListing("sub", true),
		NewNamespaceListing("", false),
		NewNamespaceListing("ünïcode/名前", true),
	}
	for _, f := range factories {
		for _, in := range cases {
			b, err := record.Marshal(in, f)
			if err != nil {
				t.Fatalf("%s marshal %s: %v", f.Name(), in, err)
			}
			var out NamespaceListing
			if err := record.Unmarshal(b, &out, f); err != nil {
				t.Fatalf("%s unmarshal %s: %v", f.Name(), in, err)
			}
			if !out.Equal(in) {
				t.Fatalf("%s round trip: got=%s want=%s", f.Name(), &out, in)
			}
		}
	}
}

func TestEncodeRequiresAllRequiredFields(t *testing.T) {
	testlog.Start(t)
	for _, f := range factories {
		var l NamespaceListing
		l.SetIsNamespace(true)
		var buf bytes.Buffer
		err := record.Encode(&buf, &l, f)
		if !errors.Is(err, schema.ErrRequiredField) {
			t.Fatalf("%s: expected required-field error, got %v", f.Name(), err)
		}
		if buf.Len() != 0 {
			t.Fatalf("%s: failed encode wrote %d bytes", f.Name(), buf.Len())
		}
		if !l.IsSetIsNamespace() || l.IsSetName() {
			t.Fatalf("%s: encode must not mutate the listing", f.Name())
		}
	}
}

func TestDecodeMissingRequiredField(t *testing.T) {
	testlog.Start(t)
	for _, f := range factories {
		var buf bytes.Buffer
		w := f.NewWriter(&buf)
		mustOK(t, w.WriteStructBegin(protocol.StructHeader{}))
		mustOK(t, w.WriteFieldBegin(protocol.FieldHeader{ID: 1, Type: protocol.TypeString}))
		mustOK(t, w.WriteString("only-name"))
		mustOK(t, w.WriteFieldEnd())
		mustOK(t, w.WriteFieldStop())
		mustOK(t, w.WriteStructEnd())
		mustOK(t, w.Flush())

		var l NamespaceListing
		err := record.Unmarshal(buf.Bytes(), &l, f)
		var me *schema.MissingFieldError
		if !errors.As(err, &me) || me.Field != "is_namespace" || me.FieldID != 2 {
			t.Fatalf("%s: expected missing is_namespace, got %v", f.Name(), err)
		}
	}
}

func TestDecodeSkipsUnknownFieldsOfEveryType(t *testing.T) {
	testlog.Start(t)
	unknown := []struct {
		typ   protocol.Type
		write func(w protocol.Writer) error
	}{
		{protocol.TypeBool, func(w protocol.Writer) error { return w.WriteBool(true) }},
		{protocol.TypeByte, func(w protocol.Writer) error { return w.WriteI8(-7) }},
		{protocol.TypeI16, func(w protocol.Writer) error { return w.WriteI16(300) }},
		{protocol.TypeI32, func(w protocol.Writer) error { return w.WriteI32(-70000) }},
		{protocol.TypeI64, func(w protocol.Writer) error { return w.WriteI64(1 << 40) }},
		{protocol.TypeDouble, func(w protocol.Writer) error { return w.WriteDouble(2.5) }},
		{protocol.TypeString, func(w protocol.Writer) error { return w.WriteString("ignored") }},
		{protocol.TypeList, func(w protocol.Writer) error {
			if err := w.WriteListBegin(protocol.ListHeader{ElemType: protocol.TypeI32, Size: 2}); err != nil {
				return err
			}
			_ = w.WriteI32(1)
			_ = w.WriteI32(2)
			return w.WriteListEnd()
		}},
		{protocol.TypeSet, func(w protocol.Writer) error {
			if err := w.WriteSetBegin(protocol.ListHeader{ElemType: protocol.TypeString, Size: 1}); err != nil {
				return err
			}
			_ = w.WriteString("s")
			return w.WriteSetEnd()
		}},
		{protocol.TypeMap, func(w protocol.Writer) error {
			if err := w.WriteMapBegin(protocol.MapHeader{KeyType: protocol.TypeString, ValueType: protocol.TypeBool, Size: 1}); err != nil {
				return err
			}
			_ = w.WriteString("k")
			_ = w.WriteBool(false)
			return w.WriteMapEnd()
		}},
		{protocol.TypeStruct, func(w protocol.Writer) error {
			// a nested listing is just another struct to an older reader
			return NewNamespaceListing("nested", true).Write(w)
		}},
	}

	for _, f := range factories {
		for _, u := range unknown {
			var buf bytes.Buffer
			w := f.NewWriter(&buf)
			mustOK(t, w.WriteStructBegin(protocol.StructHeader{Name: "NamespaceListing"}))
			mustOK(t, w.WriteFieldBegin(protocol.FieldHeader{ID: 1, Type: protocol.TypeString}))
			mustOK(t, w.WriteString("table1"))
			mustOK(t, w.WriteFieldEnd())
			mustOK(t, w.WriteFieldBegin(protocol.FieldHeader{ID: 9, Type: u.typ}))
			mustOK(t, u.write(w))
			mustOK(t, w.WriteFieldEnd())
			mustOK(t, w.WriteFieldBegin(protocol.FieldHeader{ID: 2, Type: protocol.TypeBool}))
			mustOK(t, w.WriteBool(false))
			mustOK(t, w.WriteFieldEnd())
			mustOK(t, w.WriteFieldStop())
			mustOK(t, w.WriteStructEnd())
			mustOK(t, w.Flush())

			var l NamespaceListing
			if err := record.Unmarshal(buf.Bytes(), &l, f); err != nil {
				t.Fatalf("%s/%s: unmarshal: %v", f.Name(), u.typ, err)
			}
			if !l.Equal(NewNamespaceListing("table1", false)) {
				t.Fatalf("%s/%s: unexpected listing %s", f.Name(), u.typ, &l)
			}
		}
	}
}

func TestDecodeSkipsKnownIDWithWrongType(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	w := binary.NewWriter(&buf)
	mustOK(t, w.WriteFieldBegin(protocol.FieldHeader{ID: 1, Type: protocol.TypeI32}))
	mustOK(t, w.WriteI32(5))
	mustOK(t, w.WriteFieldBegin(protocol.FieldHeader{ID: 2, Type: protocol.TypeBool}))
	mustOK(t, w.WriteBool(true))
	mustOK(t, w.WriteFieldStop())
	mustOK(t, w.Flush())

	var l NamespaceListing
	err := record.Unmarshal(buf.Bytes(), &l, binary.Factory{})
	var me *schema.MissingFieldError
	if !errors.As(err, &me) || me.Field != "name" {
		t.Fatalf("expected name reported missing after skip, got %v", err)
	}
}

func TestDecodeMalformedInput(t *testing.T) {
	testlog.Start(t)
	good, err := record.Marshal(NewNamespaceListing("table1", true), binary.Factory{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for n := 0; n < len(good); n++ {
		var l NamespaceListing
		err := record.Unmarshal(good[:n], &l, binary.Factory{})
		if !errors.Is(err, protocol.ErrMalformed) {
			t.Fatalf("prefix %d: expected malformed, got %v", n, err)
		}
	}
}

func TestDeepCopyIndependent(t *testing.T) {
	testlog.Start(t)
	orig := NewNamespaceListing("a", true)
	cp := orig.DeepCopy()
	if !cp.Equal(orig) || cp.Hash() != orig.Hash() {
		t.Fatalf("copy must equal original and hash the same")
	}
	cp.SetName("b")
	cp.Unset(NamespaceListingFieldIsNamespace)
	if orig.GetName() != "a" || !orig.IsSetIsNamespace() {
		t.Fatalf("mutating copy changed original: %s", orig)
	}
	if cp.Equal(orig) {
		t.Fatalf("mutated copy must differ")
	}
	var nilListing *NamespaceListing
	if nilListing.DeepCopy() != nil {
		t.Fatalf("DeepCopy of nil must be nil")
	}
}

func TestEqualTracksPresence(t *testing.T) {
	testlog.Start(t)
	a := &NamespaceListing{}
	a.SetName("x")
	b := &NamespaceListing{}
	b.SetName("x")
	b.SetIsNamespace(false)
	if a.Equal(b) {
		t.Fatalf("explicit false must differ from unset")
	}
	if a.Hash() == b.Hash() {
		t.Fatalf("explicit false and unset should hash apart")
	}
	a.SetIsNamespace(false)
	if !a.Equal(b) || a.Hash() != b.Hash() {
		t.Fatalf("equal listings must hash equal")
	}
}

func TestCompareOrdering(t *testing.T) {
	testlog.Start(t)
	unsetName := &NamespaceListing{}
	unsetName.SetIsNamespace(true)
	empty := NewNamespaceListing("", false)
	fileA := NewNamespaceListing("a", false)
	nsA := NewNamespaceListing("a", true)
	fileB := NewNamespaceListing("b", false)

	ordered := []*NamespaceListing{unsetName, empty, fileA, nsA, fileB}
	for i := 0; i < len(ordered)-1; i++ {
		if c := ordered[i].Compare(ordered[i+1]); c >= 0 {
			t.Fatalf("expected %s < %s, compare=%d", ordered[i], ordered[i+1], c)
		}
		if c := ordered[i+1].Compare(ordered[i]); c <= 0 {
			t.Fatalf("expected %s > %s, compare=%d", ordered[i+1], ordered[i], c)
		}
	}
	if fileA.Compare(NewNamespaceListing("a", false)) != 0 {
		t.Fatalf("equal listings compare 0")
	}

	shuffled := []*NamespaceListing{fileB, nsA, unsetName, fileA, empty}
	SortNamespaceListings(shuffled)
	for i := range ordered {
		if shuffled[i] != ordered[i] {
			t.Fatalf("sort position %d: got %s want %s", i, shuffled[i], ordered[i])
		}
	}
}

func TestStringForm(t *testing.T) {
	testlog.Start(t)
	if got := NewNamespaceListing("table1", false).String(); got != "NamespaceListing(name:table1, is_namespace:false)" {
		t.Fatalf("unexpected string: %q", got)
	}
	if got := (&NamespaceListing{}).String(); got != "NamespaceListing(name:<unset>, is_namespace:<unset>)" {
		t.Fatalf("unexpected string: %q", got)
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
