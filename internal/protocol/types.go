package protocol

import "fmt"

// Type is the wire type written alongside a field id or container header.
type Type uint8

// Wire type identifiers. Values follow the binary protocol numbering; other
// strategies translate to their own codes.
const (
	TypeStop   Type = 0
	TypeVoid   Type = 1
	TypeBool   Type = 2
	TypeByte   Type = 3
	TypeDouble Type = 4
	TypeI16    Type = 6
	TypeI32    Type = 8
	TypeI64    Type = 10
	TypeString Type = 11
	TypeStruct Type = 12
	TypeMap    Type = 13
	TypeSet    Type = 14
	TypeList   Type = 15
)

var typeNames = map[Type]string{
	TypeStop:   "STOP",
	TypeVoid:   "VOID",
	TypeBool:   "BOOL",
	TypeByte:   "BYTE",
	TypeDouble: "DOUBLE",
	TypeI16:    "I16",
	TypeI32:    "I32",
	TypeI64:    "I64",
	TypeString: "STRING",
	TypeStruct: "STRUCT",
	TypeMap:    "MAP",
	TypeSet:    "SET",
	TypeList:   "LIST",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Valid reports whether t is a value type that can appear on the wire.
func (t Type) Valid() bool {
	switch t {
	case TypeBool, TypeByte, TypeDouble, TypeI16, TypeI32, TypeI64,
		TypeString, TypeStruct, TypeMap, TypeSet, TypeList:
		return true
	default:
		return false
	}
}

// FieldHeader is the tag written before every field value.
type FieldHeader struct {
	Name string
	ID   int16
	Type Type
}

// IsStop reports whether h terminates the field list of a struct.
func (h FieldHeader) IsStop() bool {
	return h.Type == TypeStop
}

// StructHeader names a struct on the wire. Strategies may ignore it.
type StructHeader struct {
	Name string
}

// ListHeader describes a list or set.
type ListHeader struct {
	ElemType Type
	Size     int
}

// MapHeader describes a map.
type MapHeader struct {
	KeyType   Type
	ValueType Type
	Size      int
}
