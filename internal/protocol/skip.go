package protocol

import "fmt"

// Skip consumes exactly one encoded value of type t without interpreting it.
// Structs and containers are walked recursively so the stream stays aligned
// for whatever follows.
func Skip(r Reader, t Type) error {
	depth := r.Limits().MaxDepth
	if depth <= 0 {
		depth = DefaultLimits().MaxDepth
	}
	return skip(r, t, depth)
}

func skip(r Reader, t Type, depth int) error {
	if depth <= 0 {
		return ErrDepthExceeded
	}
	switch t {
	case TypeBool:
		_, err := r.ReadBool()
		return err
	case TypeByte:
		_, err := r.ReadI8()
		return err
	case TypeI16:
		_, err := r.ReadI16()
		return err
	case TypeI32:
		_, err := r.ReadI32()
		return err
	case TypeI64:
		_, err := r.ReadI64()
		return err
	case TypeDouble:
		_, err := r.ReadDouble()
		return err
	case TypeString:
		_, err := r.ReadBinary()
		return err
	case TypeStruct:
		return skipStruct(r, depth)
	case TypeMap:
		h, err := r.ReadMapBegin()
		if err != nil {
			return err
		}
		for i := 0; i < h.Size; i++ {
			if err := skip(r, h.KeyType, depth-1); err != nil {
				return err
			}
			if err := skip(r, h.ValueType, depth-1); err != nil {
				return err
			}
		}
		return r.ReadMapEnd()
	case TypeSet:
		h, err := r.ReadSetBegin()
		if err != nil {
			return err
		}
		if err := skipElems(r, h, depth); err != nil {
			return err
		}
		return r.ReadSetEnd()
	case TypeList:
		h, err := r.ReadListBegin()
		if err != nil {
			return err
		}
		if err := skipElems(r, h, depth); err != nil {
			return err
		}
		return r.ReadListEnd()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}

func skipStruct(r Reader, depth int) error {
	if _, err := r.ReadStructBegin(); err != nil {
		return err
	}
	for {
		h, err := r.ReadFieldBegin()
		if err != nil {
			return err
		}
		if h.IsStop() {
			break
		}
		if err := skip(r, h.Type, depth-1); err != nil {
			return err
		}
		if err := r.ReadFieldEnd(); err != nil {
			return err
		}
	}
	return r.ReadStructEnd()
}

func skipElems(r Reader, h ListHeader, depth int) error {
	for i := 0; i < h.Size; i++ {
		if err := skip(r, h.ElemType, depth-1); err != nil {
			return err
		}
	}
	return nil
}
