package record

import "cmp"

// ComparePresence orders absent before present.
func ComparePresence(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// CompareBool orders false before true.
func CompareBool(a, b bool) int {
	return ComparePresence(a, b)
}

// CompareOptional compares presence first and values only when both are set.
func CompareOptional[T cmp.Ordered](a, b Optional[T]) int {
	if c := ComparePresence(a.set, b.set); c != 0 || !a.set {
		return c
	}
	return cmp.Compare(a.value, b.value)
}

func CompareOptionalBool(a, b Optional[bool]) int {
	if c := ComparePresence(a.set, b.set); c != 0 || !a.set {
		return c
	}
	return CompareBool(a.value, b.value)
}

// EqualOptional reports whether presence agrees and, when present, values agree.
func EqualOptional[T comparable](a, b Optional[T]) bool {
	if a.set != b.set {
		return false
	}
	return !a.set || a.value == b.value
}
