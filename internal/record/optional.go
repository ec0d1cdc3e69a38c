package record

// Optional is a field value together with its presence. The zero value is
// absent. Copying an Optional copies its presence.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// Value returns the held value, or the zero value when absent.
func (o Optional[T]) Value() T {
	return o.value
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// Or returns the held value, or def when absent.
func (o Optional[T]) Or(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

// Unset clears the value back to zero and marks it absent.
func (o *Optional[T]) Unset() {
	var zero T
	o.value = zero
	o.set = false
}
