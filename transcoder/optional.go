package transcoder

import "reflect"

// Optional holds a T or nothing. Nothing travels as the nil atom.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an empty Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }
func (o Optional[T]) IsSome() bool   { return o.ok }

// OrElse returns the held value or def.
func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

type optional interface {
	optionalElem() reflect.Type
	optionalGet() (reflect.Value, bool)
}

type optionalSetter interface {
	optionalSlot() reflect.Value
	optionalSet(ok bool)
}

func (Optional[T]) optionalElem() reflect.Type { return reflect.TypeFor[T]() }

func (o Optional[T]) optionalGet() (reflect.Value, bool) {
	return reflect.ValueOf(&o.value).Elem(), o.ok
}

func (o *Optional[T]) optionalSlot() reflect.Value { return reflect.ValueOf(&o.value).Elem() }

func (o *Optional[T]) optionalSet(ok bool) {
	o.ok = ok
	if !ok {
		var zero T
		o.value = zero
	}
}
