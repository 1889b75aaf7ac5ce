package persist

import (
	"fmt"
	"math"
)

// ItemFunc persists one element of a collection.
type ItemFunc[T any] func(p *Persister, item *T)

// PersistObject recurses into obj unless an error is already recorded.
func PersistObject(p *Persister, obj Persistable) {
	if p.err != nil {
		return
	}
	obj.Persist(p)
}

// PersistObjectValue adapts a value type with a pointer Persist method into
// an ItemFunc, e.g. persist.PersistObjectValue[teamMember].
func PersistObjectValue[T any, PT interface {
	*T
	Persistable
}](p *Persister, item *T) {
	PersistObject(p, PT(item))
}

// PersistEnum persists an enum as a four-byte integer.
func PersistEnum[E ~uint32 | ~int32](p *Persister, v *E) {
	u := uint32(*v)
	p.PersistUint32(&u)
	if p.Reading() && p.err == nil {
		*v = E(u)
	}
}

// PersistEnumByte persists an enum as a single byte.
func PersistEnumByte[E ~uint8](p *Persister, v *E) {
	u := uint8(*v)
	p.PersistUint8(&u)
	if p.Reading() && p.err == nil {
		*v = E(u)
	}
}

// PersistList persists a variable-length list with a uint16 count. Reading
// replaces the slice contents.
func PersistList[T any](p *Persister, items *[]T, fn ItemFunc[T]) {
	if p.Writing() && len(*items) > math.MaxUint16 {
		p.fail(fmt.Errorf("%w: list of %d items exceeds uint16 count", ErrValueOutOfRange, len(*items)))
		return
	}
	count := uint16(len(*items))
	p.PersistUint16(&count)
	persistItems(p, items, int(count), fn)
}

// PersistListUint32 persists a variable-length list with a uint32 count.
func PersistListUint32[T any](p *Persister, items *[]T, fn ItemFunc[T]) {
	if p.Writing() && uint64(len(*items)) > math.MaxUint32 {
		p.fail(fmt.Errorf("%w: list of %d items exceeds uint32 count", ErrValueOutOfRange, len(*items)))
		return
	}
	count := uint32(len(*items))
	p.PersistUint32(&count)
	persistItems(p, items, int(count), fn)
}

func persistItems[T any](p *Persister, items *[]T, count int, fn ItemFunc[T]) {
	if p.err != nil {
		return
	}

	if p.Writing() {
		for i := range *items {
			fn(p, &(*items)[i])
		}
		return
	}

	// Preallocation is capped by the bytes left so a corrupt count cannot
	// allocate more than the input size.
	out := make([]T, 0, min(count, p.Remaining()))
	for i := 0; i < count && p.err == nil; i++ {
		var item T
		fn(p, &item)
		out = append(out, item)
	}
	if p.err == nil {
		*items = out
	}
}

// PersistArray persists a fixed-length array with no count prefix.
func PersistArray[T any](p *Persister, items []T, fn ItemFunc[T]) {
	for i := range items {
		if p.err != nil {
			return
		}
		fn(p, &items[i])
	}
}

// PersistArrayUint32 persists a fixed-length array preceded by its length as
// a uint32. A reader requires the stored length to match.
func PersistArrayUint32[T any](p *Persister, items []T, fn ItemFunc[T]) {
	n := uint32(len(items))
	p.PersistUint32(&n)
	if p.Reading() && p.err == nil && int(n) != len(items) {
		p.Invalid("array length %d, expected %d", n, len(items))
		return
	}
	PersistArray(p, items, fn)
}
