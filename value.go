package lazydb

import (
	"fmt"
	"math/big"
	"reflect"
)

// Value is a single typed datum: a tag plus the Go value it carries.
// The zero Value is a void.
type Value struct {
	Tag Tag
	v   interface{}
}

// Interface returns the Go datum: nil for void, bool for booleans,
// the sized numeric types, *big.Int for 128-bit integers, string for
// strings and links, []byte for binary, and a typed slice for arrays.
func (v Value) Interface() interface{} {
	return v.v
}

func (v Value) String() string {
	switch v.Tag.Type {
	case Void:
		return "()"
	case Binary:
		return fmt.Sprintf("%x", v.v)
	}
	return fmt.Sprintf("%v", v.v)
}

func NewVoid() Value {
	return Value{Tag: Tag{Type: Void}}
}

// NewBool stores b as one of the two payload-less tags True or False.
func NewBool(b bool) Value {
	if b {
		return Value{Tag: Tag{Type: True}, v: true}
	}
	return Value{Tag: Tag{Type: False}, v: false}
}

func NewString(s string) Value  { return Value{Tag{Type: String}, s} }
func NewBinary(b []byte) Value  { return Value{Tag{Type: Binary}, b} }
func NewLink(path string) Value { return Value{Tag{Type: Link}, path} }

func NewI8(n int8) Value   { return Value{Tag{Type: I8}, n} }
func NewI16(n int16) Value { return Value{Tag{Type: I16}, n} }
func NewI32(n int32) Value { return Value{Tag{Type: I32}, n} }
func NewI64(n int64) Value { return Value{Tag{Type: I64}, n} }

// NewI128 fails at encode time if n does not fit in 128-bit two's
// complement.
func NewI128(n *big.Int) Value { return Value{Tag{Type: I128}, n} }

func NewU8(n uint8) Value   { return Value{Tag{Type: U8}, n} }
func NewU16(n uint16) Value { return Value{Tag{Type: U16}, n} }
func NewU32(n uint32) Value { return Value{Tag{Type: U32}, n} }
func NewU64(n uint64) Value { return Value{Tag{Type: U64}, n} }

// NewU128 fails at encode time if n is negative or wider than 128 bits.
func NewU128(n *big.Int) Value { return Value{Tag{Type: U128}, n} }

func NewF32(f float32) Value { return Value{Tag{Type: F32}, f} }
func NewF64(f float64) Value { return Value{Tag{Type: F64}, f} }

func NewI8Array(a []int8) Value       { return Value{ArrayOf(I8), a} }
func NewI16Array(a []int16) Value     { return Value{ArrayOf(I16), a} }
func NewI32Array(a []int32) Value     { return Value{ArrayOf(I32), a} }
func NewI64Array(a []int64) Value     { return Value{ArrayOf(I64), a} }
func NewI128Array(a []*big.Int) Value { return Value{ArrayOf(I128), a} }
func NewU8Array(a []uint8) Value      { return Value{ArrayOf(U8), a} }
func NewU16Array(a []uint16) Value    { return Value{ArrayOf(U16), a} }
func NewU32Array(a []uint32) Value    { return Value{ArrayOf(U32), a} }
func NewU64Array(a []uint64) Value    { return Value{ArrayOf(U64), a} }
func NewU128Array(a []*big.Int) Value { return Value{ArrayOf(U128), a} }
func NewF32Array(a []float32) Value   { return Value{ArrayOf(F32), a} }
func NewF64Array(a []float64) Value   { return Value{ArrayOf(F64), a} }

// NewArray builds an array of elem from scalar values, each of which
// must carry exactly the tag elem.
func NewArray(elem LazyType, elems []Value) (v Value, err error) {
	codec, ok := numCodecs[elem]
	if !ok {
		return v, fmt.Errorf("%s is not an array element type", elem)
	}
	a := reflect.MakeSlice(reflect.SliceOf(codec.goType), len(elems), len(elems))
	for i, e := range elems {
		if e.Tag != (Tag{Type: elem}) {
			return v, fmt.Errorf("element %d is %s, not %s", i, e.Tag, elem)
		}
		a.Index(i).Set(reflect.ValueOf(e.v))
	}
	return Value{ArrayOf(elem), a.Interface()}, nil
}
