package lazydb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
	"reflect"
	"unicode/utf8"
)

// A value is laid out on disk as [tag][elem tag if array][payload].
// There is no length prefix: fixed-width payloads have exactly their
// width, everything else runs to end of stream.

// numCodec converts one fixed-width element to and from its
// big-endian encoding.  goType is the Go type of the element, used to
// build typed slices for arrays.
type numCodec struct {
	goType reflect.Type
	put    func(buf []byte, v interface{}) error
	get    func(buf []byte) interface{}
}

var (
	bigOne   = big.NewInt(1)
	two128   = new(big.Int).Lsh(bigOne, 128)
	maxU128  = new(big.Int).Sub(two128, bigOne)
	maxI128  = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 127), bigOne)
	minI128  = new(big.Int).Neg(new(big.Int).Lsh(bigOne, 127))
	bigPtrTy = reflect.TypeOf((*big.Int)(nil))
)

var numCodecs = map[LazyType]numCodec{
	I8: {reflect.TypeOf(int8(0)),
		func(b []byte, v interface{}) error { b[0] = byte(v.(int8)); return nil },
		func(b []byte) interface{} { return int8(b[0]) }},
	I16: {reflect.TypeOf(int16(0)),
		func(b []byte, v interface{}) error { binary.BigEndian.PutUint16(b, uint16(v.(int16))); return nil },
		func(b []byte) interface{} { return int16(binary.BigEndian.Uint16(b)) }},
	I32: {reflect.TypeOf(int32(0)),
		func(b []byte, v interface{}) error { binary.BigEndian.PutUint32(b, uint32(v.(int32))); return nil },
		func(b []byte) interface{} { return int32(binary.BigEndian.Uint32(b)) }},
	I64: {reflect.TypeOf(int64(0)),
		func(b []byte, v interface{}) error { binary.BigEndian.PutUint64(b, uint64(v.(int64))); return nil },
		func(b []byte) interface{} { return int64(binary.BigEndian.Uint64(b)) }},
	I128: {bigPtrTy, putI128, getI128},
	U8: {reflect.TypeOf(uint8(0)),
		func(b []byte, v interface{}) error { b[0] = v.(uint8); return nil },
		func(b []byte) interface{} { return b[0] }},
	U16: {reflect.TypeOf(uint16(0)),
		func(b []byte, v interface{}) error { binary.BigEndian.PutUint16(b, v.(uint16)); return nil },
		func(b []byte) interface{} { return binary.BigEndian.Uint16(b) }},
	U32: {reflect.TypeOf(uint32(0)),
		func(b []byte, v interface{}) error { binary.BigEndian.PutUint32(b, v.(uint32)); return nil },
		func(b []byte) interface{} { return binary.BigEndian.Uint32(b) }},
	U64: {reflect.TypeOf(uint64(0)),
		func(b []byte, v interface{}) error { binary.BigEndian.PutUint64(b, v.(uint64)); return nil },
		func(b []byte) interface{} { return binary.BigEndian.Uint64(b) }},
	U128: {bigPtrTy, putU128, getU128},
	F32: {reflect.TypeOf(float32(0)),
		func(b []byte, v interface{}) error { binary.BigEndian.PutUint32(b, math.Float32bits(v.(float32))); return nil },
		func(b []byte) interface{} { return math.Float32frombits(binary.BigEndian.Uint32(b)) }},
	F64: {reflect.TypeOf(float64(0)),
		func(b []byte, v interface{}) error { binary.BigEndian.PutUint64(b, math.Float64bits(v.(float64))); return nil },
		func(b []byte) interface{} { return math.Float64frombits(binary.BigEndian.Uint64(b)) }},
}

func putU128(b []byte, v interface{}) error {
	n, _ := v.(*big.Int)
	if n == nil || n.Sign() < 0 || n.Cmp(maxU128) > 0 {
		return fmt.Errorf("value %v out of range for u128", n)
	}
	n.FillBytes(b)
	return nil
}

func getU128(b []byte) interface{} {
	return new(big.Int).SetBytes(b)
}

// putI128 writes n as 16-byte two's complement.
func putI128(b []byte, v interface{}) error {
	n, _ := v.(*big.Int)
	if n == nil || n.Cmp(minI128) < 0 || n.Cmp(maxI128) > 0 {
		return fmt.Errorf("value %v out of range for i128", n)
	}
	if n.Sign() >= 0 {
		n.FillBytes(b)
		return nil
	}
	new(big.Int).Add(n, two128).FillBytes(b)
	return nil
}

func getI128(b []byte) interface{} {
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		n.Sub(n, two128)
	}
	return n
}

// Encode writes v's tag followed by its payload to w.
func Encode(w io.Writer, v Value) (err error) {
	buf, err := v.MarshalBinary()
	if err != nil {
		return
	}
	_, err = w.Write(buf)
	return
}

// MarshalBinary returns the complete on-disk encoding of v.
func (v Value) MarshalBinary() (buf []byte, err error) {
	tag := v.Tag
	if !tag.Type.valid() {
		return nil, fmt.Errorf("cannot encode tag %s", tag)
	}
	buf = tag.Bytes()
	switch tag.Type {
	case Void, True, False:
		return
	case String, Link:
		s, ok := v.v.(string)
		if !ok {
			return nil, fmt.Errorf("%s value holds %T", tag, v.v)
		}
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%s value is not valid utf-8", tag)
		}
		return append(buf, s...), nil
	case Binary:
		b, ok := v.v.([]byte)
		if !ok && v.v != nil {
			return nil, fmt.Errorf("%s value holds %T", tag, v.v)
		}
		return append(buf, b...), nil
	case Array:
		return appendArray(buf, tag.Elem, v.v)
	}
	codec := numCodecs[tag.Type]
	if reflect.TypeOf(v.v) != codec.goType {
		return nil, fmt.Errorf("%s value holds %T", tag, v.v)
	}
	elem := make([]byte, tag.Type.Width())
	err = codec.put(elem, v.v)
	if err != nil {
		return nil, err
	}
	return append(buf, elem...), nil
}

func appendArray(buf []byte, elemType LazyType, slice interface{}) ([]byte, error) {
	codec, ok := numCodecs[elemType]
	if !ok {
		return nil, fmt.Errorf("arrays of %s are not supported", elemType)
	}
	rv := reflect.ValueOf(slice)
	if rv.Kind() != reflect.Slice || rv.Type().Elem() != codec.goType {
		return nil, fmt.Errorf("%s[] value holds %T", elemType, slice)
	}
	width := elemType.Width()
	elem := make([]byte, width)
	for i := 0; i < rv.Len(); i++ {
		err := codec.put(elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %v", i, err)
		}
		buf = append(buf, elem...)
	}
	return buf, nil
}

// DecodeTag reads only the tag prefix from r, leaving the payload
// unread.
func DecodeTag(r io.Reader) (tag Tag, err error) {
	var b [1]byte
	_, err = io.ReadFull(r, b[:])
	if err == io.EOF {
		return tag, &MalformedPayloadError{Msg: "missing type tag"}
	}
	if err != nil {
		return
	}
	tag.Type = LazyType(b[0])
	if !tag.Type.valid() {
		return tag, &MalformedPayloadError{Tag: tag, Msg: fmt.Sprintf("unknown type tag %d", b[0])}
	}
	if tag.Type != Array {
		return
	}
	_, err = io.ReadFull(r, b[:])
	if err == io.EOF {
		return tag, &MalformedPayloadError{Tag: tag, Msg: "missing array element tag"}
	}
	if err != nil {
		return
	}
	tag.Elem = LazyType(b[0])
	if tag.Elem.Width() == 0 {
		return tag, &MalformedPayloadError{Tag: tag, Msg: fmt.Sprintf("unsupported array element tag %d", b[0])}
	}
	return
}

// DecodePayload interprets payload, the bytes following a stored tag,
// as the expected type.  A stored tag that does not satisfy expected
// is a *TypeMismatchError; nothing is ever coerced.
func DecodePayload(stored, expected Tag, payload []byte) (v Value, err error) {
	malformed := func(format string, args ...interface{}) error {
		return &MalformedPayloadError{Tag: stored, Msg: fmt.Sprintf(format, args...)}
	}
	if !stored.Type.valid() {
		return v, malformed("unknown type tag %d", uint8(stored.Type))
	}
	if stored.Type == Array && stored.Elem.Width() == 0 {
		return v, malformed("unsupported array element tag %d", uint8(stored.Elem))
	}
	if !stored.Matches(expected) {
		return v, &TypeMismatchError{Stored: stored, Expected: expected}
	}
	v.Tag = stored
	switch stored.Type {
	case Void, True, False:
		if len(payload) != 0 {
			return v, malformed("%d trailing bytes", len(payload))
		}
		if stored.Type != Void {
			v.v = stored.Type == True
		}
		return
	case String, Link:
		if !utf8.Valid(payload) {
			return v, malformed("invalid utf-8")
		}
		v.v = string(payload)
		return
	case Binary:
		v.v = append([]byte{}, payload...)
		return
	case Array:
		codec := numCodecs[stored.Elem]
		width := stored.Elem.Width()
		if len(payload)%width != 0 {
			return v, malformed("%d bytes is not a multiple of element width %d", len(payload), width)
		}
		n := len(payload) / width
		slice := reflect.MakeSlice(reflect.SliceOf(codec.goType), n, n)
		for i := 0; i < n; i++ {
			elem := codec.get(payload[i*width : (i+1)*width])
			slice.Index(i).Set(reflect.ValueOf(elem))
		}
		v.v = slice.Interface()
		return
	}
	width := stored.Type.Width()
	if len(payload) != width {
		return v, malformed("%d bytes, want %d", len(payload), width)
	}
	v.v = numCodecs[stored.Type].get(payload)
	return
}

// Decode decodes a complete encoding, tag included.
func Decode(buf []byte, expected Tag) (v Value, err error) {
	r := bytes.NewReader(buf)
	tag, err := DecodeTag(r)
	if err != nil {
		return
	}
	return DecodePayload(tag, expected, buf[len(buf)-r.Len():])
}
