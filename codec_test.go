package lazydb

import (
	"bytes"
	"math"
	"math/big"
	"reflect"
	"testing"
)

func roundtrip(t *testing.T, v Value) Value {
	t.Helper()
	buf, err := v.MarshalBinary()
	tck(t, err)
	got, err := Decode(buf, v.Tag)
	tck(t, err)
	tassert(t, got.Tag == v.Tag, "tag: expected %s got %s", v.Tag, got.Tag)
	return got
}

func TestRoundtripScalars(t *testing.T) {
	values := []Value{
		NewI8(0), NewI8(-1), NewI8(math.MinInt8), NewI8(math.MaxInt8),
		NewI16(0), NewI16(-1), NewI16(math.MinInt16), NewI16(math.MaxInt16),
		NewI32(0), NewI32(-1), NewI32(math.MinInt32), NewI32(math.MaxInt32),
		NewI64(0), NewI64(-1), NewI64(math.MinInt64), NewI64(math.MaxInt64),
		NewU8(0), NewU8(math.MaxUint8),
		NewU16(0), NewU16(math.MaxUint16),
		NewU32(0), NewU32(math.MaxUint32),
		NewU64(0), NewU64(math.MaxUint64),
		NewF32(0), NewF32(123.234), NewF32(float32(math.Inf(1))), NewF32(float32(math.Inf(-1))),
		NewF64(0), NewF64(123141234.1234), NewF64(math.Inf(1)), NewF64(math.Inf(-1)),
		NewF64(math.SmallestNonzeroFloat64), NewF64(math.MaxFloat64),
		NewString(""), NewString("Hello world!"), NewString("héllo ✓"),
		NewLink(""), NewLink("people/Dave"),
		NewBool(true), NewBool(false),
		NewVoid(),
	}
	for _, v := range values {
		got := roundtrip(t, v)
		tassert(t, got.Interface() == v.Interface(), "%s: expected %v got %v", v.Tag, v, got)
	}
}

func TestRoundtripBinary(t *testing.T) {
	for _, b := range [][]byte{{}, {12, 234, 48, 128}, bytes.Repeat([]byte{0xff}, 1000)} {
		got := roundtrip(t, NewBinary(b))
		tassert(t, bytes.Equal(got.Interface().([]byte), b), "expected %x got %x", b, got.Interface())
	}
}

func TestRoundtripNaN(t *testing.T) {
	nan64 := math.Float64frombits(0x7ff8000000000001)
	got := roundtrip(t, NewF64(nan64)).Interface().(float64)
	tassert(t, math.Float64bits(got) == math.Float64bits(nan64), "f64 NaN bits %x", math.Float64bits(got))

	nan32 := math.Float32frombits(0x7fc00001)
	got32 := roundtrip(t, NewF32(nan32)).Interface().(float32)
	tassert(t, math.Float32bits(got32) == math.Float32bits(nan32), "f32 NaN bits %x", math.Float32bits(got32))
}

func TestRoundtrip128(t *testing.T) {
	one := big.NewInt(1)
	i128 := []*big.Int{
		big.NewInt(0), big.NewInt(-1), big.NewInt(42),
		new(big.Int).Lsh(one, 100),
		new(big.Int).Sub(new(big.Int).Lsh(one, 127), one),
		new(big.Int).Neg(new(big.Int).Lsh(one, 127)),
	}
	for _, n := range i128 {
		got := roundtrip(t, NewI128(n)).Interface().(*big.Int)
		tassert(t, got.Cmp(n) == 0, "i128: expected %v got %v", n, got)
	}
	u128 := []*big.Int{
		big.NewInt(0), big.NewInt(1),
		new(big.Int).Sub(new(big.Int).Lsh(one, 128), one),
	}
	for _, n := range u128 {
		got := roundtrip(t, NewU128(n)).Interface().(*big.Int)
		tassert(t, got.Cmp(n) == 0, "u128: expected %v got %v", n, got)
	}

	// -1 is all ones on disk
	buf, err := NewI128(big.NewInt(-1)).MarshalBinary()
	tck(t, err)
	tassert(t, bytes.Equal(buf[1:], bytes.Repeat([]byte{0xff}, 16)), "i128 -1 encoded as %x", buf)

	_, err = NewU128(big.NewInt(-1)).MarshalBinary()
	tassert(t, err != nil, "negative u128 encoded")
	_, err = NewU128(new(big.Int).Lsh(one, 128)).MarshalBinary()
	tassert(t, err != nil, "u128 overflow encoded")
	_, err = NewI128(new(big.Int).Lsh(one, 127)).MarshalBinary()
	tassert(t, err != nil, "i128 overflow encoded")
}

func TestRoundtripArrays(t *testing.T) {
	values := []Value{
		NewI8Array([]int8{-128, 0, 127}),
		NewI16Array([]int16{math.MinInt16, 1}),
		NewI32Array([]int32{1, -2, 3}),
		NewI64Array([]int64{math.MaxInt64}),
		NewU8Array([]uint8{0, 255}),
		NewU16Array([]uint16{1, 2, 3, 4}),
		NewU32Array([]uint32{math.MaxUint32}),
		NewU64Array([]uint64{0, math.MaxUint64}),
		NewF32Array([]float32{1.5, -2.25}),
		NewF64Array([]float64{math.Pi, math.E}),
		NewU8Array([]uint8{}),
		NewF64Array([]float64{}),
	}
	for _, v := range values {
		got := roundtrip(t, v)
		exp := reflect.ValueOf(v.Interface())
		gv := reflect.ValueOf(got.Interface())
		tassert(t, exp.Len() == gv.Len(), "%s: expected len %d got %d", v.Tag, exp.Len(), gv.Len())
		for i := 0; i < exp.Len(); i++ {
			tassert(t, exp.Index(i).Interface() == gv.Index(i).Interface(), "%s[%d]: expected %v got %v", v.Tag, i, exp.Index(i), gv.Index(i))
		}
	}

	big128 := []*big.Int{big.NewInt(-7), big.NewInt(7)}
	got := roundtrip(t, NewI128Array(big128)).Interface().([]*big.Int)
	tassert(t, len(got) == 2 && got[0].Cmp(big128[0]) == 0 && got[1].Cmp(big128[1]) == 0, "i128[]: got %v", got)
}

func TestEncodingLayout(t *testing.T) {
	cases := []struct {
		v      Value
		expect []byte
	}{
		{NewU8(21), []byte{byte(U8), 21}},
		{NewI16(-2), []byte{byte(I16), 0xff, 0xfe}},
		{NewU32(1), []byte{byte(U32), 0, 0, 0, 1}},
		{NewBool(true), []byte{byte(True)}},
		{NewBool(false), []byte{byte(False)}},
		{NewVoid(), []byte{byte(Void)}},
		{NewString("hi"), []byte{byte(String), 'h', 'i'}},
		{NewU16Array([]uint16{1, 2}), []byte{byte(Array), byte(U16), 0, 1, 0, 2}},
		{NewU8Array(nil), []byte{byte(Array), byte(U8)}},
		{NewF32(1), []byte{byte(F32), 0x3f, 0x80, 0, 0}},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		err := Encode(&buf, c.v)
		tck(t, err)
		tassert(t, bytes.Equal(buf.Bytes(), c.expect), "%s: expected %x got %x", c.v.Tag, c.expect, buf.Bytes())
	}
}

func TestDecodeTag(t *testing.T) {
	r := bytes.NewReader([]byte{byte(Array), byte(I32), 0, 0, 0, 1})
	tag, err := DecodeTag(r)
	tck(t, err)
	tassert(t, tag == ArrayOf(I32), "tag %s", tag)
	tassert(t, r.Len() == 4, "DecodeTag consumed payload: %d left", r.Len())

	_, err = DecodeTag(bytes.NewReader(nil))
	tkind(t, err, KindMalformedPayload)
	_, err = DecodeTag(bytes.NewReader([]byte{200}))
	tkind(t, err, KindMalformedPayload)
	_, err = DecodeTag(bytes.NewReader([]byte{byte(Array)}))
	tkind(t, err, KindMalformedPayload)
	_, err = DecodeTag(bytes.NewReader([]byte{byte(Array), byte(String)}))
	tkind(t, err, KindMalformedPayload)
}

func TestTypeMismatch(t *testing.T) {
	values := []Value{
		NewU8(21), NewI8(21), NewString("21"), NewBinary([]byte{21}),
		NewBool(true), NewVoid(), NewLink("x"), NewU8Array([]uint8{21}),
		NewU16Array([]uint16{21}), NewF32(21),
	}
	for _, v := range values {
		buf, err := v.MarshalBinary()
		tck(t, err)
		for _, other := range values {
			if other.Tag.Matches(v.Tag) || v.Tag.Matches(other.Tag) {
				continue
			}
			_, err = Decode(buf, other.Tag)
			tkind(t, err, KindTypeMismatch)
		}
	}
	// both booleans satisfy a bool request, and nothing else does
	for _, b := range []bool{true, false} {
		buf, err := NewBool(b).MarshalBinary()
		tck(t, err)
		v, err := Decode(buf, Tag{Type: Bool})
		tck(t, err)
		tassert(t, v.Interface() == b, "bool: expected %v got %v", b, v)
	}
	buf, err := NewU8(1).MarshalBinary()
	tck(t, err)
	_, err = Decode(buf, Tag{Type: Bool})
	tkind(t, err, KindTypeMismatch)
}

func TestMalformedPayload(t *testing.T) {
	cases := []struct {
		buf      []byte
		expected Tag
	}{
		{[]byte{byte(U32), 0, 0, 1}, Tag{Type: U32}},
		{[]byte{byte(U8)}, Tag{Type: U8}},
		{[]byte{byte(U8), 1, 2}, Tag{Type: U8}},
		{[]byte{byte(Array), byte(U16), 0, 1, 2}, ArrayOf(U16)},
		{[]byte{byte(String), 0xff, 0xfe}, Tag{Type: String}},
		{[]byte{byte(Link), 0xc3}, Tag{Type: Link}},
		{[]byte{byte(Void), 0}, Tag{Type: Void}},
	}
	for _, c := range cases {
		_, err := Decode(c.buf, c.expected)
		tkind(t, err, KindMalformedPayload)
	}

	// tags that DecodeTag would never produce
	bad := []Tag{ArrayOf(Void), ArrayOf(String), ArrayOf(Bool), {Type: LazyType(99)}, {Type: Bool}}
	for _, tag := range bad {
		_, err := DecodePayload(tag, tag, []byte{1, 2})
		tkind(t, err, KindMalformedPayload)
		_, err = DecodePayload(tag, Tag{Type: U8}, nil)
		tkind(t, err, KindMalformedPayload)
	}
}

func TestEncodeBadValue(t *testing.T) {
	bad := []Value{
		{Tag: Tag{Type: U8}, v: "x"},
		{Tag: Tag{Type: String}, v: 1},
		{Tag: ArrayOf(String), v: []string{"x"}},
		{Tag: ArrayOf(U8), v: []uint16{1}},
		{Tag: Tag{Type: LazyType(99)}},
		NewString("\xff\xfe"),
		NewLink("people/\xc3"),
	}
	for _, v := range bad {
		_, err := v.MarshalBinary()
		tassert(t, err != nil, "%s: encoded %#v", v.Tag, v.v)
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]Tag{
		"u8":     {Type: U8},
		"I128":   {Type: I128},
		"string": {Type: String},
		"bool":   {Type: Bool},
		"void":   {Type: Void},
		"link":   {Type: Link},
		"binary": {Type: Binary},
		"f32[]":  ArrayOf(F32),
		"u128[]": ArrayOf(U128),
	}
	for name, expect := range cases {
		got, err := ParseType(name)
		tck(t, err)
		tassert(t, got == expect, "%s: expected %s got %s", name, expect, got)
	}
	for _, name := range []string{"", "true", "array", "string[]", "u7", "bool[]"} {
		_, err := ParseType(name)
		tassert(t, err != nil, "ParseType(%q) succeeded", name)
	}
	tassert(t, ArrayOf(U16).String() == "u16[]", "tag string %q", ArrayOf(U16).String())
}

func TestNewArray(t *testing.T) {
	v, err := NewArray(U16, []Value{NewU16(1), NewU16(2)})
	tck(t, err)
	tassert(t, v.Tag == ArrayOf(U16), "tag %s", v.Tag)
	a := roundtrip(t, v).Interface().([]uint16)
	tassert(t, len(a) == 2 && a[1] == 2, "array %v", a)

	v, err = NewArray(I128, []Value{NewI128(big.NewInt(-1))})
	tck(t, err)
	tassert(t, v.String() == "[-1]", "string %s", v)

	v, err = NewArray(F64, nil)
	tck(t, err)
	tassert(t, reflect.ValueOf(v.Interface()).Len() == 0, "empty array %v", v)

	_, err = NewArray(U16, []Value{NewU8(1)})
	tassert(t, err != nil, "mixed element types accepted")
	_, err = NewArray(String, []Value{NewString("x")})
	tassert(t, err != nil, "string array accepted")
}
