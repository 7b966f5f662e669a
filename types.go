package lazydb

import (
	"fmt"
	"strings"
)

// LazyType is the on-disk discriminant of a stored value.  The byte
// values are part of the file format and must never be renumbered.
type LazyType uint8

const (
	Void LazyType = iota
	String
	I8
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	F32
	F64
	Binary
	True
	False
	Array
	Link
)

// Bool is not a tag byte of its own; it is the type callers ask for
// when either True or False is acceptable.
const Bool LazyType = 0xff

var typeNames = map[LazyType]string{
	Void:   "void",
	String: "string",
	I8:     "i8",
	I16:    "i16",
	I32:    "i32",
	I64:    "i64",
	I128:   "i128",
	U8:     "u8",
	U16:    "u16",
	U32:    "u32",
	U64:    "u64",
	U128:   "u128",
	F32:    "f32",
	F64:    "f64",
	Binary: "binary",
	True:   "true",
	False:  "false",
	Array:  "array",
	Link:   "link",
	Bool:   "bool",
}

func (t LazyType) String() string {
	name, ok := typeNames[t]
	if !ok {
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
	return name
}

// valid reports whether t is a tag byte that may appear on disk.
func (t LazyType) valid() bool {
	return t <= Link
}

// Width returns the payload width in bytes of a fixed-width numeric
// type, or 0 for everything else.
func (t LazyType) Width() int {
	switch t {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	case I128, U128:
		return 16
	}
	return 0
}

// Tag is the decoded one-or-two byte prefix of a value.  Elem is only
// meaningful when Type is Array.
type Tag struct {
	Type LazyType
	Elem LazyType
}

// ArrayOf returns the tag of an array of elem.
func ArrayOf(elem LazyType) Tag {
	return Tag{Type: Array, Elem: elem}
}

// Bytes returns the on-disk encoding of the tag.
func (tag Tag) Bytes() []byte {
	if tag.Type == Array {
		return []byte{byte(Array), byte(tag.Elem)}
	}
	return []byte{byte(tag.Type)}
}

// Matches reports whether a stored tag satisfies a requested tag.
func (tag Tag) Matches(expected Tag) bool {
	switch expected.Type {
	case Bool:
		return tag.Type == True || tag.Type == False
	case Array:
		return tag.Type == Array && tag.Elem == expected.Elem
	}
	return tag.Type == expected.Type
}

func (tag Tag) String() string {
	if tag.Type == Array {
		return tag.Elem.String() + "[]"
	}
	return tag.Type.String()
}

// ParseType maps a textual type name such as "u8", "string" or "f32[]"
// onto the tag a caller would ask for.
func ParseType(name string) (tag Tag, err error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.HasSuffix(name, "[]") {
		elem, err := ParseType(strings.TrimSuffix(name, "[]"))
		if err != nil {
			return tag, err
		}
		if elem.Type.Width() == 0 {
			return tag, fmt.Errorf("arrays of %s are not supported", elem)
		}
		return ArrayOf(elem.Type), nil
	}
	for t, n := range typeNames {
		if n != name || t == True || t == False || t == Array {
			continue
		}
		return Tag{Type: t}, nil
	}
	return tag, fmt.Errorf("unknown type: %q", name)
}
