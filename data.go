package lazydb

import (
	"io"
	"io/ioutil"
	"math/big"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Data is a lazily loaded leaf.  Opening it reads only the type tag;
// the payload is read and decoded by exactly one Collect call, after
// which the handle is spent.  Nothing is cached.
type Data struct {
	Path string
	Tag  Tag
	fh   *os.File
}

// LoadData opens the leaf file at path and decodes its tag.  I/O
// errors surface here, not at collect time.
func LoadData(path string) (data *Data, err error) {
	if !isFile(path) {
		return nil, &NotFoundError{Path: path, What: "leaf"}
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	tag, err := DecodeTag(fh)
	if err != nil {
		fh.Close()
		return nil, annotate(path, err)
	}
	log.Debugf("loaded %s tag %s", path, tag)
	return &Data{Path: path, Tag: tag, fh: fh}, nil
}

// annotate fills in the path of codec errors, which do not know it,
// and wraps anything else as an I/O failure.
func annotate(path string, err error) error {
	switch e := err.(type) {
	case *MalformedPayloadError:
		e.Path = path
		return e
	case *TypeMismatchError:
		e.Path = path
		return e
	}
	return ioErr(path, err)
}

// Collect reads the rest of the leaf and decodes it as expected,
// consuming the handle.
func (data *Data) Collect(expected Tag) (v Value, err error) {
	if data.fh == nil {
		return v, errors.Errorf("leaf %s already collected", data.Path)
	}
	defer data.Close()
	if !data.Tag.Matches(expected) {
		return v, &TypeMismatchError{Path: data.Path, Stored: data.Tag, Expected: expected}
	}
	payload, err := ioutil.ReadAll(data.fh)
	if err != nil {
		return v, ioErr(data.Path, err)
	}
	v, err = DecodePayload(data.Tag, expected, payload)
	if err != nil {
		return v, annotate(data.Path, err)
	}
	return
}

// Close releases a handle that will not be collected.  It is safe to
// call more than once.
func (data *Data) Close() (err error) {
	if data.fh == nil {
		return
	}
	err = data.fh.Close()
	data.fh = nil
	return
}

// WriteValue encodes v into w and closes w.
func WriteValue(w io.WriteCloser, v Value) (err error) {
	err = Encode(w, v)
	cerr := w.Close()
	if err != nil {
		return
	}
	return cerr
}

func (data *Data) collect(expected Tag) (interface{}, error) {
	v, err := data.Collect(expected)
	return v.v, err
}

func (data *Data) CollectVoid() (err error) {
	_, err = data.Collect(Tag{Type: Void})
	return
}

func (data *Data) CollectBool() (bool, error) {
	x, err := data.collect(Tag{Type: Bool})
	b, _ := x.(bool)
	return b, err
}

func (data *Data) CollectString() (string, error) {
	x, err := data.collect(Tag{Type: String})
	s, _ := x.(string)
	return s, err
}

// CollectLink returns the stored path.  The link is not followed.
func (data *Data) CollectLink() (string, error) {
	x, err := data.collect(Tag{Type: Link})
	s, _ := x.(string)
	return s, err
}

func (data *Data) CollectBinary() ([]byte, error) {
	x, err := data.collect(Tag{Type: Binary})
	b, _ := x.([]byte)
	return b, err
}

func (data *Data) CollectI8() (int8, error) {
	x, err := data.collect(Tag{Type: I8})
	n, _ := x.(int8)
	return n, err
}

func (data *Data) CollectI16() (int16, error) {
	x, err := data.collect(Tag{Type: I16})
	n, _ := x.(int16)
	return n, err
}

func (data *Data) CollectI32() (int32, error) {
	x, err := data.collect(Tag{Type: I32})
	n, _ := x.(int32)
	return n, err
}

func (data *Data) CollectI64() (int64, error) {
	x, err := data.collect(Tag{Type: I64})
	n, _ := x.(int64)
	return n, err
}

func (data *Data) CollectI128() (*big.Int, error) {
	x, err := data.collect(Tag{Type: I128})
	n, _ := x.(*big.Int)
	return n, err
}

func (data *Data) CollectU8() (uint8, error) {
	x, err := data.collect(Tag{Type: U8})
	n, _ := x.(uint8)
	return n, err
}

func (data *Data) CollectU16() (uint16, error) {
	x, err := data.collect(Tag{Type: U16})
	n, _ := x.(uint16)
	return n, err
}

func (data *Data) CollectU32() (uint32, error) {
	x, err := data.collect(Tag{Type: U32})
	n, _ := x.(uint32)
	return n, err
}

func (data *Data) CollectU64() (uint64, error) {
	x, err := data.collect(Tag{Type: U64})
	n, _ := x.(uint64)
	return n, err
}

func (data *Data) CollectU128() (*big.Int, error) {
	x, err := data.collect(Tag{Type: U128})
	n, _ := x.(*big.Int)
	return n, err
}

func (data *Data) CollectF32() (float32, error) {
	x, err := data.collect(Tag{Type: F32})
	f, _ := x.(float32)
	return f, err
}

func (data *Data) CollectF64() (float64, error) {
	x, err := data.collect(Tag{Type: F64})
	f, _ := x.(float64)
	return f, err
}

func (data *Data) CollectI8Array() ([]int8, error) {
	x, err := data.collect(ArrayOf(I8))
	a, _ := x.([]int8)
	return a, err
}

func (data *Data) CollectI16Array() ([]int16, error) {
	x, err := data.collect(ArrayOf(I16))
	a, _ := x.([]int16)
	return a, err
}

func (data *Data) CollectI32Array() ([]int32, error) {
	x, err := data.collect(ArrayOf(I32))
	a, _ := x.([]int32)
	return a, err
}

func (data *Data) CollectI64Array() ([]int64, error) {
	x, err := data.collect(ArrayOf(I64))
	a, _ := x.([]int64)
	return a, err
}

func (data *Data) CollectI128Array() ([]*big.Int, error) {
	x, err := data.collect(ArrayOf(I128))
	a, _ := x.([]*big.Int)
	return a, err
}

func (data *Data) CollectU8Array() ([]uint8, error) {
	x, err := data.collect(ArrayOf(U8))
	a, _ := x.([]uint8)
	return a, err
}

func (data *Data) CollectU16Array() ([]uint16, error) {
	x, err := data.collect(ArrayOf(U16))
	a, _ := x.([]uint16)
	return a, err
}

func (data *Data) CollectU32Array() ([]uint32, error) {
	x, err := data.collect(ArrayOf(U32))
	a, _ := x.([]uint32)
	return a, err
}

func (data *Data) CollectU64Array() ([]uint64, error) {
	x, err := data.collect(ArrayOf(U64))
	a, _ := x.([]uint64)
	return a, err
}

func (data *Data) CollectU128Array() ([]*big.Int, error) {
	x, err := data.collect(ArrayOf(U128))
	a, _ := x.([]*big.Int)
	return a, err
}

func (data *Data) CollectF32Array() ([]float32, error) {
	x, err := data.collect(ArrayOf(F32))
	a, _ := x.([]float32)
	return a, err
}

func (data *Data) CollectF64Array() ([]float64, error) {
	x, err := data.collect(ArrayOf(F64))
	a, _ := x.([]float64)
	return a, err
}
