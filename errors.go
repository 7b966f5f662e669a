package lazydb

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error returned by this package.
type Kind int

const (
	KindOther Kind = iota
	KindIO
	KindNotFound
	KindTypeMismatch
	KindMalformedPayload
	KindMissingMeta
	KindCorruptMeta
	KindIncompatibleVersion
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io failure"
	case KindNotFound:
		return "not found"
	case KindTypeMismatch:
		return "type mismatch"
	case KindMalformedPayload:
		return "malformed payload"
	case KindMissingMeta:
		return "missing metadata"
	case KindCorruptMeta:
		return "corrupt metadata"
	case KindIncompatibleVersion:
		return "incompatible version"
	}
	return "other"
}

// IOError wraps a filesystem or archive backend failure.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error on %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ioErr returns nil when err is nil, so it can wrap a call's result
// directly.
func ioErr(path string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*IOError); ok {
		return err
	}
	return &IOError{Path: path, Err: err}
}

// NotFoundError means a container, leaf, directory or archive file
// is absent.  What is "container", "leaf", "directory" or "file".
type NotFoundError struct {
	Path string
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Path)
}

type TypeMismatchError struct {
	Path     string
	Stored   Tag
	Expected Tag
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch in %s: stored %s, requested %s", e.Path, e.Stored, e.Expected)
}

type MalformedPayloadError struct {
	Path string
	Tag  Tag
	Msg  string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload in %s: %s", e.Tag, e.Path, e.Msg)
}

type MissingMetaError struct {
	Path string
}

func (e *MissingMetaError) Error() string {
	return fmt.Sprintf("missing metadata file: %s", e.Path)
}

type CorruptMetaError struct {
	Path string
	Len  int
}

func (e *CorruptMetaError) Error() string {
	return fmt.Sprintf("corrupt metadata file %s: version is %d bytes, want 3", e.Path, e.Len)
}

type IncompatibleVersionError struct {
	Stored  Version
	Running Version
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("database version %s is incompatible with format version %s", e.Stored, e.Running)
}

// ErrKind returns the kind of the first error in err's chain that
// this package knows about.
func ErrKind(err error) Kind {
	var (
		ioe  *IOError
		nfe  *NotFoundError
		tme  *TypeMismatchError
		mpe  *MalformedPayloadError
		mme  *MissingMetaError
		cme  *CorruptMetaError
		inve *IncompatibleVersionError
	)
	switch {
	case err == nil:
		return KindOther
	case errors.As(err, &nfe):
		return KindNotFound
	case errors.As(err, &tme):
		return KindTypeMismatch
	case errors.As(err, &mpe):
		return KindMalformedPayload
	case errors.As(err, &mme):
		return KindMissingMeta
	case errors.As(err, &cme):
		return KindCorruptMeta
	case errors.As(err, &inve):
		return KindIncompatibleVersion
	case errors.As(err, &ioe):
		return KindIO
	}
	return KindOther
}
