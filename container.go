package lazydb

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// MetaName is the reserved leaf at the root of every database.
const MetaName = ".meta"

// Container is a directory-backed node of the value tree.  Child
// containers are subdirectories, leaves are files.  Every call goes
// to the filesystem; nothing is cached, so external changes between
// calls are always seen.
type Container struct {
	Path string
	root bool // the database root, which holds the reserved metadata leaf
}

// LoadContainer returns the container backed by the existing
// directory path.
func LoadContainer(path string) (*Container, error) {
	if !isDir(path) {
		return nil, &NotFoundError{Path: path, What: "directory"}
	}
	return &Container{Path: filepath.Clean(path)}, nil
}

// Child resolves the child container name.  It never creates one.
func (c *Container) Child(name string) (*Container, error) {
	path := filepath.Join(c.Path, name)
	if !validName(name) || !isDir(path) {
		return nil, &NotFoundError{Path: path, What: "container"}
	}
	return &Container{Path: path}, nil
}

// NewChild resolves the child container name, creating its directory
// if needed.
func (c *Container) NewChild(name string) (child *Container, err error) {
	path := filepath.Join(c.Path, name)
	if !validName(name) {
		return nil, &NotFoundError{Path: path, What: "container"}
	}
	if !isDir(path) {
		log.Debugf("creating container %s", path)
		err = os.Mkdir(path, 0755)
		if err != nil {
			return nil, ioErr(path, err)
		}
	}
	return &Container{Path: path}, nil
}

// DataWriter creates or truncates the leaf name for writing.  No
// directories are created; the caller owns the returned file until it
// is closed.
func (c *Container) DataWriter(name string) (io.WriteCloser, error) {
	path := filepath.Join(c.Path, name)
	if !validName(name) {
		return nil, &NotFoundError{Path: path, What: "leaf"}
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, ioErr(path, err)
	}
	return fh, nil
}

// ReadData opens the leaf name lazily.
func (c *Container) ReadData(name string) (*Data, error) {
	path := filepath.Join(c.Path, name)
	if !validName(name) {
		return nil, &NotFoundError{Path: path, What: "leaf"}
	}
	return LoadData(path)
}

// Put writes v to the leaf name.  v is encoded before the leaf is
// truncated, so an unencodable value leaves the old one in place.
func (c *Container) Put(name string, v Value) (err error) {
	buf, err := v.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "encoding %s", filepath.Join(c.Path, name))
	}
	w, err := c.DataWriter(name)
	if err != nil {
		return
	}
	_, err = w.Write(buf)
	cerr := w.Close()
	if err == nil {
		err = cerr
	}
	return ioErr(filepath.Join(c.Path, name), err)
}

// Get reads the leaf name and decodes it as expected.
func (c *Container) Get(name string, expected Tag) (v Value, err error) {
	data, err := c.ReadData(name)
	if err != nil {
		return
	}
	return data.Collect(expected)
}

// List returns the sorted names of child containers and leaves.  At
// the database root the reserved metadata leaf is left out.
func (c *Container) List() (containers, leaves []string, err error) {
	infos, err := ioutil.ReadDir(c.Path)
	if err != nil {
		return nil, nil, ioErr(c.Path, err)
	}
	for _, info := range infos {
		name := info.Name()
		switch {
		case info.IsDir():
			containers = append(containers, name)
		case c.root && name == MetaName:
		case info.Mode().IsRegular():
			leaves = append(leaves, name)
		}
	}
	return
}
