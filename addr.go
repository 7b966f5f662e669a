package lazydb

import (
	"fmt"
	"strings"
)

// Addr names a container, and optionally a leaf in it, relative to a
// database root.  Its text form is "a/b/c::leaf"; the leading slash
// and the "::leaf" part are both optional.
type Addr struct {
	Containers []string
	Leaf       string
}

// ParseAddr parses the text form of an address.
func ParseAddr(raw string) (addr Addr, err error) {
	path := raw
	if i := strings.Index(raw, "::"); i >= 0 {
		path = raw[:i]
		addr.Leaf = raw[i+2:]
		if !validName(addr.Leaf) {
			return addr, fmt.Errorf("malformed address %q: bad leaf name", raw)
		}
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return
	}
	for _, part := range strings.Split(path, "/") {
		if !validName(part) {
			return addr, fmt.Errorf("malformed address %q: bad container name %q", raw, part)
		}
		addr.Containers = append(addr.Containers, part)
	}
	return
}

func (addr Addr) String() string {
	s := "/" + strings.Join(addr.Containers, "/")
	if addr.Leaf != "" {
		s += "::" + addr.Leaf
	}
	return s
}

// Search resolves the containers of addr, failing on the first one
// that does not exist.  The leaf part is ignored.
func (db *Db) Search(addr Addr) (c *Container, err error) {
	c, err = db.Root()
	if err != nil {
		return
	}
	for _, name := range addr.Containers {
		c, err = c.Child(name)
		if err != nil {
			return nil, err
		}
	}
	return
}

// Read opens the leaf named by addr.
func (db *Db) Read(addr Addr) (data *Data, err error) {
	if addr.Leaf == "" {
		return nil, fmt.Errorf("address %s names no leaf", addr)
	}
	c, err := db.Search(addr)
	if err != nil {
		return
	}
	return c.ReadData(addr.Leaf)
}

// Write stores v in the leaf named by addr, creating any missing
// containers on the way.
func (db *Db) Write(addr Addr, v Value) (err error) {
	if addr.Leaf == "" {
		return fmt.Errorf("address %s names no leaf", addr)
	}
	if len(addr.Containers) == 0 && addr.Leaf == MetaName {
		return fmt.Errorf("address %s is reserved", addr)
	}
	c, err := db.Root()
	if err != nil {
		return
	}
	for _, name := range addr.Containers {
		c, err = c.NewChild(name)
		if err != nil {
			return
		}
	}
	return c.Put(addr.Leaf, v)
}
