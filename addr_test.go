package lazydb

import (
	"strings"
	"testing"
)

func TestParseAddr(t *testing.T) {
	cases := map[string]Addr{
		"people/Dave::age":  {Containers: []string{"people", "Dave"}, Leaf: "age"},
		"/people/Dave::age": {Containers: []string{"people", "Dave"}, Leaf: "age"},
		"people/Dave":       {Containers: []string{"people", "Dave"}},
		"::x":               {Leaf: "x"},
		"/":                 {},
		"":                  {},
	}
	for raw, expect := range cases {
		got, err := ParseAddr(raw)
		tck(t, err)
		tassert(t, strings.Join(got.Containers, "|") == strings.Join(expect.Containers, "|"),
			"%q: containers %v", raw, got.Containers)
		tassert(t, got.Leaf == expect.Leaf, "%q: leaf %q", raw, got.Leaf)
	}
	for _, raw := range []string{"a//b::c", "a/../b", "a::", "a::b/c", "./a", "a::.."} {
		_, err := ParseAddr(raw)
		tassert(t, err != nil, "ParseAddr(%q) succeeded", raw)
	}

	addr, err := ParseAddr("people/Dave::age")
	tck(t, err)
	tassert(t, addr.String() == "/people/Dave::age", "string %q", addr)
	tassert(t, Addr{}.String() == "/", "root string %q", Addr{})
}

func TestSearch(t *testing.T) {
	db := setup(t)
	root, err := db.Root()
	tck(t, err)

	c, err := db.Search(Addr{})
	tck(t, err)
	tassert(t, c.Path == root.Path, "root search %s", c.Path)

	addr, err := ParseAddr("people/Dave::age")
	tck(t, err)
	_, err = db.Search(addr)
	tkind(t, err, KindNotFound)
	_, err = db.Read(addr)
	tkind(t, err, KindNotFound)
	tassert(t, !canstat(db.Dir+"/people"), "Search created containers")

	tck(t, db.Write(addr, NewU8(21)))
	c, err = db.Search(addr)
	tck(t, err)
	tassert(t, strings.HasSuffix(c.Path, "/people/Dave"), "found %s", c.Path)

	_, err = db.Read(Addr{Containers: addr.Containers, Leaf: "height"})
	tkind(t, err, KindNotFound)
}

func TestWriteRefusals(t *testing.T) {
	db := setup(t)

	err := db.Write(Addr{Containers: []string{"a"}}, NewU8(1))
	tassert(t, err != nil, "wrote to an address without a leaf")
	_, err = db.Read(Addr{})
	tassert(t, err != nil, "read an address without a leaf")

	err = db.Write(Addr{Leaf: MetaName}, NewU8(1))
	tassert(t, err != nil, "overwrote the metadata leaf")
	v, err := db.Version()
	tck(t, err)
	tassert(t, v == FormatVersion, "version %s", v)

	// .meta is only reserved at the root
	tck(t, db.Write(Addr{Containers: []string{"a"}, Leaf: MetaName}, NewU8(1)))

	// a leaf in the way of a container
	tck(t, db.Write(Addr{Leaf: "x"}, NewU8(1)))
	err = db.Write(Addr{Containers: []string{"x"}, Leaf: "y"}, NewU8(1))
	tkind(t, err, KindIO)
}
