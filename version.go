package lazydb

import "fmt"

// Version is the format version stamped into every database's .meta
// leaf as three bytes: major, minor, build.
type Version struct {
	Major uint8
	Minor uint8
	Build uint8
}

// FormatVersion is the version this package reads and writes.
var FormatVersion = Version{Major: 1, Minor: 2, Build: 1}

// IsCompatible reports whether a database stamped with other can be
// opened by code running v.  Only the major component participates;
// minor and build changes must stay backward readable.
func (v Version) IsCompatible(other Version) bool {
	return v.Major == other.Major
}

// Bytes returns the 3-byte stamp.
func (v Version) Bytes() []byte {
	return []byte{v.Major, v.Minor, v.Build}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

func versionFromBytes(buf []byte) Version {
	return Version{Major: buf[0], Minor: buf[1], Build: buf[2]}
}
