/*

Lazydb is a small, lazily loaded database that keeps typed values in
a tree of directories and files, and can be compiled into a single
compressed archive.

Vocabulary:

- db: a directory holding a .meta leaf with the 3-byte format version
- container: a directory in the db; holds leaves and child containers
- leaf: a file holding exactly one value
- value: a type tag (one byte, two for arrays) followed by the payload;
	there is no length field, the payload runs to end of file
- data: a leaf opened lazily; only the tag is read until the value is
	collected, and a data handle can be collected once
- addr: "a/b/c::leaf", a container path plus an optional leaf name
- archive: a tar of the db directory, compressed with zstd; the
	compiled form of a db, usually named *.ldb
- working dir: the directory a compiled db is decompiled into while
	open, named *.modb; removed again when the db is closed
- link: a value holding a path to somewhere else in the tree; never
	followed by this package

*/

package lazydb
