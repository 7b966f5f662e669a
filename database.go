package lazydb

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
	"github.com/t7a/lazydb/archive"
)

// Filename extensions derived from a database path.
var (
	WorkExt    = "modb"    // working directory of a compiled database
	ArchiveExt = "ldb"     // compiled archive
	PackExt    = "tmp.tar" // intermediate pack, removed after use
)

// Db is an open database.  Dir is the live directory backing it.  A
// compiled Db owns Dir: Close packs it back into its archive and
// removes it.  Db does no locking; at most one handle may be open on
// a given compiled archive.
type Db struct {
	Dir      string
	Archive  string // where Close compiles to; empty unless compiled
	Options  archive.Options
	compiled bool
}

// Init opens the database directory dir, creating the directory and
// stamping its .meta leaf with FormatVersion if either is missing.
// An existing .meta is left untouched and not checked.
func Init(dir string) (db *Db, err error) {
	defer Return(&err)
	dir = filepath.Clean(dir)

	if !isDir(dir) {
		err = mkdir(dir)
		if err != nil {
			return nil, ioErr(dir, err)
		}
	}

	meta := filepath.Join(dir, MetaName)
	if !isFile(meta) {
		var buf bytes.Buffer
		err = Encode(&buf, NewBinary(FormatVersion.Bytes()))
		Ck(err)
		err = renameio.WriteFile(meta, buf.Bytes(), 0644)
		if err != nil {
			return nil, ioErr(meta, err)
		}
		log.Debugf("stamped %s with version %s", meta, FormatVersion)
	}

	return &Db{Dir: dir}, nil
}

// InitDb is Init for a compiled database: the working directory is
// path with WorkExt, and Close compiles it to path with ArchiveExt.
func InitDb(path string) (db *Db, err error) {
	db, err = Init(WithExt(path, WorkExt))
	if err != nil {
		return
	}
	db.compiled = true
	db.Archive = WithExt(path, ArchiveExt)
	return
}

// LoadDir opens an existing database directory, refusing it if .meta
// is missing, is not exactly three bytes, or carries a version whose
// major component differs from FormatVersion.
func LoadDir(dir string) (db *Db, err error) {
	dir = filepath.Clean(dir)
	if !isDir(dir) {
		return nil, &NotFoundError{Path: dir, What: "directory"}
	}

	meta := filepath.Join(dir, MetaName)
	if !isFile(meta) {
		return nil, &MissingMetaError{Path: meta}
	}
	stored, err := ReadVersion(meta)
	if err != nil {
		return
	}
	if !FormatVersion.IsCompatible(stored) {
		return nil, &IncompatibleVersionError{Stored: stored, Running: FormatVersion}
	}

	return &Db{Dir: dir}, nil
}

// ReadVersion decodes the version stamp in the .meta leaf at path.
func ReadVersion(meta string) (v Version, err error) {
	data, err := LoadData(meta)
	if err != nil {
		return
	}
	buf, err := data.CollectBinary()
	if err != nil {
		return
	}
	if len(buf) != 3 {
		return v, &CorruptMetaError{Path: meta, Len: len(buf)}
	}
	return versionFromBytes(buf), nil
}

// LoadDb opens the compiled database at path.  If a working directory
// from an earlier session is still present next to the archive, it is
// used as is and the archive is not decompressed.
//
// The reused working directory's stamp is checked against
// FormatVersion but never against the archive it came from.
func LoadDb(path string) (db *Db, err error) {
	path = filepath.Clean(path)
	work := WithExt(path, WorkExt)

	if isDir(work) {
		log.Debugf("reusing working directory %s", work)
	} else {
		err = Decompile(path, work)
		if err != nil {
			return
		}
	}

	db, err = LoadDir(work)
	if err != nil {
		return
	}
	db.compiled = true
	db.Archive = WithExt(path, ArchiveExt)
	return
}

// Compiled reports whether Close will compile and remove Dir.
func (db *Db) Compiled() bool {
	return db.compiled
}

// Root returns the top-level container.
func (db *Db) Root() (c *Container, err error) {
	c, err = LoadContainer(db.Dir)
	if err != nil {
		return
	}
	c.root = true
	return
}

// Version reads the stamp of this database.
func (db *Db) Version() (Version, error) {
	return ReadVersion(filepath.Join(db.Dir, MetaName))
}

// Compile packs Dir into the archive file out.  Dir is left alone.
func (db *Db) Compile(out string) (err error) {
	pack := WithExt(db.Dir, PackExt)
	err = archive.Pack(db.Dir, pack)
	if err != nil {
		os.Remove(pack)
		return ioErr(pack, err)
	}
	err = archive.Compress(pack, out, db.Options)
	if err != nil {
		os.Remove(pack)
		return ioErr(out, err)
	}
	err = os.Remove(pack)
	if err != nil {
		return ioErr(pack, err)
	}
	log.Debugf("compiled %s into %s", db.Dir, out)
	return
}

// Decompile unpacks the archive file path into the directory out,
// which must not exist or be empty.  The tree is unpacked next to out
// and renamed into place only once complete, so a failed decompile
// never leaves a partial out behind.  The archive is left alone.
func Decompile(path, out string) (err error) {
	if !isFile(path) {
		return &NotFoundError{Path: path, What: "file"}
	}
	out = filepath.Clean(out)
	pack := WithExt(path, PackExt)
	defer os.Remove(pack)
	err = archive.Decompress(path, pack)
	if err != nil {
		return ioErr(path, err)
	}
	tmp, err := ioutil.TempDir(filepath.Dir(out), filepath.Base(out)+".partial.")
	if err != nil {
		return ioErr(out, err)
	}
	err = archive.Unpack(pack, tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return ioErr(pack, err)
	}
	// TempDir creates 0700
	err = os.Chmod(tmp, 0755)
	if err == nil {
		err = os.Rename(tmp, out)
	}
	if err != nil {
		os.RemoveAll(tmp)
		return ioErr(out, err)
	}
	log.Debugf("decompiled %s into %s", path, out)
	return
}

// Close disposes of the handle.  For a directory database it does
// nothing.  A compiled database is compiled back into Archive and its
// working directory removed.
//
// Close never reports a compile failure: there is no caller left to
// act on it.  Instead the failure is logged and the working directory
// is kept, so no data is lost, and the next LoadDb picks it up again.
// The archive is stale in that case.
func (db *Db) Close() error {
	if !db.compiled {
		return nil
	}
	db.compiled = false

	err := db.Compile(db.Archive)
	if err != nil {
		log.Warnf("keeping %s: compile failed: %v", db.Dir, err)
		return nil
	}
	err = os.RemoveAll(db.Dir)
	if err != nil {
		log.Warnf("compiled %s but could not remove it: %v", db.Dir, err)
	}
	return nil
}
