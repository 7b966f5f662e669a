package lazydb

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// GetGID returns the goroutine ID of its calling function, for logging purposes.
func GetGID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

func canstat(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func mkdir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// WithExt replaces the extension of the last element of path with
// ext, or appends it if there is none: "db.ldb" and "db" both become
// "db.modb" for ext "modb".
func WithExt(path, ext string) string {
	path = filepath.Clean(path)
	base := filepath.Base(path)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return filepath.Join(filepath.Dir(path), base+"."+ext)
}

// validName rejects names that would escape or alias their container.
func validName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator)
}
