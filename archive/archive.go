package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// Options tunes compression.  The zero value uses zstd's default level.
type Options struct {
	Level int // zstd level, 1 (fastest) to 22 (best); 0 means default
}

func (opts Options) encoderLevel() zstd.EncoderLevel {
	if opts.Level == 0 {
		return zstd.SpeedDefault
	}
	return zstd.EncoderLevelFromZstd(opts.Level)
}

// Pack writes the tree under dir into an uncompressed tar at tarPath.
// Entry names are relative to dir.  Only directories and regular
// files may appear in the tree.
func Pack(dir, tarPath string) (err error) {
	defer Return(&err)

	out, err := os.Create(tarPath)
	Ck(err)
	defer out.Close()

	tw := tar.NewWriter(out)
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		return addEntry(tw, path, filepath.ToSlash(rel), info)
	})
	if err != nil {
		return errors.Wrapf(err, "packing %s", dir)
	}
	err = tw.Close()
	Ck(err)
	err = out.Close()
	Ck(err)
	log.Debugf("packed %s into %s", dir, tarPath)
	return
}

func addEntry(tw *tar.Writer, path, name string, info os.FileInfo) (err error) {
	if !info.IsDir() && !info.Mode().IsRegular() {
		return fmt.Errorf("cannot pack %s: not a directory or regular file", path)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}
	err = tw.WriteHeader(hdr)
	if err != nil || info.IsDir() {
		return
	}
	fh, err := os.Open(path)
	if err != nil {
		return
	}
	defer fh.Close()
	_, err = io.Copy(tw, fh)
	return
}

// Unpack extracts the tar at tarPath into dir, creating dir if needed.
// Entries that would land outside dir are refused.
func Unpack(tarPath, dir string) (err error) {
	defer Return(&err)

	in, err := os.Open(tarPath)
	Ck(err)
	defer in.Close()

	err = os.MkdirAll(dir, 0755)
	Ck(err)
	root := filepath.Clean(dir)

	tr := tar.NewReader(in)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "reading %s", tarPath)
		}
		target := filepath.Join(root, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return fmt.Errorf("refusing to unpack %q outside %s", hdr.Name, dir)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, 0755)
			Ck(err)
		case tar.TypeReg, tar.TypeRegA:
			err = extractFile(tr, target, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return errors.Wrapf(err, "unpacking %s", hdr.Name)
			}
		default:
			return fmt.Errorf("unsupported entry type %q for %s", hdr.Typeflag, hdr.Name)
		}
	}
	log.Debugf("unpacked %s into %s", tarPath, dir)
	return
}

func extractFile(r io.Reader, target string, perm os.FileMode) (err error) {
	err = os.MkdirAll(filepath.Dir(target), 0755)
	if err != nil {
		return
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return
	}
	_, err = io.Copy(out, r)
	cerr := out.Close()
	if err == nil {
		err = cerr
	}
	return
}

// Compress writes a zstd-compressed copy of src to dst.  dst is
// replaced atomically, so a failed compress leaves any previous dst
// intact.  A replaced dst keeps its mode; a new one is 0644.
func Compress(src, dst string, opts Options) (err error) {
	defer Return(&err)

	in, err := os.Open(src)
	Ck(err)
	defer in.Close()

	mode := os.FileMode(0644)
	if info, err := os.Stat(dst); err == nil {
		mode = info.Mode().Perm()
	}

	pending, err := renameio.TempFile(filepath.Dir(dst), dst)
	Ck(err)
	defer pending.Cleanup()
	// renameio creates 0600
	err = pending.Chmod(mode)
	Ck(err)

	enc, err := zstd.NewWriter(pending, zstd.WithEncoderLevel(opts.encoderLevel()))
	Ck(err)
	_, err = io.Copy(enc, in)
	if err != nil {
		enc.Close()
		return errors.Wrapf(err, "compressing %s", src)
	}
	err = enc.Close()
	Ck(err)
	err = pending.CloseAtomicallyReplace()
	Ck(err)
	log.Debugf("compressed %s into %s", src, dst)
	return
}

// Decompress writes the decompressed content of src to dst.
func Decompress(src, dst string) (err error) {
	defer Return(&err)

	in, err := os.Open(src)
	Ck(err)
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return errors.Wrapf(err, "decompressing %s", src)
	}
	defer dec.Close()

	out, err := os.Create(dst)
	Ck(err)
	_, err = io.Copy(out, dec)
	cerr := out.Close()
	if err != nil {
		return errors.Wrapf(err, "decompressing %s", src)
	}
	Ck(cerr)
	log.Debugf("decompressed %s into %s", src, dst)
	return
}
