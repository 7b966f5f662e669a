package lazydb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	. "github.com/stevegt/goadapt"
	"github.com/stevegt/readercomp"
)

// CompareTrees compares the directory trees a and b by entry names,
// entry kinds and file content.  It returns an empty diff if they are
// identical, or a description of the first difference found.
func CompareTrees(a, b string) (diff string, err error) {
	defer Return(&err)

	aents, err := treeEntries(a)
	Ck(err)
	bents, err := treeEntries(b)
	Ck(err)

	for _, rel := range sortedKeys(aents) {
		adir := aents[rel]
		bdir, ok := bents[rel]
		if !ok {
			return fmt.Sprintf("only in %s: %s", a, rel), nil
		}
		if adir != bdir {
			return fmt.Sprintf("kind differs: %s", rel), nil
		}
	}
	for _, rel := range sortedKeys(bents) {
		if _, ok := aents[rel]; !ok {
			return fmt.Sprintf("only in %s: %s", b, rel), nil
		}
	}

	for _, rel := range sortedKeys(aents) {
		if aents[rel] {
			continue
		}
		same, err := sameContent(filepath.Join(a, rel), filepath.Join(b, rel))
		Ck(err)
		if !same {
			return fmt.Sprintf("content differs: %s", rel), nil
		}
	}
	return
}

func sortedKeys(m map[string]bool) (keys []string) {
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

// treeEntries maps every path under root, relative to root, to
// whether it is a directory.
func treeEntries(root string) (ents map[string]bool, err error) {
	if !isDir(root) {
		return nil, &NotFoundError{Path: root, What: "directory"}
	}
	ents = make(map[string]bool)
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel != "." {
			ents[rel] = info.IsDir()
		}
		return nil
	})
	return ents, ioErr(root, err)
}

func sameContent(a, b string) (same bool, err error) {
	fa, err := os.Open(a)
	if err != nil {
		return
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return
	}
	defer fb.Close()
	return readercomp.Equal(fa, fb, 4096)
}
