package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmdtest"
	"github.com/pkg/fileutils"
)

var update = flag.Bool("update", false, "update test files with results")

func TestCLI(t *testing.T) {
	ts, err := cmdtest.Read("testdata")
	if err != nil {
		t.Fatal(err)
	}
	srcdir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	ts.Setup = func(dir string) (err error) {
		return fileutils.CopyFile(filepath.Join(dir, "family"), filepath.Join(srcdir, "testdata/family"))
	}
	ts.Commands["ldb"] = cmdtest.InProcessProgram("ldb", run)
	ts.Run(t, *update)
}
