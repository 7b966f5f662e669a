package main

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"math/big"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
	ldb "github.com/t7a/lazydb"
)

func init() {
	var debug string
	debug = os.Getenv("DEBUG")
	if debug == "1" {
		log.SetLevel(log.DebugLevel)
	}
	logrus.SetReportCaller(true)
	formatter := &logrus.TextFormatter{
		CallerPrettyfier: caller(),
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyFile: "caller",
		},
	}
	formatter.TimestampFormat = "15:04:05.999999999"
	logrus.SetFormatter(formatter)
}

// caller returns string presentation of log caller which is formatted as
// `/path/to/file.go:line_number gid N`.
func caller() func(*runtime.Frame) (function string, file string) {
	return func(f *runtime.Frame) (function string, file string) {
		p, _ := os.Getwd()
		return "", fmt.Sprintf("%s:%d gid %d", strings.TrimPrefix(f.File, p), f.Line, ldb.GetGID())
	}
}

type Opts struct {
	Init      bool
	Initdb    bool
	Put       bool
	Get       bool
	Ls        bool
	Compile   bool
	Decompile bool
	Diff      bool
	Exec      bool
	Version   bool
	Db        string `docopt:"--db"`
	Dir       string
	Path      string
	Addr      string
	Type      string
	Value     string
	Out       string
	Archive   string
	A         string
	B         string
	Script    string
}

func main() {
	// see https://github.com/google/go-cmdtest
	os.Exit(run())
}

func run() (rc int) {

	usage := `lazydb

Usage:
  ldb init <dir>
  ldb initdb <path>
  ldb put [-d DB] <addr> <type> [<value>]
  ldb get [-d DB] <addr> <type>
  ldb ls [-d DB] [<addr>]
  ldb compile <dir> <out>
  ldb decompile <archive> <out>
  ldb diff <a> <b>
  ldb exec [-d DB] <script>
  ldb version

Options:
  -h --help          Show this screen.
  -d DB, --db DB     Database directory or compiled archive.
                     Defaults to $DBDIR, then the current directory.
`
	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpOnly, OptionsFirst: false}
	o, err := parser.ParseArgs(usage, os.Args[1:], "")
	if err != nil {
		log.Error(err)
		return 22
	}
	var opts Opts
	err = o.Bind(&opts)
	if err != nil {
		log.Error(err)
		return 22
	}
	log.Debug(opts)

	switch true {
	case opts.Init:
		db, err := ldb.Init(opts.Dir)
		if err != nil {
			log.Error(err)
			return 42
		}
		fmt.Printf("Initialized empty database in %s\n", db.Dir)
	case opts.Initdb:
		db, err := ldb.InitDb(opts.Path)
		if err != nil {
			log.Error(err)
			return 42
		}
		archive := db.Archive
		db.Close()
		if _, err := os.Stat(archive); err != nil {
			log.Error(err)
			return 42
		}
		fmt.Printf("Initialized empty database in %s\n", archive)
	case opts.Put, opts.Get, opts.Ls, opts.Exec:
		db, err := opendb(opts.Db)
		if err != nil {
			log.Error(err)
			return 42
		}
		defer db.Close()
		switch true {
		case opts.Put:
			err = put(db, opts.Addr, opts.Type, opts.Value)
		case opts.Get:
			err = get(db, opts.Addr, opts.Type)
		case opts.Ls:
			err = ls(db, opts.Addr)
		case opts.Exec:
			err = execute(db, opts.Script)
		}
		if err != nil {
			log.Error(err)
			return 42
		}
	case opts.Compile:
		db, err := ldb.LoadDir(opts.Dir)
		if err != nil {
			log.Error(err)
			return 42
		}
		err = db.Compile(opts.Out)
		if err != nil {
			log.Error(err)
			return 42
		}
	case opts.Decompile:
		err := ldb.Decompile(opts.Archive, opts.Out)
		if err != nil {
			log.Error(err)
			return 42
		}
	case opts.Diff:
		diff, err := ldb.CompareTrees(opts.A, opts.B)
		if err != nil {
			log.Error(err)
			return 42
		}
		if diff != "" {
			fmt.Println(diff)
			return 1
		}
	case opts.Version:
		fmt.Println(ldb.FormatVersion)
	}
	return 0
}

func dbdir() (dir string) {
	dir = os.Getenv("DBDIR")
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			// XXX handling this better would mean that dbdir() needs
			// to return an err
			panic("can't get current directory")
		}
	}
	return
}

// opendb opens path, or dbdir() if path is empty.  A directory is
// opened as is; anything else is taken to be a compiled archive, which
// the caller must Close to write back.
func opendb(path string) (db *ldb.Db, err error) {
	if path == "" {
		path = dbdir()
	}
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return ldb.LoadDir(path)
	}
	return ldb.LoadDb(path)
}

func put(db *ldb.Db, rawAddr, typ, txt string) (err error) {
	addr, err := ldb.ParseAddr(rawAddr)
	if err != nil {
		return
	}
	tag, err := ldb.ParseType(typ)
	if err != nil {
		return
	}
	v, err := parseValue(tag, txt)
	if err != nil {
		return
	}
	return db.Write(addr, v)
}

func get(db *ldb.Db, rawAddr, typ string) (err error) {
	addr, err := ldb.ParseAddr(rawAddr)
	if err != nil {
		return
	}
	tag, err := ldb.ParseType(typ)
	if err != nil {
		return
	}
	data, err := db.Read(addr)
	if err != nil {
		return
	}
	v, err := data.Collect(tag)
	if err != nil {
		return
	}
	fmt.Println(v)
	return
}

// ls lists child containers, with a trailing slash, then leaves.
func ls(db *ldb.Db, rawAddr string) (err error) {
	addr, err := ldb.ParseAddr(rawAddr)
	if err != nil {
		return
	}
	c, err := db.Search(addr)
	if err != nil {
		return
	}
	containers, leaves, err := c.List()
	if err != nil {
		return
	}
	for _, name := range containers {
		fmt.Println(name + "/")
	}
	for _, name := range leaves {
		fmt.Println(name)
	}
	return
}

// execute runs each line of the script at path as a put, get or ls
// against db.  Lines are split shell-style; blank lines and lines
// starting with # are skipped.
func execute(db *ldb.Db, path string) (err error) {
	defer Return(&err)
	buf, err := ioutil.ReadFile(path)
	Ck(err)
	for i, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts, err := shlex.Split(line)
		Ck(err)
		if len(parts) == 0 {
			continue
		}
		log.Debugf("%s:%d: %q", path, i+1, parts)
		args := parts[1:]
		switch parts[0] {
		case "put":
			ErrnoIf(len(args) < 2 || len(args) > 3, syscall.EINVAL, line)
			args = append(args, "")
			err = put(db, args[0], args[1], args[2])
		case "get":
			ErrnoIf(len(args) != 2, syscall.EINVAL, line)
			err = get(db, args[0], args[1])
		case "ls":
			ErrnoIf(len(args) > 1, syscall.EINVAL, line)
			args = append(args, "")
			err = ls(db, args[0])
		default:
			err = fmt.Errorf("unknown command %q", parts[0])
		}
		if err != nil {
			return fmt.Errorf("%s:%d: %v", path, i+1, err)
		}
	}
	return
}

// parseValue converts the command line text of a value of type tag.
// Array elements are separated by commas.
func parseValue(tag ldb.Tag, txt string) (v ldb.Value, err error) {
	if tag.Type == ldb.Array {
		return parseArray(tag.Elem, txt)
	}
	switch tag.Type {
	case ldb.Void:
		return ldb.NewVoid(), nil
	case ldb.Bool:
		b, err := strconv.ParseBool(txt)
		return ldb.NewBool(b), err
	case ldb.String:
		return ldb.NewString(txt), nil
	case ldb.Link:
		return ldb.NewLink(txt), nil
	case ldb.Binary:
		b, err := hex.DecodeString(txt)
		return ldb.NewBinary(b), err
	case ldb.I8:
		n, err := strconv.ParseInt(txt, 0, 8)
		return ldb.NewI8(int8(n)), err
	case ldb.I16:
		n, err := strconv.ParseInt(txt, 0, 16)
		return ldb.NewI16(int16(n)), err
	case ldb.I32:
		n, err := strconv.ParseInt(txt, 0, 32)
		return ldb.NewI32(int32(n)), err
	case ldb.I64:
		n, err := strconv.ParseInt(txt, 0, 64)
		return ldb.NewI64(n), err
	case ldb.I128:
		n, err := parseBig(txt)
		return ldb.NewI128(n), err
	case ldb.U8:
		n, err := strconv.ParseUint(txt, 0, 8)
		return ldb.NewU8(uint8(n)), err
	case ldb.U16:
		n, err := strconv.ParseUint(txt, 0, 16)
		return ldb.NewU16(uint16(n)), err
	case ldb.U32:
		n, err := strconv.ParseUint(txt, 0, 32)
		return ldb.NewU32(uint32(n)), err
	case ldb.U64:
		n, err := strconv.ParseUint(txt, 0, 64)
		return ldb.NewU64(n), err
	case ldb.U128:
		n, err := parseBig(txt)
		return ldb.NewU128(n), err
	case ldb.F32:
		f, err := strconv.ParseFloat(txt, 32)
		return ldb.NewF32(float32(f)), err
	case ldb.F64:
		f, err := strconv.ParseFloat(txt, 64)
		return ldb.NewF64(f), err
	}
	return v, fmt.Errorf("cannot parse a %s value", tag)
}

func parseBig(txt string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(txt, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", txt)
	}
	return n, nil
}

func parseArray(elem ldb.LazyType, txt string) (v ldb.Value, err error) {
	var fields []string
	if txt != "" {
		fields = strings.Split(txt, ",")
	}
	elems := make([]ldb.Value, len(fields))
	for i, field := range fields {
		elems[i], err = parseValue(ldb.Tag{Type: elem}, strings.TrimSpace(field))
		if err != nil {
			return
		}
	}
	return ldb.NewArray(elem, elems)
}
