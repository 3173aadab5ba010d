// mkimage builds an executable image from raw section files.
//
// Usage:
//
//	mkimage -o prog [-entry 0x0] [-page-size 1024] name:file[:ro] ...
//
// Sections are laid out contiguously from virtual page 0 in the order
// given. A ":ro" suffix marks the section read-only.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"nachos/pkg/coff"
	"nachos/pkg/machine"
)

type sectionSpec struct {
	name     string
	path     string
	readOnly bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("mkimage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "output `file`")
	entry := fs.String("entry", "0", "entry point address")
	pageSize := fs.Int("page-size", machine.DefaultPageSize, "page size in bytes")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: mkimage -o file [flags] name:file[:ro] ...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *out == "" || fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	if err := build(*out, *entry, *pageSize, fs.Args()); err != nil {
		fmt.Fprintln(stderr, "mkimage:", err)
		return 1
	}
	return 0
}

func build(out, entry string, pageSize int, specs []string) error {
	if pageSize <= 0 {
		return fmt.Errorf("bad page size %d", pageSize)
	}
	pc, err := strconv.ParseInt(entry, 0, 32)
	if err != nil {
		return fmt.Errorf("bad entry point %q", entry)
	}

	w := coff.NewWriter(pageSize)
	w.SetEntryPoint(int32(pc))
	for _, s := range specs {
		spec, err := parseSection(s)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(spec.path)
		if err != nil {
			return err
		}
		w.AddSection(spec.name, data, 0, spec.readOnly)
	}

	img, err := w.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(out, img, 0o755)
}

func parseSection(s string) (sectionSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return sectionSpec{}, fmt.Errorf("bad section %q, want name:file[:ro]", s)
	}
	spec := sectionSpec{name: parts[0], path: parts[1]}
	if len(parts) == 3 {
		if parts[2] != "ro" {
			return sectionSpec{}, errors.New("section flag must be \"ro\"")
		}
		spec.readOnly = true
	}
	return spec, nil
}
