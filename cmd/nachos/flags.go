package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

// errUsage is returned after usage has been printed.
var errUsage = errors.New("usage")

// options are the parsed command line.
type options struct {
	configPath string
	fsRoot     string
	scriptPath string
	memmapPath string
	logLevel   string
	tty        bool

	program string
	args    []string
}

// parseFlags parses the command line. Flags must come before the program
// name; everything after it is passed to the program.
func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("nachos", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "JSON configuration `file`")
	fs.StringVar(&opts.fsRoot, "fs", "", "host `directory` backing the file system (default in-memory)")
	fs.StringVar(&opts.scriptPath, "script", "", "syscall script to run as the user program")
	fs.StringVar(&opts.memmapPath, "memmap", "", "write a PNG map of physical memory to `file` on exit")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	fs.BoolVar(&opts.tty, "tty", false, "use the terminal as the console")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: nachos [flags] program [args...]")
		fs.PrintDefaults()
	}

	rest, err := parse(fs, args)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		fs.Usage()
		return nil, errUsage
	}

	opts.program = rest[0]
	opts.args = rest[1:]
	return opts, nil
}

// parse parses fs and returns the remaining arguments. A help request is
// reported as errUsage.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errUsage
		}
		return nil, err
	}
	return fs.Args(), nil
}
