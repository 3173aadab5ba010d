// nachos boots the simulated machine, loads a program into the root user
// process and replays a syscall script as that program.
//
// Usage:
//
//	nachos [-config file] [-fs dir] [-script file] [-memmap file] [-tty] program [args...]
//
// With no -fs the program is read from the host and placed in an
// in-memory file system under its base name.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"nachos/pkg/config"
	"nachos/pkg/console"
	"nachos/pkg/filesys"
	"nachos/pkg/filesys/memfs"
	"nachos/pkg/filesys/stubfs"
	"nachos/pkg/machine"
	"nachos/pkg/memview"
	"nachos/pkg/sched"
	"nachos/pkg/script"
	"nachos/pkg/userprog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run boots the machine and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintln(stderr, "nachos:", err)
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, "nachos:", err)
		return 1
	}

	logger, closer, err := cfg.NewLogger(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "nachos:", err)
		return 1
	}
	defer closer.Close()

	code, err := boot(opts, cfg, logger, stdin, stdout)
	if err != nil {
		logger.Error("boot failed", "error", err)
		return 1
	}
	return code
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if opts.fsRoot != "" {
		cfg.FileSystemRoot = opts.fsRoot
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func boot(opts *options, cfg *config.Config, logger hclog.Logger, stdin io.Reader, stdout io.Writer) (int, error) {
	fs, program, err := openFileSystem(cfg, opts.program)
	if err != nil {
		return 0, err
	}

	var con console.Console = console.NewStream(stdin, stdout)
	if opts.tty {
		tty, err := console.OpenTTY()
		if err != nil {
			return 0, fmt.Errorf("open tty: %w", err)
		}
		defer tty.Close()
		con = tty
	}

	steps := &script.Script{}
	if opts.scriptPath != "" {
		src, err := os.ReadFile(opts.scriptPath)
		if err != nil {
			return 0, err
		}
		if steps, err = script.Parse(string(src)); err != nil {
			return 0, err
		}
	}

	m := machine.New(cfg.NumPhysPages, cfg.PageSize)
	scheduler := sched.New(logger)
	k, err := userprog.NewKernel(userprog.Services{
		Machine:    m,
		FileSystem: fs,
		Console:    con,
		Scheduler:  scheduler,
		Runner:     script.NewRunner(steps, stdout, logger),
		Logger:     logger,
		Config:     cfg,
	})
	if err != nil {
		return 0, err
	}

	logger.Info("machine booted", "pages", cfg.NumPhysPages, "page_size", cfg.PageSize)
	root, err := k.Start(program, append([]string{program}, opts.args...))
	if err != nil {
		return 0, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := scheduler.Run(ctx); err != nil && !m.Halted() {
		return 0, err
	}

	if opts.memmapPath != "" {
		if err := writeMemoryMap(opts.memmapPath, root, m); err != nil {
			return 0, err
		}
	}

	return exitCode(m.Err(), root), nil
}

// openFileSystem returns the file system and the name the program has in it.
func openFileSystem(cfg *config.Config, program string) (filesys.FileSystem, string, error) {
	if cfg.FileSystemRoot != "" {
		return stubfs.New(cfg.FileSystemRoot), program, nil
	}

	data, err := os.ReadFile(program)
	if err != nil {
		return nil, "", err
	}
	fs := memfs.New()
	name := filepath.Base(program)
	if err := fs.WriteFile(name, data); err != nil {
		return nil, "", err
	}
	return fs, name, nil
}

func writeMemoryMap(path string, root *userprog.Process, m *machine.Machine) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return memview.WritePNG(f, root.PageTable(), m.Processor().NumPhysPages(), memview.Options{})
}

// exitCode maps how the machine stopped to a host exit code.
func exitCode(cause error, root *userprog.Process) int {
	var fatal *userprog.FatalError
	switch {
	case errors.As(cause, &fatal):
		return 1
	case errors.Is(cause, machine.ErrHalted) && root.State() == userprog.StateExited:
		return int(uint8(root.ExitStatus()))
	case cause == nil && root.State() != userprog.StateExited:
		// The program stopped without exiting, e.g. a failed script step.
		return 1
	default:
		return 0
	}
}
