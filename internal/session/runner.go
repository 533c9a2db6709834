package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

type execFunc func(ctx context.Context, cmd Command, stdio bool) ([]byte, error)

// Runner executes commands, or prints them in dry-run mode
type Runner struct {
	DryRun bool
	// Out receives dry-run output
	Out io.Writer

	exec     execFunc
	lookPath func(string) (string, error)
}

// NewRunner creates a runner that prints to out in dry-run mode
func NewRunner(dryRun bool, out io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	return &Runner{
		DryRun:   dryRun,
		Out:      out,
		exec:     osExec,
		lookPath: exec.LookPath,
	}
}

func osExec(ctx context.Context, c Command, stdio bool) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if stdio {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return nil, cmd.Run()
	}
	return cmd.CombinedOutput()
}

// Require checks that every binary is on PATH. It is a no-op in dry-run mode.
func (r *Runner) Require(names ...string) error {
	if r.DryRun {
		return nil
	}
	for _, name := range names {
		if _, err := r.lookPath(name); err != nil {
			return fmt.Errorf("%s is required but was not found in PATH", name)
		}
	}
	return nil
}

// Run executes cmds in order and stops at the first failure
func (r *Runner) Run(ctx context.Context, cmds ...Command) error {
	for _, c := range cmds {
		if r.print(c) {
			continue
		}
		log.Debug().Str("cmd", c.String()).Msg("Running")
		out, err := r.exec(ctx, c, false)
		if err != nil {
			if msg := strings.TrimSpace(string(out)); msg != "" {
				return fmt.Errorf("%s: %w: %s", c.Name, err, msg)
			}
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}

// Interactive executes cmd attached to the terminal
func (r *Runner) Interactive(ctx context.Context, c Command) error {
	if r.print(c) {
		return nil
	}
	log.Debug().Str("cmd", c.String()).Msg("Running interactively")
	if _, err := r.exec(ctx, c, true); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

// Output executes a read-only command even in dry-run mode
func (r *Runner) Output(ctx context.Context, c Command) ([]byte, error) {
	out, err := r.exec(ctx, c, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, err)
	}
	return out, nil
}

// MkdirAll creates dir and its parents
func (r *Runner) MkdirAll(dir string) error {
	if r.print(Cmd("mkdir", "-p", dir)) {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// RemoveDir removes an empty directory
func (r *Runner) RemoveDir(dir string) error {
	if r.print(Cmd("rmdir", dir)) {
		return nil
	}
	return os.Remove(dir)
}

func (r *Runner) print(c Command) bool {
	if !r.DryRun {
		return false
	}
	fmt.Fprintln(r.Out, c.String())
	return true
}

// Recorder captures commands instead of running them
type Recorder struct {
	Commands []Command
	// Outputs maps a command line to the output it returns
	Outputs map[string][]byte
	// Fail maps a command line to the error it returns
	Fail map[string]error
	// OnExec, when set, sees each command as it would run
	OnExec func(Command)
}

// NewRecordingRunner returns a non-dry-run Runner whose commands are captured
// by rec and whose binaries always resolve.
func NewRecordingRunner(rec *Recorder) *Runner {
	r := NewRunner(false, &bytes.Buffer{})
	r.exec = func(_ context.Context, c Command, _ bool) ([]byte, error) {
		rec.Commands = append(rec.Commands, c)
		if rec.OnExec != nil {
			rec.OnExec(c)
		}
		line := c.String()
		if err := rec.Fail[line]; err != nil {
			return nil, err
		}
		return rec.Outputs[line], nil
	}
	r.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	return r
}

// Lines returns the recorded command lines
func (rec *Recorder) Lines() []string {
	lines := make([]string, len(rec.Commands))
	for i, c := range rec.Commands {
		lines[i] = c.String()
	}
	return lines
}
