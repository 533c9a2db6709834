package session

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"

	"hopper/internal/domain"
)

// SSHFSOptions are the sshfs settings
type SSHFSOptions struct {
	// Options holds extra sshfs arguments, whitespace separated
	Options   string
	MountRoot string
}

// Mount is an active sshfs mount
type Mount struct {
	Source     string `json:"source"`
	Mountpoint string `json:"mountpoint"`
}

// Mounter mounts and unmounts remote directories with sshfs
type Mounter struct {
	runner *Runner
	ssh    SSHOptions
	opts   SSHFSOptions
	goos   string
}

// NewMounter creates a mounter for the current platform
func NewMounter(runner *Runner, ssh SSHOptions, opts SSHFSOptions) *Mounter {
	return &Mounter{runner: runner, ssh: ssh, opts: opts, goos: runtime.GOOS}
}

// MountCommand renders the sshfs invocation for plan
func (m *Mounter) MountCommand(plan domain.ConnectionPlan) (Command, error) {
	if plan.Mount == nil {
		return Command{}, fmt.Errorf("plan %s has no mount request", plan.Title)
	}
	args := strings.Fields(m.opts.Options)
	args = append(args, routeArgs(plan)...)
	args = append(args, m.ssh.Destination(plan.Host)+":"+plan.Mount.RemotePath, plan.Mount.Mountpoint)
	return Cmd("sshfs", args...), nil
}

// UnmountCommand renders the platform unmount invocation
func (m *Mounter) UnmountCommand(mountpoint string) Command {
	if m.goos == "darwin" {
		return Cmd("umount", mountpoint)
	}
	return Cmd("fusermount", "-u", mountpoint)
}

// Mount mounts the plan's remote directory unless it is already mounted
func (m *Mounter) Mount(ctx context.Context, plan domain.ConnectionPlan) error {
	cmd, err := m.MountCommand(plan)
	if err != nil {
		return err
	}
	if err := m.runner.Require("sshfs"); err != nil {
		return err
	}

	mounted, err := m.IsMounted(ctx, plan.Mount.Mountpoint)
	if err != nil {
		return err
	}
	if mounted {
		log.Info().Str("host", plan.Host.Name).Str("mountpoint", plan.Mount.Mountpoint).Msg("Already mounted")
		return nil
	}

	if err := m.runner.MkdirAll(plan.Mount.Mountpoint); err != nil {
		return fmt.Errorf("create mountpoint: %w", err)
	}
	if err := m.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("mount %s: %w", plan.Host.Name, err)
	}
	log.Info().Str("host", plan.Host.Name).Str("mountpoint", plan.Mount.Mountpoint).Msg("Mounted")
	return nil
}

// Unmount unmounts mountpoint and removes the empty directory
func (m *Mounter) Unmount(ctx context.Context, mountpoint string) error {
	if err := m.runner.Require(m.UnmountCommand(mountpoint).Name); err != nil {
		return err
	}
	if err := m.runner.Run(ctx, m.UnmountCommand(mountpoint)); err != nil {
		return fmt.Errorf("unmount %s: %w", mountpoint, err)
	}
	if err := m.runner.RemoveDir(mountpoint); err != nil {
		log.Warn().Err(err).Str("mountpoint", mountpoint).Msg("Could not remove mountpoint")
	}
	log.Info().Str("mountpoint", mountpoint).Msg("Unmounted")
	return nil
}

// Mounts lists active sshfs mounts under the mount root
func (m *Mounter) Mounts(ctx context.Context) ([]Mount, error) {
	out, err := m.runner.Output(ctx, Cmd("mount"))
	if err != nil {
		return nil, fmt.Errorf("read mount table: %w", err)
	}
	return ParseMounts(out, m.opts.MountRoot), nil
}

// IsMounted reports whether mountpoint is an active sshfs mount
func (m *Mounter) IsMounted(ctx context.Context, mountpoint string) (bool, error) {
	mounts, err := m.Mounts(ctx)
	if err != nil {
		return false, err
	}
	for _, mt := range mounts {
		if filepath.Clean(mt.Mountpoint) == filepath.Clean(mountpoint) {
			return true, nil
		}
	}
	return false, nil
}

// ParseMounts extracts remote mounts below root from mount(8) output. Both
// the Linux ("src on dir type fuse.sshfs (...)") and macOS ("src on dir
// (macfuse, ...)") formats are understood.
func ParseMounts(out []byte, root string) []Mount {
	root = filepath.Clean(root)
	var mounts []Mount

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		src, rest, ok := strings.Cut(line, " on ")
		if !ok || !strings.Contains(src, ":") {
			continue
		}

		dir := rest
		if i := strings.Index(dir, " type "); i >= 0 {
			dir = dir[:i]
		} else if i := strings.LastIndex(dir, " ("); i >= 0 {
			dir = dir[:i]
		}

		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
			continue
		}
		mounts = append(mounts, Mount{Source: src, Mountpoint: dir})
	}
	return mounts
}
