package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hopper/internal/domain"
)

func plan(name, addr string) domain.ConnectionPlan {
	return domain.ConnectionPlan{
		Host:  domain.HostRecord{Name: name, Address: addr, Source: domain.SourceCSV},
		Title: name + "-0",
		Route: domain.DirectRoute(),
	}
}

func viaBastion(p domain.ConnectionPlan) domain.ConnectionPlan {
	p.Route = domain.ViaBastion(domain.Bastion{Address: "bastion.example.com", User: "jump", Options: "-p 2222"})
	return p
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":              "''",
		"web-01":        "web-01",
		"ubuntu@10.0.0": "ubuntu@10.0.0",
		"tail -f x":     "'tail -f x'",
		"it's":          `'it'"'"'s'`,
		"%h:%p":         "%h:%p",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShellQuote(in), in)
	}
}

func TestSSHCommandDirect(t *testing.T) {
	cmd := SSHCommand(plan("web-01", "10.0.0.1"), SSHOptions{User: "ubuntu", Options: "-i ~/.ssh/ops -A"})
	assert.Equal(t, []string{"ssh", "-i", "~/.ssh/ops", "-A", "ubuntu@10.0.0.1"}, cmd.Argv())
}

func TestSSHCommandViaBastion(t *testing.T) {
	p := viaBastion(plan("web-01", "10.0.0.1"))
	p.PaneCommand = "sudo journalctl -f"

	cmd := SSHCommand(p, SSHOptions{})
	assert.Equal(t, []string{
		"ssh",
		"-o", "ProxyCommand=ssh -p 2222 -W %h:%p jump@bastion.example.com",
		"-t", "10.0.0.1", "sudo journalctl -f",
	}, cmd.Argv())
	assert.Equal(t, "ssh -o 'ProxyCommand=ssh -p 2222 -W %h:%p jump@bastion.example.com' -t 10.0.0.1 'sudo journalctl -f'", cmd.String())
}

func TestTmuxScriptPanes(t *testing.T) {
	p1, p2 := plan("web-01", "10.0.0.1"), plan("web-02", "10.0.0.2")
	p2.Title = "web-02-1"

	cmds := TmuxScript([]domain.ConnectionPlan{p1, p2}, SSHOptions{}, TmuxOptions{SessionName: "hopper-test", SyncPanes: true})

	var lines []string
	for _, c := range cmds {
		lines = append(lines, c.String())
	}
	assert.Equal(t, []string{
		"tmux new-session -d -s hopper-test -n web-01-0 'ssh 10.0.0.1'",
		"tmux split-window -t hopper-test:web-01-0 'ssh 10.0.0.2'",
		"tmux select-layout -t hopper-test:web-01-0 tiled",
		"tmux set-window-option -t hopper-test:web-01-0 synchronize-panes on",
		"tmux attach-session -t hopper-test",
	}, lines)
}

func TestTmuxScriptWindowsWithLayout(t *testing.T) {
	p1, p2 := plan("web-01", "10.0.0.1"), plan("db.01", "10.0.1.1")
	p2.Title = "db.01-1"
	panes := []domain.PaneAction{
		{Action: "split-window -h"},
		{Action: "split-window -v", Run: "htop"},
		{Action: "select-layout even-horizontal"},
	}
	p1.Panes, p2.Panes = panes, panes

	cmds := TmuxScript([]domain.ConnectionPlan{p1, p2}, SSHOptions{}, TmuxOptions{SessionName: "s", Windows: true, InsideTmux: true})

	var lines []string
	for _, c := range cmds {
		lines = append(lines, c.String())
	}
	assert.Equal(t, []string{
		"tmux new-session -d -s s -n web-01-0 'ssh 10.0.0.1'",
		"tmux split-window -h -t s:web-01-0 'ssh 10.0.0.1'",
		"tmux split-window -v -t s:web-01-0 'ssh 10.0.0.1'",
		"tmux send-keys -t s:web-01-0 htop Enter",
		"tmux select-layout even-horizontal",
		"tmux new-window -t s -n db_01-1 'ssh 10.0.1.1'",
		"tmux split-window -h -t s:db_01-1 'ssh 10.0.1.1'",
		"tmux split-window -v -t s:db_01-1 'ssh 10.0.1.1'",
		"tmux send-keys -t s:db_01-1 htop Enter",
		"tmux select-layout even-horizontal",
		"tmux switch-client -t s",
	}, lines)
}

func TestTmuxScriptEmpty(t *testing.T) {
	assert.Nil(t, TmuxScript(nil, SSHOptions{}, TmuxOptions{SessionName: "s"}))
}

func TestMountCommand(t *testing.T) {
	m := NewMounter(NewRunner(true, &bytes.Buffer{}), SSHOptions{User: "ubuntu"}, SSHFSOptions{Options: "-o reconnect", MountRoot: "/mnt/hopper"})

	p := viaBastion(plan("web-01", "10.0.0.1"))
	p.Mount = &domain.MountSpec{RemotePath: "/var/log", Mountpoint: "/mnt/hopper/web-01"}

	cmd, err := m.MountCommand(p)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"sshfs", "-o", "reconnect",
		"-o", "ProxyCommand=ssh -p 2222 -W %h:%p jump@bastion.example.com",
		"ubuntu@10.0.0.1:/var/log", "/mnt/hopper/web-01",
	}, cmd.Argv())

	_, err = m.MountCommand(plan("web-02", "10.0.0.2"))
	assert.Error(t, err)
}

func TestUnmountCommandPerPlatform(t *testing.T) {
	m := NewMounter(NewRunner(true, nil), SSHOptions{}, SSHFSOptions{})

	m.goos = "linux"
	assert.Equal(t, "fusermount -u /mnt/x", m.UnmountCommand("/mnt/x").String())
	m.goos = "darwin"
	assert.Equal(t, "umount /mnt/x", m.UnmountCommand("/mnt/x").String())
}

const mountTable = `sysfs on /sys type sysfs (rw,nosuid,nodev,noexec,relatime)
ubuntu@10.0.0.1:/var/log on /home/op/.hopper/mounts/web-01 type fuse.sshfs (rw,nosuid,nodev,relatime,user_id=1000)
ubuntu@10.0.0.2:/srv on /home/op/elsewhere/web-02 type fuse.sshfs (rw,nosuid,nodev)
10.0.1.1:/data on /home/op/.hopper/mounts/db-01 (macfuse, nodev, nosuid, synchronous, mounted by op)
`

func TestParseMounts(t *testing.T) {
	mounts := ParseMounts([]byte(mountTable), "/home/op/.hopper/mounts/")
	assert.Equal(t, []Mount{
		{Source: "ubuntu@10.0.0.1:/var/log", Mountpoint: "/home/op/.hopper/mounts/web-01"},
		{Source: "10.0.1.1:/data", Mountpoint: "/home/op/.hopper/mounts/db-01"},
	}, mounts)
}

func TestMounterMountSkipsActiveMount(t *testing.T) {
	rec := &Recorder{Outputs: map[string][]byte{"mount": []byte(mountTable)}}
	m := NewMounter(NewRecordingRunner(rec), SSHOptions{User: "ubuntu"}, SSHFSOptions{MountRoot: "/home/op/.hopper/mounts"})

	p := plan("web-01", "10.0.0.1")
	p.Mount = &domain.MountSpec{RemotePath: "/var/log", Mountpoint: "/home/op/.hopper/mounts/web-01"}

	require.NoError(t, m.Mount(context.Background(), p))
	assert.Equal(t, []string{"mount"}, rec.Lines())
}

func TestMounterMount(t *testing.T) {
	rec := &Recorder{Outputs: map[string][]byte{"mount": []byte(mountTable)}}
	root := t.TempDir()
	m := NewMounter(NewRecordingRunner(rec), SSHOptions{}, SSHFSOptions{MountRoot: root})

	p := plan("web-03", "10.0.0.3")
	p.Mount = &domain.MountSpec{RemotePath: "/etc", Mountpoint: domain.MountpointFor(root, "web-03")}

	require.NoError(t, m.Mount(context.Background(), p))
	assert.Equal(t, []string{"mount", "sshfs 10.0.0.3:/etc " + p.Mount.Mountpoint}, rec.Lines())
	assert.DirExists(t, p.Mount.Mountpoint)
}

func TestMounterUnmount(t *testing.T) {
	rec := &Recorder{}
	root := t.TempDir()
	m := NewMounter(NewRecordingRunner(rec), SSHOptions{}, SSHFSOptions{MountRoot: root})
	m.goos = "linux"

	mp := domain.MountpointFor(root, "web-01")
	require.NoError(t, NewRunner(false, nil).MkdirAll(mp))

	require.NoError(t, m.Unmount(context.Background(), mp))
	assert.Equal(t, []string{"fusermount -u " + mp}, rec.Lines())
	assert.NoDirExists(t, mp)
}

func TestRunnerDryRun(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(true, &out)
	r.exec = func(context.Context, Command, bool) ([]byte, error) {
		t.Fatal("dry-run must not execute")
		return nil, nil
	}

	ctx := context.Background()
	require.NoError(t, r.Run(ctx, Cmd("tmux", "new-session", "-d"), Cmd("tmux", "attach-session")))
	require.NoError(t, r.Interactive(ctx, Cmd("ssh", "10.0.0.1")))
	require.NoError(t, r.MkdirAll("/tmp/x y"))
	require.NoError(t, r.Require("definitely-not-installed"))

	assert.Equal(t, "tmux new-session -d\ntmux attach-session\nssh 10.0.0.1\nmkdir -p '/tmp/x y'\n", out.String())
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	rec := &Recorder{Fail: map[string]error{"false": errors.New("exit status 1")}}
	r := NewRecordingRunner(rec)

	err := r.Run(context.Background(), Cmd("true"), Cmd("false"), Cmd("never"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Equal(t, []string{"true", "false"}, rec.Lines())
}

func TestRunnerRequire(t *testing.T) {
	r := NewRunner(false, nil)
	r.lookPath = func(name string) (string, error) {
		if name == "sshfs" {
			return "", errors.New("not found")
		}
		return "/bin/" + name, nil
	}
	assert.NoError(t, r.Require("ssh", "tmux"))
	assert.ErrorContains(t, r.Require("ssh", "sshfs"), "sshfs is required")
}

func TestExecutorTmux(t *testing.T) {
	rec := &Recorder{}
	e := &Executor{
		Runner: NewRecordingRunner(rec),
		Tmux:   TmuxOptions{SessionName: "s"},
	}

	require.NoError(t, e.Execute(context.Background(), []domain.ConnectionPlan{plan("web-01", "10.0.0.1")}))
	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "tmux new-session"))
	assert.Equal(t, "tmux attach-session -t s", lines[1])
}

func TestExecutorNoTmux(t *testing.T) {
	rec := &Recorder{}
	e := &Executor{Runner: NewRecordingRunner(rec), NoTmux: true}

	ctx := context.Background()
	require.NoError(t, e.Execute(ctx, []domain.ConnectionPlan{plan("web-01", "10.0.0.1")}))
	assert.Equal(t, []string{"ssh 10.0.0.1"}, rec.Lines())

	err := e.Execute(ctx, []domain.ConnectionPlan{plan("web-01", "10.0.0.1"), plan("web-02", "10.0.0.2")})
	assert.Error(t, err)
}

func TestExecutorFallsBackWithoutTmux(t *testing.T) {
	rec := &Recorder{}
	runner := NewRecordingRunner(rec)
	runner.lookPath = func(name string) (string, error) {
		if name == "tmux" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	e := &Executor{Runner: runner, Tmux: TmuxOptions{SessionName: "s"}}

	ctx := context.Background()
	require.NoError(t, e.Execute(ctx, []domain.ConnectionPlan{plan("web-01", "10.0.0.1")}))
	assert.Equal(t, []string{"ssh 10.0.0.1"}, rec.Lines())

	err := e.Execute(ctx, []domain.ConnectionPlan{plan("web-01", "10.0.0.1"), plan("web-02", "10.0.0.2")})
	assert.ErrorContains(t, err, "tmux is required")
	assert.Len(t, rec.Lines(), 1)
}

func TestExecutorMountsBeforeSessions(t *testing.T) {
	rec := &Recorder{}
	runner := NewRecordingRunner(rec)
	root := t.TempDir()
	e := &Executor{
		Runner:  runner,
		NoTmux:  true,
		Mounter: NewMounter(runner, SSHOptions{}, SSHFSOptions{MountRoot: root}),
	}

	p := plan("web-01", "10.0.0.1")
	p.Mount = &domain.MountSpec{RemotePath: "/srv", Mountpoint: domain.MountpointFor(root, "web-01")}

	require.NoError(t, e.Execute(context.Background(), []domain.ConnectionPlan{p}))
	assert.Equal(t, []string{"mount", "sshfs 10.0.0.1:/srv " + p.Mount.Mountpoint, "ssh 10.0.0.1"}, rec.Lines())
}
