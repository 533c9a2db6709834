package session

import (
	"strings"

	"hopper/internal/domain"
)

// TmuxOptions control how plans are laid out in tmux
type TmuxOptions struct {
	SessionName string
	// Windows opens one window per host instead of one pane per host
	Windows bool
	// SyncPanes turns on synchronize-panes for every window
	SyncPanes bool
	// InsideTmux switches the current client instead of attaching
	InsideTmux bool
}

// tmux targets use ':' and '.' as separators
var windowName = strings.NewReplacer(".", "_", ":", "_")

var openingActions = map[string]bool{
	"split-window": true,
	"splitw":       true,
	"new-window":   true,
	"neww":         true,
}

// TmuxScript renders the tmux commands that open every plan in one session
func TmuxScript(plans []domain.ConnectionPlan, ssh SSHOptions, opts TmuxOptions) []Command {
	if len(plans) == 0 {
		return nil
	}

	session := opts.SessionName
	var cmds []Command
	var windows []string

	for i, plan := range plans {
		line := SSHCommand(plan, ssh).String()
		name := windowName.Replace(plan.Title)
		window := session + ":" + name

		switch {
		case i == 0:
			cmds = append(cmds, Cmd("tmux", "new-session", "-d", "-s", session, "-n", name, line))
			windows = append(windows, window)
		case opts.Windows:
			cmds = append(cmds, Cmd("tmux", "new-window", "-t", session, "-n", name, line))
			windows = append(windows, window)
		default:
			window = windows[0]
			cmds = append(cmds,
				Cmd("tmux", "split-window", "-t", window, line),
				Cmd("tmux", "select-layout", "-t", window, "tiled"),
			)
		}

		cmds = append(cmds, layoutCommands(plan.Panes, window, line)...)
	}

	if opts.SyncPanes {
		for _, w := range windows {
			cmds = append(cmds, Cmd("tmux", "set-window-option", "-t", w, "synchronize-panes", "on"))
		}
	}

	if opts.InsideTmux {
		cmds = append(cmds, Cmd("tmux", "switch-client", "-t", session))
	} else {
		cmds = append(cmds, Cmd("tmux", "attach-session", "-t", session))
	}
	return cmds
}

func layoutCommands(panes []domain.PaneAction, window, sshLine string) []Command {
	var cmds []Command
	for _, pane := range panes {
		fields := strings.Fields(pane.Action)
		if len(fields) == 0 {
			continue
		}
		args := append([]string(nil), fields...)
		if openingActions[fields[0]] {
			args = append(args, "-t", window, sshLine)
		}
		cmds = append(cmds, Cmd("tmux", args...))

		if pane.Run != "" {
			cmds = append(cmds, Cmd("tmux", "send-keys", "-t", window, pane.Run, "Enter"))
		}
	}
	return cmds
}
