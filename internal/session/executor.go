package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"hopper/internal/domain"
)

// Executor opens the sessions described by connection plans
type Executor struct {
	Runner  *Runner
	SSH     SSHOptions
	Tmux    TmuxOptions
	Mounter *Mounter
	// NoTmux runs a single plain ssh session in the current terminal
	NoTmux bool
}

// Execute mounts requested directories, then opens the sessions in plan order.
// A single plan falls back to plain ssh when tmux is not installed.
func (e *Executor) Execute(ctx context.Context, plans []domain.ConnectionPlan) error {
	if len(plans) == 0 {
		return nil
	}
	if e.NoTmux && len(plans) > 1 {
		return fmt.Errorf("without tmux exactly one host can be opened, got %d", len(plans))
	}

	for _, p := range plans {
		if p.Mount == nil {
			continue
		}
		if e.Mounter == nil {
			return fmt.Errorf("plan %s requests a mount but no mounter is configured", p.Title)
		}
		if err := e.Mounter.Mount(ctx, p); err != nil {
			return err
		}
	}

	noTmux := e.NoTmux
	if !noTmux && len(plans) == 1 && e.Runner.Require("tmux") != nil {
		log.Warn().Str("host", plans[0].Host.Name).Msg("tmux not found, opening a plain ssh session")
		noTmux = true
	}

	if noTmux {
		if err := e.Runner.Require("ssh"); err != nil {
			return err
		}
		return e.Runner.Interactive(ctx, SSHCommand(plans[0], e.SSH))
	}

	if err := e.Runner.Require("tmux", "ssh"); err != nil {
		return err
	}
	script := TmuxScript(plans, e.SSH, e.Tmux)
	setup, attach := script[:len(script)-1], script[len(script)-1]
	if err := e.Runner.Run(ctx, setup...); err != nil {
		return err
	}
	return e.Runner.Interactive(ctx, attach)
}
