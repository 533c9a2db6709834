package session

import (
	"strings"

	"hopper/internal/domain"
)

// SSHOptions are the ssh settings shared by every session
type SSHOptions struct {
	// User overrides the login user; empty leaves it to ssh
	User string
	// Options holds extra ssh arguments, whitespace separated
	Options string
}

func (o SSHOptions) args() []string {
	return strings.Fields(o.Options)
}

// Destination returns [user@]address for host
func (o SSHOptions) Destination(host domain.HostRecord) string {
	if o.User == "" {
		return host.Address
	}
	return o.User + "@" + host.Address
}

// ProxyCommand returns the ProxyCommand relaying through b
func ProxyCommand(b domain.Bastion) string {
	argv := append([]string{"ssh"}, strings.Fields(b.Options)...)
	argv = append(argv, "-W", "%h:%p", b.Destination())
	return strings.Join(argv, " ")
}

// routeArgs returns the ssh -o arguments for the plan's route
func routeArgs(plan domain.ConnectionPlan) []string {
	if !plan.ViaBastion() {
		return nil
	}
	return []string{"-o", "ProxyCommand=" + ProxyCommand(*plan.Route.Bastion)}
}

// SSHCommand renders the ssh invocation for plan. A pane command is run
// remotely with a forced tty.
func SSHCommand(plan domain.ConnectionPlan, opts SSHOptions) Command {
	args := opts.args()
	args = append(args, routeArgs(plan)...)
	if plan.PaneCommand != "" {
		args = append(args, "-t")
	}
	args = append(args, opts.Destination(plan.Host))
	if plan.PaneCommand != "" {
		args = append(args, plan.PaneCommand)
	}
	return Cmd("ssh", args...)
}
