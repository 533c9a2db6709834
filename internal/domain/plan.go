package domain

import (
	"path/filepath"
	"regexp"
)

// RouteKind says how a session reaches its host
type RouteKind string

const (
	RouteDirect     RouteKind = "direct"
	RouteViaBastion RouteKind = "via_bastion"
)

// Bastion is a relay host sessions can be routed through
type Bastion struct {
	Address string `json:"address" yaml:"address"`
	User    string `json:"user,omitempty" yaml:"user,omitempty"`
	Options string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Destination renders user@address, or just the address without a user
func (b Bastion) Destination() string {
	if b.User == "" {
		return b.Address
	}
	return b.User + "@" + b.Address
}

// Route is the path a session takes to its host
type Route struct {
	Kind    RouteKind `json:"kind"`
	Bastion *Bastion  `json:"bastion,omitempty"`
}

// DirectRoute returns a route with no relay
func DirectRoute() Route {
	return Route{Kind: RouteDirect}
}

// ViaBastion returns a route relayed through b
func ViaBastion(b Bastion) Route {
	return Route{Kind: RouteViaBastion, Bastion: &b}
}

// PaneAction is one step of a multiplexer layout
type PaneAction struct {
	Action string `json:"action" yaml:"cmd"`
	Run    string `json:"run,omitempty" yaml:"run,omitempty"`
}

// SessionLayout is a named, ordered set of pane actions
type SessionLayout struct {
	Name  string       `json:"name"`
	Panes []PaneAction `json:"panes"`
}

// MountSpec describes a remote directory to mount locally for a host
type MountSpec struct {
	RemotePath string `json:"remote_path"`
	Mountpoint string `json:"mountpoint"`
}

var unsafeMountChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// MountpointFor derives the local mountpoint for a host under root.
// The result depends only on the host name.
func MountpointFor(root, hostName string) string {
	return filepath.Join(root, unsafeMountChars.ReplaceAllString(hostName, "_"))
}

// ConnectionPlan is a declarative description of one remote session
type ConnectionPlan struct {
	Host        HostRecord   `json:"host"`
	Title       string       `json:"title"`
	Route       Route        `json:"route"`
	Panes       []PaneAction `json:"panes,omitempty"`
	PaneCommand string       `json:"pane_command,omitempty"`
	Mount       *MountSpec   `json:"mount,omitempty"`
}

// ViaBastion reports whether the plan relays through a bastion
func (p ConnectionPlan) ViaBastion() bool {
	return p.Route.Kind == RouteViaBastion && p.Route.Bastion != nil
}
