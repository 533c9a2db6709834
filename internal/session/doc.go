// Package session executes connection plans with the system ssh, tmux and
// sshfs binaries.
//
// Rendering and execution are separate. SSHCommand, TmuxScript and the
// Mounter build Command values; a Runner either executes them or, in dry-run
// mode, prints them shell-quoted, one per line.
//
// # Tmux
//
// The first plan opens a detached session. Every further plan opens a pane
// (split-window, then select-layout tiled) or, in window mode, a window. The
// layout actions of a plan are applied to its window after it is opened:
// split-window and new-window actions open another ssh to the same host, any
// other action is passed to tmux as is, and a run value is typed into the
// new pane with send-keys. Finally the session is attached, or switched to
// when already inside tmux.
package session
