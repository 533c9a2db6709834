package session

import (
	"regexp"
	"strings"
)

// Command is one external program invocation
type Command struct {
	Name string
	Args []string
}

// Cmd builds a Command
func Cmd(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Argv returns the program followed by its arguments
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command as a POSIX shell line
func (c Command) String() string {
	return ShellJoin(c.Argv())
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// ShellQuote quotes s for a POSIX shell when needed
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ShellJoin quotes and joins argv
func ShellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = ShellQuote(a)
	}
	return strings.Join(parts, " ")
}
