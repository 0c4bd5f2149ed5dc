// Package spec describes a single external program invocation.
package spec

import (
	"strconv"
	"strings"
)

// ExternalCallSpec is one program launch with an explicit argument vector.
// Arguments are never interpreted by a shell.
type ExternalCallSpec struct {
	Program string
	Args    []string
	WorkDir string
	// Env entries are appended to the parent environment as KEY=VALUE.
	Env []string
}

// Argv returns the program followed by its arguments.
func (s ExternalCallSpec) Argv() []string {
	argv := make([]string, 0, len(s.Args)+1)
	argv = append(argv, s.Program)
	return append(argv, s.Args...)
}

// String renders the call for logs, quoting arguments that contain spaces.
func (s ExternalCallSpec) String() string {
	parts := s.Argv()
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\"'") {
			parts[i] = strconv.Quote(p)
		}
	}
	return strings.Join(parts, " ")
}
