package command

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Placement says where a command's argument travels.
type Placement int

const (
	InQuery Placement = iota
	InJSONBody
)

// Command binds a REPL verb to one server endpoint.
type Command struct {
	Name   string
	Method string
	Path   string
	// Param is the request field the joined arguments are sent as.
	Param     string
	Placement Placement
	Usage     string
	// RawOutput prints the body as is instead of as JSON.
	RawOutput bool
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// Registry returns the commands keyed by name.
func Registry() map[string]Command {
	commands := []Command{
		{
			Name:      "run",
			Method:    http.MethodPost,
			Path:      "/run",
			Param:     "task",
			Placement: InJSONBody,
			Usage:     "run <task description...>",
		},
		{
			Name:      "read",
			Method:    http.MethodGet,
			Path:      "/read",
			Param:     "path",
			Placement: InQuery,
			Usage:     "read <path>",
			RawOutput: true,
		},
		{
			Name:   "health",
			Method: http.MethodGet,
			Path:   "/healthz",
			Usage:  "health",
		},
	}
	out := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		out[cmd.Name] = cmd
	}
	return out
}

// Names lists registered command names in order.
func Names(commands map[string]Command) []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildRequest turns the words following the command name into a request.
// Multiple words are joined with single spaces.
func BuildRequest(cmd Command, args []string) (RequestSpec, error) {
	req := RequestSpec{Method: cmd.Method, Path: cmd.Path}
	if cmd.Param == "" {
		if len(args) > 0 {
			return req, fmt.Errorf("%s takes no arguments", cmd.Name)
		}
		return req, nil
	}

	value := strings.TrimSpace(strings.Join(args, " "))
	if value == "" {
		return req, fmt.Errorf("usage: %s", cmd.Usage)
	}
	switch cmd.Placement {
	case InQuery:
		req.Path = cmd.Path + "?" + url.Values{cmd.Param: []string{value}}.Encode()
	case InJSONBody:
		body, err := json.Marshal(map[string]string{cmd.Param: value})
		if err != nil {
			return req, fmt.Errorf("encode body failed: %w", err)
		}
		req.Body = body
		req.Headers = map[string]string{"Accept": "application/json"}
	default:
		return req, fmt.Errorf("unknown placement for %s", cmd.Name)
	}
	return req, nil
}
