package repl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"autotask/internal/cli/command"
	"autotask/pkg/httpclient"

	"github.com/google/shlex"
)

const prompt = "autotask> "

// Session holds REPL state.
type Session struct {
	client       *httpclient.Client
	commands     map[string]command.Command
	prettyJSON   bool
	input        io.Reader
	outputWriter *bufio.Writer
}

func New(client *httpclient.Client, commands map[string]command.Command, prettyJSON bool, in io.Reader, out io.Writer) *Session {
	return &Session{
		client:       client,
		commands:     commands,
		prettyJSON:   prettyJSON,
		input:        in,
		outputWriter: bufio.NewWriter(out),
	}
}

// Run reads commands until exit or end of input.
func (s *Session) Run(ctx context.Context) {
	scanner := bufio.NewScanner(s.input)
	for {
		_, _ = s.outputWriter.WriteString(prompt)
		_ = s.outputWriter.Flush()
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				s.printLine("read input failed: %v", err)
			}
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			s.printLine("bye")
			return
		}
		if s.handleSystemCommand(line) {
			continue
		}
		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) bool {
	if line == "help" {
		s.printHelp()
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	if line == "show config" {
		s.printLine("base: %s", s.client.BaseURL())
		s.printLine("timeout: %s", s.client.Timeout())
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8000")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", s.client.BaseURL())
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 30s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil || dur <= 0 {
			s.printLine("invalid duration: %s", parts[1])
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	cmd, ok := s.commands[tokens[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", tokens[0])
	}
	req, err := command.BuildRequest(cmd, tokens[1:])
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return err
	}
	s.renderResponse(cmd, resp)
	return nil
}

func (s *Session) renderResponse(cmd command.Command, resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration.Round(time.Millisecond))
	if len(resp.Body) == 0 {
		return
	}
	if cmd.RawOutput && resp.OK() {
		s.printLine("%s", strings.TrimRight(string(resp.Body), "\n"))
		return
	}
	if s.prettyJSON {
		var out bytes.Buffer
		if err := json.Indent(&out, resp.Body, "", "  "); err == nil {
			s.printLine("%s", out.String())
			return
		}
	}
	s.printLine("%s", strings.TrimRight(string(resp.Body), "\n"))
}

func (s *Session) printHelp() {
	s.printLine("commands:")
	for _, name := range command.Names(s.commands) {
		s.printLine("  %s", s.commands[name].Usage)
	}
	s.printLine("system: help | exit | set base|timeout | show config")
	s.printLine("examples:")
	s.printLine("  run count the Wednesdays in /data/dates.txt")
	s.printLine("  read dates-wednesdays.txt")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}
