package repl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autotask/internal/cli/command"
	"autotask/pkg/httpclient"
)

func newServer(t *testing.T, tasks *[]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Task string `json:"task"`
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		*tasks = append(*tasks, body.Task)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"task":"count-wednesdays","artifact":"dates-wednesdays.txt"}}`))
	})
	mux.HandleFunc("/read", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("path") != "dates-wednesdays.txt" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"error","code":404}`))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("3\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runSession(t *testing.T, baseURL, input string, pretty bool) string {
	t.Helper()
	var out strings.Builder
	client := httpclient.New(baseURL, 5*time.Second)
	New(client, command.Registry(), pretty, strings.NewReader(input), &out).Run(context.Background())
	return out.String()
}

func TestSession_RunAndRead(t *testing.T) {
	var tasks []string
	srv := newServer(t, &tasks)

	out := runSession(t, srv.URL, "run count \"the Wednesdays\"\nread dates-wednesdays.txt\nexit\nrun ignored\n", true)

	if len(tasks) != 1 || tasks[0] != "count the Wednesdays" {
		t.Fatalf("tasks = %q", tasks)
	}
	for _, want := range []string{"HTTP 200", `"artifact": "dates-wednesdays.txt"`, "\n3\n", "bye"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSession_Errors(t *testing.T) {
	var tasks []string
	srv := newServer(t, &tasks)

	out := runSession(t, srv.URL, "dance\nrun\nrun \"unterminated\nread other.txt\n", false)

	for _, want := range []string{
		"error: unknown command: dance",
		"error: usage: run <task description...>",
		"error: parse command failed",
		"HTTP 404",
		`{"status":"error","code":404}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(tasks) != 0 {
		t.Errorf("no task should reach the server, got %q", tasks)
	}
}

func TestSession_Set(t *testing.T) {
	var out strings.Builder
	client := httpclient.New("http://127.0.0.1:1", time.Second)
	input := "set base http://example.test/\nset timeout 45s\nset timeout soon\nshow config\nhelp\n"
	New(client, command.Registry(), true, strings.NewReader(input), &out).Run(context.Background())

	if client.BaseURL() != "http://example.test" {
		t.Errorf("base = %q", client.BaseURL())
	}
	if client.Timeout() != 45*time.Second {
		t.Errorf("timeout = %s", client.Timeout())
	}
	for _, want := range []string{"invalid duration: soon", "base: http://example.test", "read <path>"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}
