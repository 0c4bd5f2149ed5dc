package command

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildRequest(t *testing.T) {
	commands := Registry()

	tests := []struct {
		name    string
		cmd     string
		args    []string
		want    RequestSpec
		wantErr bool
	}{
		{
			name: "run joins words into a json body",
			cmd:  "run",
			args: []string{"count", "the", "Wednesdays"},
			want: RequestSpec{
				Method:  http.MethodPost,
				Path:    "/run",
				Headers: map[string]string{"Accept": "application/json"},
				Body:    []byte(`{"task":"count the Wednesdays"}`),
			},
		},
		{
			name: "read escapes the query",
			cmd:  "read",
			args: []string{"docs/a b.md"},
			want: RequestSpec{Method: http.MethodGet, Path: "/read?path=docs%2Fa+b.md"},
		},
		{
			name: "health",
			cmd:  "health",
			want: RequestSpec{Method: http.MethodGet, Path: "/healthz"},
		},
		{name: "run without task", cmd: "run", wantErr: true},
		{name: "read blank", cmd: "read", args: []string{"  "}, wantErr: true},
		{name: "health with args", cmd: "health", args: []string{"x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildRequest(commands[tt.cmd], tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildRequest: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNames(t *testing.T) {
	if diff := cmp.Diff([]string{"health", "read", "run"}, Names(Registry())); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
