package handler

import (
	"bytes"
	"context"
	"encoding/json"

	"autotask/internal/task/llmclient"
	"autotask/internal/task/sandbox"
	appErr "autotask/pkg/errors"
	"autotask/pkg/httpclient"
)

// Fetcher performs a GET against an absolute URL.
type Fetcher interface {
	Get(ctx context.Context, url string) (httpclient.ResponseInfo, error)
}

// FetchJSONConfig names the source URL and the artifact.
type FetchJSONConfig struct {
	URL    string
	Output string
}

// FetchJSON downloads a JSON document and stores it compacted.
type FetchJSON struct {
	meta
	guard   *sandbox.Guard
	fetcher Fetcher
	cfg     FetchJSONConfig
}

func NewFetchJSON(guard *sandbox.Guard, fetcher Fetcher, cfg FetchJSONConfig) *FetchJSON {
	return &FetchJSON{meta: meta{kind: "fetch-json", artifact: cfg.Output}, guard: guard, fetcher: fetcher, cfg: cfg}
}

func (h *FetchJSON) Run(ctx context.Context) error {
	if _, err := h.guard.Check(h.cfg.Output); err != nil {
		return err
	}
	resp, err := h.fetcher.Get(ctx, h.cfg.URL)
	if err != nil {
		return appErr.Wrapf(&llmclient.RemoteFailure{Err: err}, appErr.RemoteCallFailed, "fetch %s failed: %v", h.cfg.URL, err)
	}
	if !resp.OK() {
		failure := &llmclient.RemoteFailure{Status: resp.StatusCode, Body: truncate(string(resp.Body), 2048)}
		return appErr.Wrapf(failure, appErr.RemoteCallFailed, "fetch %s: %s", h.cfg.URL, failure.Error()).
			WithDetail("status", resp.StatusCode)
	}
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, resp.Body); err != nil {
		failure := &llmclient.RemoteFailure{Status: resp.StatusCode, Body: truncate(string(resp.Body), 2048)}
		return appErr.Wrapf(failure, appErr.RemoteCallFailed, "fetch %s returned invalid JSON: %v", h.cfg.URL, err)
	}
	return writeArtifact(h.guard, h.cfg.Output, compacted.Bytes())
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
