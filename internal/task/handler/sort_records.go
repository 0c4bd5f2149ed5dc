package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"autotask/internal/task/sandbox"
	appErr "autotask/pkg/errors"
)

// SortRecordsConfig describes a JSON array of objects and the composite sort key.
type SortRecordsConfig struct {
	Input  string
	Keys   []string
	Output string
}

// SortRecords sorts records stably by Keys in order. Each key must hold a string.
// Records are re-emitted as written, field order included.
type SortRecords struct {
	meta
	guard *sandbox.Guard
	cfg   SortRecordsConfig
}

func NewSortRecords(guard *sandbox.Guard, cfg SortRecordsConfig) *SortRecords {
	return &SortRecords{meta: meta{kind: "sort-records", artifact: cfg.Output}, guard: guard, cfg: cfg}
}

type keyedRecord struct {
	keys []string
	raw  json.RawMessage
}

func (h *SortRecords) Run(ctx context.Context) error {
	data, err := readInput(h.guard, h.cfg.Input)
	if err != nil {
		return err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return appErr.Malformed(h.cfg.Input, "expected a JSON array: "+err.Error())
	}
	if raws == nil {
		return appErr.Malformed(h.cfg.Input, "expected a JSON array")
	}

	records := make([]keyedRecord, 0, len(raws))
	for i, raw := range raws {
		keys, err := h.extractKeys(i, raw)
		if err != nil {
			return err
		}
		records = append(records, keyedRecord{keys: keys, raw: raw})
	}
	slices.SortStableFunc(records, func(a, b keyedRecord) int {
		return slices.Compare(a.keys, b.keys)
	})

	sorted := make([]json.RawMessage, len(records))
	for i, r := range records {
		sorted[i] = r.raw
	}
	out, err := encodeJSON(sorted, true)
	if err != nil {
		return err
	}
	return writeArtifact(h.guard, h.cfg.Output, out)
}

func (h *SortRecords) extractKeys(index int, raw json.RawMessage) ([]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, appErr.Malformed(h.cfg.Input, fmt.Sprintf("record %d is not an object", index))
	}
	keys := make([]string, len(h.cfg.Keys))
	for i, name := range h.cfg.Keys {
		value, ok := fields[name]
		if !ok {
			return nil, appErr.Malformed(h.cfg.Input, fmt.Sprintf("record %d has no %q", index, name))
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) || json.Unmarshal(value, &keys[i]) != nil {
			return nil, appErr.Malformed(h.cfg.Input, fmt.Sprintf("record %d: %q is not a string", index, name))
		}
	}
	return keys, nil
}
