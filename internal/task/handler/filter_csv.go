package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"slices"
	"strings"

	"autotask/internal/task/sandbox"
	appErr "autotask/pkg/errors"
)

// FilterCSVConfig keeps rows whose Column equals Value.
type FilterCSVConfig struct {
	Input  string
	Column string
	Value  string
	Output string
}

// FilterCSV converts matching rows of a headed CSV file to a JSON array of objects.
// Object fields follow the header order.
type FilterCSV struct {
	meta
	guard *sandbox.Guard
	cfg   FilterCSVConfig
}

func NewFilterCSV(guard *sandbox.Guard, cfg FilterCSVConfig) *FilterCSV {
	return &FilterCSV{meta: meta{kind: "filter-csv", artifact: cfg.Output}, guard: guard, cfg: cfg}
}

func (h *FilterCSV) Run(ctx context.Context) error {
	data, err := readInput(h.guard, h.cfg.Input)
	if err != nil {
		return err
	}
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return appErr.Malformed(h.cfg.Input, "missing header row")
		}
		return appErr.Malformed(h.cfg.Input, err.Error())
	}
	column := slices.Index(header, h.cfg.Column)
	if column < 0 {
		return appErr.Malformed(h.cfg.Input, "no column "+h.cfg.Column)
	}

	rows := make([]orderedRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return appErr.Malformed(h.cfg.Input, err.Error())
		}
		if record[column] == h.cfg.Value {
			rows = append(rows, orderedRow{keys: header, values: record})
		}
	}
	out, err := encodeJSON(rows, false)
	if err != nil {
		return err
	}
	return writeArtifact(h.guard, h.cfg.Output, out)
}

// orderedRow marshals as a JSON object with keys in header order.
type orderedRow struct {
	keys   []string
	values []string
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
