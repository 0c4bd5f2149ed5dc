package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"autotask/internal/common/db"
	"autotask/internal/task/sandbox"
	appErr "autotask/pkg/errors"
	"autotask/pkg/utils/logger"

	"go.uber.org/zap"
)

// ScalarQueryConfig is a fixed aggregate with bound parameters.
type ScalarQueryConfig struct {
	Database string
	Query    string
	Args     []interface{}
	Output   string
}

// ScalarQuery writes the single numeric value of an aggregate. NULL and empty results write 0.
type ScalarQuery struct {
	meta
	guard *sandbox.Guard
	open  db.Opener
	cfg   ScalarQueryConfig
}

func NewScalarQuery(guard *sandbox.Guard, open db.Opener, cfg ScalarQueryConfig) *ScalarQuery {
	return &ScalarQuery{meta: meta{kind: "scalar-query", artifact: cfg.Output}, guard: guard, open: open, cfg: cfg}
}

func (h *ScalarQuery) Run(ctx context.Context) error {
	database, err := openDatabase(h.guard, h.open, h.cfg.Database)
	if err != nil {
		return err
	}
	defer closeDatabase(ctx, database, h.cfg.Database)

	var value interface{}
	err = database.QueryRow(ctx, h.cfg.Query, h.cfg.Args...).Scan(&value)
	if err != nil && !db.IsNoRows(err) {
		return appErr.Malformed(h.cfg.Database, err.Error())
	}
	text, err := scalarText(value)
	if err != nil {
		return appErr.Malformed(h.cfg.Database, err.Error())
	}
	return writeArtifact(h.guard, h.cfg.Output, []byte(text))
}

// scalarText renders an aggregate. Integers keep full precision.
func scalarText(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "0", nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []byte:
		return numericText(string(v))
	case string:
		return numericText(v)
	}
	return "", fmt.Errorf("unsupported aggregate type %T", value)
}

func numericText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("aggregate %q is not a number", s)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// RowsQueryConfig is a fixed select.
type RowsQueryConfig struct {
	Database string
	Query    string
	Output   string
}

// RowsQuery writes every result row as a JSON array of arrays.
type RowsQuery struct {
	meta
	guard *sandbox.Guard
	open  db.Opener
	cfg   RowsQueryConfig
}

func NewRowsQuery(guard *sandbox.Guard, open db.Opener, cfg RowsQueryConfig) *RowsQuery {
	return &RowsQuery{meta: meta{kind: "rows-query", artifact: cfg.Output}, guard: guard, open: open, cfg: cfg}
}

func (h *RowsQuery) Run(ctx context.Context) error {
	database, err := openDatabase(h.guard, h.open, h.cfg.Database)
	if err != nil {
		return err
	}
	defer closeDatabase(ctx, database, h.cfg.Database)

	_, rows, err := db.CollectRows(ctx, database, h.cfg.Query)
	if err != nil {
		return appErr.Malformed(h.cfg.Database, err.Error())
	}
	out, err := encodeJSON(rows, false)
	if err != nil {
		return err
	}
	return writeArtifact(h.guard, h.cfg.Output, out)
}

func openDatabase(guard *sandbox.Guard, open db.Opener, rel string) (db.Database, error) {
	path, err := guard.Check(rel)
	if err != nil {
		return nil, err
	}
	if err := requireFile(path, rel); err != nil {
		return nil, err
	}
	database, err := open(path)
	if err != nil {
		return nil, appErr.Malformed(rel, err.Error())
	}
	return database, nil
}

func closeDatabase(ctx context.Context, database db.Database, rel string) {
	if err := database.Close(); err != nil {
		logger.Warn(ctx, "close database failed", zap.String("database", rel), zap.Error(err))
	}
}
