package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// IsNoRows checks if the error is sql.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// CollectRows reads every row of a query into generic values.
// BLOB and TEXT columns returned as []byte are converted to string so the result marshals as JSON text.
func CollectRows(ctx context.Context, database Database, query string, args ...interface{}) ([]string, [][]interface{}, error) {
	rows, err := database.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	out := make([][]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows failed: %w", err)
	}
	return columns, out, nil
}
