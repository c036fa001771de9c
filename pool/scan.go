package pool

import (
	"database/sql"
	"time"
)

// Result is the outcome of a pooled Query or Exec.
type Result struct {
	// Rows holds the scanned result set, one map per row keyed by column
	// name. Nil for Exec.
	Rows []map[string]any `json:"rows,omitempty"`
	// RowsAffected and LastInsertID mirror the driver's sql.Result for
	// Exec; drivers that don't support them leave zero values.
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id"`
	// Duration is how long the statement took on the connection.
	Duration time.Duration `json:"duration"`
}

// scanRows drains rows into generic maps. Byte slices are converted to
// strings since drivers commonly return text columns as []byte.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
