package transform

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appErrors "github.com/mrz1836/go-cligolden/internal/errors"
)

// DefaultSQLiteQuery dumps the search index of a Dash-style docset
const DefaultSQLiteQuery = "SELECT * FROM searchIndex;"

// SQLiteCSVTransformer dumps the result of a query against a SQLite file as CSV with a
// header row, in the manner of `sqlite3 -header -csv <file> <query>`
type SQLiteCSVTransformer struct {
	query  string
	suffix string
}

// NewSQLiteCSVTransformer creates a transformer writing <input><suffix>; empty arguments
// fall back to DefaultSQLiteQuery and ".csv"
func NewSQLiteCSVTransformer(query, suffix string) *SQLiteCSVTransformer {
	if query == "" {
		query = DefaultSQLiteQuery
	}
	if suffix == "" {
		suffix = ".csv"
	}
	return &SQLiteCSVTransformer{query: query, suffix: suffix}
}

// Name returns the name of this transformer
func (s *SQLiteCSVTransformer) Name() string {
	return "sqlite-csv"
}

// Output returns the path of the artifact for input
func (s *SQLiteCSVTransformer) Output(input string) string {
	return input + s.suffix
}

// Transform runs the query and writes the CSV artifact
func (s *SQLiteCSVTransformer) Transform(ctx context.Context, tctx Context) error {
	input := tctx.Path()
	output := s.Output(input)

	fail := func(err error) error {
		_ = os.Remove(output)
		return NewError(err, s.Name(), tctx.RelPath, output)
	}

	// opening a missing file would create an empty database
	if _, err := os.Stat(input); err != nil {
		return fail(appErrors.FileReadError(input, err))
	}

	data, err := s.dump(ctx, input)
	if err != nil {
		return fail(withCategory(CategoryQuery, err))
	}

	if err := os.WriteFile(output, data, 0o644); err != nil { //nolint:gosec // artifacts are plain files in the sandbox
		return fail(appErrors.FileWriteError(output, err))
	}
	return nil
}

func (s *SQLiteCSVTransformer) dump(ctx context.Context, input string) ([]byte, error) {
	db, err := gorm.Open(sqlite.Open(input), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	rows, err := db.WithContext(ctx).Raw(s.query).Rows()
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", s.query, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}

	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	record := make([]string, len(columns))
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(val)
	}
}
