// Package store exports pipeline tables to a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/vowelspace/internal/dataset"
)

// ErrNoColumns is returned when a table without a header is imported.
var ErrNoColumns = errors.New("table has no columns")

// Store is a SQLite database holding imported tables.
type Store struct {
	db     *sql.DB
	path   string
	logger logging.Logger
}

// Open creates or opens the database at path.
func Open(path string, logger logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// TableName derives a table name from a file name: the stem with every
// character outside [A-Za-z0-9_] replaced by an underscore.
func TableName(file string) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	var b strings.Builder
	for _, r := range stem {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "t_" + name
	}
	return name
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// ColumnTypes returns REAL for columns whose present values all parse as
// numbers and TEXT otherwise. Columns with no values are TEXT.
func ColumnTypes(tbl *dataset.Table) []string {
	types := make([]string, len(tbl.Header))
	for c := range tbl.Header {
		numeric, seen := true, false
		for _, row := range tbl.Rows {
			v := row[c]
			if dataset.IsMissing(v) {
				continue
			}
			seen = true
			if _, err := parseNumber(v); err != nil {
				numeric = false
				break
			}
		}
		if numeric && seen {
			types[c] = "REAL"
		} else {
			types[c] = "TEXT"
		}
	}
	return types
}

// ImportTable replaces table name with the contents of tbl in a single
// transaction and returns the number of inserted rows.
func (s *Store) ImportTable(ctx context.Context, name string, tbl *dataset.Table) (int, error) {
	if len(tbl.Header) == 0 {
		return 0, fmt.Errorf("import %s: %w", name, ErrNoColumns)
	}
	types := ColumnTypes(tbl)

	cols := make([]string, len(tbl.Header))
	marks := make([]string, len(tbl.Header))
	for i, h := range tbl.Header {
		cols[i] = quote(h) + " " + types[i]
		marks[i] = "?"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import of %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(name)); err != nil {
		return 0, fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(cols, ", "))); err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quote(name), strings.Join(marks, ", ")))
	if err != nil {
		return 0, fmt.Errorf("prepare insert into %s: %w", name, err)
	}
	defer stmt.Close()

	args := make([]any, len(tbl.Header))
	for _, row := range tbl.Rows {
		for i, v := range row {
			args[i] = value(v, types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import of %s: %w", name, err)
	}

	s.logger.Debug("Imported table", logging.Fields{
		"table": name,
		"rows":  tbl.Len(),
	})
	return tbl.Len(), nil
}

func value(v, typ string) any {
	if dataset.IsMissing(v) {
		return nil
	}
	if typ == "REAL" {
		f, _ := parseNumber(v)
		return f
	}
	return v
}

func parseNumber(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

// ImportResult reports one imported file.
type ImportResult struct {
	File  string `json:"file"`
	Table string `json:"table"`
	Rows  int    `json:"rows"`
	Error error  `json:"-"`
}

// ImportFile imports a CSV file into the table named after it.
func (s *Store) ImportFile(ctx context.Context, path string) ImportResult {
	return s.importFile(ctx, path, "")
}

func (s *Store) importFile(ctx context.Context, path, prefix string) ImportResult {
	res := ImportResult{File: path, Table: prefix + TableName(path)}
	tbl, err := dataset.ReadCSV(path)
	if err != nil {
		res.Error = err
		return res
	}
	res.Rows, res.Error = s.ImportTable(ctx, res.Table, tbl)
	return res
}

// Import imports a CSV file, or every CSV file of a directory in name order.
// Failed files are reported in their result and do not stop the import.
func (s *Store) Import(ctx context.Context, path string) ([]ImportResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []ImportResult{s.ImportFile(ctx, path)}, nil
	}
	return s.importDir(ctx, path, "")
}

func (s *Store) importDir(ctx context.Context, path, prefix string) ([]ImportResult, error) {
	files, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	results := make([]ImportResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := s.importFile(ctx, f, prefix)
		if res.Error != nil {
			s.logger.Error(res.Error, "Import failed", logging.Fields{"file": f})
		}
		results = append(results, res)
	}
	return results, nil
}

// ImportAs imports path like Import. A non-empty name replaces the table
// name of a single file and prefixes the tables of a directory.
func (s *Store) ImportAs(ctx context.Context, name, path string) ([]ImportResult, error) {
	if name == "" {
		return s.Import(ctx, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return s.importDir(ctx, path, TableName(name)+"_")
	}

	res := ImportResult{File: path, Table: TableName(name)}
	tbl, err := dataset.ReadCSV(path)
	if err != nil {
		res.Error = err
		return []ImportResult{res}, nil
	}
	res.Rows, res.Error = s.ImportTable(ctx, res.Table, tbl)
	return []ImportResult{res}, nil
}

// Tables lists the tables of the database.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Count returns the number of rows of a table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// DB exposes the connection for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
