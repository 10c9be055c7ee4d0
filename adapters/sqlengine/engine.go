package sqlengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"casedesk/domain/table"
	"casedesk/internal/errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// TableAlias is the name every query uses to refer to the source table
const TableAlias = "self"

var allowedStatements = []string{"SELECT", "WITH", "VALUES"}

// Engine runs read-only SQL over a table by loading it into a private in-memory SQLite database
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a query engine
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("sqlengine")}
}

// Query loads t as "self", runs query and returns the rows in engine order.
// Engine failures come back as QUERY_ERROR carrying the engine's message.
func (e *Engine) Query(ctx context.Context, t *table.Table, query string) (*table.Result, error) {
	query, err := singleStatement(query)
	if err != nil {
		return nil, errors.QueryError(err)
	}
	if err := checkStatement(query); err != nil {
		return nil, errors.QueryError(err)
	}

	start := time.Now()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open query database")
	}
	defer db.Close()
	// :memory: databases live per connection
	db.SetMaxOpenConns(1)

	if err := loadTable(ctx, db, t); err != nil {
		return nil, errors.Wrapf(err, "failed to load table %q", t.Name)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, errors.Wrap(err, "failed to lock query database")
	}

	result, err := run(ctx, db, query)
	if err != nil {
		e.logger.Debug("query failed", zap.String("table", t.Name), zap.Error(err))
		return nil, errors.QueryError(err)
	}

	e.logger.Debug("query executed",
		zap.String("table", t.Name),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func loadTable(ctx context.Context, db *sqlx.DB, t *table.Table) error {
	if t.Width() == 0 {
		return fmt.Errorf("table has no columns")
	}

	defs := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = quoteIdent(c.Name) + " " + declType(c.Type)
		marks[i] = "?"
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(TableAlias), strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(TableAlias), strings.Join(marks, ", ")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func run(ctx context.Context, db *sqlx.DB, query string) (*table.Result, error) {
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column name in result: %q", c)
		}
		seen[c] = true
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	boolCols := make([]bool, len(colTypes))
	for i, ct := range colTypes {
		boolCols[i] = strings.EqualFold(ct.DatabaseTypeName(), "BOOLEAN")
	}

	result := &table.Result{Columns: columns, Rows: []table.Row{}}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalize(v, boolCols[i])
		}
		result.Rows = append(result.Rows, table.NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// normalize maps driver values back onto the table value set
func normalize(v interface{}, boolean bool) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int64:
		if boolean {
			return x != 0
		}
		return x
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}

func declType(t table.ColumnType) string {
	switch t {
	case table.TypeInteger:
		return "INTEGER"
	case table.TypeFloat:
		return "REAL"
	case table.TypeBoolean:
		return "BOOLEAN"
	default:
		// dates stay text so the driver hands back exactly what was stored
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// checkStatement admits read-only statements only
func checkStatement(query string) error {
	keyword := strings.ToUpper(firstKeyword(query))
	for _, allowed := range allowedStatements {
		if keyword == allowed {
			return nil
		}
	}
	if keyword == "" {
		return fmt.Errorf("empty query")
	}
	return fmt.Errorf("only SELECT queries are supported, got %s", keyword)
}

// singleStatement drops trailing semicolons and rejects statement lists
func singleStatement(query string) (string, error) {
	query = strings.TrimRight(strings.TrimSpace(query), "; \t\r\n")

	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == ';':
			return "", fmt.Errorf("multiple statements are not supported")
		}
	}
	return query, nil
}

// firstKeyword skips whitespace, comments and opening parentheses
func firstKeyword(query string) string {
	s := query
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_')
			})
			if end < 0 {
				return s
			}
			return s[:end]
		}
	}
}
