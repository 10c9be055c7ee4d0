package csvsource

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"casedesk/adapters/coercer"
	"casedesk/domain/grid"
	"casedesk/domain/table"
	"casedesk/internal/errors"

	"go.uber.org/zap"
)

// Reader loads a comma-separated export with a header row into a typed table
type Reader struct {
	filePath string
	name     string
	coercer  *coercer.TypeCoercer
	logger   *zap.Logger
}

// NewReader creates a reader for the file at filePath; name becomes the table name
func NewReader(filePath, name string, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		filePath: filePath,
		name:     name,
		coercer:  coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()),
		logger:   logger.Named("csv"),
	}
}

// ReadTable reads the whole file; the schema is inferred from its content
func (r *Reader) ReadTable(ctx context.Context) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("CSV file %s", r.filePath))
		}
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	readStart := time.Now()
	t, err := r.decode(file)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("csv read",
		zap.String("file", r.filePath),
		zap.Int("rows", t.Len()),
		zap.Int("cols", t.Width()),
		zap.Duration("elapsed", time.Since(readStart)))

	return t, nil
}

func (r *Reader) decode(src io.Reader) (*table.Table, error) {
	// every record must have as many fields as the header
	reader := csv.NewReader(src)

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if stderrors.As(err, &parseErr) && stderrors.Is(parseErr.Err, csv.ErrFieldCount) {
			return nil, errors.WithCode(errors.CodeValidationError, err)
		}
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	if len(records) == 0 {
		return nil, errors.ValidationError("CSV file has no header row")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = h
	}
	headers = grid.Uniquify(headers)

	rows := make([][]grid.Cell, 0, len(records)-1)
	for _, record := range records[1:] {
		cells := make([]grid.Cell, len(headers))
		for j := range headers {
			cells[j] = r.coercer.ParseText(record[j])
		}
		rows = append(rows, cells)
	}

	return r.coercer.BuildTable(r.name, headers, rows), nil
}
