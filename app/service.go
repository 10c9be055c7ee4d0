package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"casedesk/domain/table"
	"casedesk/ports"

	"go.uber.org/zap"
)

// SheetList is the workbook's sheet names by position
type SheetList []string

// MarshalJSON renders the list as an index to name object in index order
func (l SheetList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(i)))
		buf.WriteByte(':')
		val, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Service is the query surface over the case workbook and the email export
type Service struct {
	cases  *CaseLoader
	email  ports.TableReader
	engine ports.QueryEngine
	now    Clock
	logger *zap.Logger
}

// NewService wires the loaders to the query engine
func NewService(cases *CaseLoader, email ports.TableReader, engine ports.QueryEngine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cases:  cases,
		email:  email,
		engine: engine,
		now:    time.Now,
		logger: logger.Named("service"),
	}
}

// ListSheets returns the sheet names of the case workbook
func (s *Service) ListSheets(ctx context.Context) (SheetList, error) {
	names, err := s.cases.SheetNames(ctx)
	if err != nil {
		return nil, err
	}
	return SheetList(names), nil
}

// GetSchema describes the case table built from sheet
func (s *Service) GetSchema(ctx context.Context, sheet string) (table.Schema, error) {
	t, err := s.cases.Load(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return t.Schema(), nil
}

// QueryCaseData runs query against the case table built from sheet
func (s *Service) QueryCaseData(ctx context.Context, sheet, query string) ([]table.Row, error) {
	t, err := s.cases.Load(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, t, query)
}

// QueryEmailData runs query against the email export
func (s *Service) QueryEmailData(ctx context.Context, query string) ([]table.Row, error) {
	t, err := s.email.ReadTable(ctx)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, t, query)
}

// GetEmailSchema describes the email export
func (s *Service) GetEmailSchema(ctx context.Context) (table.Schema, error) {
	t, err := s.email.ReadTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.Schema(), nil
}

// CurrentTime formats the local time
func (s *Service) CurrentTime() string {
	return s.now().Format(TimeLayout)
}

// CurrentTimeIn formats the current time in zone tz. An unknown zone yields a
// message for the user instead of an error.
func (s *Service) CurrentTimeIn(tz string) string {
	loc, err := LookupZone(tz)
	if err != nil {
		return err.Error()
	}
	return s.now().In(loc).Format(ZonedTimeLayout)
}

func (s *Service) run(ctx context.Context, t *table.Table, query string) ([]table.Row, error) {
	result, err := s.engine.Query(ctx, t, query)
	if err != nil {
		s.logger.Info("query rejected", zap.String("table", t.Name), zap.Error(err))
		return nil, err
	}
	return result.Rows, nil
}
