// Package seed loads clans from CSV files. Loading is idempotent by exact
// name: rows whose name already exists are skipped, never duplicated.
package seed

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/clanhub/api/internal/metrics"
	"github.com/clanhub/api/internal/models"
	appErr "github.com/clanhub/api/pkg/errors"
	"github.com/clanhub/api/pkg/logger"
)

// Store is the slice of the clan repository the seeder needs.
type Store interface {
	InsertIfAbsent(ctx context.Context, clan *models.Clan) (bool, error)
}

type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeError    Outcome = "error"
)

// RowResult describes what happened to one data line of the file.
type RowResult struct {
	Line      int
	Name      string
	Outcome   Outcome
	Reason    string
	Timestamp TimestampSource
}

type Report struct {
	Inserted           int
	Skipped            int
	Errors             int
	TimestampFallbacks int
	Rows               []RowResult
}

// OK reports whether every row was either inserted or deliberately skipped.
func (r *Report) OK() bool { return r.Errors == 0 }

func (r *Report) String() string {
	return fmt.Sprintf("inserted=%d, skipped=%d, errors=%d", r.Inserted, r.Skipped, r.Errors)
}

func (r *Report) add(row RowResult) {
	switch row.Outcome {
	case OutcomeInserted:
		r.Inserted++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeError:
		r.Errors++
	}
	if row.Timestamp == TimestampFallback {
		r.TimestampFallbacks++
	}
	r.Rows = append(r.Rows, row)
}

type Seeder struct {
	store   Store
	now     func() time.Time
	metrics *metrics.Metrics
}

type Option func(*Seeder)

// WithClock overrides the time source used for defaulted timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Seeder) { s.metrics = m }
}

func New(store Store, opts ...Option) *Seeder {
	s := &Seeder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunFile seeds from the CSV file at path.
func (s *Seeder) RunFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return s.Run(ctx, f)
}

// Run seeds from CSV data with a header row naming the name, region and
// (optional) created_at columns. Row-level failures are counted in the
// report and never stop the run; the returned error is reserved for an
// unusable header, a read failure or cancellation.
func (s *Seeder) Run(ctx context.Context, r io.Reader) (*Report, error) {
	report := &Report{}

	// Bare quotes are kept as literal characters. Fields are trimmed per
	// column below, so a quoted value after a space stays quoted text.
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return report, nil
	}
	if err != nil {
		return report, appErr.Wrap(err, appErr.CodeInvalid, "read csv header failed")
	}
	cols, err := indexColumns(header)
	if err != nil {
		return report, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("seed canceled: %w", err)
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return report, fmt.Errorf("read csv: %w", err)
			}
			s.record(report, RowResult{Line: pe.StartLine, Outcome: OutcomeError, Reason: pe.Err.Error()})
			continue
		}

		line, _ := cr.FieldPos(0)
		s.record(report, s.seedRow(ctx, line, cols, rec))
	}

	return report, nil
}

func (s *Seeder) seedRow(ctx context.Context, line int, cols columns, rec []string) RowResult {
	name := strings.TrimSpace(cols.get(rec, cols.name))
	region := strings.ToUpper(strings.TrimSpace(cols.get(rec, cols.region)))
	rawCreatedAt := cols.get(rec, cols.createdAt)
	createdAt, source := ParseCreatedAt(rawCreatedAt, s.now())

	row := RowResult{Line: line, Name: name, Timestamp: source}
	if source == TimestampFallback {
		logger.L().Warn("unparseable created_at, using current time",
			zap.Int("line", line),
			zap.String("value", rawCreatedAt),
		)
	}

	if name == "" || region == "" {
		row.Outcome, row.Reason = OutcomeSkipped, "missing name or region"
		return row
	}
	if !validRegion(region) {
		row.Outcome, row.Reason = OutcomeSkipped, "region must be 2 letters"
		return row
	}

	inserted, err := s.store.InsertIfAbsent(ctx, &models.Clan{Name: name, Region: region, CreatedAt: createdAt})
	if err != nil {
		logger.L().Warn("seed row failed", zap.Int("line", line), zap.String("name", name), zap.Error(err))
		row.Outcome, row.Reason = OutcomeError, err.Error()
		return row
	}
	if !inserted {
		row.Outcome, row.Reason = OutcomeSkipped, "name exists"
		return row
	}
	row.Outcome = OutcomeInserted
	return row
}

func (s *Seeder) record(report *Report, row RowResult) {
	report.add(row)
	s.metrics.SeedRow(string(row.Outcome))
}

// validRegion mirrors the import rule: exactly two letters of any script.
func validRegion(region string) bool {
	if utf8.RuneCountInString(region) != 2 {
		return false
	}
	for _, r := range region {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

type columns struct {
	name, region, createdAt int
}

func (c columns) get(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func indexColumns(header []string) (columns, error) {
	c := columns{name: -1, region: -1, createdAt: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			c.name = i
		case "region":
			c.region = i
		case "created_at":
			c.createdAt = i
		}
	}
	if c.name < 0 || c.region < 0 {
		return c, appErr.New(appErr.CodeInvalid, "csv header must include name and region columns")
	}
	return c, nil
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}
