package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chessgames/pkg/config"
	"chessgames/pkg/features"
	"chessgames/pkg/logger"
	"chessgames/pkg/metrics"
	"chessgames/pkg/parser"
	"chessgames/pkg/schema"
	"chessgames/pkg/writer"

	"go.uber.org/zap"
)

// Exporter receives every design-matrix row in addition to the CSV output
type Exporter interface {
	Start(ctx context.Context)
	Submit(ctx context.Context, row writer.Row) error
	Shutdown(ctx context.Context) error
}

// Options controls one extraction run
type Options struct {
	RawPath       string
	ProcessedPath string
	SchemaMode    string
	Schema        schema.Options
}

// OptionsFromConfig maps the application config onto extraction options
func OptionsFromConfig(cfg *config.AppConfig) Options {
	return Options{
		RawPath:       cfg.Data.RawPath,
		ProcessedPath: cfg.Data.ProcessedPath,
		SchemaMode:    cfg.Schema.Mode,
		Schema: schema.Options{
			Lengths:             cfg.Features.ECOLengths,
			Cutoff:              cfg.Features.ECOCutoff,
			MaxTimeLimitMinutes: cfg.Features.MaxTimeLimitMinutes,
		},
	}
}

// Result summarises an extraction run
type Result struct {
	GamesRead     int
	Duplicates    int
	RowsWritten   int
	SchemaVersion string
	Columns       []string
}

// Service assembles the design matrix from the raw games dataset
type Service struct {
	logger   *logger.Logger
	store    schema.Store
	exporter Exporter
	opts     Options
}

// NewService creates a new extractor. exporter may be nil.
func NewService(l *logger.Logger, store schema.Store, exporter Exporter, opts Options) *Service {
	return &Service{
		logger:   l,
		store:    store,
		exporter: exporter,
		opts:     opts,
	}
}

// Run reads the raw CSV and writes the processed CSV. The output is written
// to a temporary file and renamed into place once complete.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	in, err := os.Open(s.opts.RawPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw dataset: %w", err)
	}
	defer in.Close()

	dir := filepath.Dir(s.opts.ProcessedPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, ".processed-*.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	res, sc, err := s.extract(ctx, in, tmp)
	if err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), s.opts.ProcessedPath); err != nil {
		return nil, fmt.Errorf("failed to move output into place: %w", err)
	}
	if err := s.persistSchema(ctx, sc); err != nil {
		return nil, err
	}

	s.logger.Info("design matrix written",
		zap.String("path", s.opts.ProcessedPath),
		zap.Int("rows", res.RowsWritten),
		zap.Int("columns", len(res.Columns)),
		zap.String("schema_version", res.SchemaVersion))
	return res, nil
}

// Extract transforms raw games from in into design-matrix rows on out.
// The first malformed row aborts the run. In build mode the new schema is
// saved only once every row has been written and exported.
func (s *Service) Extract(ctx context.Context, in io.Reader, out io.Writer) (*Result, error) {
	res, sc, err := s.extract(ctx, in, out)
	if err != nil {
		return nil, err
	}
	if err := s.persistSchema(ctx, sc); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) extract(ctx context.Context, in io.Reader, out io.Writer) (*Result, *schema.Schema, error) {
	games, err := parser.ReadGames(in)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read games: %w", err)
	}
	metrics.ExtractorGamesReadTotal.Add(float64(len(games)))

	games, dropped := parser.Deduplicate(games)
	metrics.ExtractorDuplicatesTotal.Add(float64(dropped))
	s.logger.Info("games loaded", zap.Int("unique", len(games)), zap.Int("duplicates", dropped))

	sc, err := s.resolveSchema(ctx, games)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]writer.Row, 0, len(games))
	for _, g := range games {
		row, err := EncodeRow(sc, g)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}

	w, err := writer.NewCSVWriter(nopCloser{out}, sc.Columns(), schema.FloatColumns)
	if err != nil {
		return nil, nil, err
	}
	if err := w.WriteBatch(ctx, rows); err != nil {
		return nil, nil, err
	}
	if err := w.Close(); err != nil {
		return nil, nil, err
	}
	metrics.ExtractorRowsWrittenTotal.Add(float64(len(rows)))

	if s.exporter != nil {
		if err := s.export(ctx, rows); err != nil {
			return nil, nil, err
		}
	}

	return &Result{
		GamesRead:     len(games) + dropped,
		Duplicates:    dropped,
		RowsWritten:   len(rows),
		SchemaVersion: sc.Version,
		Columns:       sc.Columns(),
	}, sc, nil
}

// EncodeRow turns a game into a labelled design-matrix row
func EncodeRow(sc *schema.Schema, g parser.GameRecord) (writer.Row, error) {
	values, err := sc.Encode(g)
	if err != nil {
		return writer.Row{}, fmt.Errorf("game %s: %w", g.ID, err)
	}
	outcome, err := features.EncodeOutcome(g.Winner)
	if err != nil {
		return writer.Row{}, fmt.Errorf("game %s: %w", g.ID, err)
	}
	return writer.Row{
		GameID:        g.ID,
		SchemaVersion: sc.Version,
		Values:        values,
		Outcome:       outcome.Value,
		IsDraw:        outcome.IsDraw,
	}, nil
}

func (s *Service) resolveSchema(ctx context.Context, games []parser.GameRecord) (*schema.Schema, error) {
	if s.opts.SchemaMode == config.SchemaModeFrozen {
		sc, err := s.store.Load(ctx)
		if err != nil {
			if errors.Is(err, schema.ErrSchemaNotFound) {
				return nil, fmt.Errorf("frozen schema requested but none saved: %w", err)
			}
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}
		s.logger.Info("using frozen schema", zap.String("version", sc.Version))
		return sc, nil
	}

	codes := make([]string, len(games))
	for i, g := range games {
		codes[i] = g.OpeningECO
	}
	sc := schema.Build(codes, s.opts.Schema)
	s.logger.Info("schema built",
		zap.String("version", sc.Version),
		zap.Int("cutoff", sc.Cutoff),
		zap.Int("columns", sc.Width()))
	return sc, nil
}

// persistSchema saves a freshly built schema. A frozen schema came from the
// store and is left alone.
func (s *Service) persistSchema(ctx context.Context, sc *schema.Schema) error {
	if s.opts.SchemaMode == config.SchemaModeFrozen {
		return nil
	}
	if err := s.store.Save(ctx, sc); err != nil {
		return fmt.Errorf("failed to save schema: %w", err)
	}
	return nil
}

func (s *Service) export(ctx context.Context, rows []writer.Row) error {
	s.exporter.Start(ctx)
	for _, r := range rows {
		if err := s.exporter.Submit(ctx, r); err != nil {
			s.exporter.Shutdown(context.Background())
			return fmt.Errorf("export interrupted: %w", err)
		}
	}
	if err := s.exporter.Shutdown(ctx); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	s.logger.Info("design matrix exported", zap.Int("rows", len(rows)))
	return nil
}

// nopCloser keeps CSVWriter.Close from closing a caller-owned writer
type nopCloser struct{ io.Writer }
