package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"chessgames/pkg/config"
	"chessgames/pkg/features"
	"chessgames/pkg/logger"
	"chessgames/pkg/model"
	"chessgames/pkg/schema"

	"go.uber.org/zap"
)

const (
	TargetColumn = "outcome"
	DrawColumn   = "is_draw"
)

// Options controls one training run
type Options struct {
	ProcessedPath string
	ModelPath     string
	TestSize      float64
	Seed          int64
	Fit           model.Options
}

// OptionsFromConfig maps the application config onto training options
func OptionsFromConfig(cfg *config.AppConfig) Options {
	return Options{
		ProcessedPath: cfg.Data.ProcessedPath,
		ModelPath:     cfg.Data.ModelPath,
		TestSize:      cfg.Model.TestSize,
		Seed:          cfg.Model.Seed,
		Fit:           model.Options{C: cfg.Model.C, MaxIter: cfg.Model.MaxIter},
	}
}

// Result holds the fitted model and its held-out evaluation
type Result struct {
	Model     *model.Model
	Report    model.Report
	Confusion [][]int
	TrainRows int
	TestRows  int
}

// Service fits the outcome classifier on the processed design matrix
type Service struct {
	logger *logger.Logger
	store  schema.Store
	opts   Options
}

// NewService creates a new trainer
func NewService(l *logger.Logger, store schema.Store, opts Options) *Service {
	return &Service{logger: l, store: store, opts: opts}
}

// Run trains on the processed CSV and saves the model
func (s *Service) Run(ctx context.Context) (*Result, error) {
	f, err := os.Open(s.opts.ProcessedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open design matrix: %w", err)
	}
	defer f.Close()

	res, err := s.Train(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := res.Model.Save(s.opts.ModelPath); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}
	s.logger.Info("model saved", zap.String("path", s.opts.ModelPath))
	return res, nil
}

// Train fits a model on a processed CSV and evaluates it on a held-out split.
// The CSV columns must match the saved schema.
func (s *Service) Train(ctx context.Context, r io.Reader) (*Result, error) {
	sc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	ds, err := model.LoadDataset(r, TargetColumn, DrawColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load design matrix: %w", err)
	}
	if !slices.Equal(ds.Features, sc.Columns()) {
		return nil, fmt.Errorf("%w: design matrix columns do not match schema %s", schema.ErrSchemaMismatch, sc.Version)
	}

	trainIdx, testIdx, err := model.TrainTestSplit(len(ds.Y), s.opts.TestSize, s.opts.Seed)
	if err != nil {
		return nil, err
	}
	xTrain, yTrain := model.Subset(ds.X, ds.Y, trainIdx)
	xTest, yTest := model.Subset(ds.X, ds.Y, testIdx)

	s.logger.Info("fitting model",
		zap.Int("train_rows", len(yTrain)),
		zap.Int("test_rows", len(yTest)),
		zap.Int("features", len(ds.Features)))

	m, err := model.Fit(xTrain, yTrain, ds.Features, s.opts.Fit)
	if err != nil {
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}
	m.SchemaVersion = sc.Version

	pred := make([]int, len(xTest))
	for i, x := range xTest {
		if pred[i], err = m.Predict(x); err != nil {
			return nil, fmt.Errorf("test row %d: %w", i, err)
		}
	}

	report := model.ClassificationReport(yTest, pred, features.OutcomeLabel)
	s.logger.Info("model evaluated",
		zap.Float64("accuracy", report.Accuracy),
		zap.Int("iterations", m.Iterations),
		zap.String("status", m.Status))

	return &Result{
		Model:     m,
		Report:    report,
		Confusion: model.ConfusionMatrix(yTest, pred, m.Classes),
		TrainRows: len(yTrain),
		TestRows:  len(yTest),
	}, nil
}

// WriteReport prints the classification report, the confusion matrix and the
// first class's coefficients ordered by magnitude
func WriteReport(w io.Writer, res *Result) error {
	m := res.Model
	fmt.Fprintf(w, "Classification report:\n%s\n", res.Report)
	fmt.Fprintf(w, "Accuracy: %.4f\n\n", res.Report.Accuracy)

	fmt.Fprintf(w, "Confusion matrix (rows: truth, columns: predicted):\n%8s", "")
	for _, c := range m.Classes {
		fmt.Fprintf(w, " %8s", features.OutcomeLabel(c))
	}
	fmt.Fprintln(w)
	for i, row := range res.Confusion {
		fmt.Fprintf(w, "%8s", features.OutcomeLabel(m.Classes[i]))
		for _, n := range row {
			fmt.Fprintf(w, " %8d", n)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nCoefficients (%s):\n", features.OutcomeLabel(m.Classes[0]))
	for _, c := range m.SortedCoefficients(0) {
		fmt.Fprintf(w, "%-32s % .6f\n", c.Feature, c.Value)
	}
	_, err := fmt.Fprintf(w, "\nIntercept: % .6f\n", m.Intercepts[0])
	return err
}
