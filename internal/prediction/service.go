// Package prediction runs one encode, infer and classify pass per request.
package prediction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/metrics"
	"github.com/Skufu/GlucoRisk/internal/model"
	"github.com/Skufu/GlucoRisk/internal/risk"
	"github.com/Skufu/GlucoRisk/internal/store"
)

// History persists completed predictions.
type History interface {
	Save(ctx context.Context, r store.Record) error
}

// Result is everything the form and the API display for one prediction.
type Result struct {
	ID              uuid.UUID       `json:"id"`
	CreatedAt       time.Time       `json:"createdAt"`
	Inputs          features.Inputs `json:"-"`
	Vector          features.Vector `json:"-"`
	Probability     float64         `json:"probability"`
	ProbabilityText string          `json:"probabilityText"`
	Assessment      risk.Assessment `json:"assessment"`
	Verdict         risk.Verdict    `json:"verdict"`
	BMI             risk.BMIClass   `json:"bmi"`
}

type Service struct {
	model   *model.Holder
	history History
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the model holder. history may be nil.
func NewService(m *model.Holder, history History, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{model: m, history: history, logger: logger, now: time.Now}
}

// Model exposes the holder for status endpoints.
func (s *Service) Model() *model.Holder { return s.model }

// Available reports the load failure, wrapping model.ErrModelUnavailable, and
// counts it as a failed attempt. Callers that parse requests check it first.
func (s *Service) Available() error {
	if s.model.Ready() {
		return nil
	}
	metrics.RecordPredictionError("model_unavailable")
	return s.model.Err()
}

// Predict returns model.ErrModelUnavailable without touching the backend
// when the artifact failed to load, a *features.ValidationError for inputs
// outside their domains, or a *model.InferenceError when the call fails.
func (s *Service) Predict(ctx context.Context, in features.Inputs) (*Result, error) {
	if err := s.Available(); err != nil {
		return nil, err
	}
	if err := features.Validate(in); err != nil {
		return nil, err
	}

	vec := features.Encode(in)
	backend := s.model.Info().Backend

	start := time.Now()
	p, err := s.model.Predict(ctx, vec)
	metrics.RecordInferenceDuration(backend, time.Since(start))
	if err != nil {
		kind := "inference_failed"
		if errors.Is(err, model.ErrModelUnavailable) {
			kind = "model_unavailable"
		}
		metrics.RecordPredictionError(kind)
		s.logger.Warn("prediction failed", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}

	assessment := risk.Classify(p)
	res := &Result{
		ID:              uuid.New(),
		CreatedAt:       s.now().UTC(),
		Inputs:          in,
		Vector:          vec,
		Probability:     p,
		ProbabilityText: risk.FormatProbability(p),
		Assessment:      assessment,
		Verdict:         risk.VerdictFor(p),
		BMI:             risk.ClassifyBMI(vec[0]),
	}
	metrics.RecordPrediction(string(assessment.Tier))
	s.logger.Info("prediction completed",
		zap.String("id", res.ID.String()),
		zap.Float64("probability", p),
		zap.String("tier", string(assessment.Tier)),
	)

	if s.history != nil {
		err := s.history.Save(ctx, store.Record{
			ID:          res.ID,
			CreatedAt:   res.CreatedAt,
			Vector:      vec,
			Probability: p,
			Tier:        string(assessment.Tier),
		})
		if err != nil {
			metrics.RecordHistoryWriteError()
			s.logger.Error("save prediction", zap.String("id", res.ID.String()), zap.Error(err))
		}
	}

	return res, nil
}
