// Package model loads the trained diabetes classifier and runs inference
// against it.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Skufu/GlucoRisk/internal/features"
)

// ErrModelUnavailable is returned for every prediction when the artifact
// could not be loaded at startup.
var ErrModelUnavailable = errors.New("model unavailable")

// Predictor returns the probability of the positive class for one vector.
type Predictor interface {
	PredictProba(ctx context.Context, v features.Vector) (float64, error)
}

// Info describes a loaded backend.
type Info struct {
	Backend string `json:"backend"`
	Source  string `json:"source"`
	Members int    `json:"members,omitempty"`
	Trees   int    `json:"trees,omitempty"`
}

// InferenceError marks a failed call for a single request.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return e.Err.Error() }
func (e *InferenceError) Unwrap() error { return e.Err }

// Holder owns the process-wide model. It is written once by Load and only
// read afterwards.
type Holder struct {
	predictor Predictor
	info      Info
	loadErr   error
}

// Loader builds a predictor, failing if the artifact is missing or invalid.
type Loader func(ctx context.Context) (Predictor, Info, error)

// Load runs the loader once. A failed load yields a Holder that rejects
// every prediction with ErrModelUnavailable.
func Load(ctx context.Context, load Loader) *Holder {
	p, info, err := load(ctx)
	if err != nil {
		return &Holder{info: info, loadErr: err}
	}
	return &Holder{predictor: p, info: info}
}

// NewHolder wraps an already constructed predictor.
func NewHolder(p Predictor, info Info) *Holder {
	return &Holder{predictor: p, info: info}
}

func (h *Holder) Ready() bool { return h.predictor != nil }

func (h *Holder) Info() Info { return h.info }

// Err reports why the model is unavailable, or nil when it is loaded.
func (h *Holder) Err() error {
	if h.predictor != nil {
		return nil
	}
	if h.loadErr == nil {
		return ErrModelUnavailable
	}
	return fmt.Errorf("%w: %w", ErrModelUnavailable, h.loadErr)
}

// Predict runs a single inference.
func (h *Holder) Predict(ctx context.Context, v features.Vector) (float64, error) {
	if h.predictor == nil {
		return 0, h.Err()
	}
	p, err := h.predictor.PredictProba(ctx, v)
	if err != nil {
		var ie *InferenceError
		if errors.As(err, &ie) {
			return 0, err
		}
		return 0, &InferenceError{Err: err}
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, &InferenceError{Err: fmt.Errorf("probability %v outside [0, 1]", p)}
	}
	return p, nil
}

// checkContract verifies declared artifact inputs against features.Names.
// Absent declarations are accepted.
func checkContract(names []string, n int) error {
	if n != 0 && n != features.Size {
		return fmt.Errorf("artifact expects %d features, encoder produces %d", n, features.Size)
	}
	if len(names) == 0 {
		return nil
	}
	if len(names) != features.Size {
		return fmt.Errorf("artifact declares %d feature names, encoder produces %d", len(names), features.Size)
	}
	for i, name := range names {
		if name != features.Names[i] {
			return fmt.Errorf("feature %d: artifact expects %q, encoder produces %q", i, name, features.Names[i])
		}
	}
	return nil
}
