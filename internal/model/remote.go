package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Skufu/GlucoRisk/internal/features"
)

// Remote calls a model server that hosts the serialized scikit-learn artifact.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

type remoteMetadata struct {
	FeatureNames []string `json:"feature_names"`
	NFeatures    int      `json:"n_features"`
}

type predictProbaRequest struct {
	FeatureNames []string    `json:"feature_names"`
	Instances    [][]float64 `json:"instances"`
}

type predictProbaResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
	Error         string      `json:"error,omitempty"`
}

// NewRemote creates a client for the model server at baseURL.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RemoteLoader checks the server's declared inputs once at startup.
func RemoteLoader(baseURL string, timeout time.Duration) Loader {
	return func(ctx context.Context) (Predictor, Info, error) {
		r := NewRemote(baseURL, timeout)
		info := Info{Backend: "remote", Source: r.baseURL}
		if err := r.checkMetadata(ctx); err != nil {
			return nil, info, err
		}
		return r, info, nil
	}
}

func (r *Remote) checkMetadata(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/metadata", nil)
	if err != nil {
		return fmt.Errorf("build metadata request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach model server: %w", err)
	}
	defer resp.Body.Close()

	// Servers without a metadata endpoint are trusted as-is.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("model server metadata returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var meta remoteMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return fmt.Errorf("decode model metadata: %w", err)
	}
	return checkContract(meta.FeatureNames, meta.NFeatures)
}

// PredictProba posts one instance and returns the positive-class column.
func (r *Remote) PredictProba(ctx context.Context, v features.Vector) (float64, error) {
	body, err := json.Marshal(predictProbaRequest{
		FeatureNames: features.Names[:],
		Instances:    [][]float64{v.Slice()},
	})
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict_proba", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call model server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out predictProbaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return 0, errors.New(out.Error)
	}
	if len(out.Probabilities) != 1 || len(out.Probabilities[0]) != 2 {
		return 0, fmt.Errorf("unexpected probabilities shape %v", out.Probabilities)
	}
	return out.Probabilities[0][1], nil
}
