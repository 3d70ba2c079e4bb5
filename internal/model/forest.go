package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/Skufu/GlucoRisk/internal/features"
)

const forestFormat = "forest-json/1"

type forestArtifact struct {
	Format       string         `json:"format"`
	FeatureNames []string       `json:"feature_names"`
	NFeatures    int            `json:"n_features"`
	Classes      []int          `json:"classes"`
	Members      []forestMember `json:"members"`
	Trees        []tree         `json:"trees"`
}

type forestMember struct {
	Trees       []tree       `json:"trees"`
	Calibration *calibration `json:"calibration"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

type node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

type calibration struct {
	Method string    `json:"method"`
	A      float64   `json:"a"`
	B      float64   `json:"b"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
}

// Forest is an in-process tree ensemble exported from a calibrated random
// forest. Each member averages its trees and applies its own calibration;
// the final probability is the mean over members.
type Forest struct {
	members  []forestMember
	positive int
}

// LoadForestFile reads and validates a forest artifact from disk.
func LoadForestFile(path string) (*Forest, Info, error) {
	info := Info{Backend: "file", Source: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, info, fmt.Errorf("read model artifact: %w", err)
	}
	f, err := ParseForest(raw)
	if err != nil {
		return nil, info, err
	}
	info.Members = len(f.members)
	for _, m := range f.members {
		info.Trees += len(m.Trees)
	}
	return f, info, nil
}

// ForestLoader adapts LoadForestFile to Load.
func ForestLoader(path string) Loader {
	return func(context.Context) (Predictor, Info, error) {
		f, info, err := LoadForestFile(path)
		if err != nil {
			return nil, info, err
		}
		return f, info, nil
	}
}

// ParseForest decodes an artifact and checks it against the encoder contract.
func ParseForest(raw []byte) (*Forest, error) {
	var art forestArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if art.Format != forestFormat {
		return nil, fmt.Errorf("unsupported artifact format %q", art.Format)
	}
	if err := checkContract(art.FeatureNames, art.NFeatures); err != nil {
		return nil, err
	}
	if len(art.Classes) != 2 {
		return nil, fmt.Errorf("expected a binary classifier, artifact has %d classes", len(art.Classes))
	}

	members := art.Members
	if len(art.Trees) > 0 {
		members = append(members, forestMember{Trees: art.Trees})
	}
	if len(members) == 0 {
		return nil, errors.New("artifact contains no trees")
	}
	for mi, m := range members {
		if len(m.Trees) == 0 {
			return nil, fmt.Errorf("member %d contains no trees", mi)
		}
		for ti, t := range m.Trees {
			if err := t.validate(len(art.Classes)); err != nil {
				return nil, fmt.Errorf("member %d tree %d: %w", mi, ti, err)
			}
		}
		if err := m.Calibration.validate(); err != nil {
			return nil, fmt.Errorf("member %d: %w", mi, err)
		}
	}
	return &Forest{members: members, positive: 1}, nil
}

func (t tree) validate(classes int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Left == -1 {
			if len(n.Value) != classes {
				return fmt.Errorf("leaf %d has %d class values, want %d", i, len(n.Value), classes)
			}
			sum := 0.0
			for _, v := range n.Value {
				if v < 0 || math.IsNaN(v) {
					return fmt.Errorf("leaf %d has invalid value %v", i, v)
				}
				sum += v
			}
			if sum == 0 {
				return fmt.Errorf("leaf %d has no samples", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= features.Size {
			return fmt.Errorf("node %d splits on feature %d", i, n.Feature)
		}
		// Children always follow their parent, which rules out cycles.
		for _, c := range []int{n.Left, n.Right} {
			if c <= i || c >= len(t.Nodes) {
				return fmt.Errorf("node %d has child %d out of range", i, c)
			}
		}
	}
	return nil
}

func (c *calibration) validate() error {
	if c == nil {
		return nil
	}
	switch c.Method {
	case "sigmoid":
		return nil
	case "isotonic":
		if len(c.X) == 0 || len(c.X) != len(c.Y) {
			return errors.New("isotonic calibration needs matching non-empty x and y")
		}
		if !sort.Float64sAreSorted(c.X) {
			return errors.New("isotonic calibration x must be ascending")
		}
		return nil
	default:
		return fmt.Errorf("unknown calibration method %q", c.Method)
	}
}

// PredictProba evaluates the ensemble. It never blocks, so ctx is unused.
func (f *Forest) PredictProba(_ context.Context, v features.Vector) (float64, error) {
	total := 0.0
	for _, m := range f.members {
		sum := 0.0
		for _, t := range m.Trees {
			sum += t.leafProba(v, f.positive)
		}
		total += m.Calibration.apply(sum / float64(len(m.Trees)))
	}
	return total / float64(len(f.members)), nil
}

func (t tree) leafProba(v features.Vector, positive int) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == -1 {
			sum := 0.0
			for _, c := range n.Value {
				sum += c
			}
			return n.Value[positive] / sum
		}
		if v[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (c *calibration) apply(p float64) float64 {
	if c == nil {
		return p
	}
	switch c.Method {
	case "sigmoid":
		return 1 / (1 + math.Exp(c.A*p+c.B))
	case "isotonic":
		return interpolate(c.X, c.Y, p)
	}
	return p
}

// interpolate is piecewise-linear over (xs, ys), clipped at both ends.
func interpolate(xs, ys []float64, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	last := len(xs) - 1
	if x >= xs[last] {
		return ys[last]
	}
	j := sort.SearchFloat64s(xs, x)
	if xs[j] == x {
		return ys[j]
	}
	x0, x1 := xs[j-1], xs[j]
	y0, y1 := ys[j-1], ys[j]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}
