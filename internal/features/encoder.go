// Package features turns raw form inputs into the positional vector the
// diabetes classifier was trained on.
package features

import (
	"fmt"
	"math"
	"strings"
)

// Size is the number of model inputs.
const Size = 15

// Input ranges accepted by the form.
const (
	MinBMI  = 10.0
	MaxBMI  = 60.0
	MinDays = 0
	MaxDays = 30
)

// Names lists the model inputs in the order the trained artifact expects.
var Names = [Size]string{
	"BMI", "Age", "Income", "PhysHlth", "Education", "MentHlth", "GenHlth",
	"HighBP", "PhysActivity", "HighChol", "DiffWalk", "HeartDiseaseorAttack",
	"Stroke", "HvyAlcoholConsump", "CholCheck",
}

// Vector is the encoded model input. The model reads it by position, not name.
type Vector [Size]float64

// Named pairs every value with its feature name.
func (v Vector) Named() map[string]float64 {
	out := make(map[string]float64, Size)
	for i, n := range Names {
		out[n] = v[i]
	}
	return out
}

// Slice returns a copy of the vector as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Size)
	copy(out, v[:])
	return out
}

// Inputs are the raw values collected from the form.
type Inputs struct {
	BMI       float64
	Age       string
	Income    string
	PhysHlth  int
	Education string
	MentHlth  int
	GenHlth   string

	HighBP               int
	PhysActivity         int
	HighChol             int
	DiffWalk             int
	HeartDiseaseorAttack int
	Stroke               int
	HvyAlcoholConsump    int
	CholCheck            int
}

// DefaultInputs mirrors the initial state of the form.
func DefaultInputs() Inputs {
	return Inputs{
		BMI:       25.0,
		Age:       ageTable.labels[0],
		Income:    incomeTable.labels[0],
		PhysHlth:  5,
		Education: educationTable.labels[0],
		MentHlth:  5,
		GenHlth:   genHlthTable.labels[0],
	}
}

// ValidationError lists every field whose value is outside its domain.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, n := range Names {
		if msg, ok := e.Fields[n]; ok {
			parts = append(parts, n+": "+msg)
		}
	}
	return "invalid inputs: " + strings.Join(parts, "; ")
}

// Validate checks categorical labels and binary flags. Continuous values are
// clamped by Encode and never rejected.
func Validate(in Inputs) error {
	bad := map[string]string{}
	if math.IsNaN(in.BMI) {
		bad["BMI"] = "must be a number"
	}
	checkLabel := func(name, label string, t table) {
		if _, ok := t.code(label); !ok {
			bad[name] = fmt.Sprintf("unknown option %q", label)
		}
	}
	checkLabel("Age", in.Age, ageTable)
	checkLabel("Income", in.Income, incomeTable)
	checkLabel("Education", in.Education, educationTable)
	checkLabel("GenHlth", in.GenHlth, genHlthTable)

	for name, v := range in.binaries() {
		if v != 0 && v != 1 {
			bad[name] = fmt.Sprintf("must be 0 or 1, got %d", v)
		}
	}

	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

func (in Inputs) binaries() map[string]int {
	return map[string]int{
		"HighBP":               in.HighBP,
		"PhysActivity":         in.PhysActivity,
		"HighChol":             in.HighChol,
		"DiffWalk":             in.DiffWalk,
		"HeartDiseaseorAttack": in.HeartDiseaseorAttack,
		"Stroke":               in.Stroke,
		"HvyAlcoholConsump":    in.HvyAlcoholConsump,
		"CholCheck":            in.CholCheck,
	}
}

// Encode builds the model vector. Inputs must have passed Validate; labels
// outside the tables are not representable past that boundary.
func Encode(in Inputs) Vector {
	age, _ := ageTable.code(in.Age)
	income, _ := incomeTable.code(in.Income)
	education, _ := educationTable.code(in.Education)
	genHlth, _ := genHlthTable.code(in.GenHlth)

	return Vector{
		clamp(in.BMI, MinBMI, MaxBMI),
		float64(age),
		float64(income),
		float64(clampDays(in.PhysHlth)),
		float64(education),
		float64(clampDays(in.MentHlth)),
		float64(genHlth),
		float64(in.HighBP),
		float64(in.PhysActivity),
		float64(in.HighChol),
		float64(in.DiffWalk),
		float64(in.HeartDiseaseorAttack),
		float64(in.Stroke),
		float64(in.HvyAlcoholConsump),
		float64(in.CholCheck),
	}
}

// ClampBMI limits a BMI reading to the accepted range.
func ClampBMI(bmi float64) float64 { return clamp(bmi, MinBMI, MaxBMI) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDays(d int) int {
	if d < MinDays {
		return MinDays
	}
	if d > MaxDays {
		return MaxDays
	}
	return d
}
