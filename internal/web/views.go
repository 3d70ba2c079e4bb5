package web

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"

	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/model"
	"github.com/Skufu/GlucoRisk/internal/prediction"
	"github.com/Skufu/GlucoRisk/internal/risk"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"upper": strings.ToUpper,
	}).ParseFS(templateFS, "templates/*.tmpl")
}

func staticRoot() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type binaryField struct {
	Key     string
	Label   string
	Tooltip string
	Value   int
}

type formOptions struct {
	Age       []string
	Income    []string
	GenHlth   []string
	Education []string
}

type page struct {
	Title      string
	Active     string
	ModelError string
}

type predictPage struct {
	page
	Options      formOptions
	Input        features.Inputs
	BMI          risk.BMIClass
	MedicalLeft  []binaryField
	MedicalRight []binaryField
	Error        string
	Result       *prediction.Result
	MinBMI       float64
	MaxBMI       float64
	MaxDays      int
}

func newOptions() formOptions {
	return formOptions{
		Age:       features.AgeLabels(),
		Income:    features.IncomeLabels(),
		GenHlth:   features.GenHlthLabels(),
		Education: features.EducationLabels(),
	}
}

// medicalHistory splits the yes/no inputs into the two columns of the form.
func medicalHistory(in features.Inputs) (left, right []binaryField) {
	left = []binaryField{
		{"highBP", "High Blood Pressure", "Diagnosed with high blood pressure", in.HighBP},
		{"highChol", "High Cholesterol", "Diagnosed with high cholesterol", in.HighChol},
		{"diffWalk", "Difficulty Walking", "Difficulty walking or climbing stairs", in.DiffWalk},
		{"heartDiseaseorAttack", "Heart Disease or Attack", "Coronary heart disease or myocardial infarction", in.HeartDiseaseorAttack},
	}
	right = []binaryField{
		{"stroke", "Stroke History", "Ever had a stroke", in.Stroke},
		{"hvyAlcoholConsump", "Heavy Alcohol Consumption", "Heavy alcohol consumption (adult men >14 drinks/week; women >7)", in.HvyAlcoholConsump},
		{"cholCheck", "Cholesterol Check in last 5 years", "Had cholesterol check in the past 5 years", in.CholCheck},
		{"physActivity", "Physically Active", "Engaged in physical activity in the past 30 days (exclude job)", in.PhysActivity},
	}
	return left, right
}

// modelBanner is the startup error shown on every page while the model is
// unavailable.
func modelBanner(h *model.Holder) string {
	if h.Ready() {
		return ""
	}
	info := h.Info()
	if info.Backend == "remote" {
		return "❌ Model server unavailable at '" + info.Source + "'. Please check the model service."
	}
	return "❌ Model file not found. Please ensure '" + info.Source + "' is in the same directory."
}
