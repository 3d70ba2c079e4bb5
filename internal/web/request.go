package web

import "github.com/Skufu/GlucoRisk/internal/features"

// PredictRequest is accepted as JSON by the API and as form fields by the
// HTML page. Omitted yes/no fields mean "No".
type PredictRequest struct {
	BMI       *float64 `json:"bmi" form:"bmi" binding:"required"`
	Age       string   `json:"age" form:"age" binding:"required,age_band"`
	Income    string   `json:"income" form:"income" binding:"required,income_band"`
	PhysHlth  int      `json:"physHlth" form:"physHlth"`
	Education string   `json:"education" form:"education" binding:"required,education"`
	MentHlth  int      `json:"mentHlth" form:"mentHlth"`
	GenHlth   string   `json:"genHlth" form:"genHlth" binding:"required,health_level"`

	HighBP               int `json:"highBP" form:"highBP" binding:"oneof=0 1"`
	PhysActivity         int `json:"physActivity" form:"physActivity" binding:"oneof=0 1"`
	HighChol             int `json:"highChol" form:"highChol" binding:"oneof=0 1"`
	DiffWalk             int `json:"diffWalk" form:"diffWalk" binding:"oneof=0 1"`
	HeartDiseaseorAttack int `json:"heartDiseaseorAttack" form:"heartDiseaseorAttack" binding:"oneof=0 1"`
	Stroke               int `json:"stroke" form:"stroke" binding:"oneof=0 1"`
	HvyAlcoholConsump    int `json:"hvyAlcoholConsump" form:"hvyAlcoholConsump" binding:"oneof=0 1"`
	CholCheck            int `json:"cholCheck" form:"cholCheck" binding:"oneof=0 1"`
}

var requestFieldOrder = []string{
	"bmi", "age", "income", "physHlth", "education", "mentHlth", "genHlth",
	"highBP", "physActivity", "highChol", "diffWalk", "heartDiseaseorAttack",
	"stroke", "hvyAlcoholConsump", "cholCheck",
}

func (r PredictRequest) Inputs() features.Inputs {
	in := features.Inputs{
		Age:                  r.Age,
		Income:               r.Income,
		PhysHlth:             r.PhysHlth,
		Education:            r.Education,
		MentHlth:             r.MentHlth,
		GenHlth:              r.GenHlth,
		HighBP:               r.HighBP,
		PhysActivity:         r.PhysActivity,
		HighChol:             r.HighChol,
		DiffWalk:             r.DiffWalk,
		HeartDiseaseorAttack: r.HeartDiseaseorAttack,
		Stroke:               r.Stroke,
		HvyAlcoholConsump:    r.HvyAlcoholConsump,
		CholCheck:            r.CholCheck,
	}
	if r.BMI != nil {
		in.BMI = *r.BMI
	}
	return in
}

// formInputs is what the form shows again after a submission. Values that
// failed to bind or are not valid options fall back to the defaults.
func (r PredictRequest) formInputs() features.Inputs {
	in := r.Inputs()
	def := features.DefaultInputs()
	if r.BMI == nil {
		in.BMI = def.BMI
	}
	if _, ok := features.AgeCode(r.Age); !ok {
		in.Age = def.Age
	}
	if _, ok := features.IncomeCode(r.Income); !ok {
		in.Income = def.Income
	}
	if _, ok := features.EducationCode(r.Education); !ok {
		in.Education = def.Education
	}
	if _, ok := features.GenHlthCode(r.GenHlth); !ok {
		in.GenHlth = def.GenHlth
	}
	return in
}
