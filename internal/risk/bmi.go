package risk

// BMI bands. Display only; the model receives the raw value.
const (
	Underweight = "underweight"
	Normal      = "normal"
	Overweight  = "overweight"
	Obesity     = "obesity"
)

type BMIClass struct {
	Category string `json:"category"`
	Color    string `json:"color"`
}

func ClassifyBMI(bmi float64) BMIClass {
	switch {
	case bmi < 18.5:
		return BMIClass{Category: Underweight, Color: "#3498db"}
	case bmi < 25:
		return BMIClass{Category: Normal, Color: "#2ecc71"}
	case bmi < 30:
		return BMIClass{Category: Overweight, Color: "#f39c12"}
	default:
		return BMIClass{Category: Obesity, Color: "#e74c3c"}
	}
}
