package features

// table is an ordinal lookup: labels[i] encodes to i+1.
type table struct {
	labels []string
	codes  map[string]int
}

func newTable(labels ...string) table {
	codes := make(map[string]int, len(labels))
	for i, l := range labels {
		codes[l] = i + 1
	}
	return table{labels: labels, codes: codes}
}

func (t table) code(label string) (int, bool) {
	c, ok := t.codes[label]
	return c, ok
}

func (t table) list() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

var (
	ageTable = newTable(
		"18-24", "25-29", "30-34", "35-39",
		"40-44", "45-49", "50-54", "55-59",
		"60-64", "65-69", "70-74", "75-79", "80+",
	)
	incomeTable = newTable(
		"<$10,000", "$10,000-$14,999", "$15,000-$19,999",
		"$20,000-$24,999", "$25,000-$34,999", "$35,000-$49,999",
		"$50,000-$74,999", "$75,000+",
	)
	genHlthTable = newTable(
		"Excellent", "Very Good", "Good", "Fair", "Poor",
	)
	educationTable = newTable(
		"Never attended school", "Elementary", "Some High School",
		"High School Graduate", "Some College", "College Graduate",
	)
)

func AgeCode(label string) (int, bool)       { return ageTable.code(label) }
func IncomeCode(label string) (int, bool)    { return incomeTable.code(label) }
func GenHlthCode(label string) (int, bool)   { return genHlthTable.code(label) }
func EducationCode(label string) (int, bool) { return educationTable.code(label) }

// AgeLabels returns the age bands in ordinal order.
func AgeLabels() []string       { return ageTable.list() }
func IncomeLabels() []string    { return incomeTable.list() }
func GenHlthLabels() []string   { return genHlthTable.list() }
func EducationLabels() []string { return educationTable.list() }
