package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/model"
	"github.com/Skufu/GlucoRisk/internal/prediction"
	"github.com/Skufu/GlucoRisk/internal/store"
)

type fakePredictor struct {
	p     float64
	err   error
	calls int
}

func (f *fakePredictor) PredictProba(context.Context, features.Vector) (float64, error) {
	f.calls++
	return f.p, f.err
}

type fakeHistory struct {
	records []store.Record
	limit   int
	err     error
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]store.Record, error) {
	f.limit = limit
	return f.records, f.err
}

func newRouter(t *testing.T, h *model.Holder, history HistoryReader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler, err := NewHandler(prediction.NewService(h, nil, nil), history, nil)
	require.NoError(t, err)
	router := gin.New()
	require.NoError(t, handler.Register(router))
	return router
}

func loadedHolder(p *fakePredictor) *model.Holder {
	return model.NewHolder(p, model.Info{Backend: "file", Source: "best_rf.json"})
}

func failedHolder() *model.Holder {
	return model.Load(context.Background(), func(context.Context) (model.Predictor, model.Info, error) {
		return nil, model.Info{Backend: "file", Source: "best_rf.json"}, errors.New("open best_rf.json: no such file or directory")
	})
}

const referenceJSON = `{
	"bmi": 25.0, "age": "18-24", "income": "<$10,000", "physHlth": 5,
	"education": "College Graduate", "mentHlth": 5, "genHlth": "Excellent",
	"highBP": 0, "physActivity": 1, "highChol": 0, "diffWalk": 0,
	"heartDiseaseorAttack": 0, "stroke": 0, "hvyAlcoholConsump": 0, "cholCheck": 1
}`

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestAPIPredict(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{p: 0.62}), nil)

	w := postJSON(router, "/api/v1/predict", referenceJSON)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		ID              string  `json:"id"`
		Probability     float64 `json:"probability"`
		ProbabilityText string  `json:"probabilityText"`
		Assessment      struct {
			Tier  string `json:"tier"`
			Color string `json:"color"`
		} `json:"assessment"`
		Verdict struct {
			AtRisk bool `json:"atRisk"`
		} `json:"verdict"`
		BMI struct {
			Category string `json:"category"`
		} `json:"bmi"`
		Features struct {
			Names  []string  `json:"names"`
			Values []float64 `json:"values"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	_, err := uuid.Parse(body.ID)
	assert.NoError(t, err)
	assert.Equal(t, "MODERATE", body.Assessment.Tier)
	assert.Equal(t, "#ff9800", body.Assessment.Color)
	assert.Equal(t, "62.0%", body.ProbabilityText)
	assert.True(t, body.Verdict.AtRisk)
	assert.Equal(t, "overweight", body.BMI.Category)
	assert.Equal(t, features.Names[:], body.Features.Names)
	assert.Equal(t, []float64{25, 1, 1, 5, 6, 5, 1, 0, 1, 0, 0, 0, 0, 0, 1}, body.Features.Values)
}

func TestAPIPredictValidation(t *testing.T) {
	p := &fakePredictor{p: 0.3}
	router := newRouter(t, loadedHolder(p), nil)

	body := strings.Replace(referenceJSON, `"age": "18-24"`, `"age": "17"`, 1)
	body = strings.Replace(body, `"stroke": 0`, `"stroke": 3`, 1)
	w := postJSON(router, "/api/v1/predict", body)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
	assert.Contains(t, w.Body.String(), "age band")
	assert.Contains(t, w.Body.String(), `"stroke"`)
	assert.Zero(t, p.calls)
}

func TestAPIPredictMissingBMI(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{p: 0.3}), nil)
	body := strings.Replace(referenceJSON, `"bmi": 25.0,`, ``, 1)
	w := postJSON(router, "/api/v1/predict", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"bmi":"is required"`)
}

func TestAPIPredictMalformed(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{p: 0.3}), nil)
	w := postJSON(router, "/api/v1/predict", `{"bmi":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIPredictModelUnavailable(t *testing.T) {
	router := newRouter(t, failedHolder(), nil)
	w := postJSON(router, "/api/v1/predict", referenceJSON)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "model_unavailable")
	assert.Contains(t, w.Body.String(), "Model not loaded. Please check the model file.")
}

func TestAPIPredictModelUnavailableBeforeParsing(t *testing.T) {
	router := newRouter(t, failedHolder(), nil)
	invalid := strings.Replace(referenceJSON, `"age": "18-24"`, `"age": "17"`, 1)

	for name, body := range map[string]string{
		"invalid label": invalid,
		"malformed":     `{"bmi":`,
		"missing bmi":   `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := postJSON(router, "/api/v1/predict", body)
			require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "model_unavailable")
			assert.NotContains(t, w.Body.String(), "validation_failed")
		})
	}
}

func TestAPIPredictInferenceFailure(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{err: errors.New("tree walk failed")}), nil)
	w := postJSON(router, "/api/v1/predict", referenceJSON)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "inference_failed")
	assert.Contains(t, w.Body.String(), "Prediction error: tree walk failed")
}

func TestFormRendersDefaults(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{p: 0.3}), nil)
	w := get(router, "/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Diabetes Risk Prediction")
	assert.Contains(t, body, `value="25.0"`)
	assert.Contains(t, body, "BMI Classification: OVERWEIGHT")
	assert.Contains(t, body, "College Graduate")
	assert.Contains(t, body, "Coronary heart disease or myocardial infarction")
	assert.NotContains(t, body, "Model file not found")
}

func TestFormShowsModelBanner(t *testing.T) {
	router := newRouter(t, failedHolder(), nil)
	w := get(router, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Model file not found. Please ensure &#39;best_rf.json&#39; is in the same directory.")
}

func referenceForm() url.Values {
	return url.Values{
		"bmi":          {"25.0"},
		"age":          {"18-24"},
		"income":       {"<$10,000"},
		"physHlth":     {"5"},
		"education":    {"College Graduate"},
		"mentHlth":     {"5"},
		"genHlth":      {"Excellent"},
		"physActivity": {"1"},
		"cholCheck":    {"1"},
	}
}

func postForm(router *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitFormShowsResult(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{p: 0.91}), nil)
	w := postForm(router, referenceForm())

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "91.0% Probability")
	assert.Contains(t, body, "Risk Level: HIGH RISK")
	assert.Contains(t, body, "AT RISK - Diabetes Predicted")
	assert.Contains(t, body, "Immediate medical consultation recommended")
}

func TestSubmitFormLowRisk(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{p: 0.12}), nil)
	w := postForm(router, referenceForm())

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Risk Level: LOW RISK")
	assert.Contains(t, body, "NO DIABETES - Low Risk")
	assert.Contains(t, body, "Annual health check-ups")
}

func TestSubmitFormModelUnavailable(t *testing.T) {
	router := newRouter(t, failedHolder(), nil)
	w := postForm(router, referenceForm())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Model not loaded. Please check the model file.")
	assert.NotContains(t, w.Body.String(), "Prediction Results")
}

func TestSubmitFormModelUnavailableWithInvalidInput(t *testing.T) {
	router := newRouter(t, failedHolder(), nil)
	form := referenceForm()
	form.Set("income", "a lot")
	form.Set("bmi", "heavy")
	w := postForm(router, form)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Model not loaded. Please check the model file.")
	assert.NotContains(t, w.Body.String(), "Invalid input")
}

func TestSubmitFormInvalidOptionKeepsEnteredValues(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{p: 0.5}), nil)
	form := referenceForm()
	form.Set("bmi", "33.3")
	form.Set("age", "45-49")
	form.Set("physHlth", "12")
	form.Set("stroke", "1")
	form.Set("income", "a lot")
	w := postForm(router, form)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="33.3"`)
	assert.Contains(t, body, "<option selected>45-49</option>")
	assert.Contains(t, body, `value="12"`)
	assert.Contains(t, body, "<option selected>&lt;$10,000</option>")
	assert.NotContains(t, body, `value="25.0"`)
}

func TestSubmitFormInvalidOption(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{p: 0.5}), nil)
	form := referenceForm()
	form.Set("income", "a lot")
	w := postForm(router, form)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "income must be one of the income levels")
}

func TestAboutAndHelpPages(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{}), nil)

	w := get(router, "/about")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Random Forest with Probability Calibration")

	w = get(router, "/help")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Moderate Risk (50-79%)")
}

func TestStaticStylesheet(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{}), nil)
	w := get(router, "/static/styles.css")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".probability-badge")
}

func TestOptions(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{}), nil)
	w := get(router, "/api/v1/options")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Age       []string `json:"age"`
		Income    []string `json:"income"`
		GenHlth   []string `json:"genHlth"`
		Education []string `json:"education"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Age, 13)
	assert.Equal(t, "80+", body.Age[12])
	assert.Len(t, body.Income, 8)
	assert.Equal(t, []string{"Excellent", "Very Good", "Good", "Fair", "Poor"}, body.GenHlth)
	assert.Equal(t, "Never attended school", body.Education[0])
}

func TestBMIEndpoint(t *testing.T) {
	router := newRouter(t, loadedHolder(&fakePredictor{}), nil)

	w := get(router, "/api/v1/bmi?value=18.4")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"underweight"`)

	w = get(router, "/api/v1/bmi?value=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModelEndpoint(t *testing.T) {
	router := newRouter(t, failedHolder(), nil)
	w := get(router, "/api/v1/model")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"loaded":false`)
	assert.Contains(t, w.Body.String(), "no such file or directory")
}

func TestPredictionsHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		router := newRouter(t, loadedHolder(&fakePredictor{}), nil)
		w := get(router, "/api/v1/predictions")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "history_disabled")
	})

	t.Run("lists records", func(t *testing.T) {
		history := &fakeHistory{records: []store.Record{{
			ID:          uuid.New(),
			CreatedAt:   time.Now(),
			Probability: 0.4,
			Tier:        "LOW",
		}}}
		router := newRouter(t, loadedHolder(&fakePredictor{}), history)

		w := get(router, "/api/v1/predictions?limit=500")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, maxHistory, history.limit)
		assert.Contains(t, w.Body.String(), `"tier":"LOW"`)

		w = get(router, "/api/v1/predictions")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, defaultHistory, history.limit)
	})

	t.Run("bad limit", func(t *testing.T) {
		router := newRouter(t, loadedHolder(&fakePredictor{}), &fakeHistory{})
		w := get(router, "/api/v1/predictions?limit=-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store error", func(t *testing.T) {
		router := newRouter(t, loadedHolder(&fakePredictor{}), &fakeHistory{err: errors.New("conn refused")})
		w := get(router, "/api/v1/predictions")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
