// Package web serves the prediction form and the JSON API.
package web

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/GlucoRisk/internal/features"
	"github.com/Skufu/GlucoRisk/internal/model"
	"github.com/Skufu/GlucoRisk/internal/prediction"
	"github.com/Skufu/GlucoRisk/internal/risk"
	"github.com/Skufu/GlucoRisk/internal/store"
)

const (
	msgModelNotLoaded = "Model not loaded. Please check the model file."
	defaultHistory    = 20
	maxHistory        = 100
)

// HistoryReader lists stored predictions.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]store.Record, error)
}

type Handler struct {
	svc     *prediction.Service
	history HistoryReader
	logger  *zap.Logger
}

// NewHandler registers the custom validation tags. history may be nil when
// the database is disabled.
func NewHandler(svc *prediction.Service, history HistoryReader, logger *zap.Logger) (*Handler, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, history: history, logger: logger}, nil
}

// Register mounts pages, static assets and the /api/v1 group.
func (h *Handler) Register(router *gin.Engine) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(staticRoot()))

	router.GET("/", h.Form)
	router.POST("/predict", h.SubmitForm)
	router.GET("/about", h.staticPage("about.tmpl", "About", "about"))
	router.GET("/help", h.staticPage("help.tmpl", "Help", "help"))

	api := router.Group("/api/v1")
	{
		api.POST("/predict", h.Predict)
		api.GET("/options", h.Options)
		api.GET("/bmi", h.BMI)
		api.GET("/model", h.Model)
		api.GET("/predictions", h.Predictions)
	}
	return nil
}

func (h *Handler) newPredictPage(in features.Inputs) predictPage {
	left, right := medicalHistory(in)
	return predictPage{
		page:         page{Title: "Diabetes Risk Predictor", Active: "predict", ModelError: modelBanner(h.svc.Model())},
		Options:      newOptions(),
		Input:        in,
		BMI:          risk.ClassifyBMI(features.ClampBMI(in.BMI)),
		MedicalLeft:  left,
		MedicalRight: right,
		MinBMI:       features.MinBMI,
		MaxBMI:       features.MaxBMI,
		MaxDays:      features.MaxDays,
	}
}

// Form renders the empty prediction form.
func (h *Handler) Form(c *gin.Context) {
	c.HTML(http.StatusOK, "predict.tmpl", h.newPredictPage(features.DefaultInputs()))
}

// SubmitForm handles the form post and re-renders it with the outcome.
func (h *Handler) SubmitForm(c *gin.Context) {
	var req PredictRequest
	bindErr := c.ShouldBind(&req)
	data := h.newPredictPage(req.formInputs())

	if err := h.svc.Available(); err != nil {
		data.Error = msgModelNotLoaded
		c.HTML(http.StatusServiceUnavailable, "predict.tmpl", data)
		return
	}
	if bindErr != nil {
		if fields := fieldErrors(bindErr); fields != nil {
			data.Error = "Invalid input: " + joinFieldErrors(fields)
		} else {
			data.Error = "Invalid input: " + bindErr.Error()
		}
		c.HTML(http.StatusUnprocessableEntity, "predict.tmpl", data)
		return
	}

	res, err := h.svc.Predict(c.Request.Context(), req.Inputs())
	if err != nil {
		status, msg := h.describeError(err)
		data.Error = msg
		c.HTML(status, "predict.tmpl", data)
		return
	}
	data.Result = res
	c.HTML(http.StatusOK, "predict.tmpl", data)
}

func (h *Handler) staticPage(name, title, active string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, page{
			Title:      title,
			Active:     active,
			ModelError: modelBanner(h.svc.Model()),
		})
	}
}

type featureVector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

type predictResponse struct {
	*prediction.Result
	Features featureVector `json:"features"`
}

// Predict is the JSON counterpart of SubmitForm.
func (h *Handler) Predict(c *gin.Context) {
	if err := h.svc.Available(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errorCode(err), "message": msgModelNotLoaded})
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields := fieldErrors(err); fields != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation_failed",
				"message": joinFieldErrors(fields),
				"fields":  fields,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	res, err := h.svc.Predict(c.Request.Context(), req.Inputs())
	if err != nil {
		status, msg := h.describeError(err)
		c.JSON(status, gin.H{"error": errorCode(err), "message": msg})
		return
	}

	c.JSON(http.StatusOK, predictResponse{
		Result:   res,
		Features: featureVector{Names: features.Names[:], Values: res.Vector.Slice()},
	})
}

func (h *Handler) describeError(err error) (int, string) {
	var verr *features.ValidationError
	switch {
	case errors.Is(err, model.ErrModelUnavailable):
		return http.StatusServiceUnavailable, msgModelNotLoaded
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "Invalid input: " + verr.Error()
	default:
		h.logger.Error("prediction error", zap.Error(err))
		return http.StatusInternalServerError, "Prediction error: " + err.Error()
	}
}

func errorCode(err error) string {
	var verr *features.ValidationError
	switch {
	case errors.Is(err, model.ErrModelUnavailable):
		return "model_unavailable"
	case errors.As(err, &verr):
		return "validation_failed"
	default:
		return "inference_failed"
	}
}

// Options lists every categorical input in ordinal order.
func (h *Handler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"features":  features.Names[:],
		"age":       features.AgeLabels(),
		"income":    features.IncomeLabels(),
		"genHlth":   features.GenHlthLabels(),
		"education": features.EducationLabels(),
		"ranges": gin.H{
			"bmi":      []float64{features.MinBMI, features.MaxBMI},
			"physHlth": []int{features.MinDays, features.MaxDays},
			"mentHlth": []int{features.MinDays, features.MaxDays},
		},
	})
}

func (h *Handler) BMI(c *gin.Context) {
	v, err := strconv.ParseFloat(c.Query("value"), 64)
	if err != nil || math.IsNaN(v) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a number"})
		return
	}
	bmi := features.ClampBMI(v)
	c.JSON(http.StatusOK, gin.H{"bmi": bmi, "class": risk.ClassifyBMI(bmi)})
}

func (h *Handler) Model(c *gin.Context) {
	m := h.svc.Model()
	body := gin.H{
		"loaded":   m.Ready(),
		"info":     m.Info(),
		"features": features.Names[:],
	}
	if err := m.Err(); err != nil {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

// Predictions returns the most recent stored predictions.
func (h *Handler) Predictions(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history_disabled"})
		return
	}

	limit := defaultHistory
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistory)
	}

	records, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list predictions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": records})
}
