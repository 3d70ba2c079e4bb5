package web

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Skufu/GlucoRisk/internal/features"
)

var labelTags = map[string]func(string) (int, bool){
	"age_band":     features.AgeCode,
	"income_band":  features.IncomeCode,
	"education":    features.EducationCode,
	"health_level": features.GenHlthCode,
}

var tagMessages = map[string]string{
	"required":     "is required",
	"oneof":        "must be 0 or 1",
	"age_band":     "must be one of the age bands",
	"income_band":  "must be one of the income levels",
	"education":    "must be one of the education levels",
	"health_level": "must be one of the general health levels",
}

// registerValidators installs the lookup-table tags on gin's validator and
// reports fields by their json name.
func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	for tag, lookup := range labelTags {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			_, ok := lookup(fl.Field().String())
			return ok
		})
		if err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// fieldErrors flattens binding errors into field -> message.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		out[fe.Field()] = msg
	}
	return out
}

func joinFieldErrors(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, name := range requestFieldOrder {
		if msg, ok := fields[name]; ok {
			parts = append(parts, name+" "+msg)
		}
	}
	return strings.Join(parts, "; ")
}
