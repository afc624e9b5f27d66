package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/gracechapel/outreach-backend/internal/services"
)

// RegisterValidators installs the custom binding rules on gin's validator
// engine. Call once at startup.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("contactphone", validContactPhone)
}

// validContactPhone accepts any value that still holds at least 7 digits
// after formatting is stripped, the same normalization lookups use.
func validContactPhone(fl validator.FieldLevel) bool {
	normalized := services.NormalizePhone(fl.Field().String())
	digits := 0
	for _, r := range normalized {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}
