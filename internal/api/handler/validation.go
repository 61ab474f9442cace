package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// RegisterValidators installs the custom binding validators on gin's
// validator engine. Call once at startup.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("skill_level", func(fl validator.FieldLevel) bool {
			return domain.SkillLevel(fl.Field().String()).Valid()
		})
	}
}
