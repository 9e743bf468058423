package recipe

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Value Objects - Immutable objects that describe a recipe request

// Diet constrains the style of recipe the backend generates
type Diet string

const (
	DietGeneral     Diet = "general"
	DietWeightLoss  Diet = "weight-loss"
	DietHighProtein Diet = "high-protein"
	DietVegetarian  Diet = "vegetarian"
)

var dietLabels = map[Diet]string{
	DietGeneral:     "General",
	DietWeightLoss:  "Weight Loss",
	DietHighProtein: "High Protein",
	DietVegetarian:  "Vegetarian",
}

// Diets returns every diet category in display order
func Diets() []Diet {
	return []Diet{DietGeneral, DietWeightLoss, DietHighProtein, DietVegetarian}
}

// ParseDiet converts a raw value into a Diet
func ParseDiet(s string) (Diet, error) {
	d := Diet(strings.TrimSpace(s))
	if !d.IsValid() {
		return "", ErrUnknownDiet
	}
	return d, nil
}

// IsValid reports whether the diet is one of the known categories
func (d Diet) IsValid() bool {
	_, ok := dietLabels[d]
	return ok
}

// Label returns the human readable name of the diet
func (d Diet) Label() string {
	if label, ok := dietLabels[d]; ok {
		return label
	}
	return string(d)
}

// Draft is the user-editable request that is submitted for generation
type Draft struct {
	Ingredients string `json:"ingredients" validate:"notblank"`
	Diet        Diet   `json:"diet" validate:"diet"`
}

// NewDraft returns an empty draft with the default diet
func NewDraft() Draft {
	return Draft{Diet: DietGeneral}
}

// Validate checks the draft before it is sent to the backend
func (d Draft) Validate() error {
	err := draftValidator().Struct(d)
	if err == nil {
		return nil
	}

	if verrs, ok := err.(validator.ValidationErrors); ok {
		switch verrs[0].Field() {
		case "Ingredients":
			return ErrEmptyIngredients
		case "Diet":
			return ErrUnknownDiet
		}
	}
	return err
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func draftValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate.RegisterValidation("diet", func(fl validator.FieldLevel) bool {
			return Diet(fl.Field().String()).IsValid()
		})
	})
	return validate
}
