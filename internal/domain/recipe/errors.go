package recipe

import "errors"

// User-facing messages
const (
	MsgEnterIngredients = "Please enter ingredients"
	MsgSelectDiet       = "Please select a diet"
	MsgGenerationFailed = "Failed to generate recipe. Please try again."
)

var (
	// Draft validation errors
	ErrEmptyIngredients = errors.New("ingredients must not be empty")
	ErrUnknownDiet      = errors.New("unknown diet category")

	// Response shape errors
	ErrNotAnObject   = errors.New("recipe response is not a JSON object")
	ErrInvalidFigure = errors.New("nutrition figure must be a string or a number")
)
