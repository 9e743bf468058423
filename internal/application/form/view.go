package form

import "github.com/alchemorsel/recipe-form/internal/domain/recipe"

// Submit button labels
const (
	LabelGenerate   = "Generate Recipe"
	LabelGenerating = "Generating..."
)

// DietOption is one entry of the diet selector
type DietOption struct {
	Value    string
	Label    string
	Selected bool
}

// Card is the render-ready recipe card
type Card struct {
	Name         string
	Calories     string
	ShowCalories bool
	Protein      string
	ShowProtein  bool
	Steps        []string
}

// View is everything a rendering layer needs to draw the form. At most one
// of Loading, Error and Card is set.
type View struct {
	Ingredients    string
	DietOptions    []DietOption
	SubmitLabel    string
	SubmitDisabled bool
	Loading        bool
	Error          string
	Card           *Card
}

// Render derives the view of a state
func Render(s State) View {
	v := View{
		Ingredients:    s.Draft.Ingredients,
		SubmitLabel:    LabelGenerate,
		SubmitDisabled: s.Loading(),
		Loading:        s.Loading(),
	}
	if v.Loading {
		v.SubmitLabel = LabelGenerating
	}

	for _, d := range recipe.Diets() {
		v.DietOptions = append(v.DietOptions, DietOption{
			Value:    string(d),
			Label:    d.Label(),
			Selected: d == s.Draft.Diet,
		})
	}

	switch s.Phase {
	case PhaseFailure:
		v.Error = s.Error
	case PhaseSuccess:
		if s.Recipe != nil {
			v.Card = NewCard(s.Recipe)
		}
	}
	return v
}

// NewCard builds the card for a recipe
func NewCard(r *recipe.Recipe) *Card {
	c := &Card{
		Name:         r.Name,
		Calories:     r.Calories.String(),
		ShowCalories: r.Calories.Present(),
		Protein:      r.Protein.String(),
		ShowProtein:  r.Protein.Present(),
	}
	if r.HasSteps() {
		c.Steps = append([]string(nil), r.Steps...)
	}
	return c
}
