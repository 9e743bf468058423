// Package form implements the recipe request form as a headless state
// machine. Rendering layers (HTML templates, the CLI) only read State and View.
package form

import (
	stderrors "errors"
	"time"

	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
	"github.com/alchemorsel/recipe-form/pkg/errors"
)

// Phase is the request status of the form
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseFailure Phase = "failure"
)

// State is the complete form state of one session. Recipe is set only in
// PhaseSuccess and Error only in PhaseFailure.
type State struct {
	Draft      recipe.Draft   `json:"draft"`
	Phase      Phase          `json:"phase"`
	Recipe     *recipe.Recipe `json:"recipe,omitempty"`
	Error      string         `json:"error,omitempty"`
	Generation uint64         `json:"generation"`
	StartedAt  time.Time      `json:"started_at"`
}

// NewState returns an idle form with the default draft
func NewState() State {
	return State{Draft: recipe.NewDraft(), Phase: PhaseIdle}
}

// Loading reports whether a generation request is in flight
func (s State) Loading() bool {
	return s.Phase == PhaseLoading
}

// Edit replaces the draft and leaves the status untouched
func Edit(s State, draft recipe.Draft) State {
	s.Draft = draft
	return s
}

// Submit starts a generation attempt for draft. An invalid draft moves the
// form to PhaseFailure and returns the validation error; no request may be
// issued in that case. A valid draft moves the form to PhaseLoading under a
// new generation id.
func Submit(s State, draft recipe.Draft) (State, error) {
	s.Draft = draft
	s.Recipe = nil

	if err := draft.Validate(); err != nil {
		verr := errors.NewValidationError(validationMessage(err)).WithCause(err)
		s.Phase = PhaseFailure
		s.Error = verr.Message
		return s, verr
	}

	s.Phase = PhaseLoading
	s.Error = ""
	s.Generation++
	return s, nil
}

// OnSuccess resolves the request tagged with generation. It reports false
// and leaves the state unchanged when the response is stale.
func OnSuccess(s State, generation uint64, r *recipe.Recipe) (State, bool) {
	if !s.current(generation) {
		return s, false
	}
	s.Phase = PhaseSuccess
	s.Recipe = r
	s.Error = ""
	return s, true
}

// OnFailure resolves the request tagged with generation with the generic
// failure message. It reports false when the response is stale.
func OnFailure(s State, generation uint64, _ error) (State, bool) {
	if !s.current(generation) {
		return s, false
	}
	s.Phase = PhaseFailure
	s.Recipe = nil
	s.Error = recipe.MsgGenerationFailed
	return s, true
}

// Expire fails a loading state whose request started at least after before
// now. A zero after never expires.
func Expire(s State, now time.Time, after time.Duration) State {
	if !s.Loading() || after <= 0 || now.Sub(s.StartedAt) < after {
		return s
	}
	s, _ = OnFailure(s, s.Generation, nil)
	return s
}

func (s State) current(generation uint64) bool {
	return s.Phase == PhaseLoading && s.Generation == generation
}

func validationMessage(err error) string {
	if stderrors.Is(err, recipe.ErrUnknownDiet) {
		return recipe.MsgSelectDiet
	}
	return recipe.MsgEnterIngredients
}
