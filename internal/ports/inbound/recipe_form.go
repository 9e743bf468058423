// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
package inbound

import (
	"context"

	"github.com/alchemorsel/recipe-form/internal/application/form"
	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
)

// RecipeForm is the use case the web frontend and the CLI drive. Every
// method is scoped to one form session.
type RecipeForm interface {
	// State returns the current form state of the session
	State(ctx context.Context, sessionID string) (form.State, error)

	// Edit stores the draft without touching the request status
	Edit(ctx context.Context, sessionID string, draft recipe.Draft) (form.State, error)

	// Generate submits the draft and returns the resolved state
	Generate(ctx context.Context, sessionID string, draft recipe.Draft) (form.State, error)
}
