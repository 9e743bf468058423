// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
package outbound

import (
	"context"

	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
)

// RecipeGenerator produces a recipe for a draft by calling the remote
// recipe-generation backend. Implementations return a TRANSPORT_ERROR or
// PARSE_ERROR AppError on failure.
type RecipeGenerator interface {
	GenerateRecipe(ctx context.Context, draft recipe.Draft) (*recipe.Recipe, error)
}
