package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/alchemorsel/recipe-form/internal/application/form"
	"github.com/alchemorsel/recipe-form/internal/domain/recipe"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-form/internal/infrastructure/http/webserver"
	"github.com/alchemorsel/recipe-form/pkg/logger"
)

const cliSession = "recipectl"

// Output formats
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// recipeOutput is the serialized form of a generated recipe
type recipeOutput struct {
	Name     string   `json:"name" yaml:"name"`
	Calories string   `json:"calories,omitempty" yaml:"calories,omitempty"`
	Protein  string   `json:"protein,omitempty" yaml:"protein,omitempty"`
	Steps    []string `json:"steps,omitempty" yaml:"steps,omitempty"`
}

func generateCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Request a recipe from the generation backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ingredients",
				Aliases:  []string{"i"},
				Usage:    "Free-form ingredient list (e.g., tomato, onion, rice)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "diet",
				Aliases: []string{"d"},
				Value:   string(recipe.DietGeneral),
				Usage:   fmt.Sprintf("Diet category (supported values: %s)", supportedDiets()),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8000",
				Usage:   "Base URL of the recipe generation backend",
				Sources: cli.EnvVars("RECIPE_API_BASE_URL", "API_URL"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Maximum time to wait for the backend (0 waits until it answers or the command is interrupted)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"o"},
				Value:   formatText,
				Usage:   "Output format (text, json, yaml)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format := cmd.String("format")
			if format != formatText && format != formatJSON && format != formatYAML {
				return fmt.Errorf("unknown output format: %q", format)
			}

			diet, err := recipe.ParseDiet(cmd.String("diet"))
			if err != nil {
				return fmt.Errorf("diet: %q, supported values: %s", cmd.String("diet"), supportedDiets())
			}

			log, err := logger.New(logger.Config{
				Level:       cmd.Root().String("log-level"),
				Format:      "console",
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			cfg := &config.Config{API: config.APIConfig{
				BaseURL: strings.TrimRight(cmd.String("api-url"), "/"),
				Timeout: cmd.Duration("timeout"),
			}}
			store := webserver.NewMemoryStateStore(0, log)
			defer store.Close()

			svc := form.NewService(webserver.NewAPIClient(cfg, log), store, nil, log)

			draft := recipe.Draft{Ingredients: cmd.String("ingredients"), Diet: diet}
			st, err := svc.Generate(ctx, cliSession, draft)
			if err != nil {
				return err
			}

			view := form.Render(st)
			if view.Error != "" {
				log.Debug("Generation failed", zap.String("phase", string(st.Phase)))
				return cli.Exit(view.Error, 1)
			}
			if view.Card == nil {
				return cli.Exit(recipe.MsgGenerationFailed, 1)
			}

			return writeCard(out, format, view.Card)
		},
	}
}

func writeCard(out io.Writer, format string, card *form.Card) error {
	rec := recipeOutput{Name: card.Name, Steps: card.Steps}
	if card.ShowCalories {
		rec.Calories = card.Calories
	}
	if card.ShowProtein {
		rec.Protein = card.Protein
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintln(out, rec.Name)
	if card.ShowCalories {
		fmt.Fprintf(out, "Calories: %s\n", rec.Calories)
	}
	if card.ShowProtein {
		fmt.Fprintf(out, "Protein: %s\n", rec.Protein)
	}
	for i, step := range rec.Steps {
		fmt.Fprintf(out, "%d. %s\n", i+1, step)
	}
	return nil
}

func dietsCmd(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "diets",
		Usage: "List the supported diet categories",
		Action: func(context.Context, *cli.Command) error {
			for _, d := range recipe.Diets() {
				fmt.Fprintf(out, "%-14s %s\n", d, d.Label())
			}
			return nil
		},
	}
}

func supportedDiets() string {
	names := make([]string, 0, len(recipe.Diets()))
	for _, d := range recipe.Diets() {
		names = append(names, string(d))
	}
	return strings.Join(names, ", ")
}
