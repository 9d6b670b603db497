package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/john-revops11/ai-kusina-helper-sub000/internal/recipe"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "Manage the recipe catalog",
}

var recipesImportCmd = &cobra.Command{
	Use:   "import <catalog.yaml>",
	Short: "Import recipes from a YAML catalog into the configured store",
	Long: `Import recipes from a YAML catalog. Recipes are upserted by id, so a
catalog can be imported again after editing.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecipesImport,
}

func init() {
	recipesCmd.AddCommand(recipesImportCmd)
}

func runRecipesImport(_ *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	recipes, err := recipe.LoadCatalog(f)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := recipe.Import(ctx, store.Recipes(), recipes)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d recipes into %s store\n", n, store.Driver())
	return nil
}
