package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/bikebot/internal/config"
	"github.com/zhouzirui/bikebot/internal/logging"
	"github.com/zhouzirui/bikebot/internal/model/catalog"
	"github.com/zhouzirui/bikebot/internal/service/reply"
)

type rootOptions struct {
	envFile     string
	catalogPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "bikebot",
		Short:         "BikeBot customer support chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "YAML catalog overriding the built-in responses (env CATALOG_PATH)")

	cmd.AddCommand(newServeCmd(opts), newCatalogCmd(opts))
	return cmd
}

// loadConfig reads .env, the environment and flag overrides, then sets up logging.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	envErr := godotenv.Load(opts.envFile)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.catalogPath != "" {
		cfg.Chat.CatalogPath = opts.catalogPath
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		log.Debug().Err(envErr).Str("file", opts.envFile).Msg("continuing with system environment variables only")
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (catalog.Catalog, error) {
	if cfg.Chat.CatalogPath == "" {
		return catalog.Seed(), nil
	}
	return catalog.LoadFile(cfg.Chat.CatalogPath)
}

// buildReplySource returns the catalog source, with the model source in front
// of it when Ark credentials are present.
func buildReplySource(ctx context.Context, cfg *config.Config, cat catalog.Catalog) (reply.Source, error) {
	canned, err := reply.NewCatalog(cat.Responses, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return nil, err
	}

	if !cfg.AI.Enabled() {
		log.Info().Msg("ark credentials not configured, answering from the canned catalog")
		return canned, nil
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create chat model, answering from the canned catalog")
		return canned, nil
	}
	llm, err := reply.NewLLM(ctx, chatModel, cfg.AI.SystemPrompt)
	if err != nil {
		log.Warn().Err(err).Msg("failed to build model reply source, answering from the canned catalog")
		return canned, nil
	}

	log.Info().Str("model", cfg.AI.Model).Msg("model replies enabled with canned fallback")
	return reply.NewFallback(llm, canned), nil
}
