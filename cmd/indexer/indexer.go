package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"viola-chatbot/internal/ai"
	"viola-chatbot/internal/config"
	"viola-chatbot/internal/logger"
	"viola-chatbot/internal/telemetry"
	"viola-chatbot/services"

	"github.com/spf13/cobra"
)

var (
	rebuildFlag bool
	corpusFlag  string
	cacheFlag   string
)

// indexCmd builds the embeddings artifact from the PDF corpus.
var indexCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Build the embeddings artifact for the corpus",
	Long: "Extracts, normalizes and chunks every PDF in the corpus folder and embeds the chunks.\n" +
		"An existing artifact is reused unless --rebuild is given.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		logger.InitLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return buildIndex(ctx, cfg)
	},
}

func init() {
	indexCmd.Flags().BoolVar(&rebuildFlag, "rebuild", false, "re-embed the corpus even if the artifact exists (REBUILD_EMBEDDINGS)")
	indexCmd.Flags().StringVar(&corpusFlag, "corpus", "", "folder with the PDF corpus (CORPUS_DIR)")
	indexCmd.Flags().StringVar(&cacheFlag, "cache", "", "path of the embeddings artifact (EMBEDDINGS_CACHE_PATH)")
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("rebuild") {
		cfg.RebuildEmbeddings = rebuildFlag
	}
	if cmd.Flags().Changed("corpus") {
		cfg.CorpusDir = corpusFlag
	}
	if cmd.Flags().Changed("cache") {
		cfg.EmbeddingsCachePath = cacheFlag
	}
}

func buildIndex(ctx context.Context, cfg *config.Config) error {
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, building without lock", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	gemini, err := ai.NewGeminiClient(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer gemini.Close()

	builder, err := services.NewIndexBuilderFromConfig(cfg, gemini, rdb, metrics)
	if err != nil {
		return err
	}

	index, err := builder.Build(ctx, cfg.CorpusDir)
	if err != nil {
		return err
	}

	logger.Info("Index built", "corpus", cfg.CorpusDir, "cache", cfg.EmbeddingsCachePath, "entries", index.Len())
	return nil
}

func main() {
	if err := indexCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("Indexer failed", "error", err)
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
