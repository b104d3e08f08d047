package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/dedup"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/logger"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/semantic"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/settings"
)

// NewDedupCmd runs the two-phase episode-topic consolidation pass
// (keyword grouping, then embedding-similarity grouping) over a digest
// topic's recent mentions.
func NewDedupCmd(cfgFile *string) *cobra.Command {
	var (
		dryRun     bool
		digestTopic string
		daysBack   int
		threshold  float64
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Consolidate near-duplicate episode-topic mentions within a digest topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedup(cmd.Context(), *cfgFile, dryRun, digestTopic, daysBack, threshold, verbose)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report groups that would be merged without writing changes")
	cmd.Flags().StringVar(&digestTopic, "digest-topic", "", "digest topic to consolidate (required)")
	cmd.Flags().IntVar(&daysBack, "days-back", 14, "look back this many days for episode-topic mentions")
	cmd.Flags().Float64Var(&threshold, "similarity-threshold", 0, "embedding cosine-similarity threshold for phase 2 (0 uses the built-in 0.80 default)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level logging for this run")
	cmd.MarkFlagRequired("digest-topic")

	return cmd
}

func runDedup(ctx context.Context, cfgFile string, dryRun bool, digestTopic string, daysBack int, threshold float64, verbose bool) error {
	a, err := bootstrap(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		logger.Init("debug")
	}

	llm, err := a.newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer llm.Close()

	settingsStore := settings.New(a.db.Settings())
	embeddingModel, _ := settingsStore.GetString(ctx, settings.CategoryTopicEvolution, settings.KeyEmbeddingModel, a.cfg.AI.Gemini.EmbeddingModel)

	matcher := semantic.NewMatcher(llm, embeddingModel)
	pass := dedup.NewPass(a.db.EpisodeTopics(), matcher)

	result, err := pass.Run(ctx, digestTopic, daysBack, threshold, dryRun)
	if err != nil {
		return runError(fmt.Errorf("dedup pass failed: %w", err))
	}

	fmt.Printf("digest_topic=%q phase1_groups=%d phase1_merged=%d phase2_groups=%d phase2_merged=%d dry_run=%v\n",
		result.DigestTopic, result.Phase1Groups, result.Phase1Merged, result.Phase2Groups, result.Phase2Merged, result.DryRun)
	for _, e := range result.Errors {
		fmt.Printf("  warning: %s\n", e)
	}

	return nil
}
