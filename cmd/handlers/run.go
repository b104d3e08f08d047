package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/feeds"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/logger"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/pipeline"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/relevance"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/runlog"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/settings"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/storyarc"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/transcript"
)

// NewRunCmd drives one smart-backfill pass: discovery followed by the
// bounded worker-pool loop, until the target relevant-episode count is
// reached or the pending queue is exhausted.
func NewRunCmd(cfgFile *string) *cobra.Command {
	var (
		dryRun     bool
		limit      int
		verbose    bool
		noParallel bool
		feedID     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover, transcribe, score, and track episodes until the relevant-episode target is met",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd.Context(), *cfgFile, dryRun, limit, verbose, noParallel, feedID)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "discover and report without claiming or mutating episodes")
	cmd.Flags().IntVar(&limit, "limit", 0, "override the target relevant-episode count (0 keeps the configured default)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level logging for this run")
	cmd.Flags().BoolVar(&noParallel, "no-parallel", false, "process episodes one at a time instead of in worker batches")
	cmd.Flags().StringVar(&feedID, "feed-id", "", "restrict discovery and processing to a single feed")

	return cmd
}

func runBackfill(ctx context.Context, cfgFile string, dryRun bool, limit int, verbose bool, noParallel bool, feedID string) error {
	a, err := bootstrap(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		logger.Init("debug")
	}

	settingsStore := settings.New(a.db.Settings())
	pipelineCfg, err := loadPipelineConfig(ctx, settingsStore, a)
	if err != nil {
		return configError(err)
	}
	if limit > 0 {
		pipelineCfg.TargetRelevant = limit
	}
	pipelineCfg.NoParallel = noParallel
	pipelineCfg.DryRun = dryRun
	pipelineCfg.FeedID = feedID

	llm, err := a.newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer llm.Close()

	scoringModel, _ := settingsStore.GetString(ctx, settings.CategoryAIContentScoring, settings.KeyContentScoringModel, a.cfg.AI.Gemini.ScoringModel)
	extractionModel, _ := settingsStore.GetString(ctx, settings.CategoryTopicTracking, settings.KeyExtractionModel, a.cfg.AI.Gemini.ScoringModel)
	promptChars, _ := settingsStore.GetInt(ctx, settings.CategoryAIContentScoring, settings.KeyContentScoringPromptChars, 0)
	maxArcsPerEpisode, _ := settingsStore.GetInt(ctx, settings.CategoryTopicTracking, settings.KeyMaxTopicsPerEpisode, 10)

	scorer := relevance.NewScorer(llm, scoringModel, promptChars)
	extractor := storyarc.NewExtractor(llm, extractionModel, maxArcsPerEpisode)
	arcStore := storyarc.NewStore(a.db)
	reader := feeds.NewReader()
	acquirer := transcript.New(a.cfg.AI.ElevenLabs.APIKey, a.cfg.AI.ElevenLabs.Model)

	orch := pipeline.New(a.db, reader, acquirer, scorer, extractor, arcStore, pipelineCfg)

	runID := uuid.NewString()
	log := runlog.New(a.db.PipelineRuns())
	if err := log.Start(ctx, runID, "run", core.TriggerManual); err != nil {
		logger.Warn("failed to record run start", "run_id", runID, "error", err.Error())
	}

	discovered, err := orch.Discover(ctx)
	if err != nil {
		finishRun(ctx, log, runID, core.ConclusionFailure, err.Error())
		return runError(fmt.Errorf("discovery failed: %w", err))
	}
	logger.Info("discovery complete", "discovered", discovered, "dry_run", dryRun)

	if dryRun {
		finishRun(ctx, log, runID, core.ConclusionSuccess, fmt.Sprintf("dry run: discovered %d episodes, skipped backfill", discovered))
		fmt.Printf("dry run: discovered %d new episodes; skipping backfill loop\n", discovered)
		return nil
	}

	result, err := runWithGracePeriod(ctx, orch, pipelineCfg.CancelGrace)
	if err != nil {
		finishRun(ctx, log, runID, core.ConclusionFailure, err.Error())
		return runError(fmt.Errorf("backfill run failed: %w", err))
	}

	fmt.Printf("relevant=%d not_relevant=%d failed=%d skipped=%d rounds=%d cancelled=%v\n",
		result.Relevant, result.NotRelevant, result.Failed, result.Skipped, result.Rounds, result.Cancelled)

	if result.Cancelled {
		finishRun(ctx, log, runID, core.ConclusionCancelled, "run cancelled before reaching the relevant-episode target")
		return nil
	}
	if !result.Success() {
		finishRun(ctx, log, runID, core.ConclusionFailure, fmt.Sprintf("%d episodes failed: %v", result.Failed, result.Errors))
		return runError(fmt.Errorf("run completed with %d failed episodes", result.Failed))
	}

	finishRun(ctx, log, runID, core.ConclusionSuccess, "")
	return nil
}

// runResult pairs an orchestrator run's outcome with its error for
// channel delivery.
type runResult struct {
	result pipeline.RunResult
	err    error
}

// runWithGracePeriod drives the orchestrator under a context that is
// cancelled on SIGINT/SIGTERM, then waits up to grace for the
// in-flight round to finish cleanly before giving up and returning a
// cancelled result regardless.
func runWithGracePeriod(ctx context.Context, orch *pipeline.Orchestrator, grace time.Duration) (pipeline.RunResult, error) {
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan runResult, 1)
	go func() {
		r, err := orch.Run(runCtx)
		done <- runResult{result: r, err: err}
	}()

	select {
	case res := <-done:
		return res.result, res.err
	case <-runCtx.Done():
		logger.Info("shutdown signal received, waiting for in-flight episodes", "grace", grace)
		select {
		case res := <-done:
			return res.result, res.err
		case <-time.After(grace):
			logger.Warn("grace period elapsed, exiting without waiting further", "grace", grace)
			return pipeline.RunResult{Cancelled: true}, nil
		}
	}
}

func finishRun(ctx context.Context, log *runlog.Log, runID string, conclusion core.PipelineRunConclusion, notes string) {
	status := core.RunStatusCompleted
	if conclusion == core.ConclusionFailure {
		status = core.RunStatusFailed
	}
	if err := log.Finish(ctx, runID, status, conclusion, notes); err != nil {
		logger.Warn("failed to record run conclusion", "run_id", runID, "error", err.Error())
	}
}

// loadPipelineConfig assembles the orchestrator's Config from the
// process-level defaults (internal/config) and the operator-tunable
// Settings rows.
func loadPipelineConfig(ctx context.Context, s *settings.Store, a *app) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.MaxWorkers = a.cfg.Pipeline.MaxWorkers
	cfg.CancelGrace = time.Duration(a.cfg.Pipeline.CancelGraceSeconds) * time.Second

	maxEpisodes, err := s.GetInt(ctx, settings.CategoryPipeline, settings.KeyMaxEpisodesPerRun, -1)
	if err != nil {
		return cfg, err
	}
	if maxEpisodes < 0 {
		return cfg, fmt.Errorf("required setting %s.%s is not configured", settings.CategoryPipeline, settings.KeyMaxEpisodesPerRun)
	}
	cfg.TargetRelevant = maxEpisodes

	if maxWorkers, err := s.GetInt(ctx, settings.CategoryPipeline, settings.KeyMaxWorkers, cfg.MaxWorkers); err == nil {
		cfg.MaxWorkers = maxWorkers
	}
	if lookback, err := s.GetInt(ctx, settings.CategoryPipeline, settings.KeyDiscoveryLookbackDays, cfg.DiscoveryLookbackDays); err == nil {
		cfg.DiscoveryLookbackDays = lookback
	}
	if stuckMinutes, err := s.GetInt(ctx, settings.CategoryPipeline, settings.KeyStuckProcessingTimeoutMinutes, int(cfg.StuckTimeout.Minutes())); err == nil {
		cfg.StuckTimeout = time.Duration(stuckMinutes) * time.Minute
	}
	if dailyCap, err := s.GetInt(ctx, settings.CategoryYoutube, settings.KeyMaxTranscriptsPerDay, cfg.DailyTranscriptCap); err == nil {
		cfg.DailyTranscriptCap = dailyCap
	}
	if threshold, err := s.GetFloat(ctx, settings.CategoryContentFiltering, settings.KeyScoreThreshold, cfg.ScoreThreshold); err == nil {
		cfg.ScoreThreshold = threshold
	}
	if retentionDays, err := s.GetInt(ctx, settings.CategoryStoryArcs, settings.KeyRetentionDays, cfg.ArcRetentionDays); err == nil {
		cfg.ArcRetentionDays = retentionDays
	}
	if maxEvents, err := s.GetInt(ctx, settings.CategoryStoryArcs, settings.KeyMaxEventsPerArc, cfg.MaxEventsPerArc); err == nil {
		cfg.MaxEventsPerArc = maxEvents
	}

	return cfg, nil
}
