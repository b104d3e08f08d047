package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/delivery"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/logger"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/newsletter"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/settings"
)

// NewNewsletterCmd groups the two newsletter lifecycle subcommands:
// generate (select content, persist an issue) and send (render +
// deliver an already-generated issue).
func NewNewsletterCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsletter",
		Short: "Generate and send newsletter issues",
	}

	cmd.AddCommand(newNewsletterGenerateCmd(cfgFile))
	cmd.AddCommand(newNewsletterSendCmd(cfgFile))
	return cmd
}

func newNewsletterGenerateCmd(cfgFile *string) *cobra.Command {
	var (
		days    int
		dryRun  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Select recent relevant episodes and assemble a newsletter issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewsletterGenerate(cmd.Context(), *cfgFile, days, dryRun, verbose)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "look back this many days for digest candidates")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "select and print the issue without persisting it")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level logging for this run")

	return cmd
}

func runNewsletterGenerate(ctx context.Context, cfgFile string, days int, dryRun bool, verbose bool) error {
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
	model, _ := settingsStore.GetString(ctx, settings.CategoryAIDigestGeneration, settings.KeyDigestGenerationModel, a.cfg.AI.Gemini.ScoringModel)

	selector := newsletter.NewSelector(llm, model, a.db)

	if dryRun {
		issue, examples, err := selector.Preview(ctx, days)
		if err != nil {
			return runError(fmt.Errorf("newsletter generation failed: %w", err))
		}
		if issue == nil {
			fmt.Println("no suitable episodes found; no issue would be generated")
			return nil
		}
		fmt.Printf("dry run: would generate issue %q with %d examples\n", issue.SubjectLine, len(examples))
		for _, ex := range examples {
			fmt.Printf("  %d. %s\n", ex.Position, ex.Title)
		}
		return nil
	}

	issue, examples, err := selector.Generate(ctx, days)
	if err != nil {
		return runError(fmt.Errorf("newsletter generation failed: %w", err))
	}
	if issue == nil {
		fmt.Println("no suitable episodes found; no issue generated")
		return nil
	}

	keepCount, _ := settingsStore.GetInt(ctx, settings.CategoryPipeline, settings.KeyNewsletterRetentionCount, 20)
	if deleted, err := selector.EnforceRetention(ctx, keepCount); err != nil {
		logger.Warn("failed to enforce newsletter retention", "error", err.Error())
	} else if deleted > 0 {
		logger.Info("pruned old newsletter issues", "deleted", deleted)
	}

	fmt.Printf("generated issue %s: %q with %d examples\n", issue.ID, issue.SubjectLine, len(examples))
	return nil
}

func newNewsletterSendCmd(cfgFile *string) *cobra.Command {
	var (
		issueID string
		dryRun  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Render and deliver a previously generated newsletter issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewsletterSend(cmd.Context(), *cfgFile, issueID, dryRun, verbose)
		},
	}

	cmd.Flags().StringVar(&issueID, "issue-id", "", "issue ID to send (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "render the issue without sending it")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level logging for this run")
	cmd.MarkFlagRequired("issue-id")

	return cmd
}

func runNewsletterSend(ctx context.Context, cfgFile string, issueID string, dryRun bool, verbose bool) error {
	a, err := bootstrap(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if verbose {
		logger.Init("debug")
	}

	issue, examples, err := a.db.Newsletters().GetIssueWithExamples(ctx, issueID)
	if err != nil {
		return runError(fmt.Errorf("failed to load issue %s: %w", issueID, err))
	}

	html, err := delivery.RenderHTML(issue, examples)
	if err != nil {
		return runError(fmt.Errorf("failed to render issue %s: %w", issueID, err))
	}

	if dryRun {
		fmt.Printf("dry run: rendered issue %s (%d bytes), not sending\n", issueID, len(html))
		return nil
	}

	if err := delivery.Send(a.cfg.Email, issue.SubjectLine, html); err != nil {
		return runError(fmt.Errorf("failed to send issue %s: %w", issueID, err))
	}

	if err := a.db.Newsletters().MarkSent(ctx, issueID, time.Now().UTC()); err != nil {
		return runError(fmt.Errorf("issue %s sent but failed to record sent_at: %w", issueID, err))
	}

	fmt.Printf("sent issue %s\n", issueID)
	return nil
}
