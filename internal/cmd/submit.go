package cmd

import (
	"context"
	"fmt"

	"github.com/copydesk/copydesk/internal/config"
	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/gate"
	"github.com/copydesk/copydesk/internal/generator"
	"github.com/copydesk/copydesk/internal/logging"
	"github.com/copydesk/copydesk/internal/pipeline"
	"github.com/copydesk/copydesk/internal/research"
	"github.com/copydesk/copydesk/internal/scoring"
	"github.com/copydesk/copydesk/internal/store"
	"github.com/spf13/cobra"
)

var (
	submitClient      string
	submitPlatform    string
	submitContentType string
	submitResearch    []string
)

var submitCmd = &cobra.Command{
	Use:   "submit <prompt>",
	Short: "Generate a draft, run the quality gates, and queue it for review",
	Long: `Generate draft copy from the prompt, run it through the quality gate
pipeline, and admit it to the review queue on pass. A terminal gate failure
rejects the draft instead.

Research article HTML files passed with --research become the grounding
corpus for the draft's factual claims. The client's published history, when
present in the store, supplies the voice baseline and originality corpus.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitClient, "client", "", "client id (required)")
	submitCmd.Flags().StringVar(&submitPlatform, "platform", "linkedin", "target platform")
	submitCmd.Flags().StringVar(&submitContentType, "content-type", "post", "content type")
	submitCmd.Flags().StringArrayVar(&submitResearch, "research", nil, "research article HTML file (repeatable)")
	_ = submitCmd.MarkFlagRequired("client")

	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	ctx := context.Background()
	be, err := newBackend(ctx, cfg, log)
	if err != nil {
		return err
	}

	gen, err := generator.NewGeminiGenerator(ctx, cfg.Generation.GeminiAPIKey, cfg.Generation.Model, log)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	result, err := gen.Generate(ctx, generator.Request{
		ClientID:    submitClient,
		Platform:    submitPlatform,
		ContentType: submitContentType,
		Prompt:      args[0],
	})
	if err != nil {
		return fmt.Errorf("failed to generate draft: %w", err)
	}

	d := draft.New(submitClient, submitPlatform, submitContentType, result.Copy)
	d.ImageRef = result.ImageRef
	d.ResearchRefs = submitResearch

	scorer := scoring.NewSerialService(scoring.NewHeuristicService())
	gates, err := buildGates(cfg, scorer)
	if err != nil {
		return fmt.Errorf("failed to build gates: %w", err)
	}
	ec, err := buildGateContext(ctx, be.store, cfg, scorer, d)
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(pipeline.Config{
		Gates:    gates,
		Fixer:    gen,
		Notifier: be.dispatcher,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	report, err := pipe.Run(ctx, d, ec)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	admitted, err := be.machine.AdmitFromPipeline(ctx, d, report)
	if err != nil {
		return err
	}

	if report.Passed {
		fmt.Printf("Draft %s admitted to review (%d gates passed)\n", admitted.ID, len(report.Results))
	} else {
		fmt.Printf("Draft %s rejected at gate %s\n", admitted.ID, report.FailedGate)
	}
	fmt.Println(excerpt(admitted.Copy, 120))

	be.dispatcher.Wait()
	return nil
}

// buildGates assembles the six quality gates in pipeline order with the
// configured thresholds.
func buildGates(cfg *config.Config, scorer scoring.Service) ([]gate.Gate, error) {
	voice, err := gate.NewVoiceGate(scorer, cfg.Pipeline.VoiceThreshold)
	if err != nil {
		return nil, err
	}
	plagiarism, err := gate.NewPlagiarismGate(scorer, cfg.Pipeline.SemanticThreshold, cfg.Pipeline.LexicalThreshold)
	if err != nil {
		return nil, err
	}
	aiPattern, err := gate.NewAIPatternGate(cfg.Pipeline.AIPatternThreshold)
	if err != nil {
		return nil, err
	}
	grounding, err := gate.NewGroundingGate(cfg.Pipeline.GroundingThreshold)
	if err != nil {
		return nil, err
	}

	return []gate.Gate{
		gate.NewSensitivityGate(),
		voice,
		plagiarism,
		aiPattern,
		grounding,
		gate.NewBrandSafetyGate(),
	}, nil
}

// buildGateContext assembles the per-draft gate signals: the client's voice
// baseline and originality corpus from its published history, research
// findings from the referenced article files, and the configured brand
// guardrails.
func buildGateContext(ctx context.Context, st store.Store, cfg *config.Config, scorer scoring.Service, d *draft.ContentDraft) (*gate.Context, error) {
	prior, err := priorContent(ctx, st, d.ClientID)
	if err != nil {
		return nil, err
	}

	baseline, err := gate.BuildBaseline(ctx, scorer, prior)
	if err != nil {
		return nil, fmt.Errorf("failed to build voice baseline: %w", err)
	}
	index, err := gate.BuildIndex(ctx, scorer, prior)
	if err != nil {
		return nil, fmt.Errorf("failed to build originality index: %w", err)
	}

	ec := &gate.Context{
		Baseline:     baseline,
		PriorContent: prior,
		Index:        index,
	}

	if len(d.ResearchRefs) > 0 {
		articles, err := research.NewHTMLStore(research.NewFileSource(""), 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create research store: %w", err)
		}
		findings, err := articles.FindingsFor(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("failed to load research findings: %w", err)
		}
		ec.Findings = findings
	}

	if cfg.Pipeline.GuardrailFile != "" {
		rules, err := gate.LoadRules(cfg.Pipeline.GuardrailFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load guardrails: %w", err)
		}
		ec.Guardrails = rules.For(d.ClientID)
	}

	return ec, nil
}

// priorContent collects the client's published and approved drafts as the
// voice and originality corpus.
func priorContent(ctx context.Context, st store.Store, clientID string) ([]gate.PriorPost, error) {
	var prior []gate.PriorPost
	for _, status := range []draft.Status{draft.StatusPublished, draft.StatusApproved} {
		drafts, err := st.ListDraftsByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to list prior content: %w", err)
		}
		for _, p := range drafts {
			if p.ClientID == clientID {
				prior = append(prior, gate.PriorPost{DraftID: p.ID, Text: p.Copy})
			}
		}
	}
	return prior, nil
}
