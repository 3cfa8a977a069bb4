// Package pipeline orchestrates the quality gates in fixed order with a
// bounded auto-fix step, producing the draft's quality report.
package pipeline

import (
	"context"
	"time"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/gate"
	"github.com/copydesk/copydesk/internal/logging"
)

// Fixer rewrites draft copy under a gate's failure guidance. Implemented by
// the generation collaborator.
type Fixer interface {
	Autofix(ctx context.Context, copyText, failureReason string) (string, error)
}

// Notifier receives pipeline progress events.
type Notifier interface {
	Dispatch(e event.Event)
}

// Pipeline runs the configured gates against a draft. One Pipeline instance
// serves many drafts; per-draft state lives entirely in the arguments.
type Pipeline struct {
	gates    []gate.Gate
	fixer    Fixer
	policy   RetryPolicy
	notifier Notifier
	log      *logging.Logger
}

// Config assembles a Pipeline.
type Config struct {
	// Gates run in slice order. Order is fixed per deployment, not
	// per draft.
	Gates []gate.Gate

	// Fixer is called between a gate's first failure and its single
	// re-evaluation. Optional: without one, a first failure is terminal.
	Fixer Fixer

	// Policy bounds attempts per gate. Zero value means the default
	// auto-fix-once policy.
	Policy RetryPolicy

	// Notifier receives GateCompleted and PipelineCompleted events.
	// Optional.
	Notifier Notifier

	Logger *logging.Logger
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if len(cfg.Gates) == 0 {
		return nil, errors.New("pipeline requires at least one gate")
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = DefaultRetryPolicy()
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	return &Pipeline{
		gates:    cfg.Gates,
		fixer:    cfg.Fixer,
		policy:   cfg.Policy,
		notifier: cfg.Notifier,
		log:      cfg.Logger,
	}, nil
}

// Run evaluates every gate in order against the draft, applying the
// auto-fix-once policy, and stops at the first terminal failure. The
// draft's gate fields are updated in place; its lifecycle status is not
// touched, that belongs to the approval machine.
//
// Gate failures are report entries. A returned error means a gate or the
// fixer hit an infrastructure fault, and the report is void.
func (p *Pipeline) Run(ctx context.Context, d *draft.ContentDraft, ec *gate.Context) (draft.QualityReport, error) {
	log := p.log.WithDraft(d.ID).WithClient(d.ClientID)
	report := draft.QualityReport{RanAt: time.Now()}

	for _, g := range p.gates {
		res, err := p.runGate(ctx, g, d, ec, log.WithGate(g.Name()))
		if err != nil {
			return draft.QualityReport{}, err
		}

		report.Results = append(report.Results, res)
		p.emit(event.NewGateCompletedEvent(d.ID, res.Gate, string(res.Outcome), res.Attempts, res.Reason))

		if res.Outcome == draft.OutcomeFail {
			report.FailedGate = g.Name()
			break
		}
	}

	report.Passed = report.FailedGate == ""

	if report.Passed {
		d.GateStatus = draft.GatePassed
	} else {
		d.GateStatus = draft.GateFailed
	}
	d.GateReport = &report
	d.UpdatedAt = time.Now()

	log.Info("pipeline completed",
		"passed", report.Passed,
		"gates_run", len(report.Results),
		"failed_gate", report.FailedGate)
	p.emit(event.NewPipelineCompletedEvent(d.ID, report.Passed, len(report.Results), report.FailedGate))

	return report, nil
}

// runGate evaluates one gate, applying the fix-and-retry step on first
// failure when the policy and fixer allow it.
func (p *Pipeline) runGate(ctx context.Context, g gate.Gate, d *draft.ContentDraft, ec *gate.Context, log *logging.Logger) (draft.GateResult, error) {
	res, err := g.Evaluate(ctx, d, ec)
	if err != nil {
		return draft.GateResult{}, errors.Wrapf(err, "gate %s", g.Name())
	}
	res.Attempts = 1

	if res.Outcome != draft.OutcomeFail {
		return res, nil
	}

	if p.fixer == nil || !p.policy.AllowsFix(1) {
		log.Warn("gate failed with no fix attempt available", "reason", res.Reason)
		return res, nil
	}

	log.Info("gate failed, attempting auto-fix", "reason", res.Reason)
	revised, err := p.fixer.Autofix(ctx, d.Copy, res.Reason)
	if err != nil {
		return draft.GateResult{}, errors.Wrapf(err, "auto-fix after gate %s", g.Name())
	}
	d.Copy = revised
	d.UpdatedAt = time.Now()

	retried, err := g.Evaluate(ctx, d, ec)
	if err != nil {
		return draft.GateResult{}, errors.Wrapf(err, "gate %s (retry)", g.Name())
	}
	retried.Attempts = 2

	if retried.Outcome == draft.OutcomePass {
		retried.Outcome = draft.OutcomeFixed
		log.Info("auto-fix repaired the draft")
	} else {
		log.Warn("gate failed after auto-fix, stopping pipeline", "reason", retried.Reason)
	}
	return retried, nil
}

func (p *Pipeline) emit(e event.Event) {
	if p.notifier != nil {
		p.notifier.Dispatch(e)
	}
}
