package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/copydesk/copydesk/internal/draft"
)

// SensitivityGate flags tone mismatches against current context signals.
// Copy that touches a flagged topic without acknowledging it fails; copy
// that acknowledges the topic, or avoids it entirely, passes.
type SensitivityGate struct{}

// NewSensitivityGate creates a SensitivityGate.
func NewSensitivityGate() *SensitivityGate {
	return &SensitivityGate{}
}

// Name implements Gate.
func (g *SensitivityGate) Name() string { return NameSensitivity }

// Evaluate implements Gate.
func (g *SensitivityGate) Evaluate(_ context.Context, d *draft.ContentDraft, ec *Context) (draft.GateResult, error) {
	copyLower := strings.ToLower(d.Copy)

	for _, topic := range ec.SensitiveTopics {
		term := strings.ToLower(topic.Term)
		if term == "" || !strings.Contains(copyLower, term) {
			continue
		}

		acknowledged := false
		for _, ack := range topic.Acknowledgments {
			if ack != "" && strings.Contains(copyLower, strings.ToLower(ack)) {
				acknowledged = true
				break
			}
		}
		if acknowledged {
			continue
		}

		res := fail(g.Name(), fmt.Sprintf("copy references sensitive topic %q without acknowledgment", topic.Term))
		res.AddEvidence("topic", topic.Term)
		if len(topic.Acknowledgments) > 0 {
			res.AddEvidence("expected_acknowledgment", strings.Join(topic.Acknowledgments, " | "))
		}
		return res, nil
	}

	return pass(g.Name()), nil
}
