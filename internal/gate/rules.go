package gate

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/copydesk/copydesk/internal/errors"
)

// Guardrails are one client's brand-safety rules.
type Guardrails struct {
	// Competitors may never be named in the client's copy.
	Competitors []string `yaml:"competitors"`

	// EvidenceMarkers are phrases that mark a superlative as backed
	// ("ranked #1 by...", "rated best in the 2026 survey"). A superlative
	// with no marker in the same copy is unverifiable.
	EvidenceMarkers []string `yaml:"evidence_markers"`
}

// guardrailFile is the on-disk shape: rules keyed by client id, with an
// optional default entry applied to clients without their own.
type guardrailFile struct {
	Default *Guardrails            `yaml:"default"`
	Clients map[string]*Guardrails `yaml:"clients"`
}

// RuleSet holds per-client guardrails loaded at startup. Immutable after
// load.
type RuleSet struct {
	defaults *Guardrails
	clients  map[string]*Guardrails
}

// LoadRules reads a YAML guardrail file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading guardrail rules %s", path)
	}
	return ParseRules(data)
}

// ParseRules parses YAML guardrail content.
func ParseRules(data []byte) (*RuleSet, error) {
	var file guardrailFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parsing guardrail rules")
	}
	if file.Clients == nil {
		file.Clients = make(map[string]*Guardrails)
	}
	return &RuleSet{defaults: file.Default, clients: file.Clients}, nil
}

// For returns the guardrails for a client, falling back to the default
// entry. Returns nil when neither exists.
func (r *RuleSet) For(clientID string) *Guardrails {
	if g, ok := r.clients[clientID]; ok {
		return g
	}
	return r.defaults
}

// superlativePattern matches unverifiable absolute claims.
var superlativePattern = regexp.MustCompile(`(?i)\b(best|#1|number one|leading|greatest|unmatched|unrivaled|guaranteed|world[- ]class|top[- ]rated)\b`)

// FindSuperlative returns the first superlative in the copy that has no
// evidence marker backing it, or "" when the copy is clean.
func (g *Guardrails) FindSuperlative(copyText string) string {
	match := superlativePattern.FindString(copyText)
	if match == "" {
		return ""
	}

	lower := strings.ToLower(copyText)
	for _, marker := range g.EvidenceMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return ""
		}
	}
	return match
}

// FindCompetitor returns the first configured competitor named in the
// copy, or "" when none appears.
func (g *Guardrails) FindCompetitor(copyText string) string {
	lower := strings.ToLower(copyText)
	for _, c := range g.Competitors {
		if c != "" && strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}
