package generator

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/copydesk/copydesk/internal/errors"
	"github.com/copydesk/copydesk/internal/logging"
)

const defaultModel = "gemini-2.5-flash"

// GeminiGenerator implements Generator against the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	log    *logging.Logger
}

// NewGeminiGenerator creates a generator backed by the given API key.
// Model defaults to gemini-2.5-flash when empty.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, log *logging.Logger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}
	if log == nil {
		log = logging.NopLogger()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return &GeminiGenerator{client: client, model: model, log: log}, nil
}

var _ Generator = (*GeminiGenerator)(nil)

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s post for the %s platform on behalf of client %s.\n", req.ContentType, req.Platform, req.ClientID)
	fmt.Fprintf(&b, "Brief: %s\n", req.Prompt)
	if len(req.Guidance) > 0 {
		b.WriteString("Earlier versions were rejected. Address every point below:\n")
		for _, gd := range req.Guidance {
			fmt.Fprintf(&b, "- %s\n", gd)
		}
	}
	b.WriteString("Output only the post copy, no preamble or markdown fences.")

	text, err := g.generate(ctx, b.String())
	if err != nil {
		return Result{}, err
	}

	g.log.WithClient(req.ClientID).Debug("generated draft copy", "platform", req.Platform, "chars", len(text))
	return Result{Copy: text}, nil
}

// Autofix implements Generator.
func (g *GeminiGenerator) Autofix(ctx context.Context, copyText, failureReason string) (string, error) {
	prompt := fmt.Sprintf(`Revise the social media post below to fix this problem: %s

Keep the message, audience, and length. Change only what the problem requires.
Output only the revised post copy, no preamble or markdown fences.

POST:
%s`, failureReason, copyText)

	return g.generate(ctx, prompt)
}

func (g *GeminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", errors.Wrap(err, "gemini generate")
	}
	if result == nil || len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	text := strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text), nil
}
