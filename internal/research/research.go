// Package research exposes the research-store collaborator: tagged findings
// a draft's factual claims can be attributed to.
package research

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/errors"
)

// Finding is one research fact a draft can cite.
type Finding struct {
	ID     string `json:"id"`
	Topic  string `json:"topic"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`

	// Relevance and Confidence are scores in [0,1] assigned at ingestion.
	Relevance  float64 `json:"relevance"`
	Confidence float64 `json:"confidence"`
}

// Store resolves the findings referenced by a draft's lineage metadata.
type Store interface {
	// FindingsFor returns the findings tagged on the draft. Missing
	// references are skipped rather than failing the lookup.
	FindingsFor(ctx context.Context, d *draft.ContentDraft) ([]Finding, error)
}

// MemoryStore is a Store backed by an in-process map keyed by finding id.
type MemoryStore struct {
	mu       sync.RWMutex
	findings map[string]Finding
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{findings: make(map[string]Finding)}
}

// Put stores or replaces a finding.
func (m *MemoryStore) Put(f Finding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findings[f.ID] = f
}

// FindingsFor implements Store.
func (m *MemoryStore) FindingsFor(_ context.Context, d *draft.ContentDraft) ([]Finding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Finding, 0, len(d.ResearchRefs))
	for _, ref := range d.ResearchRefs {
		if f, ok := m.findings[ref]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// ArticleSource fetches stored article HTML by reference id.
type ArticleSource interface {
	ArticleHTML(ctx context.Context, ref string) (string, error)
}

// FileSource resolves article references as HTML files under a base
// directory. An empty base reads references as paths verbatim.
type FileSource struct {
	base string
}

// NewFileSource creates a FileSource rooted at base.
func NewFileSource(base string) *FileSource {
	return &FileSource{base: base}
}

var _ ArticleSource = (*FileSource)(nil)

// ArticleHTML implements ArticleSource.
func (f *FileSource) ArticleHTML(_ context.Context, ref string) (string, error) {
	path := ref
	if f.base != "" {
		path = filepath.Join(f.base, ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading article file %s", path)
	}
	return string(data), nil
}

// HTMLStore extracts findings from stored article HTML on demand. Each
// paragraph of the article body becomes one finding, scored by a fixed
// ingestion confidence.
type HTMLStore struct {
	source     ArticleSource
	confidence float64
}

// NewHTMLStore creates an HTMLStore reading from the given article source.
func NewHTMLStore(source ArticleSource, confidence float64) (*HTMLStore, error) {
	if source == nil {
		return nil, errors.New("article source is required")
	}
	if confidence <= 0 || confidence > 1 {
		confidence = 0.8
	}
	return &HTMLStore{source: source, confidence: confidence}, nil
}

// FindingsFor implements Store by parsing each referenced article.
func (h *HTMLStore) FindingsFor(ctx context.Context, d *draft.ContentDraft) ([]Finding, error) {
	var out []Finding
	for _, ref := range d.ResearchRefs {
		html, err := h.source.ArticleHTML(ctx, ref)
		if err != nil {
			return nil, errors.Wrapf(err, "loading article %s", ref)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, errors.Wrapf(err, "parsing article %s", ref)
		}

		title := strings.TrimSpace(doc.Find("title").First().Text())
		if title == "" {
			title = strings.TrimSpace(doc.Find("h1").First().Text())
		}

		doc.Find("article p, main p, body p").Each(func(i int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) < 40 {
				return
			}
			out = append(out, Finding{
				ID:         ref + "#" + strconv.Itoa(i),
				Topic:      title,
				Text:       text,
				Source:     ref,
				Relevance:  1.0,
				Confidence: h.confidence,
			})
		})
	}
	return out, nil
}
