package extract

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/kart-io/logger"

	"github.com/kart-io/scholar-x/internal/model"
	"github.com/kart-io/scholar-x/internal/pkg/textutil"
)

// arXiv identifiers look like 2301.12345, with 4 or 5 digits after the
// dot, optionally followed by a version suffix.
var arxivIDPattern = regexp.MustCompile(`(\d{4}\.\d{4,5})(?:v\d+)?`)

const (
	arxivAPIURL = "https://export.arxiv.org/api/query?id_list=%s"
	arxivAbsURL = "https://arxiv.org/abs/%s"

	// maxBodyBytes caps fetched pages; papers render well under this.
	maxBodyBytes = 10 << 20
)

// ArxivExtractor fetches paper metadata from the arXiv Atom API and the
// paper text from its HTML rendering. Non-arXiv URLs fall back to plain
// readability extraction with minimal provenance.
type ArxivExtractor struct {
	client *http.Client
}

// NewArxivExtractor creates an extractor with the given HTTP timeout.
func NewArxivExtractor(timeout time.Duration) *ArxivExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ArxivExtractor{
		client: &http.Client{Timeout: timeout},
	}
}

// ArxivID extracts the arXiv identifier from a source string (a bare id,
// an abs/pdf URL, or text containing one). Empty when none is present.
func ArxivID(source string) string {
	m := arxivIDPattern.FindStringSubmatch(source)
	if m == nil {
		return ""
	}
	return m[1]
}

// Extract resolves source to a Paper. An arXiv id anywhere in the source
// selects the arXiv path; otherwise source must be a fetchable URL.
func (e *ArxivExtractor) Extract(ctx context.Context, source string) (*Paper, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty source")
	}

	if arxivID := ArxivID(source); arxivID != "" {
		return e.extractArxiv(ctx, arxivID)
	}

	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("source %q is neither an arXiv id nor a URL", source)
	}
	return e.extractURL(ctx, u)
}

// atomFeed is the subset of the arXiv Atom response we read.
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

func (e *ArxivExtractor) extractArxiv(ctx context.Context, arxivID string) (*Paper, error) {
	body, err := e.fetch(ctx, fmt.Sprintf(arxivAPIURL, url.QueryEscape(arxivID)))
	if err != nil {
		return nil, fmt.Errorf("arxiv api: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv api response: %w", err)
	}
	if len(feed.Entries) == 0 || strings.TrimSpace(feed.Entries[0].Title) == "" {
		return nil, fmt.Errorf("arxiv id %s not found", arxivID)
	}
	entry := feed.Entries[0]

	doc := &model.Document{
		ID:         arxivID,
		Title:      collapseWhitespace(entry.Title),
		ArxivID:    arxivID,
		SourceURL:  fmt.Sprintf(arxivAbsURL, arxivID),
		IngestedAt: time.Now(),
	}
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			doc.Authors = append(doc.Authors, name)
		}
	}
	if len(entry.Published) >= 4 {
		fmt.Sscanf(entry.Published[:4], "%d", &doc.Year)
	}

	// Prefer the full HTML rendering; fall back to the abstract when the
	// page cannot be extracted.
	text, err := e.readableText(ctx, doc.SourceURL)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			logger.Warnw("falling back to arXiv abstract",
				"arxiv_id", arxivID, "error", err.Error())
		}
		text = collapseWhitespace(entry.Summary)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("arxiv id %s yielded no text", arxivID)
	}

	return &Paper{Document: doc, Text: text}, nil
}

func (e *ArxivExtractor) extractURL(ctx context.Context, u *url.URL) (*Paper, error) {
	body, err := e.fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), u)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable text at %s", u)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Unknown Title"
	}

	doc := &model.Document{
		// Hash of the URL: stable across re-ingests of the same page.
		ID:         textutil.HashString(u.String()),
		Title:      title,
		SourceURL:  u.String(),
		IngestedAt: time.Now(),
	}
	if byline := strings.TrimSpace(article.Byline); byline != "" {
		doc.Authors = []string{byline}
	}

	return &Paper{Document: doc, Text: text}, nil
}

// readableText fetches rawURL and returns its main text content.
func (e *ArxivExtractor) readableText(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(strings.NewReader(string(body)), u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

func (e *ArxivExtractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "scholar-x/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// collapseWhitespace flattens the newline-wrapped fields the Atom API
// returns into single-line strings.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
