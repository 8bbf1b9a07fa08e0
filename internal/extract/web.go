package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hyperjump/lumina/internal/models"
	"github.com/hyperjump/lumina/pkg/utils"
)

// noiseClasses are removed from web pages along with their subtrees: reference lists,
// navigation boxes, infoboxes, site notices, inline citations and edit links.
var noiseClasses = []string{"reflist", "navbox", "infobox", "sitenotice", "reference", "mw-editsection"}

// noiseIDs are element ids removed from web pages.
var noiseIDs = []string{"catlinks"}

// citationMarkers drop any line that contains them.
var citationMarkers = []string{"Retrieved on", "ISBN", "doi:", "arXiv:"}

// maxPageBytes caps how much of a response body is read.
const maxPageBytes = 10 << 20

// WebLoader fetches and cleans web pages.
type WebLoader struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// WebOption configures a WebLoader.
type WebOption func(*WebLoader)

// WithHTTPClient sets the HTTP client used for fetching.
func WithHTTPClient(c *http.Client) WebOption {
	return func(w *WebLoader) { w.client = c }
}

// WithWebLogger sets the logger for fetch failures.
func WithWebLogger(l *zap.Logger) WebOption {
	return func(w *WebLoader) { w.logger = l }
}

// NewWebLoader creates a loader whose requests time out after timeout.
func NewWebLoader(timeout time.Duration, opts ...WebOption) *WebLoader {
	w := &WebLoader{
		client:    &http.Client{Timeout: timeout},
		userAgent: "lumina/1.0 (+https://github.com/hyperjump/lumina)",
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger)
	return w
}

// LoadURLs fetches each URL and returns one cleaned document per page. A URL that fails
// is logged and skipped; the returned error lists the failures when every URL failed.
func (w *WebLoader) LoadURLs(ctx context.Context, urls []string) ([]models.Document, error) {
	var docs []models.Document
	var failures []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		text, err := w.fetch(ctx, u)
		if err != nil {
			w.logger.Warn("failed to load URL", zap.String("url", u), zap.Error(err))
			failures = append(failures, u)
			continue
		}
		if strings.TrimSpace(text) == "" {
			w.logger.Debug("URL produced no text", zap.String("url", u))
			continue
		}
		docs = append(docs, models.Document{
			Text:     text,
			Metadata: map[string]interface{}{models.MetaSource: u, models.MetaURL: u},
		})
	}
	if len(docs) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("failed to load %d URL(s): %s", len(failures), strings.Join(failures, ", "))
	}
	return docs, nil
}

func (w *WebLoader) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)
	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return CleanHTML(io.LimitReader(resp.Body, maxPageBytes))
}

// CleanHTML parses an HTML page, removes noise elements (scripts, styles, reference
// lists, navigation boxes, citations) and returns the remaining text. Text within a
// block is joined with spaces; blocks become lines, and lines carrying citation
// markers are dropped.
func CleanHTML(r io.Reader) (string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	var lines []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isNoise(n) {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				cur = append(cur, t)
			}
			return
		}
		block := n.Type == html.ElementNode && isBlock(n.DataAtom)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(root)
	flush()

	kept := lines[:0]
	for _, line := range lines {
		if hasCitationMarker(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), nil
}

func isNoise(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Head:
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "class":
			for _, cls := range strings.Fields(a.Val) {
				for _, noise := range noiseClasses {
					if cls == noise {
						return true
					}
				}
			}
		case "id":
			for _, id := range noiseIDs {
				if a.Val == id {
					return true
				}
			}
		}
	}
	return false
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Table,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Section, atom.Article, atom.Header, atom.Footer, atom.Blockquote,
		atom.Pre, atom.Dd, atom.Dt, atom.Figcaption, atom.Title, atom.Body:
		return true
	}
	return false
}

func hasCitationMarker(line string) bool {
	for _, m := range citationMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}
