package enrichment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"golang.org/x/sync/errgroup"

	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
)

const maxDocChars = 20000

// Source is one candidate artifact to pull context from.
type Source struct {
	Kind string // resume | portfolio | github | linkedin
	URL  string
}

// Document is the cleaned text of one fetched source.
type Document struct {
	Source string
	Text   string
}

// Fetcher pulls candidate URLs and reduces them to plain text. Each source
// degrades independently: unreachable or unparseable inputs yield no
// document rather than failing the whole enrichment.
type Fetcher struct {
	log        *logger.Logger
	httpClient *http.Client
}

func NewFetcher(log *logger.Logger, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		log:        log.With("service", "EnrichmentFetcher"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchAll fetches every non-empty source concurrently and returns the
// documents that survived, in source order.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) []Document {
	results := make([]*Document, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i := range sources {
		if strings.TrimSpace(sources[i].URL) == "" {
			continue
		}
		i := i
		g.Go(func() error {
			doc, err := f.fetchOne(gctx, sources[i])
			if err != nil {
				f.log.Warn("enrichment source skipped",
					"source", sources[i].Kind,
					"url", sources[i].URL,
					"error", err.Error(),
				)
				return nil
			}
			results[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Document, 0, len(sources))
	for _, d := range results {
		if d != nil && d.Text != "" {
			out = append(out, *d)
		}
	}
	return out
}

func (f *Fetcher) fetchOne(ctx context.Context, src Source) (*Document, error) {
	rawURL := NormalizeDriveURL(src.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var text string
	if isPDF(resp.Header.Get("Content-Type"), rawURL) {
		text, err = extractPDFText(body)
	} else {
		text, err = extractHTMLText(body)
	}
	if err != nil {
		return nil, err
	}

	text = normalizeWhitespace(text)
	if len(text) > maxDocChars {
		text = text[:maxDocChars]
	}
	if text == "" {
		return nil, fmt.Errorf("no text content")
	}
	return &Document{Source: src.Kind, Text: text}, nil
}

var driveFileRe = regexp.MustCompile(`drive\.google\.com/file/d/([^/]+)`)

// NormalizeDriveURL rewrites a Google Drive viewer link into its direct
// download form so the fetcher gets file bytes instead of the viewer shell.
func NormalizeDriveURL(raw string) string {
	m := driveFileRe.FindStringSubmatch(raw)
	if len(m) != 2 {
		return raw
	}
	return "https://drive.google.com/uc?export=download&id=" + m[1]
}

func isPDF(contentType, rawURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

func extractPDFText(data []byte) (string, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("pdf page count: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("no extractable pdf text")
	}
	return b.String(), nil
}

// extractHTMLText keeps main content: main/article scope first, then all
// paragraphs, then the whole body as a last resort.
func extractHTMLText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, nav, header, footer").Remove()

	if t := strings.TrimSpace(doc.Find("main, article").Text()); t != "" {
		return t, nil
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), nil
	}

	return strings.TrimSpace(doc.Find("body").Text()), nil
}

var wsRe = regexp.MustCompile(`[ \t]+`)
var nlRe = regexp.MustCompile(`\n{3,}`)

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = wsRe.ReplaceAllString(s, " ")
	s = nlRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
