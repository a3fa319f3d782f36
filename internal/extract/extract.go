// Package extract retrieves source documents and turns them into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"papertimes/internal/core"
	"papertimes/internal/logger"
)

const (
	// DefaultMaxBytes caps a single download.
	DefaultMaxBytes int64 = 50 << 20
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 30 * time.Second

	userAgent = "papertimes/1.0 (+document extractor)"
)

// Kind is the detected document format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindHTML Kind = "html"
	KindText Kind = "text"
)

// Result is the text extracted from one document.
type Result struct {
	Text        string
	Title       string
	Kind        Kind
	ContentType string
	Pages       int
	Bytes       int64
}

// Config configures an Extractor.
type Config struct {
	Timeout    time.Duration
	MaxBytes   int64
	StagingDir string
	HTTPClient *http.Client
	// AllowLocal permits file:// URLs and bare paths. Only trusted callers set it.
	AllowLocal bool
	// AllowPrivateNetworks permits downloads from loopback, link-local and private addresses.
	// Ignored when HTTPClient is set.
	AllowPrivateNetworks bool
}

// ErrLocalSource is returned for file:// URLs and paths when local sources are not allowed.
var ErrLocalSource = errors.New("local sources are not allowed")

// ErrPrivateAddress is returned when a download resolves to a non-public address.
var ErrPrivateAddress = errors.New("address is not publicly routable")

// Extractor downloads a document to a temporary staging file and extracts its text.
// The staging file is removed on every exit path.
type Extractor struct {
	client     *http.Client
	maxBytes   int64
	stagingDir string
	allowLocal bool
	log        *slog.Logger
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
		if !cfg.AllowPrivateNetworks {
			client.Transport = publicTransport()
		}
	}
	return &Extractor{
		client:     client,
		maxBytes:   cfg.MaxBytes,
		stagingDir: cfg.StagingDir,
		allowLocal: cfg.AllowLocal,
		log:        logger.Get().With("component", "extract"),
	}
}

// publicTransport refuses connections to non-public addresses, checked after resolution.
func publicTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			ip := net.ParseIP(host)
			if ip == nil || !isPublic(ip) {
				return fmt.Errorf("%s: %w", host, ErrPrivateAddress)
			}
			return nil
		},
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = dialer.DialContext
	return t
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast())
}

// Extract fetches sourceURL and returns its plain text. It fails with *core.FetchError
// when the source cannot be retrieved and *core.FormatError when it cannot be parsed.
// sourceURL is http(s); file:// URLs and local paths are accepted only with Config.AllowLocal.
func (e *Extractor) Extract(ctx context.Context, sourceURL string) (Result, error) {
	body, contentType, err := e.open(ctx, sourceURL)
	if err != nil {
		return Result{}, err
	}
	defer body.Close()

	staged, err := os.CreateTemp(e.stagingDir, "papertimes-*")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create staging file: %w", err)
	}
	defer func() {
		if err := staged.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			e.log.Warn("Failed to close staging file", "path", staged.Name(), "error", err)
		}
		if err := os.Remove(staged.Name()); err != nil {
			e.log.Warn("Failed to remove staging file", "path", staged.Name(), "error", err)
		}
	}()

	n, err := io.Copy(staged, io.LimitReader(body, e.maxBytes+1))
	if err != nil {
		return Result{}, &core.FetchError{URL: sourceURL, Err: fmt.Errorf("download interrupted: %w", err)}
	}
	if n > e.maxBytes {
		return Result{}, &core.FormatError{ContentType: contentType, Err: fmt.Errorf("document exceeds %d bytes", e.maxBytes)}
	}
	if n == 0 {
		return Result{}, &core.FormatError{ContentType: contentType, Err: errors.New("document is empty")}
	}

	head := make([]byte, 512)
	m, err := staged.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("failed to read staging file: %w", err)
	}

	kind, ok := detectKind(contentType, head[:m], sourceURL)
	if !ok {
		return Result{}, &core.FormatError{ContentType: contentType, Err: errors.New("unsupported content type")}
	}

	res := Result{Kind: kind, ContentType: contentType, Bytes: n}
	switch kind {
	case KindPDF:
		res.Text, res.Pages, err = extractPDF(staged, n)
	case KindHTML:
		res.Text, res.Title, err = extractHTML(io.NewSectionReader(staged, 0, n))
	case KindText:
		res.Text, err = extractText(io.NewSectionReader(staged, 0, n))
	}
	if err != nil {
		return Result{}, &core.FormatError{ContentType: contentType, Err: err}
	}

	res.Text = cleanText(res.Text)
	if res.Text == "" {
		return Result{}, &core.FormatError{ContentType: contentType, Err: errors.New("no extractable text")}
	}
	if res.Title == "" {
		res.Title = guessTitle(res.Text)
	}

	e.log.Debug("Extracted document", "source_url", sourceURL, "kind", kind, "bytes", n, "chars", len(res.Text))
	return res, nil
}

func (e *Extractor) open(ctx context.Context, sourceURL string) (io.ReadCloser, string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil || sourceURL == "" {
		return nil, "", &core.FetchError{URL: sourceURL, Err: fmt.Errorf("invalid source url")}
	}

	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
		if err != nil {
			return nil, "", &core.FetchError{URL: sourceURL, Err: err}
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, "", &core.FetchError{URL: sourceURL, Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			err := fmt.Errorf("status code %d", resp.StatusCode)
			if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
				err = fmt.Errorf("%w: status code %d", core.ErrNotFound, resp.StatusCode)
			}
			return nil, "", &core.FetchError{URL: sourceURL, Err: err}
		}
		return resp.Body, resp.Header.Get("Content-Type"), nil

	case "file", "":
		if !e.allowLocal {
			return nil, "", &core.FetchError{URL: sourceURL, Err: ErrLocalSource}
		}
		path := sourceURL
		if u.Scheme == "file" {
			path = u.Path
		}
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, "", &core.FetchError{URL: sourceURL, Err: err}
		}
		return f, mime.TypeByExtension(filepath.Ext(path)), nil
	}

	return nil, "", &core.FetchError{URL: sourceURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
}

func detectKind(contentType string, head []byte, sourceURL string) (Kind, bool) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(head))

	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")), mediaType == "application/pdf":
		return KindPDF, true
	case mediaType == "text/html", mediaType == "application/xhtml+xml", sniffed == "text/html":
		return KindHTML, true
	case mediaType == "text/plain", mediaType == "text/markdown", sniffed == "text/plain":
		return KindText, true
	case strings.HasSuffix(strings.ToLower(sourceURL), ".pdf"):
		return KindPDF, true
	}
	return "", false
}

// extractPDF reads every page's plain text. The pdf package panics on some
// malformed inputs; those are reported as errors.
func extractPDF(r io.ReaderAt, size int64) (text string, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}
	return b.String(), pages, nil
}

var contentSelectors = []string{
	"article", "main", "[role='main']", ".ltx_page_content", ".article-body", ".content", "#content",
}

func extractHTML(r io.Reader) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript").Remove()

	root := doc.Find("body")
	for _, selector := range contentSelectors {
		if s := doc.Find(selector).First(); s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			root = s
			break
		}
	}

	var b strings.Builder
	blocks := root.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre, figcaption, td")
	if blocks.Length() == 0 {
		b.WriteString(root.Text())
	}
	blocks.Each(func(_ int, s *goquery.Selection) {
		b.WriteString(strings.TrimSpace(s.Text()))
		b.WriteString("\n\n")
	})
	return b.String(), title, nil
}

func extractText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return string(bytes.ToValidUTF8(data, []byte("\uFFFD"))), nil
}

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t\f\v\r]+`)
)

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func guessTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 10 && len(line) < 200 && !strings.Contains(line, "http") {
			return line
		}
	}
	return ""
}
