package extract

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertimes/internal/core"
)

const paperHTML = `<!DOCTYPE html>
<html>
<head><title>Attention Is All You Need</title><script>var x = 1;</script></head>
<body>
<nav>Home | About</nav>
<article>
  <h1>Attention Is All You Need</h1>
  <p>The dominant sequence transduction models are based on recurrent networks.</p>
  <p>We propose the Transformer,   based solely on attention.</p>
</article>
<footer>Copyright</footer>
</body>
</html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/paper.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(paperHTML))
	})
	mux.HandleFunc("/paper.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Plain abstract of a paper.\n\n\n\nSecond paragraph."))
	})
	mux.HandleFunc("/broken.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4\nthis is not really a pdf"))
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	})
	mux.HandleFunc("/empty.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	})
	mux.HandleFunc("/large.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newExtractor(t *testing.T, maxBytes int64) (*Extractor, string) {
	t.Helper()
	staging := t.TempDir()
	return New(Config{StagingDir: staging, MaxBytes: maxBytes, AllowLocal: true, AllowPrivateNetworks: true}), staging
}

func assertStagingEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should be empty")
}

func TestExtractHTML(t *testing.T) {
	srv := newServer(t)
	e, staging := newExtractor(t, 0)

	res, err := e.Extract(context.Background(), srv.URL+"/paper.html")
	require.NoError(t, err)

	assert.Equal(t, KindHTML, res.Kind)
	assert.Equal(t, "Attention Is All You Need", res.Title)
	assert.Contains(t, res.Text, "based on recurrent networks.")
	assert.Contains(t, res.Text, "We propose the Transformer, based solely on attention.")
	assert.NotContains(t, res.Text, "var x")
	assert.NotContains(t, res.Text, "Home | About")
	assert.NotContains(t, res.Text, "Copyright")
	assertStagingEmpty(t, staging)
}

func TestExtractPlainText(t *testing.T) {
	srv := newServer(t)
	e, staging := newExtractor(t, 0)

	res, err := e.Extract(context.Background(), srv.URL+"/paper.txt")
	require.NoError(t, err)

	assert.Equal(t, KindText, res.Kind)
	assert.Equal(t, "Plain abstract of a paper.\n\nSecond paragraph.", res.Text)
	assert.Equal(t, "Plain abstract of a paper.", res.Title)
	assertStagingEmpty(t, staging)
}

func TestExtractLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Local paper body text."), 0o644))

	e, staging := newExtractor(t, 0)

	for _, src := range []string{path, "file://" + path} {
		res, err := e.Extract(context.Background(), src)
		require.NoError(t, err, src)
		assert.Equal(t, "Local paper body text.", res.Text)
	}
	assertStagingEmpty(t, staging)
}

func TestExtractRejectsLocalAndPrivateSources(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("GEMINI_API_KEY=AIzaSECRET"), 0o644))
	srv := newServer(t)

	staging := t.TempDir()
	e := New(Config{StagingDir: staging})

	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "bare path", url: secret, want: ErrLocalSource},
		{name: "file url", url: "file://" + secret, want: ErrLocalSource},
		{name: "loopback host", url: srv.URL + "/paper.txt", want: ErrPrivateAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Extract(context.Background(), tt.url)

			var fetchErr *core.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, res.Text)
			assertStagingEmpty(t, staging)
		})
	}
}

func TestIsPublic(t *testing.T) {
	for _, ip := range []string{"127.0.0.1", "::1", "10.1.2.3", "192.168.0.10", "172.16.5.4", "169.254.169.254", "fe80::1", "0.0.0.0"} {
		assert.False(t, isPublic(net.ParseIP(ip)), ip)
	}
	for _, ip := range []string{"8.8.8.8", "140.82.112.3", "2606:4700::1111"} {
		assert.True(t, isPublic(net.ParseIP(ip)), ip)
	}
}

func TestExtractFetchErrors(t *testing.T) {
	srv := newServer(t)
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name     string
		url      string
		notFound bool
	}{
		{name: "missing remote document", url: srv.URL + "/missing.pdf", notFound: true},
		{name: "server error", url: srv.URL + "/error"},
		{name: "unreachable host", url: closedURL + "/paper.pdf"},
		{name: "missing local file", url: filepath.Join(t.TempDir(), "nope.pdf")},
		{name: "unsupported scheme", url: "ftp://example.com/paper.pdf"},
		{name: "empty url", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, staging := newExtractor(t, 0)

			_, err := e.Extract(context.Background(), tt.url)

			var fetchErr *core.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, core.CodeFetch, core.ErrorCode(err))
			if tt.notFound {
				assert.ErrorIs(t, err, core.ErrNotFound)
			}
			assertStagingEmpty(t, staging)
		})
	}
}

func TestExtractFormatErrors(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name     string
		path     string
		maxBytes int64
	}{
		{name: "corrupt pdf", path: "/broken.pdf"},
		{name: "unsupported image", path: "/image.png"},
		{name: "empty body", path: "/empty.txt"},
		{name: "over size limit", path: "/large.txt", maxBytes: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, staging := newExtractor(t, tt.maxBytes)

			_, err := e.Extract(context.Background(), srv.URL+tt.path)

			var formatErr *core.FormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Equal(t, core.CodeFormat, core.ErrorCode(err))
			assertStagingEmpty(t, staging)
		})
	}
}

func TestExtractCanceledContext(t *testing.T) {
	srv := newServer(t)
	e, staging := newExtractor(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, srv.URL+"/paper.html")

	var fetchErr *core.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assertStagingEmpty(t, staging)
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		contentType string
		head        string
		url         string
		want        Kind
		ok          bool
	}{
		{"application/pdf", "whatever", "http://x/a", KindPDF, true},
		{"application/octet-stream", "%PDF-1.7", "http://x/a", KindPDF, true},
		{"", "<html><body>x</body></html>", "http://x/a", KindHTML, true},
		{"text/plain; charset=utf-8", "abc", "http://x/a", KindText, true},
		{"application/octet-stream", "\x00\x01\x02", "http://x/a.pdf", KindPDF, true},
		{"image/png", "\x89PNG\r\n\x1a\n", "http://x/a.png", "", false},
	}

	for _, tt := range tests {
		got, ok := detectKind(tt.contentType, []byte(tt.head), tt.url)
		assert.Equal(t, tt.ok, ok, tt.contentType)
		assert.Equal(t, tt.want, got, tt.contentType)
	}
}

func TestCleanText(t *testing.T) {
	in := "  Title  \n\n\n\n  body\t\twith   gaps \r\n\nend  "
	assert.Equal(t, "Title\n\nbody with gaps\n\nend", cleanText(in))
}
