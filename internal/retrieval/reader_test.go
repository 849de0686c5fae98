package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eppie/foresight/internal/cache"
	"github.com/eppie/foresight/internal/model"
)

func readerConfig() model.RetrievalConfig {
	return model.RetrievalConfig{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		RatePerSec: 100,
		RateBurst:  100,
	}
}

func TestReader_FetchTextViaJina(t *testing.T) {
	var hits int64
	jina := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if !strings.Contains(r.URL.String(), "example.com") {
			t.Errorf("Expected the target URL forwarded, got %s", r.URL)
		}
		_, _ = w.Write([]byte("Plain text article body."))
	}))
	defer jina.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	reader := NewReader(readerConfig(), store, nil)
	reader.jinaBase = jina.URL + "/"

	text, err := reader.FetchText(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("FetchText failed: %v", err)
	}
	if text != "Plain text article body." {
		t.Errorf("Unexpected text: %q", text)
	}

	// Second fetch must come from the cache.
	if _, err := reader.FetchText(context.Background(), "https://example.com/article"); err != nil {
		t.Fatalf("FetchText failed: %v", err)
	}
	if n := atomic.LoadInt64(&hits); n != 1 {
		t.Errorf("Expected 1 network hit, got %d", n)
	}
}

func TestReader_FallsBackToDirectFetch(t *testing.T) {
	jina := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer jina.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<html><body><script>evil()</script><p>Visible content.</p></body></html>"))
	}))
	defer page.Close()

	reader := NewReader(readerConfig(), nil, nil)
	reader.jinaBase = jina.URL + "/"

	text, err := reader.FetchText(context.Background(), page.URL+"/page")
	if err != nil {
		t.Fatalf("FetchText failed: %v", err)
	}
	if text != "Visible content." {
		t.Errorf("Expected extracted visible text, got %q", text)
	}
}

func TestReader_RespectsRobotsDisallow(t *testing.T) {
	jina := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer jina.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		_, _ = w.Write([]byte("<html><body>secret</body></html>"))
	}))
	defer page.Close()

	reader := NewReader(readerConfig(), nil, nil)
	reader.jinaBase = jina.URL + "/"

	text, err := reader.FetchText(context.Background(), page.URL+"/private/doc")
	if err != nil {
		t.Fatalf("FetchText failed: %v", err)
	}
	if text != "" {
		t.Errorf("Expected a disallowed page to yield empty text, got %q", text)
	}
}

func TestReader_InaccessiblePageYieldsEmptyAndIsCached(t *testing.T) {
	jina := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer jina.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL + "/gone"
	dead.Close()

	store := cache.NewMemoryCache(time.Minute, time.Minute)
	reader := NewReader(readerConfig(), store, nil)
	reader.jinaBase = jina.URL + "/"

	text, err := reader.FetchText(context.Background(), deadURL)
	if err != nil {
		t.Fatalf("FetchText failed: %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty text for a dead URL, got %q", text)
	}
	if _, found := store.Get(cache.Key("doc", deadURL)); !found {
		t.Error("Expected the empty result cached so the URL is not retried")
	}
}

func TestExtractText(t *testing.T) {
	html := `
	<html>
	<head><style>body { color: red }</style></head>
	<body>
		<script>var x = 1;</script>
		<noscript>enable js</noscript>
		<h1>Title</h1>
		<p>First paragraph.</p>
		<iframe src="ad.html"></iframe>
		<p>Second paragraph.</p>
	</body>
	</html>`

	text, err := ExtractText(html)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}

	for _, want := range []string{"Title", "First paragraph.", "Second paragraph."} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in extracted text %q", want, text)
		}
	}
	for _, banned := range []string{"var x", "color: red", "enable js", "ad.html"} {
		if strings.Contains(text, banned) {
			t.Errorf("Expected %q to be stripped, got %q", banned, text)
		}
	}
}
