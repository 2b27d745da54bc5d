package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/reelscan/reelscan/internal/common"
)

func newTestExtractor(t *testing.T) *Service {
	t.Helper()
	return NewService(&common.ExtractorConfig{
		FetchTimeout: "5s",
		UserAgent:    "reelscan-test",
	}, arbor.NewLogger())
}

func TestExtractPrefersArticleBody(t *testing.T) {
	body := `<html><head><script>track();</script><style>.x{}</style></head><body>
		<nav><a href="/">Home</a><a href="/about">About</a></nav>
		<article>
			<h1>Robot Carts Arrive</h1>
			<p>` + strings.Repeat("The carts rolled through downtown on Tuesday. ", 10) + `</p>
		</article>
		<footer>Copyright 2026</footer>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "reelscan-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	defer server.Close()

	markdown, err := newTestExtractor(t).Extract(context.Background(), server.URL)
	require.NoError(t, err)
	require.Contains(t, markdown, "Robot Carts Arrive")
	require.Contains(t, markdown, "rolled through downtown")
	require.NotContains(t, markdown, "About")
	require.NotContains(t, markdown, "Copyright 2026")
	require.NotContains(t, markdown, "track()")
}

func TestExtractFallsBackToBody(t *testing.T) {
	body := `<html><body><div><p>` +
		strings.Repeat("Plain page without semantic containers. ", 10) +
		`</p></div></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	markdown, err := newTestExtractor(t).Extract(context.Background(), server.URL)
	require.NoError(t, err)
	require.Contains(t, markdown, "Plain page without semantic containers")
}

func TestExtractErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	_, err := newTestExtractor(t).Extract(context.Background(), server.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "410")
}

func TestExtractEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><script>only();</script></body></html>`))
	}))
	defer server.Close()

	_, err := newTestExtractor(t).Extract(context.Background(), server.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no readable content")
}
