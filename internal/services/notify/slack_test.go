package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestSlackNotifierPostsJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL, arbor.NewLogger())
	require.NoError(t, notifier.Notify(context.Background(), "2 recommended articles"))

	require.Equal(t, "application/json", gotContentType)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Equal(t, "2 recommended articles", payload["text"])
}

func TestSlackNotifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL, arbor.NewLogger())
	require.Error(t, notifier.Notify(context.Background(), "hello"))
}

func TestSlackNotifierRequiresURL(t *testing.T) {
	notifier := NewSlackNotifier("", arbor.NewLogger())
	require.Error(t, notifier.Notify(context.Background(), "hello"))
}
