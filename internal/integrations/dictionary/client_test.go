package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const happyResponse = `[{
	"word": "happy",
	"meanings": [
		{
			"partOfSpeech": "adjective",
			"definitions": [
				{"definition": "Having a feeling arising from a consciousness of well-being or of enjoyment.", "synonyms": ["glad"]},
				{"definition": "Experiencing the effect of favourable fortune.", "synonyms": []}
			],
			"synonyms": ["cheerful", "content"]
		}
	]
}]`

func TestEntriesURL(t *testing.T) {
	cases := []struct {
		base, lang, word string
		want             string
	}{
		{"https://api.dictionaryapi.dev/api/v2", "en", "happy", "https://api.dictionaryapi.dev/api/v2/entries/en/happy"},
		{"http://localhost:8080/", "en", "ice cream", "http://localhost:8080/entries/en/ice%20cream"},
		{"", "", "go", "https://api.dictionaryapi.dev/api/v2/entries/en/go"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, entriesURL(tc.base, tc.lang, tc.word))
	}
}

func TestSenses_HappyPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(happyResponse))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	senses, err := c.Senses(context.Background(), "happy")
	require.NoError(t, err)
	require.Equal(t, "/entries/en/happy", gotPath)
	require.Len(t, senses, 2)
	require.Equal(t, "Having a feeling arising from a consciousness of well-being or of enjoyment.", senses[0].Definition)
	require.Equal(t, []string{"happy", "glad", "cheerful", "content"}, senses[0].Lemmas)
	require.Equal(t, []string{"happy"}, senses[1].Lemmas)
}

func TestSenses_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"No Definitions Found"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	senses, err := c.Senses(context.Background(), "qwzx")
	require.NoError(t, err)
	require.Empty(t, senses)
}

func TestSenses_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Senses(context.Background(), "happy")
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.HTTPStatusCode())
}

func TestSenses_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.Senses(context.Background(), "happy")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSenses_EmptyWord(t *testing.T) {
	_, err := NewClient().Senses(context.Background(), "  ")
	require.Error(t, err)
}
