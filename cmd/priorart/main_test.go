package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/priorart-engine/internal/priorart"
	"github.com/joelkehle/priorart-engine/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, io.Discard)
	return out.String(), err
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, name := range []string{
		"GOOGLE_PATENTS_API_KEY", "GOOGLE_CUSTOM_SEARCH_ENGINE_ID", "ANTHROPIC_API_KEY", "DATABASE_PATH",
		"PRIORART_LLM_API_KEY", "PRIORART_TRACING_OTLP_ENDPOINT",
	} {
		t.Setenv(name, "")
	}
	dbPath := filepath.Join(t.TempDir(), "priorart.db")
	t.Setenv("PRIORART_STORE_PATH", dbPath)
	return dbPath
}

func TestSearchCommandSavesAndPrintsJSON(t *testing.T) {
	dbPath := isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{
			map[string]any{
				"title":   "Optical density sensor - Google Patents",
				"link":    "https://patents.google.com/patent/US1234567B2/en",
				"snippet": "optical sensor measuring fluid density",
			},
		}})
	}))
	defer srv.Close()
	t.Setenv("PRIORART_SEARCH_API_KEY", "k")
	t.Setenv("PRIORART_SEARCH_SEARCH_ENGINE_ID", "cx")
	t.Setenv("PRIORART_SEARCH_BASE_URL", srv.URL)
	t.Setenv("PRIORART_SEARCH_PAGE_DELAY", "-1ns")

	out, err := execute(t, "search",
		"--description", "An optical sensor measuring fluid density",
		"--field", "Optics",
		"--keywords", "density, optics",
		"--save",
		"--log-level", "error",
	)
	require.NoError(t, err)

	var res priorart.PriorArtSearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Multi-strategy search: Optics", res.Query)
	require.Len(t, res.Patents, 1)
	assert.Equal(t, "US1234567B2", res.Patents[0].PatentID)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	recs, err := st.ListPriorArtSearches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Optics", recs[0].Filters.TechnicalField)
}

func TestAssessCommandWithoutLLMKeyFails(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "assess", "--title", "Sensor", "--description", "An optical sensor", "--skip-prior-art", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis")
}

func TestReportCommandUnknownAssessment(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "report", "missing-id", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFailingCommandReleasesApp(t *testing.T) {
	dbPath := isolateEnv(t)
	var out bytes.Buffer
	err := run(context.Background(), []string{"report", "missing-id", "--log-level", "error"}, &out, io.Discard)
	require.Error(t, err)
	assert.Nil(t, current)

	// report opened the store; run closed it even though the command failed.
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.GetAssessment(context.Background(), "missing-id")
	require.Error(t, err)
}

func TestUnknownLogLevelRejected(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "report", "x", "--log-level", "chatty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitKeywords(" a, ,b c,"))
	assert.Nil(t, splitKeywords(""))
}

func TestDateRange(t *testing.T) {
	assert.Nil(t, dateRange(" ", ""))
	assert.Equal(t, &priorart.DateRange{Start: "2020-01-01"}, dateRange("2020-01-01", ""))
}

func TestReadDescription(t *testing.T) {
	got, err := readDescription(context.Background(), "  inline  ", "")
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	path := filepath.Join(t.TempDir(), "desc.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file\n"), 0o600))
	got, err = readDescription(context.Background(), "ignored", path)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)

	_, err = readDescription(context.Background(), "", filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
