package priorart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateQueriesNeuralNetworkScenario(t *testing.T) {
	queries, err := GenerateQueries("a neural network for image classification using convolutional layers", "Software/Computing", nil)
	require.NoError(t, err)

	require.Len(t, queries, 2)
	assert.Equal(t, StrategyTechnicalTerms, queries[0].Strategy)
	assert.Contains(t, queries[0].Text, "network")
	assert.Equal(t, SearchQuery{Text: "Software/Computing", Strategy: StrategyBroadField}, queries[1])
}

func TestGenerateQueriesStrategyOrder(t *testing.T) {
	desc := "The problem of grid load: a controller to monitor feeders, detect faults and calculate load with a sensor network."
	queries, err := GenerateQueries(desc, "Energy/Grid", []string{"smart grid", "fault detection"})
	require.NoError(t, err)

	got := make([]Strategy, 0, len(queries))
	for _, q := range queries {
		got = append(got, q.Strategy)
	}
	assert.Equal(t, []Strategy{
		StrategyTechnicalTerms,
		StrategyProblemContext,
		StrategyFunction,
		StrategyUserKeywords,
		StrategyBroadField,
	}, got)
	assert.Equal(t, "Energy/Grid network", queries[0].Text)
	assert.True(t, strings.HasPrefix(queries[1].Text, "method system apparatus problem"))
	assert.Equal(t, "Energy calculate controller detect", queries[2].Text)
	assert.Equal(t, "smart grid fault detection", queries[3].Text)
	assert.Equal(t, "Energy/Grid", queries[4].Text)
}

func TestGenerateQueriesProblemContextWindow(t *testing.T) {
	queries, err := GenerateQueries("The problem of battery drain limits wearable sensors", "Electronics", nil)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, SearchQuery{Text: "method system apparatus problem battery", Strategy: StrategyProblemContext}, queries[0])
	assert.Equal(t, StrategyBroadField, queries[1].Strategy)
}

func TestGenerateQueriesOnlyBroadFieldWhenNoTerms(t *testing.T) {
	queries, err := GenerateQueries("a tasty cake", "Food Science", nil)
	require.NoError(t, err)
	assert.Equal(t, []SearchQuery{{Text: "Food Science", Strategy: StrategyBroadField}}, queries)
}

func TestGenerateQueriesDeduplicatesCleanedStrings(t *testing.T) {
	queries, err := GenerateQueries("a tasty cake", "Food Science", []string{"Food,", "Science!"})
	require.NoError(t, err)
	assert.Equal(t, []SearchQuery{{Text: "Food Science", Strategy: StrategyUserKeywords}}, queries)
}

func TestGenerateQueriesUserKeywordsCappedAtFive(t *testing.T) {
	queries, err := GenerateQueries("", "Chemistry", []string{"a1", "b2", "c3", "d4", "e5", "f6"})
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "a1 b2 c3 d4 e5", queries[0].Text)
}

func TestGenerateQueriesNothingToSearch(t *testing.T) {
	_, err := GenerateQueries("a tasty cake", "  !!  ", nil)
	require.ErrorIs(t, err, ErrNoQueries)
}

func TestGenerateQueriesBounds(t *testing.T) {
	longField := strings.Repeat("interdisciplinary ", 12)
	cases := []struct {
		desc     string
		field    string
		keywords []string
	}{
		{"", "Software", nil},
		{"A distributed database system with an optimization engine and recognition module.", longField, nil},
		{strings.Repeat("the need for better monitoring of encryption protocol analysis ", 20), "Security/Crypto", []string{"tls", "pki"}},
		{"Detect, classify and track drones (UAV) via radar-based detection; the challenge is clutter.", "Aerospace", []string{"radar", "uav", "clutter", "tracking", "doppler", "swarm"}},
	}
	for _, tc := range cases {
		queries, err := GenerateQueries(tc.desc, tc.field, tc.keywords)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(queries), 1)
		require.LessOrEqual(t, len(queries), MaxGeneratedQueries)
		seen := map[string]bool{}
		for _, q := range queries {
			assert.NotEmpty(t, q.Text)
			assert.LessOrEqual(t, len([]rune(q.Text)), MaxQueryChars, q.Text)
			assert.False(t, seen[q.Text], "duplicate query %q", q.Text)
			seen[q.Text] = true
		}
	}
}

func TestCleanQuery(t *testing.T) {
	assert.Equal(t, "smart-home / IoT sensor hub", CleanQuery("smart-home / IoT: sensor, (hub)"))
	assert.Equal(t, "", CleanQuery("  ?!  "))

	long := CleanQuery(strings.Repeat("electroluminescent ", 10))
	assert.LessOrEqual(t, len(long), MaxQueryChars)
	assert.True(t, strings.HasPrefix(long, "electroluminescent electroluminescent"))
	assert.False(t, strings.HasSuffix(long, " "))

	words := CleanQuery(strings.Repeat("abc ", 40))
	assert.Len(t, strings.Fields(words), MaxQueryWords)
}
