package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister(
		Team{ID: "log_team", Label: "Log Investigation", Affinity: KeywordAffinity("compare", "order")},
		Team{ID: "knowledge_team", Label: "Knowledge Retrieval", Affinity: KeywordAffinity("what", "why", "how", "explain")},
		Team{ID: "db_team", Label: "Database Queries", Affinity: KeywordAffinity("show", "list", "count", "total")},
	)
	return r
}

func TestRegistry_DefaultIsFirstRegistered(t *testing.T) {
	r := testRegistry(t)
	assert.Equal(t, "log_team", r.Default().ID)

	require.NoError(t, r.SetDefault("knowledge_team"))
	assert.Equal(t, "knowledge_team", r.Default().ID)

	assert.Error(t, r.SetDefault("nope"))
}

func TestRegistry_DuplicateID(t *testing.T) {
	r := testRegistry(t)
	assert.Error(t, r.Register(Team{ID: "log_team"}))
	assert.Error(t, r.Register(Team{}))
}

func TestRegistry_MatchOrderAndCase(t *testing.T) {
	r := testRegistry(t)

	ids := r.Match("Compare orders and explain WHY")
	require.Equal(t, []string{"log_team", "knowledge_team"}, ids)

	assert.Empty(t, r.Match("hello there"))
}

func TestPatternAndAnyOfAffinity(t *testing.T) {
	pred := AnyOf(
		KeywordAffinity("compare"),
		PatternAffinity(`\b(good|bad)\d{3}\b`),
	)
	tm := Team{ID: "t", Affinity: pred}

	assert.True(t, tm.Matches("what happened to BAD001?"))
	assert.True(t, tm.Matches("compare these"))
	assert.False(t, tm.Matches("badger 123"))
}

func TestRegistry_Describe(t *testing.T) {
	r := testRegistry(t)
	desc := r.Describe()
	assert.Contains(t, desc, "- log_team: Log Investigation")
	assert.Contains(t, desc, "- db_team: Database Queries")
}
