package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentwerk/teamrouter/tool"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background())
	require.NoError(t, err)
	return s
}

func TestHashEmbedding_DeterministicAndNormalized(t *testing.T) {
	a, err := hashEmbedding(context.Background(), "insufficient inventory error")
	require.NoError(t, err)
	b, err := hashEmbedding(context.Background(), "insufficient inventory error")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	empty, err := hashEmbedding(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, empty, embeddingDim)
}

func TestSearchKnowledgeBase(t *testing.T) {
	s := testStore(t)
	r := tool.NewRegistry()
	r.MustRegister(s.Tools()...)

	out, err := r.Call(context.Background(), "search_knowledge_base",
		`{"query":"InsufficientInventoryError INV_001 stock"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Troubleshooting Inventory Failures")
}

func TestSearchByDocumentType(t *testing.T) {
	s := testStore(t)
	r := tool.NewRegistry()
	r.MustRegister(s.Tools()...)

	out, err := r.Call(context.Background(), "search_by_document_type",
		`{"query":"payment retries backoff","doc_type":"runbook"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "[runbook]")
	assert.Contains(t, out, "Payment Retry Runbook")
}

func TestTroubleshootingAndConfigurationTools(t *testing.T) {
	s := testStore(t)
	r := tool.NewRegistry()
	r.MustRegister(s.Tools()...)

	out, err := r.Call(context.Background(), "get_troubleshooting_guide", `{"topic":"inventory stock"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "INV_001")

	out, err = r.Call(context.Background(), "get_configuration_info", `{"component":"payment retries threshold"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "payment.max_retries")
}

func TestTeamToolNamesMatchStore(t *testing.T) {
	s := testStore(t)
	names := map[string]bool{}
	for _, tl := range s.Tools() {
		names[tl.Name()] = true
	}
	for _, want := range Team().Tools {
		assert.True(t, names[want], want)
	}
}
