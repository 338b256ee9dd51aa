// Package knowledge provides the knowledge retrieval team: semantic search
// over an embedded operations handbook backed by a chromem-go vector
// collection. Embeddings come from a deterministic local hashing embedder so
// the store works offline and in tests without an embedding API.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/agentwerk/teamrouter/team"
	"github.com/agentwerk/teamrouter/tool"
)

// TeamID identifies the knowledge retrieval team in agent paths.
const TeamID = "knowledge_team"

const collectionName = "handbook"

type handbookDoc struct {
	ID      string
	Type    string // runbook, architecture, troubleshooting, configuration, faq
	Title   string
	Content string
}

var handbook = []handbookDoc{
	{
		ID:    "doc-pipeline",
		Type:  "architecture",
		Title: "Order Pipeline Overview",
		Content: "Orders move through five stages: validate_order, check_inventory, " +
			"reserve_inventory, charge_payment and ship_order. Each stage writes a " +
			"structured log line; a failure at any stage triggers rollback of prior reservations.",
	},
	{
		ID:    "doc-inventory-errors",
		Type:  "troubleshooting",
		Title: "Troubleshooting Inventory Failures",
		Content: "InsufficientInventoryError (code INV_001) means the requested quantity " +
			"exceeds available stock for a SKU. Check current stock with the inventory table, " +
			"then either restock or split the order. Repeated INV_001 errors on the same SKU " +
			"usually indicate a stale reorder threshold.",
	},
	{
		ID:    "doc-retry-policy",
		Type:  "runbook",
		Title: "Payment Retry Runbook",
		Content: "Payment captures are retried up to 3 times with exponential backoff " +
			"starting at 500ms. After the final attempt the order is marked failed and the " +
			"inventory reservation is released. Do not retry manually within the backoff window.",
	},
	{
		ID:    "doc-config",
		Type:  "configuration",
		Title: "Pipeline Configuration Reference",
		Content: "Key settings: inventory.reorder_threshold (default 10), " +
			"payment.max_retries (default 3), shipping.default_carrier (default UPS), " +
			"pipeline.stage_timeout (default 30s). All settings reload on SIGHUP.",
	},
	{
		ID:    "doc-faq",
		Type:  "faq",
		Title: "Operations FAQ",
		Content: "Q: Why does an order show failed but payment was charged? " +
			"A: The charge is voided during rollback; allow up to 24h for the void to settle. " +
			"Q: Can a failed order be resubmitted? A: Yes, resubmission creates a new order id.",
	},
}

// Store is the team's vector-backed handbook. Construct once at startup and
// share; chromem collections are safe for concurrent reads.
type Store struct {
	collection *chromem.Collection
}

// NewStore builds the in-memory collection and indexes the handbook.
func NewStore(ctx context.Context) (*Store, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, hashEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	for _, doc := range handbook {
		err := collection.AddDocument(ctx, chromem.Document{
			ID:      doc.ID,
			Content: doc.Title + "\n" + doc.Content,
			Metadata: map[string]string{
				"type":  doc.Type,
				"title": doc.Title,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("index document %s: %w", doc.ID, err)
		}
	}

	return &Store{collection: collection}, nil
}

// Team returns the knowledge retrieval team definition.
func Team() team.Team {
	return team.Team{
		ID:    TeamID,
		Label: "Knowledge Retrieval",
		Role: "You are a documentation specialist. You search the operations handbook " +
			"and answer strictly from retrieved passages, citing the document titles you used.",
		Tools: []string{
			"search_knowledge_base", "search_by_document_type",
			"get_troubleshooting_guide", "get_configuration_info",
		},
		Affinity: team.KeywordAffinity("what", "why", "how", "explain", "documentation", "handbook", "policy"),
	}
}

// Tools returns the team's tool implementations bound to the store.
func (s *Store) Tools() []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionTool("search_knowledge_base",
			"Semantic search across the whole operations handbook.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Natural language search query"},
				},
				"required": []string{"query"},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				query, _ := args["query"].(string)
				return s.search(ctx, query, nil)
			}),
		tool.NewFunctionTool("search_by_document_type",
			"Semantic search restricted to one document type: runbook, architecture, troubleshooting, configuration or faq.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":    map[string]any{"type": "string", "description": "Natural language search query"},
					"doc_type": map[string]any{"type": "string", "description": "Document type filter"},
				},
				"required": []string{"query", "doc_type"},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				query, _ := args["query"].(string)
				docType, _ := args["doc_type"].(string)
				return s.search(ctx, query, map[string]string{"type": strings.ToLower(strings.TrimSpace(docType))})
			}),
		tool.NewFunctionTool("get_troubleshooting_guide",
			"Retrieve the troubleshooting guidance most relevant to a failure topic.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"topic": map[string]any{"type": "string", "description": "Failure topic, e.g. inventory"},
				},
				"required": []string{"topic"},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				topic, _ := args["topic"].(string)
				return s.search(ctx, topic, map[string]string{"type": "troubleshooting"})
			}),
		tool.NewFunctionTool("get_configuration_info",
			"Retrieve configuration reference material for a pipeline component.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"component": map[string]any{"type": "string", "description": "Component name, e.g. payment"},
				},
				"required": []string{"component"},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				component, _ := args["component"].(string)
				return s.search(ctx, component, map[string]string{"type": "configuration"})
			}),
	}
}

func (s *Store) search(ctx context.Context, query string, where map[string]string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	topK := 3
	if where != nil {
		// Filtered queries must not request more results than documents
		// matching the filter; each type currently has a single document.
		topK = 1
	}
	if count := s.collection.Count(); count < topK {
		topK = count
	}
	if topK == 0 {
		return "no documents indexed", nil
	}

	results, err := s.collection.Query(ctx, query, topK, where, nil)
	if err != nil {
		return "", fmt.Errorf("query handbook: %w", err)
	}
	if len(results) == 0 {
		return "no matching documents found", nil
	}

	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "%d. [%s] %s (similarity %.2f)\n%s\n",
			i+1, res.Metadata["type"], res.Metadata["title"], res.Similarity, res.Content)
	}
	return b.String(), nil
}
