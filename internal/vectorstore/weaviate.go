package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateIndex implements Index on a Weaviate class with externally
// supplied vectors (vectorizer "none").
type WeaviateIndex struct {
	client     *weaviate.Client
	class      string
	vectorSize int
}

// NewWeaviateIndex creates an index client for the given base URL and class.
func NewWeaviateIndex(baseURL, class string, vectorSize int) (*WeaviateIndex, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", baseURL)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsed.Host,
		Scheme: parsed.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	return &WeaviateIndex{
		client:     client,
		class:      class,
		vectorSize: vectorSize,
	}, nil
}

// classSchema returns the collection schema. Property names mirror the
// message row so retrieval never needs a relational lookup.
func (w *WeaviateIndex) classSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       w.class,
		Description: "A chat message embedding with its session metadata.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "session_id",
				DataType:        []string{"text"},
				Description:     "The session this message belongs to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "message_id",
				DataType:        []string{"int"},
				Description:     "The relational id of the message.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "role",
				DataType:        []string{"text"},
				Description:     "Role of the message sender: user or assistant.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Full text content of the message.",
				Tokenization: "word",
			},
			{
				Name:        "timestamp",
				DataType:    []string{"text"},
				Description: "RFC 3339 timestamp of message creation.",
			},
			{
				Name:            "timestamp_unix",
				DataType:        []string{"int"},
				Description:     "Unix seconds, for range filtering.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureReady checks connectivity and creates the class if it is missing.
// A concurrent creation race surfaces as an "already exists" error and is
// treated as success.
func (w *WeaviateIndex) EnsureReady(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate not reachable: %w", err)
	}
	if !ready {
		return fmt.Errorf("weaviate reports not ready")
	}

	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(w.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check class %q: %w", w.class, err)
	}
	if exists {
		slog.Debug("weaviate class already exists", "class", w.class)
		return nil
	}

	slog.Info("creating weaviate class", "class", w.class, "vector_size", w.vectorSize)
	if err := w.client.Schema().ClassCreator().WithClass(w.classSchema()).Do(ctx); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to create class %q: %w", w.class, err)
	}
	return nil
}

// Upsert stores one entry under its point id.
func (w *WeaviateIndex) Upsert(ctx context.Context, entry Entry) error {
	if len(entry.Vector) != w.vectorSize {
		return fmt.Errorf("vector size mismatch: expected %d, got %d", w.vectorSize, len(entry.Vector))
	}

	properties := map[string]interface{}{
		"session_id":     entry.SessionID,
		"message_id":     entry.MessageID,
		"role":           entry.Role,
		"content":        entry.Content,
		"timestamp":      entry.Timestamp.UTC().Format(time.RFC3339),
		"timestamp_unix": entry.Timestamp.Unix(),
	}

	_, err := w.client.Data().Creator().
		WithClassName(w.class).
		WithID(entry.PointID).
		WithProperties(properties).
		WithVector(entry.Vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert point %s: %w", entry.PointID, err)
	}
	return nil
}

// Search runs a nearVector query with the metadata filter and certainty
// threshold. Certainty is normalized to [0,1] regardless of distance metric
// and is returned as the hit score. Equal-score hits keep index order.
func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, filter SearchFilter, limit int, minScore float64) ([]Hit, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector).
		WithCertainty(float32(minScore))

	fields := []graphql.Field{
		{Name: "session_id"},
		{Name: "message_id"},
		{Name: "role"},
		{Name: "content"},
		{Name: "timestamp"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}

	query := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)

	if where := buildWhere(filter); where != nil {
		query = query.WithWhere(where)
	}

	result, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	return parseSearchResponse(result, w.class)
}

// buildWhere combines the session scope and role exclusions into one filter.
// Returns nil when the filter is empty.
func buildWhere(filter SearchFilter) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder

	if filter.SessionID != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"session_id"}).
			WithOperator(filters.Equal).
			WithValueText(filter.SessionID))
	}
	for _, role := range filter.ExcludeRoles {
		operands = append(operands, filters.Where().
			WithPath([]string{"role"}).
			WithOperator(filters.NotEqual).
			WithValueText(role))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().
			WithOperator(filters.And).
			WithOperands(operands)
	}
}

// parseSearchResponse maps a GraphQL Get response onto hits.
func parseSearchResponse(resp *models.GraphQLResponse, class string) ([]Hit, error) {
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search error: %s", resp.Errors[0].Message)
	}

	get, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected search response: missing Get")
	}
	raw, ok := get[class].([]interface{})
	if !ok {
		// No hits returns an empty list, not an error
		return nil, nil
	}

	hits := make([]Hit, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		hit := Hit{
			SessionID: stringField(obj, "session_id"),
			Role:      stringField(obj, "role"),
			Content:   stringField(obj, "content"),
			Timestamp: stringField(obj, "timestamp"),
		}
		if id, ok := obj["message_id"].(float64); ok {
			hit.MessageID = int64(id)
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			hit.PointID = stringField(additional, "id")
			if certainty, ok := additional["certainty"].(float64); ok {
				hit.Score = certainty
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func stringField(obj map[string]interface{}, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

// DeleteBySession removes all points tagged with the session id.
func (w *WeaviateIndex) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	where := filters.Where().
		WithPath([]string{"session_id"}).
		WithOperator(filters.Equal).
		WithValueText(sessionID)

	resp, err := w.client.Batch().ObjectsBatchDeleter().
		WithClassName(w.class).
		WithOutput("minimal").
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session vectors: %w", err)
	}
	if resp == nil || resp.Results == nil {
		return 0, nil
	}
	return resp.Results.Matches, nil
}

// Info reports the collection shape plus the current point count.
func (w *WeaviateIndex) Info(ctx context.Context) (*CollectionInfo, error) {
	info := &CollectionInfo{
		Class:      w.class,
		VectorSize: w.vectorSize,
		Distance:   "cosine",
	}

	result, err := w.client.GraphQL().Aggregate().
		WithClassName(w.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate collection: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate aggregate error: %s", result.Errors[0].Message)
	}

	if agg, ok := result.Data["Aggregate"].(map[string]interface{}); ok {
		if list, ok := agg[w.class].([]interface{}); ok && len(list) > 0 {
			if entry, ok := list[0].(map[string]interface{}); ok {
				if meta, ok := entry["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						info.PointCount = int64(count)
					}
				}
			}
		}
	}
	return info, nil
}

// Health reports whether the server is ready and the class exists.
func (w *WeaviateIndex) Health(ctx context.Context) bool {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil || !ready {
		return false
	}
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(w.class).Do(ctx)
	return err == nil && exists
}
