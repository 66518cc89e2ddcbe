// Package search answers explicit search requests from the shared
// Elasticsearch index of services, organizations, products and people.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/zioncity/backend/internal/models"
)

var ErrSearchFailed = errors.New("search query failed")

// Kinds the index may hold; anything else is filtered out by the query.
var searchableKinds = []string{
	models.CardService,
	models.CardOrganization,
	models.CardProduct,
	models.CardPerson,
}

type ElasticSearcher struct {
	Client *elasticsearch.Client
	Index  string
}

func NewElasticSearcher(addresses []string, index string) (*ElasticSearcher, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticSearcher{Client: es, Index: index}, nil
}

func (s *ElasticSearcher) Ping(ctx context.Context) error {
	res, err := s.Client.Ping(s.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// BuildQuery returns the search body for a free-text query.
func BuildQuery(query string) map[string]any {
	must := []any{}
	if q := strings.TrimSpace(query); q != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^3", "description^2", "tags", "organization_name"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": []any{map[string]any{"terms": map[string]any{"kind": searchableKinds}}},
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticSearcher) Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	body, err := json.Marshal(BuildQuery(query))
	if err != nil {
		return nil, err
	}

	res, err := s.Client.Search(
		s.Client.Search.WithContext(ctx),
		s.Client.Search.WithIndex(s.Index),
		s.Client.Search.WithBody(bytes.NewReader(body)),
		s.Client.Search.WithSize(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	hits := make([]models.SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, hitFromSource(h.ID, h.Source))
	}
	return hits, nil
}

func hitFromSource(id string, src map[string]any) models.SearchHit {
	hit := models.SearchHit{ID: id, Metadata: models.Document{}}
	for k, v := range src {
		switch k {
		case "kind":
			hit.Kind, _ = v.(string)
		case "name":
			hit.Name, _ = v.(string)
		case "organization_id":
			hit.OrganizationID, _ = v.(string)
		default:
			hit.Metadata[k] = v
		}
	}
	if sid, ok := src["id"].(string); ok && sid != "" {
		hit.ID = sid
	}
	return hit
}
