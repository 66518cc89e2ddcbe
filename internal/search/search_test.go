package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zioncity/backend/internal/models"
)

func TestBuildQuery(t *testing.T) {
	q := BuildQuery("  курсы английского ")
	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"multi_match"`)
	assert.Contains(t, string(b), `"query":"курсы английского"`)
	assert.Contains(t, string(b), `"kind":["service","organization","product","person"]`)

	b, err = json.Marshal(BuildQuery(""))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"match_all"`)
}

func TestElasticSearcherSearch(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = io.WriteString(w, `{"hits":{"hits":[
			{"_id":"svc-1","_source":{"kind":"service","name":"Стрижка","organization_id":"org-1","price":1500}},
			{"_id":"u-2","_source":{"kind":"person","name":"Анна"}}
		]}}`)
	}))
	defer srv.Close()

	s, err := NewElasticSearcher([]string{srv.URL}, "zion_search")
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "стрижка", 5)
	require.NoError(t, err)
	assert.Equal(t, "/zion_search/_search", gotPath)
	assert.NotNil(t, gotBody["query"])

	require.Len(t, hits, 2)
	assert.Equal(t, models.SearchHit{
		ID:             "svc-1",
		Kind:           models.CardService,
		Name:           "Стрижка",
		OrganizationID: "org-1",
		Metadata:       models.Document{"price": 1500.0},
	}, hits[0])
	assert.Equal(t, models.CardPerson, hits[1].Kind)
}

func TestElasticSearcherError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	}))
	defer srv.Close()

	s, err := NewElasticSearcher([]string{srv.URL}, "zion_search")
	require.NoError(t, err)
	_, err = s.Search(context.Background(), "x", 5)
	assert.ErrorIs(t, err, ErrSearchFailed)
}
