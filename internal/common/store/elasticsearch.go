package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"query-orchestrator/internal/models"
)

// ElasticsearchStore searches an index of {id, question, answer, tenant} documents.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchStore(client *elasticsearch.Client, index string) *ElasticsearchStore {
	return &ElasticsearchStore{client: client, index: index}
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source models.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchStore) Search(ctx context.Context, text, tenant string, limit int) ([]models.Document, error) {
	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  text,
							"fields": []string{"question^2", "answer"},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"tenant.keyword": tenant}},
				},
			},
		},
		// id tie-break keeps equal-score results in a stable order
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"id.keyword": map[string]interface{}{"order": "asc", "unmapped_type": "keyword"}},
		},
	}

	return s.do(ctx, query, ErrSearchFailed)
}

func (s *ElasticsearchStore) FetchByIDs(ctx context.Context, ids []string, tenant string) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}

	query := map[string]interface{}{
		"size": len(ids),
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"ids": map[string]interface{}{"values": ids}},
					map[string]interface{}{"term": map[string]interface{}{"tenant.keyword": tenant}},
				},
			},
		},
	}

	docs, err := s.do(ctx, query, ErrFetchFailed)
	if err != nil {
		return nil, err
	}
	return orderByIDs(docs, ids), nil
}

func (s *ElasticsearchStore) do(ctx context.Context, query map[string]interface{}, sentinel error) ([]models.Document, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", sentinel, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: elasticsearch: %v", sentinel, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: elasticsearch: %s", sentinel, res.String())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", sentinel, err)
	}

	docs := make([]models.Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// orderByIDs returns docs in the order their ids were requested.
func orderByIDs(docs []models.Document, ids []string) []models.Document {
	byID := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]models.Document, 0, len(docs))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
			delete(byID, id)
		}
	}
	return out
}
