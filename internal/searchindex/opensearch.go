package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/rs/zerolog/log"
)

// indexMapping keeps identifiers exact and labels full-text searchable.
const indexMapping = `{
  "mappings": {
    "properties": {
      "objectID":  {"type": "keyword"},
      "space_id":  {"type": "keyword"},
      "asset_id":  {"type": "keyword"},
      "url":       {"type": "keyword", "index": false},
      "thumb_url": {"type": "keyword", "index": false},
      "Labels": {
        "properties": {
          "Name":       {"type": "text"},
          "Confidence": {"type": "float"}
        }
      }
    }
  }
}`

// OpenSearchIndex stores records in an OpenSearch index. Documents are keyed
// by objectID. Typo tolerance is applied at query time as a fuzziness
// setting.
type OpenSearchIndex struct {
	client *opensearch.Client
	name   string

	mu        sync.Mutex
	fuzziness string
}

// NewOpenSearchIndex connects to an OpenSearch cluster.
func NewOpenSearchIndex(addresses []string, username, password, indexName string) (*OpenSearchIndex, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return newOpenSearchIndex(client, indexName), nil
}

func newOpenSearchIndex(client *opensearch.Client, indexName string) *OpenSearchIndex {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	s := DefaultTypoSettings()
	return &OpenSearchIndex{client: client, name: indexName, fuzziness: fuzziness(s)}
}

func fuzziness(s TypoSettings) string {
	return fmt.Sprintf("AUTO:%d,%d", s.MinWordSizeFor1Typo, s.MinWordSizeFor2Typos)
}

// SaveRecord upserts r as document objectID.
func (o *OpenSearchIndex) SaveRecord(ctx context.Context, r IndexRecord) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", r.ObjectID, err)
	}
	req := opensearchapi.IndexRequest{
		Index:      o.name,
		DocumentID: r.ObjectID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	if err := o.do(ctx, req, nil); err != nil {
		return fmt.Errorf("opensearch index %s: %w", r.ObjectID, err)
	}
	log.Debug().Str("index", o.name).Str("objectId", r.ObjectID).Int("labels", len(r.Labels)).Msg("OpenSearch document indexed")
	return nil
}

// DeleteRecords removes documents by ID. A missing index is not an error.
func (o *OpenSearchIndex) DeleteRecords(ctx context.Context, objectIDs ...string) error {
	if len(objectIDs) == 0 {
		return nil
	}
	query := map[string]any{"query": map[string]any{"ids": map[string]any{"values": objectIDs}}}
	if err := o.deleteByQuery(ctx, query); err != nil {
		return fmt.Errorf("opensearch delete %d documents: %w", len(objectIDs), err)
	}
	return nil
}

// ConfigureTypoTolerance creates the index if it does not exist and records
// the fuzziness used by Search.
func (o *OpenSearchIndex) ConfigureTypoTolerance(ctx context.Context, s TypoSettings) error {
	if err := o.ensureIndex(ctx); err != nil {
		return err
	}
	o.mu.Lock()
	o.fuzziness = fuzziness(s)
	o.mu.Unlock()
	return nil
}

// Clear deletes every document but keeps the index and its mapping.
func (o *OpenSearchIndex) Clear(ctx context.Context) error {
	query := map[string]any{"query": map[string]any{"match_all": map[string]any{}}}
	if err := o.deleteByQuery(ctx, query); err != nil {
		return fmt.Errorf("opensearch clear %s: %w", o.name, err)
	}
	return nil
}

// Search matches query against label names.
func (o *OpenSearchIndex) Search(ctx context.Context, query string, limit int) ([]IndexRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	o.mu.Lock()
	fuzz := o.fuzziness
	o.mu.Unlock()

	body, err := json.Marshal(map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"Labels.Name"},
				"fuzziness": fuzz,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search: %w", err)
	}

	var resp struct {
		Hits struct {
			Hits []struct {
				Source IndexRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	req := opensearchapi.SearchRequest{Index: []string{o.name}, Body: bytes.NewReader(body)}
	if err := o.do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("opensearch search %q: %w", query, err)
	}

	out := make([]IndexRecord, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (o *OpenSearchIndex) ensureIndex(ctx context.Context) error {
	res, err := opensearchapi.IndicesExistsRequest{Index: []string{o.name}}.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("opensearch index exists %s: %w", o.name, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("opensearch index exists %s: status %d", o.name, res.StatusCode)
	}

	create := opensearchapi.IndicesCreateRequest{Index: o.name, Body: bytes.NewReader([]byte(indexMapping))}
	if err := o.do(ctx, create, nil); err != nil {
		return fmt.Errorf("opensearch create index %s: %w", o.name, err)
	}
	log.Info().Str("index", o.name).Msg("OpenSearch index created")
	return nil
}

func (o *OpenSearchIndex) deleteByQuery(ctx context.Context, query map[string]any) error {
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}
	req := opensearchapi.DeleteByQueryRequest{
		Index: []string{o.name},
		Body:  bytes.NewReader(body),
	}
	err = o.do(ctx, req, nil)
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return nil
	}
	return err
}

// statusError is a non-2xx OpenSearch response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// do executes req and decodes a successful body into out when non-nil.
func (o *OpenSearchIndex) do(ctx context.Context, req opensearchapi.Request, out any) error {
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return &statusError{status: res.StatusCode, body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
