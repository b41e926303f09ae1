package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pierre/internal/config"
	"pierre/internal/eventdate"
	"pierre/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

// ElasticsearchClient indexes events for relevance-ranked text search.
// Postgres stays the source of truth; the index can be rebuilt from it.
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source eventDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// eventDocument is what gets indexed. DateKey is the normalized date when
// the raw one could be read at indexing time.
type eventDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Venue       string    `json:"venue"`
	Date        string    `json:"date"`
	DateKey     string    `json:"date_key,omitempty"`
	Image       string    `json:"image"`
	Status      *string   `json:"status,omitempty"`
	Price       *string   `json:"price,omitempty"`
	Description string    `json:"description,omitempty"`
	IndexedAt   time.Time `json:"indexed_at"`
}

func (d eventDocument) event() models.Event {
	id, _ := uuid.Parse(d.ID)
	e := models.Event{
		ID:     id,
		Title:  d.Title,
		Venue:  d.Venue,
		Date:   d.Date,
		Image:  d.Image,
		Status: d.Status,
		Price:  d.Price,
	}
	if d.Description != "" {
		desc := d.Description
		e.Description = &desc
	}
	return e
}

func newDocument(e models.Event, now time.Time) eventDocument {
	doc := eventDocument{
		ID:          e.ID.String(),
		Title:       e.Title,
		Venue:       e.Venue,
		Date:        e.Date,
		Image:       e.Image,
		Status:      e.Status,
		Price:       e.Price,
		Description: e.DescriptionText(),
		IndexedAt:   now,
	}
	if d, err := eventdate.Parse(e.Date, now); err == nil {
		doc.DateKey = d.Key()
	}
	return doc
}

// NewElasticsearchClient connects and makes sure the index exists.
func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		return nil, err
	}
	if err := client.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

// perform runs req and decodes a successful JSON body into out when out is
// not nil. Any non-2xx answer becomes an error naming op.
func (c *ElasticsearchClient) perform(ctx context.Context, op string, req esapi.Request, out any) error {
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%s: %s", op, res.String())
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func jsonBody(v any) (*bytes.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func newClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
		Transport:     &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{client: es, config: cfg}, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	exists, err := esapi.IndicesExistsRequest{Index: []string{c.config.Index}}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		slog.Debug("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	// Italian analysis for titles and descriptions
	mapping := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"italian_analyzer": map[string]any{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "asciifolding", "italian_stop", "italian_stemmer"},
					},
				},
				"filter": map[string]any{
					"italian_stop": map[string]any{
						"type":      "stop",
						"stopwords": "_italian_",
					},
					"italian_stemmer": map[string]any{
						"type":     "stemmer",
						"language": "light_italian",
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id": map[string]any{"type": "keyword"},
				"title": map[string]any{
					"type":     "text",
					"analyzer": "italian_analyzer",
					"fields": map[string]any{
						"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
					},
				},
				"venue": map[string]any{
					"type":     "text",
					"analyzer": "italian_analyzer",
					"fields": map[string]any{
						"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
					},
				},
				"description": map[string]any{"type": "text", "analyzer": "italian_analyzer"},
				"date":        map[string]any{"type": "keyword"},
				"date_key":    map[string]any{"type": "date", "format": "yyyy-MM-dd"},
				"image":       map[string]any{"type": "keyword", "index": false},
				"status":      map[string]any{"type": "keyword"},
				"price":       map[string]any{"type": "keyword", "index": false},
				"indexed_at":  map[string]any{"type": "date"},
			},
		},
	}

	body, err := jsonBody(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}
	if err := c.perform(ctx, "create index", esapi.IndicesCreateRequest{Index: c.config.Index, Body: body}, nil); err != nil {
		return err
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// Search runs a fuzzy multi-field query, optionally restricted to events on
// or after from (YYYY-MM-DD).
func (c *ElasticsearchClient) Search(ctx context.Context, query, from string, page, pageSize int) ([]models.Event, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * pageSize
	}

	body, err := jsonBody(map[string]any{
		"query": buildSearchQuery(query, from),
		"sort":  buildSortQuery(query),
		"from":  offset,
		"size":  pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	var found searchResponse
	if err := c.perform(ctx, "search", esapi.SearchRequest{Index: []string{c.config.Index}, Body: body}, &found); err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(found.Hits.Hits))
	for _, hit := range found.Hits.Hits {
		events = append(events, hit.Source.event())
	}
	return events, nil
}

func buildSearchQuery(query, from string) map[string]any {
	must := []map[string]any{}

	if q := strings.TrimSpace(query); q != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"title^3", "venue^2", "description"},
				"fuzziness": "AUTO",
			},
		})
	}

	if from != "" {
		must = append(must, map[string]any{
			"range": map[string]any{
				"date_key": map[string]any{"gte": from},
			},
		})
	}

	if len(must) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}

	return map[string]any{
		"bool": map[string]any{"must": must},
	}
}

func buildSortQuery(query string) []map[string]any {
	if strings.TrimSpace(query) != "" {
		return []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
			{"date_key": map[string]any{"order": "asc", "missing": "_last"}},
		}
	}
	return []map[string]any{
		{"date_key": map[string]any{"order": "asc", "missing": "_last"}},
	}
}

// IndexEvent adds or replaces an event document and waits until it is
// searchable.
func (c *ElasticsearchClient) IndexEvent(ctx context.Context, event models.Event) error {
	body, err := jsonBody(newDocument(event, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return c.perform(ctx, "index event "+event.ID.String(), esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: event.ID.String(),
		Body:       body,
		Refresh:    "wait_for",
	}, nil)
}

// Reindex writes every event with one bulk request.
func (c *ElasticsearchClient) Reindex(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	body, err := bulkBody(c.config.Index, events, time.Now())
	if err != nil {
		return err
	}

	var result bulkResponse
	if err := c.perform(ctx, "bulk index", esapi.BulkRequest{Body: body, Refresh: "true"}, &result); err != nil {
		return err
	}
	if result.Errors {
		for _, item := range result.Items {
			if e := item.Index.Error; e != nil {
				return fmt.Errorf("bulk index: event %s: %s: %s", item.Index.ID, e.Type, e.Reason)
			}
		}
		return fmt.Errorf("bulk index reported errors")
	}

	slog.Info("Reindexed events", "count", len(events), "index", c.config.Index)
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID    string `json:"_id"`
			Error *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error,omitempty"`
		} `json:"index"`
	} `json:"items"`
}

// bulkBody renders the NDJSON action and source lines for events.
func bulkBody(index string, events []models.Event, now time.Time) (*bytes.Reader, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		action := map[string]any{"index": map[string]any{"_index": index, "_id": e.ID.String()}}
		if err := enc.Encode(action); err != nil {
			return nil, err
		}
		if err := enc.Encode(newDocument(e, now)); err != nil {
			return nil, fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
		}
	}
	return bytes.NewReader(buf.Bytes()), nil
}

// HealthCheck waits briefly for at least a yellow cluster.
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	return c.perform(ctx, "cluster health", esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}, nil)
}
