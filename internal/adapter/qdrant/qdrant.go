// Package qdrant provides a VectorBackend backed by Qdrant's REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"semstore/internal/adapter/vecmath"
	"semstore/internal/domain"
)

// Config contains connection details for a Qdrant server.
type Config struct {
	Host    string
	Port    int
	APIKey  string
	Timeout time.Duration
	// Limit is the number of hits requested per search. Zero means 10.
	Limit int
}

// Store is a minimal REST client to Qdrant.
type Store struct {
	baseURL string
	apiKey  string
	limit   int
	client  *http.Client
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6333
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = vecmath.DefaultLimit
	}
	return &Store{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		apiKey:  cfg.APIKey,
		limit:   limit,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewStoreWithURL points the client at a full base URL, e.g. an https endpoint.
func NewStoreWithURL(baseURL, apiKey string, client *http.Client) *Store {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Store{
		baseURL: baseURL,
		apiKey:  apiKey,
		limit:   vecmath.DefaultLimit,
		client:  client,
	}
}

// Supports reports the metrics Qdrant indexes natively.
func (s *Store) Supports(metric domain.Distance) bool {
	switch metric {
	case domain.Cosine, domain.Dot, domain.Euclid:
		return true
	}
	return false
}

// CollectionExists uses the HTTP status of the collection info endpoint:
// 200 means found, 404 means not found, anything else is an error.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, exists, err := s.CollectionInfo(ctx, name)
	return exists, err
}

// CollectionInfo reads size and distance of the collection's unnamed vector.
func (s *Store) CollectionInfo(ctx context.Context, name string) (domain.Collection, bool, error) {
	status, body, err := s.do(ctx, http.MethodGet, collectionPath(name), nil)
	if err != nil {
		return domain.Collection{}, false, domain.Connection("qdrant collection info", err)
	}
	switch {
	case status == http.StatusNotFound:
		return domain.Collection{}, false, nil
	case status != http.StatusOK:
		return domain.Collection{}, false, domain.Storage("qdrant collection info", statusError(http.MethodGet, name, status, body))
	}

	var out struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.Collection{}, true, domain.Storage("qdrant collection info", fmt.Errorf("decode response: %w", err))
	}
	vectors := out.Result.Config.Params.Vectors
	if vectors.Size == 0 {
		return domain.Collection{}, true, domain.Configurationf("qdrant collection info", "collection %s has no single unnamed vector config", name)
	}
	return domain.Collection{
		Name:      name,
		Dimension: vectors.Size,
		Distance:  domain.Distance(vectors.Distance),
	}, true, nil
}

// CreateCollection treats 409 Conflict as success so concurrent creators do
// not fail. Some server versions answer a duplicate create with 400, so any
// other rejection is followed by an existence check.
func (s *Store) CreateCollection(ctx context.Context, c domain.Collection) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.Dimension,
			"distance": string(c.Distance),
		},
	}
	status, resp, err := s.do(ctx, http.MethodPut, collectionPath(c.Name), body)
	if err != nil {
		return domain.Connection("qdrant create collection", err)
	}
	if status == http.StatusConflict || status < 300 {
		return nil
	}
	rejected := domain.Storage("qdrant create collection", statusError(http.MethodPut, c.Name, status, resp))
	if status >= 500 {
		return rejected
	}
	if exists, err := s.CollectionExists(ctx, c.Name); err == nil && exists {
		return nil
	}
	return rejected
}

// RecreateCollection deletes the collection (a missing one is fine) and creates it again.
func (s *Store) RecreateCollection(ctx context.Context, c domain.Collection) error {
	status, resp, err := s.do(ctx, http.MethodDelete, collectionPath(c.Name), nil)
	if err != nil {
		return domain.Connection("qdrant recreate collection", err)
	}
	if status >= 300 && status != http.StatusNotFound {
		return domain.Storage("qdrant recreate collection", statusError(http.MethodDelete, c.Name, status, resp))
	}
	return s.CreateCollection(ctx, c)
}

func (s *Store) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	wire := make([]pointStruct, len(points))
	for i, p := range points {
		wire[i] = pointStruct{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	status, resp, err := s.do(ctx, http.MethodPut, collectionPath(collection)+"/points?wait=true", map[string]any{"points": wire})
	if err != nil {
		return domain.Storage("qdrant upsert", domain.Connection("qdrant upsert", err))
	}
	if status >= 300 {
		return domain.Storage("qdrant upsert", statusError(http.MethodPut, collection, status, resp))
	}

	var out struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return domain.Storage("qdrant upsert", fmt.Errorf("decode response: %w", err))
	}
	switch out.Result.Status {
	case "acknowledged", "completed":
		return nil
	default:
		return domain.Storage("qdrant upsert", fmt.Errorf("update not acknowledged: status %q", out.Result.Status))
	}
}

// Search issues an unfiltered nearest-neighbour search.
func (s *Store) Search(ctx context.Context, collection string, vector []float32) ([]domain.QueryHit, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        s.limit,
		"with_payload": true,
	}
	status, resp, err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/search", req)
	if err != nil {
		return nil, domain.Storage("qdrant search", domain.Connection("qdrant search", err))
	}
	if status >= 300 {
		return nil, domain.Storage("qdrant search", statusError(http.MethodPost, collection, status, resp))
	}

	var out struct {
		Result []scoredPoint `json:"result"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, domain.Storage("qdrant search", fmt.Errorf("decode response: %w", err))
	}

	hits := make([]domain.QueryHit, 0, len(out.Result))
	for _, r := range out.Result {
		hits = append(hits, domain.QueryHit{
			ID:      r.ID.String(),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return hits, nil
}

func (s *Store) Delete(ctx context.Context, collection string, ids []string) error {
	status, resp, err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/delete?wait=true", map[string]any{"points": ids})
	if err != nil {
		return domain.Storage("qdrant delete", domain.Connection("qdrant delete", err))
	}
	if status >= 300 {
		return domain.Storage("qdrant delete", statusError(http.MethodPost, collection, status, resp))
	}
	return nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	status, resp, err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/count", map[string]any{"exact": true})
	if err != nil {
		return 0, domain.Storage("qdrant count", domain.Connection("qdrant count", err))
	}
	if status >= 300 {
		return 0, domain.Storage("qdrant count", statusError(http.MethodPost, collection, status, resp))
	}
	var out struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return 0, domain.Storage("qdrant count", fmt.Errorf("decode response: %w", err))
	}
	return out.Result.Count, nil
}

type pointStruct struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload domain.Payload `json:"payload"`
}

type scoredPoint struct {
	ID      pointID        `json:"id"`
	Score   float64        `json:"score"`
	Payload domain.Payload `json:"payload"`
}

// pointID accepts both UUID strings and unsigned integer IDs.
type pointID string

func (p *pointID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = pointID(s)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unsupported point id %s", data)
	}
	*p = pointID(strconv.FormatUint(n, 10))
	return nil
}

func (p pointID) String() string { return string(p) }

// --- HTTP helpers ---

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// do sends a JSON request. A non-nil error means the server could not be reached.
func (s *Store) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func statusError(method, collection string, status int, body []byte) error {
	var out struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.Status.Error != "" {
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, collection, status, out.Status.Error)
	}
	return fmt.Errorf("qdrant %s %s: status %d", method, collection, status)
}
