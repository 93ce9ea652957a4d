package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"semstore/internal/adapter/vecmath"
	"semstore/internal/domain"
)

// fakeQdrant implements the subset of the Qdrant REST API the client uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection
	creates     int
	lastAPIKey  string
	lastLimit   int
	// duplicateStatus is returned when creating an existing collection.
	duplicateStatus int
}

type fakeCollection struct {
	size     int
	distance domain.Distance
	points   []pointStruct
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *Store) {
	t.Helper()
	f := &fakeQdrant{collections: make(map[string]*fakeCollection), duplicateStatus: http.StatusConflict}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/{name}", f.getCollection)
	mux.HandleFunc("PUT /collections/{name}", f.createCollection)
	mux.HandleFunc("DELETE /collections/{name}", f.deleteCollection)
	mux.HandleFunc("PUT /collections/{name}/points", f.upsert)
	mux.HandleFunc("POST /collections/{name}/points/search", f.search)
	mux.HandleFunc("POST /collections/{name}/points/count", f.count)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastAPIKey = r.Header.Get("api-key")
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	return f, NewStoreWithURL(srv.URL, "secret", srv.Client())
}

func (f *fakeQdrant) snapshot() (apiKey string, limit, creates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAPIKey, f.lastLimit, f.creates
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok", "time": 0.001})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"status": map[string]string{"error": msg}})
}

func (f *fakeQdrant) getCollection(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found: Collection doesn't exist!")
		return
	}
	writeResult(w, map[string]any{
		"status":       "green",
		"points_count": len(c.points),
		"config": map[string]any{
			"params": map[string]any{
				"vectors": map[string]any{"size": c.size, "distance": c.distance},
			},
		},
	})
}

func (f *fakeQdrant) createCollection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vectors struct {
			Size     int    `json:"size"`
			Distance string `json:"distance"`
		} `json:"vectors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := r.PathValue("name")
	if _, ok := f.collections[name]; ok {
		writeError(w, f.duplicateStatus, "Wrong input: Collection `"+name+"` already exists!")
		return
	}
	f.creates++
	f.collections[name] = &fakeCollection{size: req.Vectors.Size, distance: domain.Distance(req.Vectors.Distance)}
	writeResult(w, true)
}

func (f *fakeQdrant) deleteCollection(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[r.PathValue("name")]
	delete(f.collections, r.PathValue("name"))
	writeResult(w, ok)
}

func (f *fakeQdrant) upsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Points []pointStruct `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found: Collection doesn't exist!")
		return
	}
	for _, p := range req.Points {
		if len(p.Vector) != c.size {
			writeError(w, http.StatusBadRequest, "Wrong input: Vector dimension error")
			return
		}
	}
	c.points = append(c.points, req.Points...)
	writeResult(w, map[string]any{"operation_id": 1, "status": "completed"})
}

func (f *fakeQdrant) search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vector      []float32 `json:"vector"`
		Limit       int       `json:"limit"`
		WithPayload bool      `json:"with_payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = req.Limit
	c, ok := f.collections[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found: Collection doesn't exist!")
		return
	}
	hits := make([]domain.QueryHit, 0, len(c.points))
	for _, p := range c.points {
		hits = append(hits, domain.QueryHit{ID: p.ID, Score: vecmath.Score(c.distance, req.Vector, p.Vector), Payload: p.Payload})
	}
	hits = vecmath.Rank(hits, req.Limit)

	out := make([]map[string]any, len(hits))
	for i, h := range hits {
		out[i] = map[string]any{"id": h.ID, "version": 0, "score": h.Score, "payload": h.Payload}
	}
	writeResult(w, out)
}

func (f *fakeQdrant) count(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.collections[r.PathValue("name")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not found: Collection doesn't exist!")
		return
	}
	writeResult(w, map[string]int{"count": len(c.points)})
}

func TestStore_CollectionExists(t *testing.T) {
	ctx := context.Background()
	f, s := newFakeQdrant(t)

	exists, err := s.CollectionExists(ctx, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected missing collection")
	}

	if err := s.CreateCollection(ctx, domain.Collection{Name: "docs", Dimension: 3, Distance: domain.Cosine}); err != nil {
		t.Fatal(err)
	}
	exists, err = s.CollectionExists(ctx, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected existing collection")
	}
	if apiKey, _, _ := f.snapshot(); apiKey != "secret" {
		t.Errorf("expected api-key header to be sent, got %q", apiKey)
	}
}

func TestStore_CreateCollectionConflictIsSuccess(t *testing.T) {
	ctx := context.Background()
	f, s := newFakeQdrant(t)
	c := domain.Collection{Name: "docs", Dimension: 3, Distance: domain.Cosine}

	if err := s.CreateCollection(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateCollection(ctx, c); err != nil {
		t.Fatalf("expected 409 to be treated as success, got %v", err)
	}
	if _, _, creates := f.snapshot(); creates != 1 {
		t.Errorf("expected exactly one collection, got %d creates", creates)
	}
}

func TestStore_CreateCollectionDuplicateBadRequest(t *testing.T) {
	ctx := context.Background()
	f, s := newFakeQdrant(t)
	f.duplicateStatus = http.StatusBadRequest
	c := domain.Collection{Name: "docs", Dimension: 3, Distance: domain.Cosine}

	if err := s.CreateCollection(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateCollection(ctx, c); err != nil {
		t.Fatalf("expected 400 on an existing collection to be treated as success, got %v", err)
	}
	if _, _, creates := f.snapshot(); creates != 1 {
		t.Errorf("expected exactly one collection, got %d creates", creates)
	}
}

func TestStore_CreateCollectionBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeError(w, http.StatusNotFound, "Not found: Collection doesn't exist!")
			return
		}
		writeError(w, http.StatusBadRequest, "Wrong input: bad vector size")
	}))
	defer srv.Close()
	s := NewStoreWithURL(srv.URL, "", srv.Client())

	err := s.CreateCollection(context.Background(), domain.Collection{Name: "docs", Dimension: 3, Distance: domain.Cosine})
	if !errors.Is(err, domain.ErrStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestStore_CollectionInfo(t *testing.T) {
	ctx := context.Background()
	_, s := newFakeQdrant(t)

	if _, exists, err := s.CollectionInfo(ctx, "docs"); err != nil || exists {
		t.Fatalf("expected missing collection, got exists=%v err=%v", exists, err)
	}

	if err := s.CreateCollection(ctx, domain.Collection{Name: "docs", Dimension: 4, Distance: domain.Dot}); err != nil {
		t.Fatal(err)
	}
	info, exists, err := s.CollectionInfo(ctx, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected existing collection")
	}
	want := domain.Collection{Name: "docs", Dimension: 4, Distance: domain.Dot}
	if info != want {
		t.Errorf("expected %+v, got %+v", want, info)
	}
}

func TestStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	f, s := newFakeQdrant(t)
	if err := s.CreateCollection(ctx, domain.Collection{Name: "docs", Dimension: 3, Distance: domain.Cosine}); err != nil {
		t.Fatal(err)
	}

	points := []domain.Point{
		{ID: "5c56c793-69f3-4fbf-87e6-c4bf54c28c26", Vector: []float32{0, 1, 0}, Payload: domain.Payload{OriginalText: "other", Ref: "b"}},
		{ID: "936da01f-9abd-4d9d-80c7-02af85c822a8", Vector: []float32{1, 0, 0}, Payload: domain.Payload{OriginalText: "Hello, world!", Ref: "https://www.google.com"}},
	}
	if err := s.Upsert(ctx, "docs", points); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search(ctx, "docs", []float32{1, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, limit, _ := f.snapshot(); limit != 10 {
		t.Errorf("expected default limit 10, got %d", limit)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	want := domain.Payload{OriginalText: "Hello, world!", Ref: "https://www.google.com"}
	if hits[0].Payload != want {
		t.Errorf("expected %+v first, got %+v", want, hits[0].Payload)
	}
	if hits[0].ID != points[1].ID {
		t.Errorf("expected id %s, got %s", points[1].ID, hits[0].ID)
	}

	n, err := s.Count(ctx, "docs")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}
}

func TestStore_RecreateCollectionWipes(t *testing.T) {
	ctx := context.Background()
	_, s := newFakeQdrant(t)
	c := domain.Collection{Name: "docs", Dimension: 1, Distance: domain.Dot}

	// Recreating a missing collection is allowed.
	if err := s.RecreateCollection(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "docs", []domain.Point{{ID: "1", Vector: []float32{1}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecreateCollection(ctx, c); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search(ctx, "docs", []float32{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected empty collection after recreate, got %d hits", len(hits))
	}
}

func TestStore_UpsertRejected(t *testing.T) {
	ctx := context.Background()
	_, s := newFakeQdrant(t)
	if err := s.CreateCollection(ctx, domain.Collection{Name: "docs", Dimension: 3, Distance: domain.Cosine}); err != nil {
		t.Fatal(err)
	}

	err := s.Upsert(ctx, "docs", []domain.Point{{ID: "1", Vector: []float32{1}}})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if errors.Is(err, domain.ErrConnection) {
		t.Errorf("rejection should not be a connection error: %v", err)
	}
}

func TestStore_Unreachable(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	s := NewStoreWithURL(url, "", nil)

	_, err := s.CollectionExists(ctx, "docs")
	if !errors.Is(err, domain.ErrConnection) {
		t.Errorf("expected connection error from exists check, got %v", err)
	}

	err = s.Upsert(ctx, "docs", []domain.Point{{ID: "1", Vector: []float32{1}}})
	if !errors.Is(err, domain.ErrStorage) {
		t.Errorf("expected storage error from upsert, got %v", err)
	}
	if !errors.Is(err, domain.ErrConnection) {
		t.Errorf("expected connection cause to be kept, got %v", err)
	}
}

func TestStore_ExistsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "boom")
	}))
	defer srv.Close()
	s := NewStoreWithURL(srv.URL, "", srv.Client())

	exists, err := s.CollectionExists(context.Background(), "docs")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if exists {
		t.Error("expected exists=false alongside the error")
	}
}

func TestPointID_Unmarshal(t *testing.T) {
	var hits []scoredPoint
	data := `[{"id":42,"score":0.5,"payload":{}},{"id":"abc","score":0.1,"payload":{}}]`
	if err := json.Unmarshal([]byte(data), &hits); err != nil {
		t.Fatal(err)
	}
	if hits[0].ID.String() != "42" || hits[1].ID.String() != "abc" {
		t.Errorf("unexpected ids: %s, %s", hits[0].ID, hits[1].ID)
	}
}

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore(Config{})
	if s.baseURL != "http://localhost:6333" {
		t.Errorf("expected default base URL, got %s", s.baseURL)
	}
	if s.limit != 10 {
		t.Errorf("expected default limit 10, got %d", s.limit)
	}
}
