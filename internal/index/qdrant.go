package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// DefaultQdrantPort is the Qdrant gRPC port
const DefaultQdrantPort = 6334

const (
	collectionPrefix = "askdb_"
	scrollPageSize   = 256
)

// QdrantIndex stores each corpus in its own Qdrant collection. Point ids are
// derived from the corpus and entry id, so re-upserting an entry overwrites the
// same point instead of adding one.
type QdrantIndex struct {
	client *qdrant.Client

	mu      sync.Mutex
	ensured map[string]bool
}

// OpenQdrant connects to a Qdrant server
func OpenQdrant(_ context.Context, host string, port int) (*QdrantIndex, error) {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = DefaultQdrantPort
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s:%d: %w", host, port, err)
	}
	return &QdrantIndex{client: client, ensured: make(map[string]bool)}, nil
}

func collectionName(corpus string) string {
	return collectionPrefix + corpus
}

// PointID returns the stable Qdrant point id for an entry
func PointID(corpus, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(corpus+"/"+id)).String()
}

func (q *QdrantIndex) exists(ctx context.Context, corpus string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensured[corpus] {
		return true, nil
	}
	ok, err := q.client.CollectionExists(ctx, collectionName(corpus))
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", collectionName(corpus), err)
	}
	if ok {
		q.ensured[corpus] = true
	}
	return ok, nil
}

// ensureCollection creates the collection on first write, sized from the vectors
func (q *QdrantIndex) ensureCollection(ctx context.Context, corpus string, size int) error {
	ok, err := q.exists(ctx, corpus)
	if err != nil || ok {
		return err
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName(corpus),
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(size),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collectionName(corpus), err)
	}

	q.mu.Lock()
	q.ensured[corpus] = true
	q.mu.Unlock()
	return nil
}

// Missing looks up the derived point ids and returns the entries not found or
// stored with other text
func (q *QdrantIndex) Missing(ctx context.Context, corpus string, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ok, err := q.exists(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if !ok {
		return stale(docs, nil), nil
	}

	pointIDs := make([]*qdrant.PointId, len(docs))
	for i, d := range docs {
		pointIDs[i] = qdrant.NewID(PointID(corpus, d.ID))
	}
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collectionName(corpus),
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get points: %w", err)
	}

	known := make(map[string]string, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		known[payload["id"].GetStringValue()] = payload["document"].GetStringValue()
	}
	return stale(docs, known), nil
}

// Upsert writes documents. A point is rewritten in place, so an unchanged
// document keeps its content and a changed one is replaced.
func (q *QdrantIndex) Upsert(ctx context.Context, corpus string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx, corpus, len(docs[0].Vector)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(corpus, d.ID)),
			Vectors: qdrant.NewVectors(d.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"id":       d.ID,
				"document": d.Text,
			}),
		}
	}

	wait := true
	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName(corpus),
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search queries the corpus collection for the nearest k points
func (q *QdrantIndex) Search(ctx context.Context, corpus string, vector []float32, k int) ([]Match, error) {
	ok, err := q.exists(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if !ok || k <= 0 {
		return nil, nil
	}

	// fetch one extra so that ties at the boundary can be ordered by id
	limit := uint64(k + 1)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName(corpus),
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
		Limit:          &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	matches := make([]Match, 0, len(scored))
	for _, p := range scored {
		matches = append(matches, Match{
			ID:    p.GetPayload()["id"].GetStringValue(),
			Score: float64(p.GetScore()),
		})
	}
	return rank(matches, k), nil
}

// Prune scrolls the corpus collection and deletes points whose entry id is not in keep
func (q *QdrantIndex) Prune(ctx context.Context, corpus string, keep []string) (int, error) {
	ok, err := q.exists(ctx, corpus)
	if err != nil || !ok {
		return 0, err
	}
	wanted := make(map[string]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}

	var (
		drop   []*qdrant.PointId
		offset *qdrant.PointId
	)
	for {
		// one extra point marks where the next page starts
		limit := uint32(scrollPageSize + 1)
		points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collectionName(corpus),
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return 0, fmt.Errorf("failed to scroll points: %w", err)
		}
		offset = nil
		if len(points) > scrollPageSize {
			offset = points[scrollPageSize].GetId()
			points = points[:scrollPageSize]
		}
		for _, p := range points {
			if !wanted[p.GetPayload()["id"].GetStringValue()] {
				drop = append(drop, p.GetId())
			}
		}
		if offset == nil {
			break
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}

	wait := true
	if _, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName(corpus),
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(drop...),
	}); err != nil {
		return 0, fmt.Errorf("failed to delete points: %w", err)
	}
	return len(drop), nil
}

// Count returns the exact number of points in the corpus collection
func (q *QdrantIndex) Count(ctx context.Context, corpus string) (int, error) {
	ok, err := q.exists(ctx, corpus)
	if err != nil || !ok {
		return 0, err
	}
	exact := true
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collectionName(corpus),
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

// Close closes the gRPC connection
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
