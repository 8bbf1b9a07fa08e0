package vector

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantClient implements Client over Qdrant's gRPC API. Collections map to indexes.
type QdrantClient struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
}

// NewQdrantClient creates a Qdrant client. The connection is established lazily.
func NewQdrantClient(host string, port int) (*QdrantClient, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantClient{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

// ListIndexes returns the names of all collections.
func (c *QdrantClient) ListIndexes(ctx context.Context) ([]string, error) {
	resp, err := c.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("qdrant list collections: %w", err)
	}
	names := make([]string, 0, len(resp.GetCollections()))
	for _, col := range resp.GetCollections() {
		names = append(names, col.GetName())
	}
	return names, nil
}

// CreateIndex creates a collection with a single unnamed vector of size dim.
func (c *QdrantClient) CreateIndex(ctx context.Context, name string, dim int, distance Distance) error {
	if distance != DistanceCosine {
		return fmt.Errorf("qdrant: unsupported distance %q", distance)
	}
	_, err := c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dim), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", name, err)
	}
	return nil
}

// DeleteIndex drops a collection.
func (c *QdrantClient) DeleteIndex(ctx context.Context, name string) error {
	if _, err := c.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
		return fmt.Errorf("qdrant delete collection %s: %w", name, err)
	}
	return nil
}

// Index returns a handle bound to the named collection.
func (c *QdrantClient) Index(name string) (Index, error) {
	if name == "" {
		return nil, fmt.Errorf("qdrant: empty collection name")
	}
	return &qdrantIndex{points: c.points, collection: name}, nil
}

// Close closes the gRPC connection.
func (c *QdrantClient) Close() error {
	return c.conn.Close()
}

type qdrantIndex struct {
	points     pb.PointsClient
	collection string
}

func (i *qdrantIndex) Insert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("qdrant insert: %d ids for %d vectors", len(ids), len(vectors))
	}
	points := make([]*pb.PointStruct, len(ids))
	for n, id := range ids {
		points[n] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[n]}}},
		}
	}
	wait := true
	_, err := i.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: i.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (i *qdrantIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	resp, err := i.points.Search(ctx, &pb.SearchPoints{
		CollectionName: i.collection,
		Vector:         vector,
		Limit:          uint64(topK),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	matches := make([]Match, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		matches = append(matches, Match{ID: pt.GetId().GetUuid(), Score: float64(pt.GetScore())})
	}
	return matches, nil
}
