package preset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	dferrors "github.com/matzehuels/diagramflow/pkg/errors"
)

// MongoStore keeps presets in a MongoDB collection, one document per
// preset keyed by its id.
type MongoStore struct {
	coll   *mongo.Collection
	client *mongo.Client // set when the store owns the connection
}

// NewMongoStore wraps an existing collection. Close does not disconnect.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// ConnectMongo dials uri and returns a store over database.collection.
// The store owns the client and disconnects it on Close.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &MongoStore{coll: client.Database(database).Collection(collection), client: client}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the listing index.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create preset index: %w", err)
	}
	return nil
}

func (m *MongoStore) Put(ctx context.Context, p *Preset) error {
	if err := dferrors.ValidatePresetID(p.ID); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	update := bson.M{
		"$set": bson.M{
			"name":       p.Name,
			"scene":      p.Scene,
			"updated_at": p.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": p.CreatedAt},
	}
	_, err := m.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert preset: %w", err)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (*Preset, error) {
	var p Preset
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find preset: %w", err)
	}
	return &p, nil
}

// listRow is the projected listing document.
type listRow struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name,omitempty"`
	Nodes     int       `bson:"nodes"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (m *MongoStore) List(ctx context.Context) ([]Info, error) {
	opts := options.Find().
		SetProjection(bson.M{
			"name":       1,
			"updated_at": 1,
			"nodes":      bson.M{"$size": bson.M{"$ifNull": bson.A{"$scene.nodes", bson.A{}}}},
		}).
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	var rows []listRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	out := make([]Info, len(rows))
	for i, r := range rows {
		out[i] = Info{ID: r.ID, Name: r.Name, Nodes: r.Nodes, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	return nil
}

func (m *MongoStore) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
