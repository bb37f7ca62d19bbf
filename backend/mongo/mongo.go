package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/backend/metrics"
	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/internal/metrickeys"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/otel/trace"
)

type mongoBackend struct {
	client  *mongo.Client
	coll    *mongo.Collection
	options *MongoOptions
}

var _ backend.Backend = (*mongoBackend)(nil)

// NewMongoBackend connects to the given deployment and stores conversations in the given database.
func NewMongoBackend(uri, database string, opts ...MongoBackendOption) (*mongoBackend, error) {
	o := &MongoOptions{
		Options:        backend.ApplyOptions(),
		Collection:     "conversations",
		ConnectTimeout: 2 * time.Second,
	}

	for _, opt := range opts {
		opt(o)
	}

	client, err := mongo.Connect(
		options.Client().
			ApplyURI(uri).
			SetAppName("go-dialogflow").
			SetConnectTimeout(o.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	b := &mongoBackend{
		client:  client,
		coll:    client.Database(database).Collection(o.Collection),
		options: o,
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.ConnectTimeout)
	defer cancel()

	if _, err := b.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "updated_at", Value: 1}}},
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return b, nil
}

func (b *mongoBackend) Tracer() trace.Tracer {
	return b.options.TracerProvider.Tracer(backend.TracerName)
}

func (b *mongoBackend) Metrics() metrics.Client {
	return b.options.Metrics.WithTags(metrics.Tags{metrickeys.Backend: "mongo"})
}

func (b *mongoBackend) Options() *backend.Options {
	return &b.options.Options
}

func (b *mongoBackend) Close() error {
	return b.client.Disconnect(context.Background())
}

func (b *mongoBackend) GetConversationState(ctx context.Context, conversationID string) (*core.ConversationState, error) {
	var doc conversation
	if err := b.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, backend.ErrConversationNotFound
		}

		return nil, fmt.Errorf("getting conversation state: %w", err)
	}

	return b.decode(&doc)
}

func (b *mongoBackend) decode(doc *conversation) (*core.ConversationState, error) {
	state := &core.ConversationState{
		ConversationID: doc.ConversationID,
		Version:        doc.Version,
		DialogStack:    core.DialogStack{},
		CreatedAt:      doc.CreatedAt.UTC(),
		UpdatedAt:      doc.UpdatedAt.UTC(),
	}

	if err := b.options.Converter.From(doc.DialogStack, &state.DialogStack); err != nil {
		return nil, fmt.Errorf("decoding dialog stack of %q: %w", doc.ConversationID, err)
	}

	return state, nil
}

func (b *mongoBackend) SaveConversationState(ctx context.Context, state *core.ConversationState) error {
	stack, err := b.options.Converter.To(state.DialogStack)
	if err != nil {
		return fmt.Errorf("encoding dialog stack: %w", err)
	}

	// BSON dates carry millisecond precision
	now := b.options.Clock.Now().UTC().Truncate(time.Millisecond)

	createdAt := state.CreatedAt.UTC().Truncate(time.Millisecond)
	if createdAt.IsZero() {
		createdAt = now
	}

	if state.Version == 0 {
		_, err := b.coll.InsertOne(ctx, &conversation{
			ConversationID: state.ConversationID,
			Version:        1,
			DialogStack:    stack,
			StackDepth:     len(state.DialogStack),
			CreatedAt:      createdAt,
			UpdatedAt:      now,
		})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return backend.ErrConflict
			}

			return fmt.Errorf("inserting conversation state: %w", err)
		}

		state.CreatedAt = createdAt
	} else {
		res, err := b.coll.UpdateOne(ctx,
			bson.M{"_id": state.ConversationID, "version": state.Version},
			bson.M{
				"$inc": bson.M{"version": 1},
				"$set": bson.M{
					"dialog_stack": []byte(stack),
					"stack_depth":  len(state.DialogStack),
					"updated_at":   now,
				},
			},
		)
		if err != nil {
			return fmt.Errorf("updating conversation state: %w", err)
		}

		if res.MatchedCount != 1 {
			return backend.ErrConflict
		}
	}

	state.Version++
	state.UpdatedAt = now

	return nil
}

func (b *mongoBackend) RemoveConversationState(ctx context.Context, conversationID string) error {
	res, err := b.coll.DeleteOne(ctx, bson.M{"_id": conversationID})
	if err != nil {
		return fmt.Errorf("removing conversation state: %w", err)
	}

	if res.DeletedCount == 0 {
		return backend.ErrConversationNotFound
	}

	return nil
}

func (b *mongoBackend) RemoveConversationStates(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	filter := bson.M{}
	if !o.UpdatedBefore.IsZero() {
		filter["updated_at"] = bson.M{"$lt": o.UpdatedBefore.UTC()}
	}

	if _, err := b.coll.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("removing conversation states: %w", err)
	}

	return nil
}

func (b *mongoBackend) GetStats(ctx context.Context) (*backend.Stats, error) {
	var err error

	s := &backend.Stats{}

	if s.Conversations, err = b.coll.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("counting conversations: %w", err)
	}

	if s.ActiveConversations, err = b.coll.CountDocuments(ctx, bson.M{"stack_depth": bson.M{"$gt": 0}}); err != nil {
		return nil, fmt.Errorf("counting active conversations: %w", err)
	}

	return s, nil
}
