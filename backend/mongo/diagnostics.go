package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/diag"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ diag.Backend = (*mongoBackend)(nil)

func (b *mongoBackend) GetConversations(ctx context.Context, afterConversationID string, count int) ([]*diag.ConversationRef, error) {
	filter := bson.M{}

	if afterConversationID != "" {
		var after conversation
		if err := b.coll.FindOne(ctx, bson.M{"_id": afterConversationID}).Decode(&after); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, backend.ErrConversationNotFound
			}

			return nil, fmt.Errorf("getting conversation %v: %w", afterConversationID, err)
		}

		filter = bson.M{"$or": bson.A{
			bson.M{"created_at": bson.M{"$lt": after.CreatedAt}},
			bson.M{"created_at": after.CreatedAt, "_id": bson.M{"$lt": afterConversationID}},
		}}
	}

	cur, err := b.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(count)),
	)
	if err != nil {
		return nil, fmt.Errorf("finding conversations: %w", err)
	}

	var docs []conversation
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading conversations: %w", err)
	}

	refs := make([]*diag.ConversationRef, 0, len(docs))
	for i := range docs {
		state, err := b.decode(&docs[i])
		if err != nil {
			return nil, err
		}

		refs = append(refs, diag.NewConversationRef(state))
	}

	return refs, nil
}
