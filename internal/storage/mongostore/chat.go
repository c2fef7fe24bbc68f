package mongostore

import (
	"context"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/masoommulla/project-sub001/internal/model"
)

// ---- ChatStore ----

func (s *Store) CreateConversation(ctx context.Context, c *model.Conversation) error {
	return insertOne(ctx, s.col(ColConversations), c)
}

func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	return findOne[model.Conversation](ctx, s.col(ColConversations), byID(id))
}

func (s *Store) FindConversation(ctx context.Context, convType, userID, otherID string) (*model.Conversation, error) {
	filter := bson.D{
		{Key: "type", Value: convType},
		{Key: "participants", Value: bson.D{{Key: "$all", Value: bson.A{userID, otherID}}}},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return findOne[model.Conversation](ctx, s.col(ColConversations), filter, opts)
}

func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	return findMany[model.Conversation](ctx, s.col(ColConversations), bson.D{{Key: "participants", Value: userID}}, opts)
}

func (s *Store) UpdateConversation(ctx context.Context, c *model.Conversation) error {
	return replaceByID(ctx, s.col(ColConversations), c.ID, c)
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.col(ColConversations), id); err != nil {
		return err
	}
	_, err := deleteMany(ctx, s.col(ColMessages), bson.D{{Key: "conversation_id", Value: id}})
	return err
}

func (s *Store) CreateMessage(ctx context.Context, m *model.ChatMessage) error {
	return insertOne(ctx, s.col(ColMessages), m)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*model.ChatMessage, error) {
	return findOne[model.ChatMessage](ctx, s.col(ColMessages), byID(id))
}

// ListMessages 倒序取最近 limit 条，再翻转为升序返回。
func (s *Store) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]model.ChatMessage, error) {
	filter := bson.D{{Key: "conversation_id", Value: conversationID}}
	if before != nil {
		filter = append(filter, bson.E{Key: "created_at", Value: bson.D{{Key: "$lt", Value: *before}}})
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	msgs, err := findMany[model.ChatMessage](ctx, s.col(ColMessages), filter, opts)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *Store) MarkMessagesRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	res, err := s.col(ColMessages).UpdateMany(ctx,
		bson.D{
			{Key: "conversation_id", Value: conversationID},
			{Key: "receiver_id", Value: readerID},
			{Key: "is_read", Value: false},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "is_read", Value: true},
			{Key: "read_at", Value: at},
		}}})
	if err != nil {
		return 0, wrapError(err)
	}
	return res.ModifiedCount, nil
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColMessages), id)
}
