package gormstore

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/masoommulla/project-sub001/internal/model"
)

// ---- ChatStore ----

func (s *Store) CreateConversation(ctx context.Context, c *model.Conversation) error {
	return create(s.conn(ctx), c)
}

func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	return first[model.Conversation](s.conn(ctx), "id = ?", id)
}

func (s *Store) FindConversation(ctx context.Context, convType, userID, otherID string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.conn(ctx).
		Where("type = ?", convType).
		Where("LOWER(participants) LIKE ?", jsonElemPattern(userID)).
		Where("LOWER(participants) LIKE ?", jsonElemPattern(otherID)).
		Order("updated_at DESC").
		First(&c).Error
	if err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	q := s.conn(ctx).Where("LOWER(participants) LIKE ?", jsonElemPattern(userID)).Order("updated_at DESC")
	return list[model.Conversation](q)
}

func (s *Store) UpdateConversation(ctx context.Context, c *model.Conversation) error {
	return replace(s.conn(ctx), c.ID, c)
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteByID[model.Conversation](tx, id); err != nil {
			return err
		}
		return wrapError(tx.Where("conversation_id = ?", id).Delete(&model.ChatMessage{}).Error)
	})
}

func (s *Store) CreateMessage(ctx context.Context, m *model.ChatMessage) error {
	return create(s.conn(ctx), m)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*model.ChatMessage, error) {
	return first[model.ChatMessage](s.conn(ctx), "id = ?", id)
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]model.ChatMessage, error) {
	q := s.conn(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}
	q = q.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	msgs, err := list[model.ChatMessage](q)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *Store) MarkMessagesRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	res := s.conn(ctx).Model(&model.ChatMessage{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, readerID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, wrapError(res.Error)
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	return deleteByID[model.ChatMessage](s.conn(ctx), id)
}
