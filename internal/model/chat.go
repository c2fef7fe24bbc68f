package model

import "time"

// 会话类型。
const (
	ConversationAI        = "ai"
	ConversationTherapist = "therapist"
	ConversationSupport   = "support"
)

// AICompanionID 是 AI 陪伴者在消息中使用的发送者 ID。
const AICompanionID = "ai-companion"

// SupportTeamID 支持会话中代表客服团队的参与者，管理员以该身份回复。
const SupportTeamID = "support-team"

// Conversation 聊天会话。
type Conversation struct {
	ID           string       `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Participants []string     `json:"participants" bson:"participants" gorm:"serializer:json"`
	Type         string       `json:"type" bson:"type" gorm:"type:varchar(16)"`
	Title        string       `json:"title,omitempty" bson:"title,omitempty"`
	TherapistID  string       `json:"therapistId,omitempty" bson:"therapist_id,omitempty" gorm:"type:varchar(36)"`
	LastMessage  *LastMessage `json:"lastMessage,omitempty" bson:"last_message,omitempty" gorm:"serializer:json"`
	CreatedAt    time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updated_at" gorm:"index"`
}

// LastMessage 会话列表中展示的最后一条消息预览。
type LastMessage struct {
	Content  string    `json:"content" bson:"content"`
	SenderID string    `json:"senderId" bson:"sender_id"`
	At       time.Time `json:"at" bson:"at"`
}

// HasParticipant 判断用户是否为会话参与者。
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant 返回除 userID 之外的第一个参与者。
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// ChatMessage 会话中的一条消息。
type ChatMessage struct {
	ID             string     `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	ConversationID string     `json:"conversationId" bson:"conversation_id" gorm:"type:varchar(36);index;not null"`
	SenderID       string     `json:"senderId" bson:"sender_id" gorm:"type:varchar(36);not null"`
	ReceiverID     string     `json:"receiverId,omitempty" bson:"receiver_id,omitempty" gorm:"type:varchar(36)"`
	Content        string     `json:"content" bson:"content" gorm:"type:text;not null"`
	IsRead         bool       `json:"isRead" bson:"is_read"`
	ReadAt         *time.Time `json:"readAt,omitempty" bson:"read_at,omitempty"`
	IsAI           bool       `json:"isAI" bson:"is_ai"`
	CreatedAt      time.Time  `json:"createdAt" bson:"created_at" gorm:"index"`
}
