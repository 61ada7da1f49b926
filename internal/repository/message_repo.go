package repository

import (
	"context"
	"time"

	"fitcrush/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, tx *gorm.DB, m *models.Message) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(m).Error
}

func (r *MessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var m models.Message
	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListConversation returns up to limit messages sent before the cursor,
// oldest first so clients can append them directly.
func (r *MessageRepository) ListConversation(ctx context.Context, conversationID string, limit int, before *time.Time) ([]models.Message, error) {
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		q = q.Where("sent_at < ?", *before)
	}
	var list []models.Message
	if err := q.Order("sent_at DESC, id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// MarkRead flags every unread message addressed to reader in the conversation.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID string, readerID uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND `read` = ?", conversationID, readerID, false).
		Updates(map[string]interface{}{"read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

// SoftDelete hides a message; only its sender may do so.
func (r *MessageRepository) SoftDelete(ctx context.Context, id, senderID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND sender_id = ? AND deleted = ?", id, senderID, false).
		Update("deleted", true)
	return result.RowsAffected == 1, result.Error
}

// LastMessages returns the newest message of each conversation.
func (r *MessageRepository) LastMessages(ctx context.Context, conversationIDs []string) (map[string]models.Message, error) {
	out := make(map[string]models.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	latest := r.db.Model(&models.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", conversationIDs).
		Group("conversation_id")
	var list []models.Message
	if err := r.db.WithContext(ctx).Where("id IN (?)", latest).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, m := range list {
		out[m.ConversationID] = m
	}
	return out, nil
}

// UnreadCounts returns unread message counts per conversation for reader.
func (r *MessageRepository) UnreadCounts(ctx context.Context, readerID uint) (map[string]int64, error) {
	var rows []struct {
		ConversationID string
		Count          int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS count").
		Where("receiver_id = ? AND `read` = ? AND deleted = ?", readerID, false, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ConversationID] = row.Count
	}
	return out, nil
}
