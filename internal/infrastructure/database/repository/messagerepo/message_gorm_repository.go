package messagerepo

import (
	"context"

	"gorm.io/gorm"

	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/infrastructure/database/dbschema"
	"livechat-server/handover-api/internal/infrastructure/database/transaction"
	"livechat-server/handover-api/internal/utils/functional"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

type MessageGormRepository struct {
	db *transaction.Database
}

var _ conversation.MessageRepository = (*MessageGormRepository)(nil)

func NewMessageGormRepository(db *transaction.Database) conversation.MessageRepository {
	return &MessageGormRepository{db}
}

// Append implements conversation.MessageRepository. The parent row's
// last_message and message_count are kept in step with the insert.
func (repo *MessageGormRepository) Append(ctx context.Context, msg *conversation.Message) error {
	model := dbschema.NewSchemaMessage(msg)
	err := repo.db.GetTx(ctx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return tx.Model(&dbschema.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]any{
				"last_message":  msg.Text,
				"message_count": gorm.Expr("message_count + 1"),
			}).Error
	})
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to append message")
	}
	msg.ID = model.ID
	msg.CreatedAt = model.CreatedAt
	return nil
}

// ListByConversation implements conversation.MessageRepository.
func (repo *MessageGormRepository) ListByConversation(ctx context.Context, conversationID uint) ([]*conversation.Message, error) {
	var rows []*dbschema.Message
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list messages")
	}
	return functional.Map(rows, func(item *dbschema.Message) *conversation.Message {
		return item.EtoD()
	}), nil
}

// DeleteByConversation implements conversation.MessageRepository.
func (repo *MessageGormRepository) DeleteByConversation(ctx context.Context, conversationID uint) (int64, error) {
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&dbschema.Message{})
	if result.Error != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to purge messages")
	}
	return result.RowsAffected, nil
}
