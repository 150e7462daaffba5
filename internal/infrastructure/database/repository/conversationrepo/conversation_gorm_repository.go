package conversationrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/infrastructure/database/dbschema"
	"livechat-server/handover-api/internal/infrastructure/database/transaction"
	"livechat-server/handover-api/internal/utils/functional"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

type ConversationGormRepository struct {
	db *transaction.Database
}

var _ conversation.Repository = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *transaction.Database) conversation.Repository {
	return &ConversationGormRepository{db}
}

// Create implements conversation.Repository.
func (repo *ConversationGormRepository) Create(ctx context.Context, conv *conversation.Conversation) error {
	model := dbschema.NewSchemaConversation(conv)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create conversation")
	}
	conv.ID = model.ID
	conv.CreatedAt = model.CreatedAt
	conv.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID implements conversation.Repository.
func (repo *ConversationGormRepository) FindByID(ctx context.Context, id uint) (*conversation.Conversation, error) {
	var model dbschema.Conversation
	err := repo.db.GetTx(ctx).WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewNotFound(ctx, "conversation not found")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find conversation")
	}
	return model.EtoD(), nil
}

// FindByFilter implements conversation.Repository.
func (repo *ConversationGormRepository) FindByFilter(ctx context.Context, filter conversation.Filter) ([]*conversation.Conversation, error) {
	sql := repo.db.GetTx(ctx).WithContext(ctx).Model(&dbschema.Conversation{})
	sql = applyFilter(sql, filter)

	var rows []*dbschema.Conversation
	if err := sql.Find(&rows).Error; err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find conversations")
	}
	return functional.Map(rows, func(item *dbschema.Conversation) *conversation.Conversation {
		return item.EtoD()
	}), nil
}

// Update implements conversation.Repository.
func (repo *ConversationGormRepository) Update(ctx context.Context, conv *conversation.Conversation) error {
	model := dbschema.NewSchemaConversation(conv)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Save(model).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to update conversation")
	}
	conv.UpdatedAt = model.UpdatedAt
	return nil
}

// ListHandedOff implements conversation.Repository. It joins the widget
// configuration so the sweep has the agent's notification settings at hand.
func (repo *ConversationGormRepository) ListHandedOff(ctx context.Context) ([]*conversation.HandedOff, error) {
	var rows []*dbschema.Conversation
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Preload("Widget").
		Where("status = ? AND agent_handoff = ? AND last_activity_at IS NOT NULL", conversation.StatusActive, true).
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list handed-off conversations")
	}

	return functional.Map(rows, func(item *dbschema.Conversation) *conversation.HandedOff {
		return &conversation.HandedOff{
			Conversation:           item.EtoD(),
			WidgetName:             item.Widget.WidgetName,
			HandoverWhatsAppNumber: item.Widget.HandoverWhatsAppNumber,
		}
	}), nil
}

// MarkHandedOff implements conversation.Repository.
func (repo *ConversationGormRepository) MarkHandedOff(ctx context.Context, id uint, handedOff bool) error {
	updates := map[string]any{
		"agent_handoff":     handedOff,
		"handoff_requested": false,
	}
	if handedOff {
		now := time.Now()
		updates["last_activity_at"] = now
		updates["last_agent_activity_at"] = now
	}
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to mark conversation handed off")
	}
	return nil
}

// SetContactPreference implements conversation.Repository.
func (repo *ConversationGormRepository) SetContactPreference(ctx context.Context, id uint, method string, details conversation.ContactDetails) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"preferred_contact_method": method,
			"contact_method_details":   dbschema.JSONContactDetails{ContactDetails: details},
			"handoff_requested":        true,
			"handoff_requested_at":     time.Now(),
		}).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to set contact preference")
	}
	return nil
}

// SetReminderCount implements conversation.Repository. The write is guarded
// on the expected current value so only one sweep wins each stage.
func (repo *ConversationGormRepository) SetReminderCount(ctx context.Context, id uint, side conversation.Side, expected, next int) (bool, error) {
	column := "visitor_extension_reminders_count"
	if side == conversation.SideAgent {
		column = "extension_reminders_count"
	}
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ? AND "+column+" = ?", id, expected).
		Update(column, next)
	if result.Error != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to set reminder count")
	}
	return result.RowsAffected == 1, nil
}

// GrantExtension implements conversation.Repository. Only the requesting
// side's counter is reset.
func (repo *ConversationGormRepository) GrantExtension(ctx context.Context, id uint, until time.Time, side conversation.Side) error {
	column := "visitor_extension_reminders_count"
	if side == conversation.SideAgent {
		column = "extension_reminders_count"
	}
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"extension_granted_until": until,
			column:                    0,
		}).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to grant extension")
	}
	return nil
}

// TouchActivity implements conversation.Repository.
func (repo *ConversationGormRepository) TouchActivity(ctx context.Context, id uint, side conversation.Side, at time.Time) error {
	column := "last_visitor_activity_at"
	if side == conversation.SideAgent {
		column = "last_agent_activity_at"
	}
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			column:             at,
			"last_activity_at": at,
		}).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to update activity timestamp")
	}
	return nil
}

// End implements conversation.Repository.
func (repo *ConversationGormRepository) End(ctx context.Context, id uint, endedAt time.Time, closeReason string) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        conversation.StatusEnded,
			"agent_handoff": false,
			"ended_at":      endedAt,
			"close_reason":  closeReason,
		}).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to end conversation")
	}
	return nil
}

// RecordPurge implements conversation.Repository.
func (repo *ConversationGormRepository) RecordPurge(ctx context.Context, id uint) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_message":  "Conversation purged after inactivity",
			"message_count": 0,
		}).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to record purge")
	}
	return nil
}

// MarkWebhookNotified implements conversation.Repository.
func (repo *ConversationGormRepository) MarkWebhookNotified(ctx context.Context, id uint) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Conversation{}).
		Where("id = ?", id).
		Update("webhook_notified", true).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to mark webhook notified")
	}
	return nil
}

func applyFilter(sql *gorm.DB, filter conversation.Filter) *gorm.DB {
	if filter.ID != nil {
		sql = sql.Where("id = ?", *filter.ID)
	}
	if filter.WidgetID != nil {
		sql = sql.Where("widget_id = ?", *filter.WidgetID)
	}
	if filter.ClientID != nil {
		sql = sql.Where("client_id = ?", *filter.ClientID)
	}
	if filter.SessionID != nil {
		sql = sql.Where("session_id = ?", *filter.SessionID)
	}
	if filter.VisitorSessionID != nil {
		sql = sql.Where("visitor_session_id = ?", *filter.VisitorSessionID)
	}
	if filter.Status != nil {
		sql = sql.Where("status = ?", *filter.Status)
	}
	return sql
}
