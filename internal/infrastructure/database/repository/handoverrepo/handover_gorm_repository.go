package handoverrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"livechat-server/handover-api/internal/domain/conversation"
	"livechat-server/handover-api/internal/domain/handover"
	"livechat-server/handover-api/internal/infrastructure/database/dbschema"
	"livechat-server/handover-api/internal/infrastructure/database/transaction"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

type HandoverGormRepository struct {
	db *transaction.Database
}

var _ handover.Repository = (*HandoverGormRepository)(nil)

func NewHandoverGormRepository(db *transaction.Database) handover.Repository {
	return &HandoverGormRepository{db}
}

// Create implements handover.Repository.
func (repo *HandoverGormRepository) Create(ctx context.Context, req *handover.Request) error {
	model := dbschema.NewSchemaHandoverRequest(req)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create handover request")
	}
	req.ID = model.ID
	req.CreatedAt = model.CreatedAt
	req.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID implements handover.Repository.
func (repo *HandoverGormRepository) FindByID(ctx context.Context, id uint) (*handover.Request, error) {
	var model dbschema.HandoverRequest
	err := repo.db.GetTx(ctx).WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewNotFound(ctx, "handover request not found")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find handover request")
	}
	return model.EtoD(), nil
}

// FindByPublicID implements handover.Repository.
func (repo *HandoverGormRepository) FindByPublicID(ctx context.Context, publicID string) (*handover.Request, error) {
	var model dbschema.HandoverRequest
	err := repo.db.GetTx(ctx).WithContext(ctx).Where("public_id = ?", publicID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewNotFound(ctx, "handover request not found")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find handover request")
	}
	return model.EtoD(), nil
}

// SetStatus implements handover.Repository. notified and completed both
// stamp completed_at: for this flow, a delivered notification is the end of
// the request's own lifecycle.
func (repo *HandoverGormRepository) SetStatus(ctx context.Context, id uint, status handover.Status, errorMessage string) error {
	updates := map[string]any{
		"status":        status,
		"error_message": errorMessage,
	}
	if status == handover.StatusNotified || status == handover.StatusCompleted {
		updates["completed_at"] = time.Now()
	}
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.HandoverRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to update handover status")
	}
	return nil
}

// MarkNotificationSent implements handover.Repository.
func (repo *HandoverGormRepository) MarkNotificationSent(ctx context.Context, id uint) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.HandoverRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"notification_sent":    true,
			"notification_sent_at": time.Now(),
		}).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to mark notification sent")
	}
	return nil
}

// MarkSMSSent implements handover.Repository.
func (repo *HandoverGormRepository) MarkSMSSent(ctx context.Context, id uint) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.HandoverRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sms_sent":    true,
			"sms_sent_at": time.Now(),
		}).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to mark sms sent")
	}
	return nil
}

// RecordWebhookResult implements handover.Repository. The body is truncated
// before it is stored.
func (repo *HandoverGormRepository) RecordWebhookResult(ctx context.Context, id uint, url string, statusCode int, body string) error {
	if len(body) > 1000 {
		body = body[:1000]
	}
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.HandoverRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"webhook_url":           url,
			"webhook_response_code": statusCode,
			"webhook_response_body": body,
		}).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to record webhook result")
	}
	return nil
}

// IncrementWebhookRetry implements handover.Repository.
func (repo *HandoverGormRepository) IncrementWebhookRetry(ctx context.Context, id uint) (int, error) {
	tx := repo.db.GetTx(ctx).WithContext(ctx)
	err := tx.Model(&dbschema.HandoverRequest{}).
		Where("id = ?", id).
		Update("webhook_retry_count", gorm.Expr("webhook_retry_count + 1")).Error
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to increment webhook retry count")
	}
	var model dbschema.HandoverRequest
	if err := tx.Select("webhook_retry_count").First(&model, id).Error; err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to read webhook retry count")
	}
	return model.WebhookRetryCount, nil
}

// HasRecentActiveWhatsApp implements handover.Repository. A client counts
// as busy when a recent WhatsApp request reached notified or completed and
// its conversation is still active and handed off.
func (repo *HandoverGormRepository) HasRecentActiveWhatsApp(ctx context.Context, clientID uint, since time.Time) (bool, error) {
	var count int64
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.HandoverRequest{}).
		Joins("JOIN handover_api.conversations AS conversations ON conversations.id = handover_requests.conversation_id").
		Where("handover_requests.client_id = ?", clientID).
		Where("handover_requests.method = ?", handover.MethodWhatsApp).
		Where("handover_requests.status IN ?", []handover.Status{handover.StatusNotified, handover.StatusCompleted}).
		Where("handover_requests.updated_at >= ?", since).
		Where("conversations.status = ? AND conversations.agent_handoff = ?", conversation.StatusActive, true).
		Count(&count).Error
	if err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to check agent availability")
	}
	return count > 0, nil
}

// OldestQueuedWhatsApp implements handover.Repository.
func (repo *HandoverGormRepository) OldestQueuedWhatsApp(ctx context.Context, clientID uint) (*handover.Request, error) {
	var model dbschema.HandoverRequest
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("client_id = ? AND method = ? AND status = ?", clientID, handover.MethodWhatsApp, handover.StatusQueued).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find queued handover")
	}
	return model.EtoD(), nil
}
