package widgetrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"livechat-server/handover-api/internal/domain/widget"
	"livechat-server/handover-api/internal/infrastructure/database/dbschema"
	"livechat-server/handover-api/internal/infrastructure/database/transaction"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

type WidgetGormRepository struct {
	db *transaction.Database
}

var _ widget.Repository = (*WidgetGormRepository)(nil)

func NewWidgetGormRepository(db *transaction.Database) widget.Repository {
	return &WidgetGormRepository{db}
}

// FindByID implements widget.Repository.
func (repo *WidgetGormRepository) FindByID(ctx context.Context, id uint) (*widget.Config, error) {
	var model dbschema.WidgetConfig
	err := repo.db.GetTx(ctx).WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewNotFound(ctx, "widget config not found")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find widget config")
	}
	return model.EtoD(), nil
}

// FindByKey implements widget.Repository.
func (repo *WidgetGormRepository) FindByKey(ctx context.Context, key string) (*widget.Config, error) {
	var model dbschema.WidgetConfig
	err := repo.db.GetTx(ctx).WithContext(ctx).Where("widget_key = ?", key).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewNotFound(ctx, "widget config not found")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to find widget config")
	}
	return model.EtoD(), nil
}

// UpdateHandoverConfig implements widget.Repository. Only the fields set on
// the update are written.
func (repo *WidgetGormRepository) UpdateHandoverConfig(ctx context.Context, widgetID uint, update widget.HandoverConfigUpdate) error {
	updates := map[string]any{}
	if update.EnableHandoverChoice != nil {
		updates["enable_handover_choice"] = *update.EnableHandoverChoice
	}
	if update.HandoverOptions != nil {
		updates["handover_options"] = dbschema.JSONHandoverOptions{HandoverOptions: *update.HandoverOptions}
	}
	if update.DefaultHandoverMethod != nil {
		updates["default_handover_method"] = *update.DefaultHandoverMethod
	}
	if update.WebhookURL != nil {
		updates["webhook_url"] = *update.WebhookURL
	}
	if update.WebhookSecret != nil {
		updates["webhook_secret"] = *update.WebhookSecret
	}
	if update.HandoverWhatsAppNumber != nil {
		updates["handover_whats_app_number"] = *update.HandoverWhatsAppNumber
	}
	if update.EnableMultipleWhatsAppChats != nil {
		updates["enable_multiple_whats_app_chats"] = *update.EnableMultipleWhatsAppChats
	}
	if len(updates) == 0 {
		return nil
	}

	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.WidgetConfig{}).
		Where("id = ?", widgetID).
		Updates(updates).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to update handover config")
	}
	return nil
}
