package usagerepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"livechat-server/handover-api/internal/domain/usage"
	"livechat-server/handover-api/internal/infrastructure/database/dbschema"
	"livechat-server/handover-api/internal/infrastructure/database/transaction"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

type UsageGormRepository struct {
	db *transaction.Database
}

var _ usage.Repository = (*UsageGormRepository)(nil)

func NewUsageGormRepository(db *transaction.Database) usage.Repository {
	return &UsageGormRepository{db}
}

// Create implements usage.Repository.
func (repo *UsageGormRepository) Create(ctx context.Context, rec *usage.Record) error {
	model := dbschema.NewSchemaMessageUsage(rec)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create usage record")
	}
	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	return nil
}

// SummarizeByClient implements usage.Repository.
func (repo *UsageGormRepository) SummarizeByClient(ctx context.Context, clientID uint, since time.Time) (*usage.Summary, error) {
	var row struct {
		MessageCount int64
		TotalPrice   decimal.Decimal
	}
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.MessageUsage{}).
		Select("COUNT(*) AS message_count, COALESCE(SUM(price), 0) AS total_price").
		Where("client_id = ? AND created_at >= ?", clientID, since).
		Scan(&row).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to summarize usage")
	}
	return &usage.Summary{
		ClientID:     clientID,
		MessageCount: row.MessageCount,
		TotalPrice:   row.TotalPrice,
	}, nil
}
