package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/pkg/db/models"
	"github.com/craftworkhq/settlement-backend/pkg/enums"
)

// Repository manages persistence for milestone ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.Milestone) error
	GetByOrderAndStage(ctx context.Context, orderID uuid.UUID, stage enums.MilestoneStage) (*models.Milestone, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error)
	ListByStatuses(ctx context.Context, orderID uuid.UUID, statuses []enums.MilestonePaymentStatus) ([]models.Milestone, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MilestonePaymentStatus, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.Milestone) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) GetByOrderAndStage(ctx context.Context, orderID uuid.UUID, stage enums.MilestoneStage) (*models.Milestone, error) {
	// Failed attempts may coexist with the successful retry; the newest row
	// is the stage's current state.
	var entry models.Milestone
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND stage = ?", orderID, stage).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Milestone, error) {
	var entries []models.Milestone
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByStatuses(ctx context.Context, orderID uuid.UUID, statuses []enums.MilestonePaymentStatus) ([]models.Milestone, error) {
	var entries []models.Milestone
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND payment_status IN ?", orderID, statuses).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.MilestonePaymentStatus, updates map[string]any) error {
	values := map[string]any{"payment_status": status}
	for k, v := range updates {
		values[k] = v
	}
	return r.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("id = ?", id).
		Updates(values).Error
}
