package earnings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/craftworkhq/settlement-backend/pkg/db/models"
)

// Repository persists per-seller earning balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.SellerEarning, error)
	Upsert(ctx context.Context, earning *models.SellerEarning) error
	Get(ctx context.Context, sellerID uuid.UUID) (*models.SellerEarning, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an earnings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetForUpdate loads the seller's row with a row lock, creating a zero row
// when none exists yet.
func (r *repository) GetForUpdate(ctx context.Context, sellerID uuid.UUID) (*models.SellerEarning, error) {
	var earning models.SellerEarning
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("seller_id = ?", sellerID).
		First(&earning).Error
	if err == nil {
		return &earning, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	earning = models.SellerEarning{SellerID: sellerID}
	if err := r.db.WithContext(ctx).Create(&earning).Error; err != nil {
		return nil, err
	}
	return &earning, nil
}

func (r *repository) Upsert(ctx context.Context, earning *models.SellerEarning) error {
	return r.db.WithContext(ctx).Save(earning).Error
}

func (r *repository) Get(ctx context.Context, sellerID uuid.UUID) (*models.SellerEarning, error) {
	var earning models.SellerEarning
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&earning).Error
	if err != nil {
		return nil, err
	}
	return &earning, nil
}
