package payouts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftworkhq/settlement-backend/pkg/db/models"
)

// Resolver returns a seller's verified payout destination, or "" when the
// seller has none. Release is deferred in that case, never dropped.
type Resolver interface {
	Destination(ctx context.Context, sellerID uuid.UUID) (string, error)
}

// Repository persists payout accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.PayoutAccount, error)
	Upsert(ctx context.Context, account *models.PayoutAccount) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout account repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.PayoutAccount, error) {
	var account models.PayoutAccount
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Upsert(ctx context.Context, account *models.PayoutAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// RepoResolver resolves destinations from stored payout accounts,
// ignoring unverified ones.
type RepoResolver struct {
	repo Repository
}

func NewRepoResolver(repo Repository) *RepoResolver {
	return &RepoResolver{repo: repo}
}

var _ Resolver = (*RepoResolver)(nil)

func (r *RepoResolver) Destination(ctx context.Context, sellerID uuid.UUID) (string, error) {
	account, err := r.repo.GetBySellerID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if !account.Verified {
		return "", nil
	}
	return account.Destination, nil
}
