package repository

import (
	"context"

	"gorm.io/gorm"

	"golang-stock-scanner/internal/entity"
)

// AccountRepository reads per-account aggregation configuration.
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID string) (*entity.Account, error)
	GetAccountStrategies(ctx context.Context, accountID string) ([]entity.AccountStrategy, error)
	GetAccountsByStrategy(ctx context.Context, strategyID string) ([]entity.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetAccount(ctx context.Context, accountID string) (*entity.Account, error) {
	var account entity.Account
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetAccountStrategies(ctx context.Context, accountID string) ([]entity.AccountStrategy, error) {
	var strategies []entity.AccountStrategy
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("strategy_id ASC").
		Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

// GetAccountsByStrategy returns every account whose strategy set references
// the given strategy, used to fan out aggregation triggers after a scan.
func (r *accountRepository) GetAccountsByStrategy(ctx context.Context, strategyID string) ([]entity.Account, error) {
	var accounts []entity.Account
	err := r.db.WithContext(ctx).
		Distinct("accounts.*").
		Joins("JOIN account_strategies ON account_strategies.account_id = accounts.account_id").
		Where("account_strategies.strategy_id = ?", strategyID).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
