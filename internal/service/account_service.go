package service

import (
	"context"

	"coinledger/internal/model"
	"coinledger/internal/repository"

	"gorm.io/gorm"
)

type AccountService struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// GetAccount 查询账户，不存在则隐式开户
func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	return s.accountRepo.GetOrCreate(ctx, nil, userID)
}

// ListTransactions 分页查询账户流水
func (s *AccountService) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.CoinTransaction, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}
	return s.transactionRepo.ListByUserID(ctx, userID, page, pageSize)
}
