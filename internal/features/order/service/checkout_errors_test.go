package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "avastore-backend/internal/common/errors"
	authmodels "avastore-backend/internal/features/auth/models"
	"avastore-backend/internal/features/order/models"
	"avastore-backend/internal/features/order/repository"
)

type stubTx struct {
	committed  bool
	rolledBack bool
}

func (tx *stubTx) Commit() error {
	tx.committed = true
	return nil
}

func (tx *stubTx) Rollback() error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

// stubRepo: списание и ожидание блокировок задаются полями
type stubRepo struct {
	tx         *stubTx
	lines      []models.CartLine
	decrement  bool
	waitOnLock bool
	cleared    bool
	order      *models.Order
}

// statementCanceled повторяет ответ Postgres на отмену запроса драйвером
func statementCanceled() error {
	return &pq.Error{Code: "57014", Message: "canceling statement due to user request"}
}

func (r *stubRepo) BeginTx(context.Context) (repository.Transaction, error) {
	r.tx = &stubTx{}
	return r.tx, nil
}

func (r *stubRepo) GetCartLinesForUpdate(ctx context.Context, _ repository.Transaction, _ int64) ([]models.CartLine, error) {
	if r.waitOnLock {
		<-ctx.Done()
		return nil, fmt.Errorf("failed to lock cart lines: %w", statementCanceled())
	}
	return r.lines, nil
}

func (r *stubRepo) CreateOrderTx(_ context.Context, _ repository.Transaction, order *models.Order) error {
	order.ID = 42
	return nil
}

func (r *stubRepo) CreateOrderItemTx(context.Context, repository.Transaction, *models.OrderItem) error {
	return nil
}

func (r *stubRepo) DecrementStockTx(context.Context, repository.Transaction, int64, int) (bool, error) {
	return r.decrement, nil
}

func (r *stubRepo) ClearCartTx(context.Context, repository.Transaction, int64) error {
	r.cleared = true
	return nil
}

func (r *stubRepo) GetByID(context.Context, int64) (*models.Order, error) {
	if r.order == nil {
		return nil, repository.ErrOrderNotFound
	}
	return r.order, nil
}

func (r *stubRepo) ListByUser(context.Context, int64) ([]models.Order, error) {
	return nil, nil
}

func (r *stubRepo) GetByIDForUpdate(ctx context.Context, _ repository.Transaction, _ int64) (*models.Order, error) {
	if r.waitOnLock {
		<-ctx.Done()
		return nil, fmt.Errorf("failed to lock order: %w", statementCanceled())
	}
	return r.order, nil
}

func (r *stubRepo) UpdateStatusTx(context.Context, repository.Transaction, int64, models.Status) error {
	return nil
}

func mugLine() models.CartLine {
	return models.CartLine{CartID: 1, ProductID: 7, Name: "Кружка", Quantity: 2, Price: decimal.RequireFromString("350"), Stock: 2}
}

func TestCheckout_StockTakenDuringDecrement(t *testing.T) {
	repo := &stubRepo{lines: []models.CartLine{mugLine()}, decrement: false}
	publisher := &recordingPublisher{}
	service := NewOrderService(repo, nil, publisher, nil, Options{}, zap.NewNop())

	_, err := service.Checkout(context.Background(), 1, models.CheckoutInput{})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
	assert.Equal(t, apperrors.KindConflict, appErr.Kind())
	assert.Equal(t, "Insufficient stock for Кружка", appErr.Message)

	assert.False(t, repo.tx.committed)
	assert.True(t, repo.tx.rolledBack)
	assert.False(t, repo.cleared)
	assert.Empty(t, publisher.Events())
}

func TestCheckout_CanceledStatementIsTimeout(t *testing.T) {
	repo := &stubRepo{waitOnLock: true}
	service := NewOrderService(repo, nil, nil, nil, Options{TxTimeout: 20 * time.Millisecond}, zap.NewNop())

	_, err := service.Checkout(context.Background(), 1, models.CheckoutInput{})

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, err)
	assert.Equal(t, apperrors.ErrCodeTimeout, appErr.Code)
	assert.True(t, appErr.Retryable())
	assert.False(t, repo.tx.committed)
}

func TestUpdateStatus_CanceledStatementIsTimeout(t *testing.T) {
	repo := &stubRepo{waitOnLock: true}
	service := NewOrderService(repo, nil, nil, nil, Options{TxTimeout: 20 * time.Millisecond}, zap.NewNop())

	admin := &authmodels.Identity{UserID: 1, IsAdmin: true}
	_, err := service.UpdateStatus(context.Background(), admin, 42, "shipped")

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTimeout), err)
}

func TestCheckout_DriverErrorWithLiveContextIsDatabaseError(t *testing.T) {
	repo := &failingLinesRepo{stubRepo: stubRepo{}}
	service := NewOrderService(repo, nil, nil, nil, Options{}, zap.NewNop())

	_, err := service.Checkout(context.Background(), 1, models.CheckoutInput{})

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseError), err)
}

type failingLinesRepo struct {
	stubRepo
}

func (r *failingLinesRepo) GetCartLinesForUpdate(context.Context, repository.Transaction, int64) ([]models.CartLine, error) {
	return nil, statementCanceled()
}
