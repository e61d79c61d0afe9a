package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "avastore-backend/internal/common/errors"
	"avastore-backend/internal/common/validation"
	authmodels "avastore-backend/internal/features/auth/models"
	"avastore-backend/internal/features/order/models"
	"avastore-backend/internal/features/order/repository"
	"avastore-backend/internal/platform/redis"
)

// после коммита на инвалидацию кэша и публикацию события
const afterCommitTimeout = 3 * time.Second

type orderService struct {
	repo      repository.OrderRepository
	locker    Locker
	publisher Publisher
	cache     ProductCache
	opts      Options
	logger    *zap.Logger
}

// NewOrderService: locker, publisher и cache могут быть nil
func NewOrderService(repo repository.OrderRepository, locker Locker, publisher Publisher, cache ProductCache, opts Options, logger *zap.Logger) OrderService {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 5 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.DefaultPaymentMethod == "" {
		opts.DefaultPaymentMethod = "cash"
	}
	return &orderService{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		cache:     cache,
		opts:      opts,
		logger:    logger,
	}
}

func (s *orderService) Checkout(ctx context.Context, userID int64, input models.CheckoutInput) (*models.Order, error) {
	address := strings.TrimSpace(input.ShippingAddress)
	if address != "" {
		if err := validation.ValidateShippingAddress(address); err != nil {
			return nil, err
		}
	}
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method == "" {
		method = s.opts.DefaultPaymentMethod
	}
	if err := validation.ValidatePaymentMethod(method); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	if s.locker != nil {
		release, err := s.locker.Acquire(txCtx, "checkout:"+strconv.FormatInt(userID, 10), s.opts.LockTTL)
		switch {
		case errors.Is(err, redis.ErrLocked):
			return nil, apperrors.NewConflictError("order", "checkout is already in progress")
		case err != nil:
			// без блокировки корректность держится на блокировках строк
			s.logger.Warn("Checkout lock unavailable", zap.Int64("user_id", userID), zap.Error(err))
		default:
			defer release()
		}
	}

	order, err := s.checkout(txCtx, userID, address, method)
	if err != nil {
		return nil, s.mapError(txCtx, err, "checkout")
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)

	s.afterCommit(ctx, order, models.EventOrderCreated, productIDs(order)...)
	return order, nil
}

func (s *orderService) checkout(ctx context.Context, userID int64, address, method string) (*models.Order, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	lines, err := s.repo.GetCartLinesForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeEmptyCart, "Cart is empty")
	}

	total := decimal.Zero
	for _, line := range lines {
		if line.Stock < line.Quantity {
			return nil, insufficientStock(apperrors.ErrCodeInsufficientStock, line)
		}
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.StatusPending,
		TotalAmount:     total,
		ShippingAddress: address,
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentPending,
	}
	if err := s.repo.CreateOrderTx(ctx, tx, order); err != nil {
		return nil, err
	}

	order.Items = make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		}
		if err := s.repo.CreateOrderItemTx(ctx, tx, &item); err != nil {
			return nil, err
		}

		ok, err := s.repo.DecrementStockTx(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			// остаток успели разобрать между чтением и списанием
			return nil, insufficientStock(apperrors.ErrCodeConflict, line)
		}

		item.Product = &models.ProductRef{ID: line.ProductID, Name: line.Name}
		order.Items = append(order.Items, item)
	}

	if err := s.repo.ClearCartTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

func insufficientStock(code apperrors.ErrorCode, line models.CartLine) *apperrors.AppError {
	return apperrors.New(code, fmt.Sprintf("Insufficient stock for %s", line.Name)).
		WithDetail("product_id", line.ProductID).
		WithDetail("requested", line.Quantity).
		WithDetail("available", line.Stock)
}

func productIDs(order *models.Order) []int64 {
	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// afterCommit: ошибки только логируются, заказ уже сохранен
func (s *orderService) afterCommit(ctx context.Context, order *models.Order, eventType string, invalidate ...int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
	defer cancel()

	if s.cache != nil && len(invalidate) > 0 {
		if err := s.cache.InvalidateProducts(ctx, invalidate...); err != nil {
			s.logger.Warn("Failed to invalidate product cache", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}

	if s.publisher == nil {
		return
	}
	event := models.Event{
		EventID:     uuid.New().String(),
		Type:        eventType,
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		ItemsCount:  len(order.Items),
		Timestamp:   time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("type", eventType),
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func (s *orderService) List(ctx context.Context, userID int64) ([]models.Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.mapError(ctx, err, "list orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// Get отдает только заказ самого пользователя; чужой выглядит как отсутствующий
func (s *orderService) Get(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.mapError(ctx, err, "get order")
	}
	if order.UserID != userID {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodeOrderNotFound, "Order", orderID)
	}
	return order, nil
}

// UpdateStatus: покупатель может только отменить свой заказ, администратор любой
// разрешенный переход. Остатки при отмене не возвращаются.
func (s *orderService) UpdateStatus(ctx context.Context, actor *authmodels.Identity, orderID int64, raw string) (*models.Order, error) {
	next, err := models.ParseStatus(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("status", err.Error())
	}

	txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	current, err := s.updateStatus(txCtx, actor, orderID, next)
	if err != nil {
		return nil, s.mapError(txCtx, err, "update order status")
	}

	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(current)),
		zap.String("to", string(next)),
		zap.Int64("actor_id", actor.UserID),
	)

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.mapError(ctx, err, "get order")
	}
	s.afterCommit(ctx, order, models.EventOrderStatusChanged)
	return order, nil
}

func (s *orderService) updateStatus(ctx context.Context, actor *authmodels.Identity, orderID int64, next models.Status) (models.Status, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	order, err := s.repo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return "", err
	}

	if !actor.IsAdmin {
		if order.UserID != actor.UserID {
			return "", repository.ErrOrderNotFound
		}
		if next != models.StatusCancelled {
			return "", apperrors.NewForbiddenError("customers may only cancel their orders")
		}
	}

	if !order.Status.CanTransitionTo(next) {
		return "", apperrors.New(apperrors.ErrCodeInvalidStatusTransition,
			fmt.Sprintf("Cannot change order status from %s to %s", order.Status, next)).
			WithDetail("from", order.Status).
			WithDetail("to", next)
	}

	if err := s.repo.UpdateStatusTx(ctx, tx, orderID, next); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit status change: %w", err)
	}
	return order.Status, nil
}

// mapError: ctx это контекст операции. Драйвер при отмене по дедлайну может вернуть
// свою ошибку (pq 57014) вместо ctx.Err(), поэтому таймаут определяется по ctx.
func (s *orderService) mapError(ctx context.Context, err error, operation string) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return apperrors.New(apperrors.ErrCodeOrderNotFound, "Order not found")
	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(operation, err)
	default:
		return apperrors.NewDatabaseError(operation, err)
	}
}
