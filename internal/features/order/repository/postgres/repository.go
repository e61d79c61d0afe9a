package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"avastore-backend/internal/features/order/models"
	"avastore-backend/internal/features/order/repository"
)

const orderColumns = `id, user_id, COALESCE(status, 'pending'), total_amount, COALESCE(shipping_address, ''),
	COALESCE(payment_method, 'cash'), COALESCE(payment_status, 'pending'), created_at, updated_at`

type postgresRepository struct {
	db *sql.DB
}

type postgresTransaction struct {
	tx *sql.Tx
}

func (t *postgresTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTransaction) Rollback() error {
	return t.tx.Rollback()
}

func NewPostgresRepository(db *sql.DB) repository.OrderRepository {
	return &postgresRepository{db: db}
}

// BeginTx открывает транзакцию read committed; от гонок защищают блокировки строк
func (r *postgresRepository) BeginTx(ctx context.Context) (repository.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTransaction{tx: tx}, nil
}

func sqlTx(tx repository.Transaction) (*sql.Tx, error) {
	postgresTx, ok := tx.(*postgresTransaction)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return postgresTx.tx, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddress,
		&o.PaymentMethod, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetCartLinesForUpdate: строки блокируются в порядке product_id, поэтому
// параллельные оформления с общими товарами не дедлокаются
func (r *postgresRepository) GetCartLinesForUpdate(ctx context.Context, tx repository.Transaction, userID int64) ([]models.CartLine, error) {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT c.id, c.product_id, p.name, c.quantity, p.price, COALESCE(p.stock, 0)
		FROM cart c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.product_id
		FOR UPDATE`

	rows, err := sqlTx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart lines: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.CartID, &l.ProductID, &l.Name, &l.Quantity, &l.Price, &l.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart lines: %w", err)
	}
	return lines, nil
}

func (r *postgresRepository) CreateOrderTx(ctx context.Context, tx repository.Transaction, order *models.Order) error {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (user_id, status, total_amount, shipping_address, payment_method, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = sqlTx.QueryRowContext(ctx, query,
		order.UserID, order.Status, order.TotalAmount, order.ShippingAddress,
		order.PaymentMethod, order.PaymentStatus,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *postgresRepository) CreateOrderItemTx(ctx context.Context, tx repository.Transaction, item *models.OrderItem) error {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err = sqlTx.QueryRowContext(ctx, query, item.OrderID, item.ProductID, item.Quantity, item.Price).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}
	return nil
}

func (r *postgresRepository) DecrementStockTx(ctx context.Context, tx repository.Transaction, productID int64, quantity int) (bool, error) {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return false, err
	}

	res, err := sqlTx.ExecContext(ctx,
		`UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *postgresRepository) ClearCartTx(ctx context.Context, tx repository.Transaction, userID int64) error {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return err
	}

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM cart WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	orders := []models.Order{*order}
	if err := loadItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if err := loadItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems подтягивает позиции заказов одним запросом
func loadItems(ctx context.Context, q querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.created_at,
			p.name, COALESCE(p.images, '{}')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`

	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item   models.OrderItem
			name   sql.NullString
			images []string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price,
			&item.CreatedAt, &name, pq.Array(&images)); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if name.Valid {
			item.Product = &models.ProductRef{ID: item.ProductID, Name: name.String, Images: images}
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

func (r *postgresRepository) GetByIDForUpdate(ctx context.Context, tx repository.Transaction, orderID int64) (*models.Order, error) {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}

	order, err := scanOrder(sqlTx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return order, nil
}

func (r *postgresRepository) UpdateStatusTx(ctx context.Context, tx repository.Transaction, orderID int64, status models.Status) error {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return err
	}

	res, err := sqlTx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return repository.ErrOrderNotFound
	}
	return nil
}
