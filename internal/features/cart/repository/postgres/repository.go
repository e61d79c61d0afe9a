package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"avastore-backend/internal/features/cart/models"
	"avastore-backend/internal/features/cart/repository"
)

const cartSelect = `
	SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		p.name, p.price, COALESCE(p.images, '{}'), COALESCE(p.stock, 0)
	FROM cart c
	JOIN products p ON p.id = c.product_id`

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.CartRepository {
	return &postgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.CartItem, error) {
	var item models.CartItem
	err := row.Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
		&item.Name, &item.Price, pq.Array(&item.Images), &item.Stock,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID int64) ([]models.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, cartSelect+` WHERE c.user_id = $1 ORDER BY c.created_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart: %w", err)
	}
	return items, nil
}

func (r *postgresRepository) get(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, cartSelect+` WHERE c.id = $1 AND c.user_id = $2`, itemID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrCartItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return item, nil
}

// Add: xmax = 0 только у строки, вставленной этим же запросом
func (r *postgresRepository) Add(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, bool, error) {
	query := `
		INSERT INTO cart (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, (xmax = 0)`

	var (
		id      int64
		created bool
	)
	if err := r.db.QueryRowContext(ctx, query, userID, productID, quantity).Scan(&id, &created); err != nil {
		return nil, false, fmt.Errorf("failed to add cart item: %w", err)
	}

	item, err := r.get(ctx, userID, id)
	if err != nil {
		return nil, false, err
	}
	return item, created, nil
}

func (r *postgresRepository) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart SET quantity = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
		quantity, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return nil, repository.ErrCartItemNotFound
	}

	return r.get(ctx, userID, itemID)
}

func (r *postgresRepository) Delete(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart WHERE id = $1 AND user_id = $2`, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrCartItemNotFound
	}
	return nil
}
