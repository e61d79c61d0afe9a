package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"avastore-backend/internal/features/catalog/models"
	"avastore-backend/internal/features/catalog/repository"
)

const productColumns = `id, name, COALESCE(description, ''), price, old_price, COALESCE(stock, 0), sku,
	category_id, seller_id, COALESCE(images, '{}'), COALESCE(rating, 0), COALESCE(reviews_count, 0),
	COALESCE(is_active, true), created_at, updated_at`

const categoryColumns = `id, name, slug, description, image_url, parent_id, created_at, updated_at`

// код ошибки unique_violation
const uniqueViolation = "23505"

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

func NewPostgresRepository(db *sql.DB) repository.CatalogRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) BeginTx(ctx context.Context) (repository.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner, extra ...interface{}) (*models.Product, error) {
	var p models.Product
	dest := []interface{}{
		&p.ID, &p.Name, &p.Description, &p.Price, &p.OldPrice, &p.Stock, &p.SKU,
		&p.CategoryID, &p.SellerID, pq.Array(&p.Images), &p.Rating, &p.ReviewsCount,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanCategory(row rowScanner, extra ...interface{}) (*models.Category, error) {
	var c models.Category
	dest := []interface{}{
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL, &c.ParentID, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	selectSQL, countSQL, args := buildListQuery(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, selectSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, total, nil
}

func (r *postgresRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `
		SELECT p.id, p.name, COALESCE(p.description, ''), p.price, p.old_price, COALESCE(p.stock, 0), p.sku,
			p.category_id, p.seller_id, COALESCE(p.images, '{}'), COALESCE(p.rating, 0), COALESCE(p.reviews_count, 0),
			COALESCE(p.is_active, true), p.created_at, p.updated_at,
			c.name, u.username
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		LEFT JOIN users u ON p.seller_id = u.id
		WHERE p.id = $1 AND p.is_active = true
	`

	var categoryName, sellerUsername sql.NullString
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id), &categoryName, &sellerUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if categoryName.Valid {
		p.CategoryName = &categoryName.String
	}
	if sellerUsername.Valid {
		p.SellerUsername = &sellerUsername.String
	}
	return p, nil
}

func (r *postgresRepository) GetProductSeller(ctx context.Context, id int64) (*int64, error) {
	var sellerID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT seller_id FROM products WHERE id = $1`, id).Scan(&sellerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product seller: %w", err)
	}
	if !sellerID.Valid {
		return nil, nil
	}
	return &sellerID.Int64, nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, sellerID int64, input models.CreateProductInput) (*models.Product, error) {
	query := `
		INSERT INTO products (name, description, price, old_price, stock, sku, category_id, seller_id, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + productColumns

	images := input.Images
	if images == nil {
		images = []string{}
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, query,
		input.Name, input.Description, input.Price, nullDecimal(input.OldPrice), input.Stock,
		input.SKU, input.CategoryID, sellerID, pq.Array(images)))
	if err != nil {
		return nil, mapWriteError(err, "create product")
	}
	return p, nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, id int64, input models.UpdateProductInput) (*models.Product, error) {
	query := `
		UPDATE products
		SET name = COALESCE($1, name),
			description = COALESCE($2, description),
			price = COALESCE($3, price),
			old_price = COALESCE($4, old_price),
			stock = COALESCE($5, stock),
			sku = COALESCE($6, sku),
			category_id = COALESCE($7, category_id),
			images = COALESCE($8, images),
			is_active = COALESCE($9, is_active),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $10
		RETURNING ` + productColumns

	var images interface{}
	if input.Images != nil {
		images = pq.Array(input.Images)
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, query,
		input.Name, input.Description, nullDecimal(input.Price), nullDecimal(input.OldPrice), input.Stock,
		input.SKU, input.CategoryID, images, input.IsActive, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrProductNotFound
		}
		return nil, mapWriteError(err, "update product")
	}
	return p, nil
}

func (r *postgresRepository) ListRootCategories(ctx context.Context) ([]models.Category, error) {
	query := `
		SELECT c.id, c.name, c.slug, c.description, c.image_url, c.parent_id, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM products WHERE category_id = c.id AND is_active = true)
		FROM categories c
		WHERE c.parent_id IS NULL
		ORDER BY c.name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var count int
		c, err := scanCategory(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.ProductsCount = count
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *postgresRepository) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *postgresRepository) ListSubcategories(ctx context.Context, parentID int64) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *postgresRepository) ListReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	query := `
		SELECT rv.id, rv.product_id, rv.user_id, COALESCE(u.username, ''), rv.rating,
			COALESCE(rv.comment, ''), rv.created_at, rv.updated_at
		FROM reviews rv
		LEFT JOIN users u ON rv.user_id = u.id
		WHERE rv.product_id = $1
		ORDER BY rv.created_at DESC, rv.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Username, &rv.Rating,
			&rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *postgresRepository) CreateReviewTx(ctx context.Context, tx repository.Transaction, review *models.Review) error {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reviews (product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err = sqlTx.QueryRowContext(ctx, query, review.ProductID, review.UserID, review.Rating, review.Comment).
		Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *postgresRepository) RefreshRatingTx(ctx context.Context, tx repository.Transaction, productID int64) error {
	sqlTx, err := sqlTx(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE products p
		SET rating = COALESCE(s.avg_rating, 0),
			reviews_count = s.cnt,
			updated_at = CURRENT_TIMESTAMP
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 2) AS avg_rating, COUNT(*) AS cnt
			FROM reviews WHERE product_id = $1
		) s
		WHERE p.id = $1
	`
	result, err := sqlTx.ExecContext(ctx, query, productID)
	if err != nil {
		return fmt.Errorf("failed to refresh rating: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repository.ErrProductNotFound
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}

func mapWriteError(err error, operation string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrDuplicateSKU
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}
