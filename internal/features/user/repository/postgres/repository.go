package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"avastore-backend/internal/features/user/models"
	"avastore-backend/internal/features/user/repository"
)

const userColumns = `id, telegram_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	phone, email, COALESCE(role, 'customer'), created_at, updated_at`

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.UserRepository {
	return &postgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user         models.User
		phone, email sql.NullString
	)
	err := row.Scan(&user.ID, &user.TelegramID, &user.Username, &user.FirstName, &user.LastName,
		&phone, &email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	if email.Valid {
		user.Email = &email.String
	}
	return &user, nil
}

// UpsertTelegram создает пользователя или обновляет его данные из Telegram
func (r *postgresRepository) UpsertTelegram(ctx context.Context, profile models.TelegramProfile) (*models.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query,
		profile.TelegramID, profile.Username, profile.FirstName, profile.LastName))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

// GetByID получает пользователя по ID
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByTelegramID получает пользователя по telegram_id
func (r *postgresRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram id: %w", err)
	}

	return user, nil
}

// UpdateProfile обновляет телефон и email; NULL оставляет прежнее значение
func (r *postgresRepository) UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error) {
	query := `
		UPDATE users
		SET phone = COALESCE($1, phone),
			email = COALESCE($2, email),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, update.Phone, update.Email, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}
