package memory

import (
	"context"
	"time"

	"avastore-backend/internal/features/user/models"
	"avastore-backend/internal/features/user/repository"
	"avastore-backend/internal/platform/memory"
)

type memoryRepository struct {
	store *memory.Store
}

func NewMemoryRepository(store *memory.Store) repository.UserRepository {
	return &memoryRepository{store: store}
}

func (r *memoryRepository) users() *memory.Table[models.User] {
	return memory.GetTable[models.User](r.store, memory.TableUsers)
}

func (r *memoryRepository) findByTelegramID(telegramID int64) (models.User, bool) {
	found := r.users().Scan(func(u models.User) bool { return u.TelegramID == telegramID })
	if len(found) == 0 {
		return models.User{}, false
	}
	return found[0], true
}

func (r *memoryRepository) UpsertTelegram(ctx context.Context, profile models.TelegramProfile) (*models.User, error) {
	var result models.User
	err := r.store.Do(ctx, func() error {
		now := time.Now()
		user, ok := r.findByTelegramID(profile.TelegramID)
		if !ok {
			user = models.User{
				ID:         r.users().NextID(),
				TelegramID: profile.TelegramID,
				Role:       models.RoleCustomer,
				CreatedAt:  now,
			}
		}
		user.Username = profile.Username
		user.FirstName = profile.FirstName
		user.LastName = profile.LastName
		user.UpdatedAt = now

		r.users().Put(user.ID, user)
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var result models.User
	err := r.store.Do(ctx, func() error {
		user, ok := r.users().Get(id)
		if !ok {
			return repository.ErrUserNotFound
		}
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memoryRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var result models.User
	err := r.store.Do(ctx, func() error {
		user, ok := r.findByTelegramID(telegramID)
		if !ok {
			return repository.ErrUserNotFound
		}
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *memoryRepository) UpdateProfile(ctx context.Context, id int64, update models.ProfileUpdate) (*models.User, error) {
	var result models.User
	err := r.store.Do(ctx, func() error {
		user, ok := r.users().Get(id)
		if !ok {
			return repository.ErrUserNotFound
		}
		if update.Phone != nil {
			phone := *update.Phone
			user.Phone = &phone
		}
		if update.Email != nil {
			email := *update.Email
			user.Email = &email
		}
		user.UpdatedAt = time.Now()

		r.users().Put(id, user)
		result = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Seed кладет пользователя как есть; используется тестами и демо-данными
func Seed(store *memory.Store, user models.User) models.User {
	users := memory.GetTable[models.User](store, memory.TableUsers)
	if user.ID == 0 {
		user.ID = users.NextID()
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
		user.UpdatedAt = user.CreatedAt
	}
	users.Put(user.ID, user)
	return user
}
