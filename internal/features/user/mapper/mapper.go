package mapper

import "avastore-backend/internal/features/user/models"

// ToUserResponse maps User model to UserResponse DTO
func ToUserResponse(user *models.User) *models.UserResponse {
	return &models.UserResponse{
		ID:         user.ID,
		TelegramID: user.TelegramID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Phone:      user.Phone,
		Email:      user.Email,
		Role:       user.Role,
		CreatedAt:  user.CreatedAt,
	}
}
