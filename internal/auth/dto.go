package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow-backend/pkg/db/models"
	"github.com/orderflow/orderflow-backend/pkg/enums"
)

// RegisterInput carries the validated registration payload.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    *string
}

// LoginInput carries the validated login payload.
type LoginInput struct {
	Email    string
	Password string
}

// UserDTO is the identity view returned after register/login.
type UserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	FullName  string         `json:"full_name"`
	Phone     *string        `json:"phone,omitempty"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session pairs a minted access token with its user.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserDTO   `json:"user"`
}

func toUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
