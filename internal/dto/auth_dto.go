package dto

import (
	"time"

	"github.com/JJediny/heimdall2/internal/models"
)

// LoginRequest is the body of a local username/password login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a local user account.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Email       string `json:"email" validate:"omitempty,email,max=255"`
	DisplayName string `json:"display_name" validate:"omitempty,max=255"`
}

// GitHubCallbackQuery carries the parameters GitHub appends to the callback URL.
type GitHubCallbackQuery struct {
	Code  string `query:"code"`
	State string `query:"state"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	HasPassword bool      `json:"has_password"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUserResponse converts a user model into its public DTO. Password hashes
// and provider profile snapshots are never exposed.
func NewUserResponse(user models.User) UserResponse {
	response := UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		HasPassword: user.HasPassword(),
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	if user.Provider != nil {
		response.Provider = *user.Provider
	}
	return response
}

// SessionResponse is returned by every successful login.
type SessionResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	IssuedAt    time.Time    `json:"issued_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
	UserID      uint         `json:"user_id"`
	User        UserResponse `json:"user"`
}
