package models

import "time"

// User is a local identity. Federated-only users have no PasswordHash; local
// users have no Provider/ProviderSubject.
type User struct {
	ID              uint
	Username        string
	PasswordHash    *string
	Provider        *string
	ProviderSubject *string
	DisplayName     string
	Email           string
	Profile         map[string]interface{}
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPassword reports whether the user can log in with a local password.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// ExternalProfile is an identity assertion already verified by an OAuth provider.
type ExternalProfile struct {
	Provider    string
	Subject     string
	Username    string
	DisplayName string
	Email       string
	AvatarURL   string
}
