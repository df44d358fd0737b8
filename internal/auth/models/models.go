package models

import (
	"time"

	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/email"
)

// MinPasswordLength matches what the hosted identity provider enforced.
const MinPasswordLength = 6

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ID    string
	Email string
}

// Credentials is the body of register and login requests.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims and lowercases the email.
func (c *Credentials) Normalize() {
	c.Email = email.Normalize(c.Email)
}

// Validate checks the shape of the credentials, not their correctness.
func (c *Credentials) Validate() error {
	if c.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !email.IsValid(c.Email) {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if len(c.Password) < MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 6 characters")
	}
	return nil
}

// TokenResult is returned by a successful login.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ToResponse strips private fields.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
