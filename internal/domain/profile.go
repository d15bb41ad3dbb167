package domain

import "time"

// Role names stored on profiles and carried in JWT claims.
const (
	RoleAdmin      = "admin"
	RoleConsultant = "consultant"
	RoleManager    = "manager"
)

// ValidRole reports whether role is one of the known role names.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleConsultant, RoleManager:
		return true
	}
	return false
}

// Profile is the HR-facing record for a user: name, role, client assignment.
// Credentials live on Account; the two are linked by UserID.
type Profile struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Name      string    `json:"name" dynamodbav:"name"`
	Email     string    `json:"email" dynamodbav:"email"`
	Role      string    `json:"role" dynamodbav:"role"`
	Active    bool      `json:"active" dynamodbav:"active"`
	ClientID  *string   `json:"client_id,omitempty" dynamodbav:"client_id"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Account is the credential record owned by the identity service.
type Account struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed bool      `json:"email_confirmed" dynamodbav:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// CreateUserRequest is the admin create-or-reinvite payload.
type CreateUserRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Role     string  `json:"role" validate:"required"`
	ClientID *string `json:"client_id"`
}
