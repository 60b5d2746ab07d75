package api

import "time"

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// AuthResponse is returned on a successful login.
type AuthResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	Subject   string    `json:"subject"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"required,email"`
	Gender   string `json:"gender"`
}

// RegisterResponse confirms a newly created account.
type RegisterResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// IdentityResponse is the public view of the caller returned by /auth/me.
type IdentityResponse struct {
	Subject string   `json:"subject"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles"`
}

// ChangePasswordRequest is the body of PUT /api/v1/users/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// UpdateProfileRequest is the body of PUT /api/v1/users/me.
// The username is not part of the profile: issued tokens carry it.
type UpdateProfileRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Gender string `json:"gender"`
}

// SetRolesRequest is the body of PUT /api/v1/users/{username}/roles.
type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

// SetEnabledRequest is the body of PUT /api/v1/users/{username}/enabled.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// UserResponse is an account as returned to administrators and to the
// account owner.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Gender    string    `json:"gender,omitempty"`
	Roles     []string  `json:"roles"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// UserList wraps a list of accounts.
type UserList struct {
	Object string         `json:"object"`
	Data   []UserResponse `json:"data"`
}
