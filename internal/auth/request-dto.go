package auth

// login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required,min=8" validate:"required,min=8"`
}

// guest self-registration payload
type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required,min=2,max=100" validate:"required,min=2,max=100"`
	LastName  string `json:"last_name" binding:"required,min=2,max=100" validate:"required,min=2,max=100"`
	Email     string `json:"email" binding:"required,email" validate:"required,email"`
	Password  string `json:"password" binding:"required,min=8" validate:"required,min=8"`
}

// staff account payload, admin only
type CreateStaffRequest struct {
	RegisterRequest
	Role string `json:"role" binding:"required,oneof=STAFF ADMIN" validate:"required,oneof=STAFF ADMIN"`
}

// represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required" validate:"required"`
}

// represents change password request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required" validate:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8" validate:"required,min=8"`
}
