package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegisterRequest struct {
	Email    string  `json:"email"    validate:"required,email"`
	FullName string  `json:"fullName" validate:"required,min=2,max=120"`
	Phone    *string `json:"phone"    validate:"omitempty,max=30"`
	Password string  `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type CreateStaffRequest struct {
	Email    string  `json:"email"    validate:"required,email"`
	FullName string  `json:"fullName" validate:"required,min=2,max=120"`
	Phone    *string `json:"phone"    validate:"omitempty,max=30"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     string  `json:"role"     validate:"required,oneof=client pharmacist admin"`
}

// UpdateUserRequest deliberately has no role field: roles are immutable.
type UpdateUserRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=2,max=120"`
	Phone    *string `json:"phone"    validate:"omitempty,max=30"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type UserFilter struct {
	Role            string `form:"role"`
	IncludeInactive bool   `form:"includeInactive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"fullName"`
	Phone    *string `json:"phone,omitempty"`
	Role     string  `json:"role"`
	Active   bool    `json:"active"`
}

type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int          `json:"expiresIn"` // seconds
	User         UserResponse `json:"user"`
}
