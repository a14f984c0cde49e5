package models

import "time"

// UserResult is the public view of an account.
type UserResult struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserResult(u *User) *UserResult {
	return &UserResult{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Image:     u.Image,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// MessageResult carries a human readable status, e.g. the generic
// forgot-password acknowledgement.
type MessageResult struct {
	Message string `json:"message"`
}
