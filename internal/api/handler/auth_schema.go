package handler

import (
	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
)

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Username string `json:"username" validate:"omitempty,min=3,max=50,excludes=@"`
	Role     string `json:"role"     validate:"omitempty,oneof=user psychologist"`

	Name           string `json:"name"           validate:"max=100"`
	Address        string `json:"address"        validate:"max=200"`
	Phone          string `json:"phone"          validate:"max=30"`
	Bio            string `json:"bio"            validate:"max=2000"`
	Specialization string `json:"specialization" validate:"excluded_unless=Role psychologist,max=100"`
	LicenseNumber  string `json:"license_number" validate:"excluded_unless=Role psychologist,max=50"`
}

func (r signupRequest) toInput() ports.SignupInput {
	return ports.SignupInput{
		Email:    r.Email,
		Password: r.Password,
		Username: r.Username,
		Role:     domain.Role(r.Role),
		Profile: domain.Profile{
			Name:           r.Name,
			Address:        r.Address,
			Phone:          r.Phone,
			Bio:            r.Bio,
			Specialization: r.Specialization,
			LicenseNumber:  r.LicenseNumber,
		},
	}
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// loginResponse carries the session token; expiresIn is in milliseconds.
type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
	Role      string `json:"role"`
}

type principalListResponse struct {
	Items  []*domain.Principal `json:"items"`
	Total  int64               `json:"total"`
	Offset int                 `json:"offset"`
	Limit  int                 `json:"limit"`
}
