package authapi

import (
	"time"

	"brandhub/cmd/identity"
	"brandhub/cmd/internal/principal"

	"github.com/google/uuid"
)

type loginRequest struct {
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Password    string `json:"password"`
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Password    string `json:"password"`
	// Role is honored for users only.
	Role string `json:"role,omitempty"`
}

type statusRequest struct {
	IsActive *bool `json:"isActive"`
}

type registerResponse struct {
	RefID uuid.UUID `json:"refId"`
}

type accessResponse struct {
	AccessToken string `json:"accessToken"`
}

type profileResponse struct {
	RefID       uuid.UUID `json:"refId"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Email       *string   `json:"email,omitempty"`
	CountryCode *string   `json:"countryCode,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Role        string    `json:"role,omitempty"`
	IsVerified  *bool     `json:"isVerified,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type loginResponse struct {
	profileResponse
	AccessToken string `json:"accessToken"`
}

func toProfile(acc identity.Account) profileResponse {
	out := profileResponse{
		RefID:       acc.Principal.Ref,
		Kind:        acc.Principal.Kind.String(),
		Name:        acc.Name,
		Email:       acc.Email,
		CountryCode: acc.CountryCode,
		Phone:       acc.Phone,
		Role:        acc.Role,
		CreatedAt:   acc.CreatedAt,
	}
	if acc.Principal.Kind == principal.KindCustomer {
		v := acc.IsVerified
		out.IsVerified = &v
	}
	return out
}
