package jwttoken

import (
	"idauth/pkg/domain"
)

// ToUser converts validated claims into the caller identity services consume.
func ToUser(claims *Claims) *domain.User {
	return &domain.User{
		Identifier:  claims.UserIdentifier,
		SessionType: claims.SessionType,
		FullName:    claims.FullName,
	}
}

// UserValidator validates bearer tokens for the session middleware.
type UserValidator struct {
	service *JWTService
}

func NewUserValidator(service *JWTService) *UserValidator {
	return &UserValidator{service: service}
}

// ValidateUser returns the session user and the device the token was minted for.
func (a *UserValidator) ValidateUser(tokenString string) (*domain.User, string, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, "", err
	}
	return ToUser(claims), claims.MobileUID, nil
}
