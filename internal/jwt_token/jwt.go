package jwttoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"idauth/pkg/domain"
	dErrors "idauth/pkg/domain-errors"
)

// Claims are the access token claims. MobileUID binds the token to the device
// it was issued on.
type Claims struct {
	UserIdentifier string             `json:"uid,omitempty"`
	MobileUID      string             `json:"mobile_uid"`
	SessionType    domain.SessionType `json:"session_type"`
	FullName       string             `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// leeway absorbs clock skew between mobile clients and the gateway.
const leeway = 30 * time.Second

// JWTService signs and verifies HS256 access tokens bound to a device session.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	parser     *jwt.Parser
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
		),
	}
}

// AccessTokenParams describes the session an access token is minted for.
type AccessTokenParams struct {
	UserIdentifier string
	MobileUID      string
	SessionType    domain.SessionType
	FullName       string
	IssuedAt       time.Time
	ExpiresIn      time.Duration
}

// GenerateAccessToken signs a token for p and returns it with its expiry.
// IssuedAt defaults to now.
func (s *JWTService) GenerateAccessToken(p AccessTokenParams) (string, time.Time, error) {
	iat := p.IssuedAt
	if iat.IsZero() {
		iat = time.Now()
	}
	exp := iat.Add(p.ExpiresIn)
	claims := Claims{
		UserIdentifier: p.UserIdentifier,
		MobileUID:      p.MobileUID,
		SessionType:    p.SessionType,
		FullName:       p.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.UserIdentifier,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// ValidateToken verifies signature, issuer, audience and expiry. Every failure
// is an Unauthorized error; expiry is reported separately so clients refresh.
func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	case claims.MobileUID == "":
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token is not bound to a device")
	}
	return claims, nil
}
