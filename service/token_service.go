package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catastro-backend/models"
	"catastro-backend/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenService issues and validates bearer credentials. Tokens carry the
// user id and role only; capability grants are re-read from the store per
// request so a fresh grant applies without re-login.
type TokenService struct {
	users      UserStore
	signingKey []byte
	ttl        time.Duration
}

// NewTokenService creates a new token service
func NewTokenService(users UserStore, signingKey string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenService{users: users, signingKey: []byte(signingKey), ttl: ttl}
}

type actorClaims struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Login checks the credentials and returns a signed token plus the user
func (s *TokenService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrForbidden
		}
		return "", nil, translateStoreError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrForbidden
	}

	now := time.Now()
	claims := actorClaims{
		Name: user.Name,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate validates a bearer token and builds the Actor, loading the
// current capability grants from the store.
func (s *TokenService) Authenticate(ctx context.Context, tokenString string) (models.Actor, error) {
	claims := &actorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return models.Actor{}, ErrForbidden
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Actor{}, ErrForbidden
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Actor{}, ErrForbidden
		}
		return models.Actor{}, translateStoreError(err)
	}

	return models.ActorFromUser(user), nil
}
