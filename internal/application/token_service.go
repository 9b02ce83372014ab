package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-blog/internal/domain/repository"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
)

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// TokenService issues, refreshes and revokes JWT pairs and resolves access tokens to live accounts.
type TokenService struct {
	JWT     *helpers.JWTManager
	Revoked repo.TokenBlacklist
	Users   repo.UserRepository
	Logger  *logrus.Logger
}

func NewTokenService(jwt *helpers.JWTManager, blacklist repo.TokenBlacklist, users repo.UserRepository, logger *logrus.Logger) *TokenService {
	return &TokenService{JWT: jwt, Revoked: blacklist, Users: users, Logger: logger}
}

// Issue mints an access/refresh pair bound to u and its current token version.
func (s *TokenService) Issue(u *entity.User) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, u.TokenVersion)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return TokenPair{}, err
	}
	refresh, claims, err := s.JWT.GenerateRefreshToken(u.ID, u.TokenVersion)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		}
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:        access,
		AccessTokenExpiry:  aexp,
		RefreshToken:       refresh,
		RefreshTokenExpiry: claims.ExpiresAt.Time,
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	if s.Revoked != nil {
		listed, err := s.Revoked.Contains(ctx, claims.ID)
		if err != nil {
			return "", time.Time{}, err
		}
		if listed {
			return "", time.Time{}, ErrInvalidToken
		}
	}
	u, err := s.liveUser(ctx, claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.JWT.GenerateAccessToken(u.ID, u.TokenVersion)
}

// Blacklist revokes refreshToken until its natural expiry.
// Tokens that are malformed, expired or already revoked yield ErrInvalidToken.
func (s *TokenService) Blacklist(ctx context.Context, refreshToken string) error {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	if s.Revoked == nil {
		return errors.New("token blacklist not configured")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return ErrInvalidToken
	}
	added, err := s.Revoked.Add(ctx, claims.ID, ttl)
	if err != nil {
		return err
	}
	if !added {
		return ErrInvalidToken
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": claims.UserID, "jti": claims.ID}).Info("refresh token blacklisted")
	}
	return nil
}

// Authenticate resolves an access token to the account it was issued for.
func (s *TokenService) Authenticate(ctx context.Context, accessToken string) (*entity.User, error) {
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.JWT.ParseAccessToken(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.liveUser(ctx, claims)
}

// liveUser rejects tokens whose account is gone, disabled, or has rotated its token version.
func (s *TokenService) liveUser(ctx context.Context, claims *helpers.Claims) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive || u.TokenVersion != claims.Version {
		return nil, ErrInvalidToken
	}
	return u, nil
}
