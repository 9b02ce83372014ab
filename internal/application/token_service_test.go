package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	"github.com/oksasatya/go-ddd-blog/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
)

func newTokenFixture(t *testing.T) (*TokenService, *memory.UserRepository, *entity.User) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	users := memory.NewUserRepository()
	u := &entity.User{Email: "grace@example.com", Username: "grace", IsActive: true}
	require.NoError(t, users.Create(context.Background(), u))
	jwt := helpers.NewJWTManager("a-secret", "r-secret", time.Minute, time.Hour)
	return NewTokenService(jwt, memory.NewTokenBlacklist(), users, logger), users, u
}

func TestTokenService_IssueAndAuthenticate(t *testing.T) {
	svc, _, u := newTokenFixture(t)
	pair, err := svc.Issue(u)
	require.NoError(t, err)
	assert.True(t, pair.RefreshTokenExpiry.After(pair.AccessTokenExpiry))

	got, err := svc.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh tokens are not access tokens")

	_, err = svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokenService_Expiry(t *testing.T) {
	svc, _, u := newTokenFixture(t)
	now := time.Now()
	svc.JWT.SetClock(func() time.Time { return now })
	pair, err := svc.Issue(u)
	require.NoError(t, err)

	svc.JWT.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
	_, err = svc.Authenticate(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, _, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), access)
	assert.NoError(t, err)

	svc.JWT.SetClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, svc.Blacklist(context.Background(), pair.RefreshToken), ErrInvalidToken)
}

func TestTokenService_Blacklist(t *testing.T) {
	svc, _, u := newTokenFixture(t)
	ctx := context.Background()
	pair, err := svc.Issue(u)
	require.NoError(t, err)

	require.NoError(t, svc.Blacklist(ctx, pair.RefreshToken))
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, svc.Blacklist(ctx, pair.RefreshToken), ErrInvalidToken)

	// blacklisting one refresh token leaves other sessions alone
	other, err := svc.Issue(u)
	require.NoError(t, err)
	_, _, err = svc.Refresh(ctx, other.RefreshToken)
	assert.NoError(t, err)
}

func TestTokenService_VersionBumpRevokes(t *testing.T) {
	svc, users, u := newTokenFixture(t)
	ctx := context.Background()
	pair, err := svc.Issue(u)
	require.NoError(t, err)

	require.NoError(t, users.UpdatePassword(ctx, u.ID, "new-hash"))

	_, err = svc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	fresh, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	next, err := svc.Issue(fresh)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, next.AccessToken)
	assert.NoError(t, err)
}

func TestTokenService_TamperedToken(t *testing.T) {
	svc, _, u := newTokenFixture(t)
	pair, err := svc.Issue(u)
	require.NoError(t, err)

	other, _, err := svc.JWT.GenerateAccessToken("someone-else", 0)
	require.NoError(t, err)
	mine := strings.Split(pair.AccessToken, ".")
	theirs := strings.Split(other, ".")
	tampered := strings.Join([]string{mine[0], theirs[1], mine[2]}, ".")
	_, err = svc.Authenticate(context.Background(), tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged := helpers.NewJWTManager("other", "other", time.Minute, time.Hour)
	token, _, err := forged.GenerateAccessToken(u.ID, u.TokenVersion)
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
