package application

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-blog/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
	"github.com/oksasatya/go-ddd-blog/pkg/validation"
)

const strongPassword = "Blue-Ocean-7-Lantern"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type accountFixture struct {
	svc      *AccountService
	users    *memory.UserRepository
	revoked  *memory.TokenBlacklist
	avatars  *memory.AvatarStorage
	notifier *recordingNotifier
	jwt      *helpers.JWTManager
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	users := memory.NewUserRepository()
	revoked := memory.NewTokenBlacklist()
	avatars := memory.NewAvatarStorage()
	notifier := &recordingNotifier{}
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", 5*time.Minute, 24*time.Hour)
	tokens := NewTokenService(jwt, revoked, users, logger)
	svc := NewAccountService(users, tokens, avatars, notifier, validation.DefaultPasswordPolicy(), logger)
	return &accountFixture{svc: svc, users: users, revoked: revoked, avatars: avatars, notifier: notifier, jwt: jwt}
}

func (f *accountFixture) register(t *testing.T, username, email string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           email,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Password:        strongPassword,
		PasswordConfirm: strongPassword,
	})
	require.NoError(t, err)
	return res
}

func fieldErr(t *testing.T, err error, field string) string {
	t.Helper()
	ve, ok := IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	msg, ok := ve.Fields[field]
	require.True(t, ok, "expected error on %q, got %v", field, ve.Fields)
	return msg
}

func TestRegister_Success(t *testing.T) {
	f := newAccountFixture(t)
	res := f.register(t, "ada", "ada@Example.COM")

	assert.Equal(t, "ada", res.User.Username)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, "Ada Lovelace", res.User.FullName)
	assert.Nil(t, res.User.Avatar)
	assert.Zero(t, res.User.PostsCount)
	assert.Zero(t, res.User.CommentsCount)

	access, err := f.jwt.ParseAccessToken(res.Tokens.AccessToken)
	require.NoError(t, err)
	refresh, err := f.jwt.ParseRefreshToken(res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, access.UserID)
	assert.Equal(t, res.User.ID, refresh.UserID)

	stored, err := f.users.GetByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, strongPassword, stored.PasswordHash)
	assert.True(t, helpers.CompareHashAndPassword(stored.PasswordHash, strongPassword))
	assert.True(t, stored.IsActive)

	assert.Equal(t, []string{EventRegistered}, f.notifier.types())
}

func TestRegister_PasswordMismatch(t *testing.T) {
	f := newAccountFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "ada", Email: "ada@example.com",
		Password: strongPassword, PasswordConfirm: strongPassword + "x",
	})
	assert.Equal(t, "Password fields didn't match.", fieldErr(t, err, "password"))
	assert.Zero(t, f.users.Len())
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newAccountFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "ada", Email: "ada@example.com",
		Password: "password", PasswordConfirm: "password",
	})
	msg := fieldErr(t, err, "password")
	assert.Contains(t, msg, "too weak")
	assert.Zero(t, f.users.Len())
}

func TestRegister_Duplicates(t *testing.T) {
	f := newAccountFixture(t)
	original := f.register(t, "ada", "ada@example.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "someone", Email: "ADA@example.com",
		Password: strongPassword, PasswordConfirm: strongPassword,
	})
	assert.Equal(t, "user with this email already exists.", fieldErr(t, err, "email"))

	_, err = f.svc.Register(context.Background(), RegisterInput{
		Username: "ada", Email: "other@example.com",
		Password: strongPassword, PasswordConfirm: strongPassword,
	})
	assert.Equal(t, "A user with that username already exists.", fieldErr(t, err, "username"))

	assert.Equal(t, 1, f.users.Len())
	stored, err := f.users.GetByID(context.Background(), original.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", stored.Email)
}

func TestLogin(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "ada@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.NotEmpty(t, res.Tokens.AccessToken)

	stored, _ := f.users.GetByID(ctx, reg.User.ID)
	assert.NotNil(t, stored.LastLogin)

	// earlier tokens still work
	u, err := f.svc.Tokens.Authenticate(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, u.ID)

	_, err = f.svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDeactivate_BlocksLoginAndTokens(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.Deactivate(ctx, reg.User.ID))

	stored, _ := f.users.GetByID(ctx, reg.User.ID)
	assert.False(t, stored.IsActive)

	_, err := f.svc.Login(ctx, "ada@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = f.svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Tokens.Authenticate(ctx, reg.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, _, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Equal(t, []string{EventRegistered, EventDeactivated}, f.notifier.types())
}

func TestUpdateProfile_PartialBio(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	bio := "Analyst of engines."

	p, err := f.svc.UpdateProfile(context.Background(), reg.User.ID, UpdateProfileInput{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, p.Bio)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "Lovelace", p.LastName)
	assert.Nil(t, p.Avatar)
}

func TestUpdateProfile_Avatar(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	ctx := context.Background()

	p, err := f.svc.UpdateProfile(ctx, reg.User.ID, UpdateProfileInput{
		Avatar: &AvatarUpload{Filename: "me.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)},
	})
	require.NoError(t, err)
	require.NotNil(t, p.Avatar)
	first := f.avatars.Keys()
	require.Len(t, first, 1)
	assert.True(t, strings.HasPrefix(first[0], "avatars/"+reg.User.ID+"/"))
	assert.True(t, strings.HasSuffix(first[0], ".png"))
	assert.Equal(t, "/media/"+first[0], *p.Avatar)

	// replacing drops the previous object
	_, err = f.svc.UpdateProfile(ctx, reg.User.ID, UpdateProfileInput{
		Avatar: &AvatarUpload{Filename: "me2.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)},
	})
	require.NoError(t, err)
	second := f.avatars.Keys()
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0], second[0])
}

func TestUpdateProfile_AvatarTooLarge(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	bio := "should not be saved"
	big := append(append([]byte{}, pngHeader...), make([]byte, MaxAvatarBytes)...)

	_, err := f.svc.UpdateProfile(context.Background(), reg.User.ID, UpdateProfileInput{
		Bio:    &bio,
		Avatar: &AvatarUpload{Filename: "big.png", Size: int64(len(big)), Body: bytes.NewReader(big)},
	})
	assert.Equal(t, "Avatar size should not exceed 2MB.", fieldErr(t, err, "avatar"))

	// a lying size header is caught while reading
	_, err = f.svc.UpdateProfile(context.Background(), reg.User.ID, UpdateProfileInput{
		Bio:    &bio,
		Avatar: &AvatarUpload{Filename: "big.png", Size: 10, Body: bytes.NewReader(big)},
	})
	assert.Equal(t, "Avatar size should not exceed 2MB.", fieldErr(t, err, "avatar"))

	stored, _ := f.users.GetByID(context.Background(), reg.User.ID)
	assert.Empty(t, stored.Bio)
	assert.Empty(t, stored.Avatar)
	assert.Empty(t, f.avatars.Keys())
}

func TestUpdateProfile_AvatarNotImage(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	body := []byte("just some plain text, not a picture")

	_, err := f.svc.UpdateProfile(context.Background(), reg.User.ID, UpdateProfileInput{
		Avatar: &AvatarUpload{Filename: "fake.png", Size: int64(len(body)), Body: bytes.NewReader(body)},
	})
	fieldErr(t, err, "avatar")
	assert.Empty(t, f.avatars.Keys())
}

func TestUpdateProfile_StorageDown(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	f.avatars.FailPut = true
	bio := "kept back"

	_, err := f.svc.UpdateProfile(context.Background(), reg.User.ID, UpdateProfileInput{
		Bio:    &bio,
		Avatar: &AvatarUpload{Filename: "me.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)},
	})
	require.Error(t, err)
	_, isValidation := IsValidation(err)
	assert.False(t, isValidation)

	stored, _ := f.users.GetByID(context.Background(), reg.User.ID)
	assert.Empty(t, stored.Bio)
}

func TestChangePassword(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	ctx := context.Background()
	next := "Quiet-River-42-Harbor"

	err := f.svc.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{OldPassword: "nope", NewPassword: next, NewPasswordConfirm: next})
	assert.Equal(t, "Old password is not correct.", fieldErr(t, err, "old_password"))

	err = f.svc.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{OldPassword: strongPassword, NewPassword: next, NewPasswordConfirm: next + "!"})
	assert.Equal(t, "New password fields didn't match.", fieldErr(t, err, "new_password"))

	err = f.svc.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{OldPassword: strongPassword, NewPassword: "12345678", NewPasswordConfirm: "12345678"})
	assert.Contains(t, fieldErr(t, err, "new_password"), "entirely numeric")

	_, err = f.svc.Login(ctx, "ada@example.com", strongPassword)
	require.NoError(t, err, "failed changes must leave the hash alone")

	require.NoError(t, f.svc.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{OldPassword: strongPassword, NewPassword: next, NewPasswordConfirm: next}))

	_, err = f.svc.Login(ctx, "ada@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ada@example.com", next)
	assert.NoError(t, err)

	_, err = f.svc.Tokens.Authenticate(ctx, reg.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDelete(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	ctx := context.Background()
	_, err := f.svc.UpdateProfile(ctx, reg.User.ID, UpdateProfileInput{
		Avatar: &AvatarUpload{Filename: "me.png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, reg.User.ID))

	_, err = f.svc.GetProfile(ctx, reg.User.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.svc.Login(ctx, "ada@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Tokens.Authenticate(ctx, reg.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, f.avatars.Keys())
	assert.Contains(t, f.notifier.types(), EventDeleted)
}

func TestLogout(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	ctx := context.Background()

	access, _, err := f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	require.NoError(t, f.svc.Logout(ctx, reg.Tokens.RefreshToken))

	_, _, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.ErrorIs(t, f.svc.Logout(ctx, reg.Tokens.RefreshToken), ErrInvalidToken)
	assert.ErrorIs(t, f.svc.Logout(ctx, "garbage"), ErrInvalidToken)
	assert.ErrorIs(t, f.svc.Logout(ctx, ""), ErrInvalidToken)
	assert.ErrorIs(t, f.svc.Logout(ctx, reg.Tokens.AccessToken), ErrInvalidToken)
}

func TestProfileCounts(t *testing.T) {
	f := newAccountFixture(t)
	reg := f.register(t, "ada", "ada@example.com")
	f.users.SetActivity(reg.User.ID, 3, 7)

	p, err := f.svc.GetProfile(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.PostsCount)
	assert.Equal(t, 7, p.CommentsCount)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Ada@example.com", normalizeEmail("  Ada@EXAMPLE.com "))
	assert.Equal(t, "no-at-sign", normalizeEmail("no-at-sign"))
}
