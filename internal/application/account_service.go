package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-blog/internal/domain/repository"
	"github.com/oksasatya/go-ddd-blog/pkg/helpers"
	"github.com/oksasatya/go-ddd-blog/pkg/validation"
)

// MaxAvatarBytes is the upload limit for profile avatars.
const MaxAvatarBytes = 2 << 20

const (
	msgPasswordMismatch    = "Password fields didn't match."
	msgNewPasswordMismatch = "New password fields didn't match."
	msgOldPasswordWrong    = "Old password is not correct."
	msgAvatarTooLarge      = "Avatar size should not exceed 2MB."
	msgAvatarNotImage      = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

// AccountService runs the account lifecycle: register, login, profile, password, deactivate, delete, logout.
// Every operation on an existing account takes the caller's user id explicitly.
type AccountService struct {
	Repo     repo.UserRepository
	Tokens   *TokenService
	Avatars  repo.AvatarStorage
	Notifier Notifier
	Policy   validation.PasswordPolicy
	Logger   *logrus.Logger

	now func() time.Time
}

func NewAccountService(users repo.UserRepository, tokens *TokenService, avatars repo.AvatarStorage, notifier Notifier, policy validation.PasswordPolicy, logger *logrus.Logger) *AccountService {
	return &AccountService{
		Repo:     users,
		Tokens:   tokens,
		Avatars:  avatars,
		Notifier: notifier,
		Policy:   policy,
		Logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Profile is the public projection of a user. It never carries the password hash.
type Profile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	FullName      string    `json:"full_name"`
	Avatar        *string   `json:"avatar"`
	Bio           string    `json:"bio"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PostsCount    int       `json:"posts_count"`
	CommentsCount int       `json:"comments_count"`
}

type AuthResult struct {
	User   Profile
	Tokens TokenPair
}

type RegisterInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

// AvatarUpload is an avatar file as received from the client. Size is the declared size.
type AvatarUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// UpdateProfileInput carries a partial update; nil fields are left untouched.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Avatar    *AvatarUpload
}

type ChangePasswordInput struct {
	OldPassword        string
	NewPassword        string
	NewPasswordConfirm string
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	attrs := map[string]string{
		"username":   in.Username,
		"email":      email,
		"first name": in.FirstName,
		"last name":  in.LastName,
	}
	if err := s.Policy.Validate(in.Password, attrs); err != nil {
		return nil, NewValidationError("password", err.Error())
	}
	if in.Password != in.PasswordConfirm {
		return nil, NewValidationError("password", msgPasswordMismatch)
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:        email,
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if field, ok := repo.IsDuplicate(err); ok {
			return nil, NewValidationError(field, duplicateMessage(field))
		}
		return nil, err
	}

	pair, err := s.Tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	p, err := s.profile(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("user registered")
	}
	s.notify(ctx, u, EventRegistered)
	return &AuthResult{User: *p, Tokens: pair}, nil
}

// Login verifies credentials and issues a fresh token pair. Earlier pairs stay valid.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			helpers.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	at := s.now()
	if err := s.Repo.TouchLastLogin(ctx, u.ID, at); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("update last_login failed")
		}
	} else {
		u.LastLogin = &at
	}

	pair, err := s.Tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	p, err := s.profile(ctx, u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: *p, Tokens: pair}, nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, u)
}

// UpdateProfile applies a partial update. Avatar checks run before anything is written.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*Profile, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		avatarData []byte
		avatarMIME *mimetype.MIME
	)
	if in.Avatar != nil {
		avatarData, avatarMIME, err = readAvatar(in.Avatar)
		if err != nil {
			return nil, err
		}
	}

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}

	oldAvatar := u.Avatar
	var newAvatar string
	if avatarData != nil {
		if s.Avatars == nil {
			return nil, errors.New("avatar storage not configured")
		}
		newAvatar = avatarKey(u.ID, in.Avatar.Filename, avatarMIME)
		if err := s.Avatars.Put(ctx, newAvatar, avatarMIME.String(), bytes.NewReader(avatarData)); err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("user_id", u.ID).Error("avatar upload failed")
			}
			return nil, err
		}
		u.Avatar = newAvatar
	}

	if err := s.Repo.UpdateProfile(ctx, u); err != nil {
		if newAvatar != "" {
			s.removeAvatar(ctx, newAvatar)
		}
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if newAvatar != "" && oldAvatar != "" && oldAvatar != newAvatar {
		s.removeAvatar(ctx, oldAvatar)
	}
	return s.profile(ctx, u)
}

// ChangePassword replaces the password hash. Every token issued before stops working.
func (s *AccountService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}

	fields := map[string]string{}
	if !helpers.CompareHashAndPassword(u.PasswordHash, in.OldPassword) {
		fields["old_password"] = msgOldPasswordWrong
	}
	attrs := map[string]string{
		"username":   u.Username,
		"email":      u.Email,
		"first name": u.FirstName,
		"last name":  u.LastName,
	}
	if err := s.Policy.Validate(in.NewPassword, attrs); err != nil {
		fields["new_password"] = err.Error()
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if in.NewPassword != in.NewPasswordConfirm {
		return NewValidationError("new_password", msgNewPasswordMismatch)
	}

	hash, err := helpers.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("password changed")
	}
	s.notify(ctx, u, EventPasswordChanged)
	return nil
}

// Deactivate disables the account and revokes its tokens. Data is kept.
func (s *AccountService) Deactivate(ctx context.Context, userID string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.Deactivate(ctx, u.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("user deactivated")
	}
	s.notify(ctx, u, EventDeactivated)
	return nil
}

// Delete removes the account permanently.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, u.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.Avatar != "" {
		s.removeAvatar(ctx, u.Avatar)
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("user deleted")
	}
	s.notify(ctx, u, EventDeleted)
	return nil
}

// Logout blacklists the refresh token. Any token problem comes back as ErrInvalidToken.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrInvalidToken
	}
	return s.Tokens.Blacklist(ctx, refreshToken)
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	return s.Tokens.Refresh(ctx, refreshToken)
}

func (s *AccountService) user(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *AccountService) profile(ctx context.Context, u *entity.User) (*Profile, error) {
	posts, err := s.Repo.CountPosts(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	comments, err := s.Repo.CountComments(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	p := &Profile{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName(),
		Bio:           u.Bio,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		PostsCount:    posts,
		CommentsCount: comments,
	}
	if u.Avatar != "" && s.Avatars != nil {
		url := s.Avatars.URL(u.Avatar)
		p.Avatar = &url
	}
	return p, nil
}

func (s *AccountService) notify(ctx context.Context, u *entity.User, eventType string) {
	if s.Notifier == nil {
		return
	}
	ev := AccountEvent{
		Type:     eventType,
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Name:     u.FullName(),
		At:       s.now(),
	}
	if err := s.Notifier.Notify(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": u.ID, "event": eventType}).Warn("publish account event failed")
	}
}

func (s *AccountService) removeAvatar(ctx context.Context, key string) {
	if s.Avatars == nil {
		return
	}
	if err := s.Avatars.Delete(ctx, key); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("avatar delete failed")
	}
}

// readAvatar enforces the size limit and sniffs the content type from the bytes themselves.
func readAvatar(a *AvatarUpload) ([]byte, *mimetype.MIME, error) {
	if a.Size > MaxAvatarBytes {
		return nil, nil, NewValidationError("avatar", msgAvatarTooLarge)
	}
	if a.Body == nil {
		return nil, nil, NewValidationError("avatar", msgAvatarNotImage)
	}
	data, err := io.ReadAll(io.LimitReader(a.Body, MaxAvatarBytes+1))
	if err != nil {
		return nil, nil, err
	}
	if len(data) > MaxAvatarBytes {
		return nil, nil, NewValidationError("avatar", msgAvatarTooLarge)
	}
	if len(data) == 0 {
		return nil, nil, NewValidationError("avatar", "The submitted file is empty.")
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, nil, NewValidationError("avatar", msgAvatarNotImage)
	}
	return data, mt, nil
}

func avatarKey(userID, filename string, mt *mimetype.MIME) string {
	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(filename))
	}
	return path.Join("avatars", userID, uuid.NewString()+ext)
}

// normalizeEmail lowercases the domain part and keeps the local part as given.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

func duplicateMessage(field string) string {
	if field == "username" {
		return "A user with that username already exists."
	}
	return fmt.Sprintf("user with this %s already exists.", field)
}
