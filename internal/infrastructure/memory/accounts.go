package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-blog/internal/domain/repository"
)

// UserRepository keeps accounts in a map. Email matching ignores case like the SQL store.
type UserRepository struct {
	mu       sync.Mutex
	users    map[string]*entity.User
	posts    map[string]int
	comments map[string]int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]*entity.User{}, posts: map[string]int{}, comments: map[string]int{}}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return &repo.DuplicateError{Field: "email"}
		}
		if existing.Username == u.Username {
			return &repo.DuplicateError{Field: "username"}
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *UserRepository) UpdateProfile(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.FirstName, cur.LastName, cur.Avatar, cur.Bio = u.FirstName, u.LastName, u.Avatar, u.Bio
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	cur.PasswordHash = hash
	cur.TokenVersion++
	return nil
}

func (r *UserRepository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	cur.IsActive = false
	cur.TokenVersion++
	return nil
}

func (r *UserRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	cur.LastLogin = &at
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) CountPosts(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[userID], nil
}

func (r *UserRepository) CountComments(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.comments[userID], nil
}

// Len reports how many accounts are stored.
func (r *UserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// SetActivity fixes the post and comment counts reported for userID.
func (r *UserRepository) SetActivity(userID string, posts, comments int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[userID] = posts
	r.comments[userID] = comments
}

// TokenBlacklist remembers revoked jtis for the life of the process.
type TokenBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
}

func NewTokenBlacklist() *TokenBlacklist { return &TokenBlacklist{jtis: map[string]time.Duration{}} }

func (b *TokenBlacklist) Add(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.jtis[jti]; ok {
		return false, nil
	}
	b.jtis[jti] = ttl
	return true, nil
}

func (b *TokenBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.jtis[jti]
	return ok, nil
}

// AvatarStorage keeps uploads in memory and serves them under /media/.
type AvatarStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailPut makes every upload fail.
	FailPut bool
}

func NewAvatarStorage() *AvatarStorage { return &AvatarStorage{objects: map[string][]byte{}} }

func (s *AvatarStorage) Put(_ context.Context, key, _ string, r io.Reader) error {
	if s.FailPut {
		return errors.New("storage unavailable")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	return nil
}

func (s *AvatarStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *AvatarStorage) URL(key string) string { return "/media/" + key }

// Keys lists stored object keys in order.
func (s *AvatarStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
