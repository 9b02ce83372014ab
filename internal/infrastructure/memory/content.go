package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-blog/internal/domain/repository"
)

// ContentStore holds categories and posts together so category deletes cascade.
type ContentStore struct {
	mu         sync.Mutex
	categories map[string]*entity.Category
	posts      map[string]*entity.Post
	seq        int
}

func NewContentStore() *ContentStore {
	return &ContentStore{categories: map[string]*entity.Category{}, posts: map[string]*entity.Post{}}
}

type categoryRepo struct{ *ContentStore }
type postRepo struct{ *ContentStore }

func (s *ContentStore) Categories() repo.CategoryRepository { return categoryRepo{s} }
func (s *ContentStore) Posts() repo.PostRepository          { return postRepo{s} }

// PostCount reports how many posts are stored.
func (s *ContentStore) PostCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

func (r categoryRepo) Create(_ context.Context, c *entity.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.categories {
		if e.Name == c.Name {
			return &repo.DuplicateError{Field: "name"}
		}
		if e.Slug == c.Slug {
			return &repo.DuplicateError{Field: "slug"}
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	cp := *c
	r.categories[c.ID] = &cp
	return nil
}

func (r categoryRepo) List(_ context.Context) ([]entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categoryRepo) GetByID(_ context.Context, id string) (*entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r categoryRepo) GetBySlug(_ context.Context, s string) (*entity.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.Slug == s {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r categoryRepo) Update(_ context.Context, c *entity.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[c.ID]; !ok {
		return repo.ErrNotFound
	}
	for id, e := range r.categories {
		if id == c.ID {
			continue
		}
		if e.Name == c.Name {
			return &repo.DuplicateError{Field: "name"}
		}
		if e.Slug == c.Slug {
			return &repo.DuplicateError{Field: "slug"}
		}
	}
	cp := *c
	r.categories[c.ID] = &cp
	return nil
}

func (r categoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.categories, id)
	for pid, p := range r.posts {
		if p.CategoryID == id {
			delete(r.posts, pid)
		}
	}
	return nil
}

func (r categoryRepo) SlugsWithPrefix(_ context.Context, base string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.categories {
		if c.Slug == base || strings.HasPrefix(c.Slug, base+"-") {
			out = append(out, c.Slug)
		}
	}
	return out, nil
}

func (r postRepo) Create(_ context.Context, p *entity.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.posts {
		if e.Slug == p.Slug {
			return &repo.DuplicateError{Field: "slug"}
		}
	}
	r.seq++
	p.ID = uuid.NewString()
	p.CreatedAt = time.Unix(int64(r.seq), 0).UTC()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

func (r postRepo) List(_ context.Context, flt repo.PostFilter) ([]entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entity.Post{}
	for _, p := range r.posts {
		if flt.CategoryID != "" && p.CategoryID != flt.CategoryID {
			continue
		}
		if flt.PublishedOnly && !p.Published {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r postRepo) GetBySlug(_ context.Context, s string) (*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.Slug == s {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r postRepo) Update(_ context.Context, p *entity.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; !ok {
		return repo.ErrNotFound
	}
	for id, e := range r.posts {
		if id != p.ID && e.Slug == p.Slug {
			return &repo.DuplicateError{Field: "slug"}
		}
	}
	cp := *p
	r.posts[p.ID] = &cp
	return nil
}

func (r postRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r postRepo) IDsByCategory(_ context.Context, categoryID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for id, p := range r.posts {
		if p.CategoryID == categoryID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r postRepo) SlugsWithPrefix(_ context.Context, base string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.posts {
		if p.Slug == base || strings.HasPrefix(p.Slug, base+"-") {
			out = append(out, p.Slug)
		}
	}
	return out, nil
}

// PostIndex matches a query against titles, case-insensitively.
type PostIndex struct {
	mu   sync.Mutex
	docs map[string]repo.PostHit
}

func NewPostIndex() *PostIndex { return &PostIndex{docs: map[string]repo.PostHit{}} }

func (i *PostIndex) Index(_ context.Context, p *entity.Post, categorySlug string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs[p.ID] = repo.PostHit{ID: p.ID, Slug: p.Slug, Title: p.Title, CategorySlug: categorySlug, Published: p.Published}
	return nil
}

func (i *PostIndex) Delete(_ context.Context, ids ...string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, id := range ids {
		delete(i.docs, id)
	}
	return nil
}

func (i *PostIndex) Search(_ context.Context, q string, publishedOnly bool, size int) ([]repo.PostHit, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []repo.PostHit
	for _, d := range i.docs {
		if publishedOnly && !d.Published {
			continue
		}
		if strings.Contains(strings.ToLower(d.Title), strings.ToLower(q)) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

// Has reports whether a document with id is indexed.
func (i *PostIndex) Has(id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.docs[id]
	return ok
}
