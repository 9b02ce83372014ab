package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-blog/internal/domain/repository"
)

const (
	categorySlugMax = 100
	postSlugMax     = 200
	slugRetries     = 3
	defaultHits     = 10
	maxHits         = 50
)

const msgInvalidSlug = `Enter a valid "slug" consisting of lowercase letters, numbers or hyphens.`

// Actor is the caller of a content operation. The zero value is an anonymous reader.
type Actor struct {
	UserID  string
	IsStaff bool
}

// ContentService manages categories and posts and keeps the post search index in step.
type ContentService struct {
	Categories repo.CategoryRepository
	Posts      repo.PostRepository
	Index      repo.PostIndex
	Logger     *logrus.Logger
}

func NewContentService(categories repo.CategoryRepository, posts repo.PostRepository, index repo.PostIndex, logger *logrus.Logger) *ContentService {
	return &ContentService{Categories: categories, Posts: posts, Index: index, Logger: logger}
}

type CategoryView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type PostView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Author    *string   `json:"author"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CategoryInput struct {
	Name        string
	Slug        string
	Description string
}

type CategoryPatch struct {
	Name        *string
	Slug        *string
	Description *string
}

type PostInput struct {
	Title     string
	Slug      string
	Content   string
	Category  string // category slug
	Published bool
}

type PostPatch struct {
	Title     *string
	Slug      *string
	Content   *string
	Category  *string
	Published *bool
}

// ---- categories ----

func (s *ContentService) ListCategories(ctx context.Context) ([]CategoryView, error) {
	cats, err := s.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryView, 0, len(cats))
	for i := range cats {
		out = append(out, categoryView(&cats[i]))
	}
	return out, nil
}

func (s *ContentService) GetCategory(ctx context.Context, slugValue string) (*CategoryView, error) {
	c, err := s.category(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	v := categoryView(c)
	return &v, nil
}

// CreateCategory derives the slug from the name when none is given.
func (s *ContentService) CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (*CategoryView, error) {
	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	explicit := strings.TrimSpace(in.Slug)
	if explicit != "" && !slug.IsSlug(explicit) {
		return nil, NewValidationError("slug", msgInvalidSlug)
	}

	c := &entity.Category{Name: strings.TrimSpace(in.Name), Slug: explicit, Description: in.Description}
	for attempt := 0; ; attempt++ {
		if explicit == "" {
			derived, err := uniqueSlug(ctx, c.Name, "category", categorySlugMax, s.Categories.SlugsWithPrefix)
			if err != nil {
				return nil, err
			}
			c.Slug = derived
		}
		err := s.Categories.Create(ctx, c)
		if err == nil {
			break
		}
		field, dup := repo.IsDuplicate(err)
		if dup && field == "slug" && explicit == "" && attempt < slugRetries {
			continue
		}
		if dup {
			return nil, NewValidationError(field, fmt.Sprintf("category with this %s already exists.", field))
		}
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"category_id": c.ID, "slug": c.Slug}).Info("category created")
	}
	v := categoryView(c)
	return &v, nil
}

// UpdateCategory keeps the existing slug unless a new one is supplied.
func (s *ContentService) UpdateCategory(ctx context.Context, actor Actor, slugValue string, in CategoryPatch) (*CategoryView, error) {
	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	c, err := s.category(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	oldSlug := c.Slug
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Slug != nil {
		next := strings.TrimSpace(*in.Slug)
		if !slug.IsSlug(next) {
			return nil, NewValidationError("slug", msgInvalidSlug)
		}
		c.Slug = next
	}
	if err := s.Categories.Update(ctx, c); err != nil {
		if field, ok := repo.IsDuplicate(err); ok {
			return nil, NewValidationError(field, fmt.Sprintf("category with this %s already exists.", field))
		}
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	if c.Slug != oldSlug {
		s.reindexCategory(ctx, c)
	}
	v := categoryView(c)
	return &v, nil
}

// DeleteCategory removes the category and, through the FK cascade, every post in it.
func (s *ContentService) DeleteCategory(ctx context.Context, actor Actor, slugValue string) error {
	if !actor.IsStaff {
		return ErrForbidden
	}
	c, err := s.category(ctx, slugValue)
	if err != nil {
		return err
	}
	ids, err := s.Posts.IDsByCategory(ctx, c.ID)
	if err != nil {
		return err
	}
	if err := s.Categories.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	if len(ids) > 0 && s.Index != nil {
		if err := s.Index.Delete(ctx, ids...); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("category_id", c.ID).Warn("remove cascaded posts from index failed")
		}
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"category_id": c.ID, "posts": len(ids)}).Info("category deleted")
	}
	return nil
}

// ---- posts ----

// ListPosts returns posts newest first, optionally limited to one category.
// Readers who are not staff only see published posts.
func (s *ContentService) ListPosts(ctx context.Context, actor Actor, categorySlug string) ([]PostView, error) {
	cats, err := s.categorySlugs(ctx)
	if err != nil {
		return nil, err
	}
	f := repo.PostFilter{PublishedOnly: !actor.IsStaff}
	if categorySlug != "" {
		id := ""
		for cid, cs := range cats {
			if cs == categorySlug {
				id = cid
				break
			}
		}
		if id == "" {
			return []PostView{}, nil
		}
		f.CategoryID = id
	}
	posts, err := s.Posts.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]PostView, 0, len(posts))
	for i := range posts {
		out = append(out, postView(&posts[i], cats[posts[i].CategoryID]))
	}
	return out, nil
}

func (s *ContentService) GetPost(ctx context.Context, actor Actor, slugValue string) (*PostView, error) {
	p, err := s.post(ctx, actor, slugValue)
	if err != nil {
		return nil, err
	}
	return s.postView(ctx, p)
}

// CreatePost stores a post authored by the actor and indexes it.
func (s *ContentService) CreatePost(ctx context.Context, actor Actor, in PostInput) (*PostView, error) {
	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	explicit := strings.TrimSpace(in.Slug)
	if explicit != "" && !slug.IsSlug(explicit) {
		return nil, NewValidationError("slug", msgInvalidSlug)
	}
	cat, err := s.categoryRef(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	p := &entity.Post{
		Title:      strings.TrimSpace(in.Title),
		Slug:       explicit,
		Content:    in.Content,
		CategoryID: cat.ID,
		AuthorID:   actor.UserID,
		Published:  in.Published,
	}
	for attempt := 0; ; attempt++ {
		if explicit == "" {
			derived, err := uniqueSlug(ctx, p.Title, "post", postSlugMax, s.Posts.SlugsWithPrefix)
			if err != nil {
				return nil, err
			}
			p.Slug = derived
		}
		err := s.Posts.Create(ctx, p)
		if err == nil {
			break
		}
		field, dup := repo.IsDuplicate(err)
		if dup && field == "slug" && explicit == "" && attempt < slugRetries {
			continue
		}
		if dup {
			return nil, NewValidationError(field, fmt.Sprintf("post with this %s already exists.", field))
		}
		return nil, err
	}
	s.index(ctx, p, cat.Slug)
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"post_id": p.ID, "slug": p.Slug}).Info("post created")
	}
	v := postView(p, cat.Slug)
	return &v, nil
}

func (s *ContentService) UpdatePost(ctx context.Context, actor Actor, slugValue string, in PostPatch) (*PostView, error) {
	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	p, err := s.post(ctx, actor, slugValue)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Published != nil {
		p.Published = *in.Published
	}
	if in.Slug != nil {
		next := strings.TrimSpace(*in.Slug)
		if !slug.IsSlug(next) {
			return nil, NewValidationError("slug", msgInvalidSlug)
		}
		p.Slug = next
	}
	var catSlug string
	if in.Category != nil {
		cat, err := s.categoryRef(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		p.CategoryID = cat.ID
		catSlug = cat.Slug
	} else {
		cat, err := s.Categories.GetByID(ctx, p.CategoryID)
		if err != nil {
			return nil, err
		}
		catSlug = cat.Slug
	}
	if err := s.Posts.Update(ctx, p); err != nil {
		if field, ok := repo.IsDuplicate(err); ok {
			return nil, NewValidationError(field, fmt.Sprintf("post with this %s already exists.", field))
		}
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	s.index(ctx, p, catSlug)
	v := postView(p, catSlug)
	return &v, nil
}

func (s *ContentService) DeletePost(ctx context.Context, actor Actor, slugValue string) error {
	if !actor.IsStaff {
		return ErrForbidden
	}
	p, err := s.post(ctx, actor, slugValue)
	if err != nil {
		return err
	}
	if err := s.Posts.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, p.ID); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("post_id", p.ID).Warn("remove post from index failed")
		}
	}
	return nil
}

// SearchPosts runs a full-text query against the post index.
func (s *ContentService) SearchPosts(ctx context.Context, actor Actor, q string, size int) ([]repo.PostHit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, NewValidationError("q", "This field is required.")
	}
	if s.Index == nil {
		return []repo.PostHit{}, nil
	}
	if size <= 0 || size > maxHits {
		size = defaultHits
	}
	hits, err := s.Index.Search(ctx, q, !actor.IsStaff, size)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []repo.PostHit{}
	}
	return hits, nil
}

// ---- helpers ----

func (s *ContentService) category(ctx context.Context, slugValue string) (*entity.Category, error) {
	c, err := s.Categories.GetBySlug(ctx, slugValue)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

// categoryRef resolves a category named in post input; a missing one is a field error.
func (s *ContentService) categoryRef(ctx context.Context, slugValue string) (*entity.Category, error) {
	slugValue = strings.TrimSpace(slugValue)
	if slugValue == "" {
		return nil, NewValidationError("category", "This field is required.")
	}
	c, err := s.Categories.GetBySlug(ctx, slugValue)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, NewValidationError("category", fmt.Sprintf("Object with slug=%s does not exist.", slugValue))
		}
		return nil, err
	}
	return c, nil
}

// post loads a post by slug; unpublished posts are hidden from readers who are not staff.
func (s *ContentService) post(ctx context.Context, actor Actor, slugValue string) (*entity.Post, error) {
	p, err := s.Posts.GetBySlug(ctx, slugValue)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if !p.Published && !actor.IsStaff {
		return nil, ErrPostNotFound
	}
	return p, nil
}

func (s *ContentService) postView(ctx context.Context, p *entity.Post) (*PostView, error) {
	c, err := s.Categories.GetByID(ctx, p.CategoryID)
	if err != nil {
		return nil, err
	}
	v := postView(p, c.Slug)
	return &v, nil
}

func (s *ContentService) categorySlugs(ctx context.Context) (map[string]string, error) {
	cats, err := s.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(cats))
	for _, c := range cats {
		m[c.ID] = c.Slug
	}
	return m, nil
}

func (s *ContentService) index(ctx context.Context, p *entity.Post, categorySlug string) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, p, categorySlug); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("post_id", p.ID).Warn("index post failed")
	}
}

func (s *ContentService) reindexCategory(ctx context.Context, c *entity.Category) {
	if s.Index == nil {
		return
	}
	posts, err := s.Posts.List(ctx, repo.PostFilter{CategoryID: c.ID})
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("category_id", c.ID).Warn("reindex category posts failed")
		}
		return
	}
	for i := range posts {
		s.index(ctx, &posts[i], c.Slug)
	}
}

// uniqueSlug slugifies text and, when that slug is taken, appends the smallest free suffix starting at -2.
// A base at maxLen loses its tail to the suffix, so taken slugs are looked up per truncated stem.
func uniqueSlug(ctx context.Context, text, fallback string, maxLen int, taken func(context.Context, string) ([]string, error)) (string, error) {
	base := truncateSlug(slug.Make(text), maxLen)
	if base == "" {
		base = fallback
	}
	used := make(map[string]struct{})
	loaded := make(map[string]bool)
	load := func(prefix string) error {
		if loaded[prefix] {
			return nil
		}
		loaded[prefix] = true
		existing, err := taken(ctx, prefix)
		if err != nil {
			return err
		}
		for _, e := range existing {
			used[e] = struct{}{}
		}
		return nil
	}
	if err := load(base); err != nil {
		return "", err
	}
	if _, ok := used[base]; !ok {
		return base, nil
	}
	for n := 2; ; n++ {
		suffix := "-" + strconv.Itoa(n)
		stem := truncateSlug(base, maxLen-len(suffix))
		if err := load(stem); err != nil {
			return "", err
		}
		candidate := stem + suffix
		if _, ok := used[candidate]; !ok {
			return candidate, nil
		}
	}
}

func truncateSlug(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return strings.TrimRight(s[:maxLen], "-")
}

func categoryView(c *entity.Category) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description, CreatedAt: c.CreatedAt}
}

func postView(p *entity.Post, categorySlug string) PostView {
	v := PostView{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Content:   p.Content,
		Category:  categorySlug,
		Published: p.Published,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.AuthorID != "" {
		author := p.AuthorID
		v.Author = &author
	}
	return v
}
