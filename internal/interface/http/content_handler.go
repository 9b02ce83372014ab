package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-blog/internal/application"
	"github.com/oksasatya/go-ddd-blog/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-blog/pkg/response"
)

type ContentHandler struct {
	Svc    *application.ContentService
	Logger *logrus.Logger
}

func NewContentHandler(svc *application.ContentService, logger *logrus.Logger) *ContentHandler {
	return &ContentHandler{Svc: svc, Logger: logger}
}

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Slug        string `json:"slug" binding:"omitempty,max=100,slug"`
	Description string `json:"description"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Slug        *string `json:"slug" binding:"omitempty,max=100,slug"`
	Description *string `json:"description"`
}

type createPostRequest struct {
	Title     string `json:"title" binding:"required,max=200"`
	Slug      string `json:"slug" binding:"omitempty,max=200,slug"`
	Content   string `json:"content" binding:"required"`
	Category  string `json:"category" binding:"required"`
	Published bool   `json:"published"`
}

type updatePostRequest struct {
	Title     *string `json:"title" binding:"omitempty,min=1,max=200"`
	Slug      *string `json:"slug" binding:"omitempty,max=200,slug"`
	Content   *string `json:"content" binding:"omitempty,min=1"`
	Category  *string `json:"category" binding:"omitempty,min=1"`
	Published *bool   `json:"published"`
}

func actor(c *gin.Context) application.Actor {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return application.Actor{}
	}
	return application.Actor{UserID: u.ID, IsStaff: u.IsStaff}
}

func (h *ContentHandler) ListCategories(c *gin.Context) {
	out, err := h.Svc.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *ContentHandler) GetCategory(c *gin.Context) {
	out, err := h.Svc.GetCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *ContentHandler) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.Svc.CreateCategory(c.Request.Context(), actor(c), application.CategoryInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, out)
}

func (h *ContentHandler) UpdateCategory(c *gin.Context) {
	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.Svc.UpdateCategory(c.Request.Context(), actor(c), c.Param("slug"), application.CategoryPatch{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *ContentHandler) DeleteCategory(c *gin.Context) {
	if err := h.Svc.DeleteCategory(c.Request.Context(), actor(c), c.Param("slug")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}

func (h *ContentHandler) ListPosts(c *gin.Context) {
	out, err := h.Svc.ListPosts(c.Request.Context(), actor(c), c.Query("category"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *ContentHandler) SearchPosts(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	out, err := h.Svc.SearchPosts(c.Request.Context(), actor(c), c.Query("q"), size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *ContentHandler) GetPost(c *gin.Context) {
	out, err := h.Svc.GetPost(c.Request.Context(), actor(c), c.Param("slug"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *ContentHandler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.Svc.CreatePost(c.Request.Context(), actor(c), application.PostInput{
		Title:     req.Title,
		Slug:      req.Slug,
		Content:   req.Content,
		Category:  req.Category,
		Published: req.Published,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusCreated, out)
}

func (h *ContentHandler) UpdatePost(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	out, err := h.Svc.UpdatePost(c.Request.Context(), actor(c), c.Param("slug"), application.PostPatch{
		Title:     req.Title,
		Slug:      req.Slug,
		Content:   req.Content,
		Category:  req.Category,
		Published: req.Published,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *ContentHandler) DeletePost(c *gin.Context) {
	if err := h.Svc.DeletePost(c.Request.Context(), actor(c), c.Param("slug")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}
