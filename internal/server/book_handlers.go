package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hjyouh/books/backend/internal/catalog"
)

type bookRequestPayload struct {
	Title         string     `json:"title" binding:"required"`
	Author        string     `json:"author" binding:"required"`
	Publisher     string     `json:"publisher"`
	Category      string     `json:"category"`
	ISBN          string     `json:"isbn"`
	Description   string     `json:"description"`
	CoverImageURL string     `json:"coverImageUrl"`
	Price         int64      `json:"price" binding:"gte=0"`
	PublishedAt   *time.Time `json:"publishedAt"`
	IsPublished   bool       `json:"isPublished"`
}

func (p bookRequestPayload) input() catalog.BookInput {
	return catalog.BookInput{
		Title:         p.Title,
		Author:        p.Author,
		Publisher:     p.Publisher,
		Category:      p.Category,
		ISBN:          p.ISBN,
		Description:   p.Description,
		CoverImageURL: p.CoverImageURL,
		Price:         p.Price,
		PublishedAt:   p.PublishedAt,
		IsPublished:   p.IsPublished,
	}
}

type bookListResponsePayload struct {
	Books []catalog.Book `json:"books"`
}

func listQuery(c *gin.Context, publishedOnly bool) catalog.ListQuery {
	return catalog.ListQuery{
		Search:        c.Query("q"),
		Category:      c.Query("category"),
		Sort:          catalog.SortKey(c.Query("sort")),
		PublishedOnly: publishedOnly,
	}
}

func (h *httpHandler) handleListBooks(c *gin.Context) {
	h.listBooks(c, true)
}

func (h *httpHandler) handleAdminListBooks(c *gin.Context) {
	h.listBooks(c, false)
}

func (h *httpHandler) listBooks(c *gin.Context, publishedOnly bool) {
	books, err := h.catalog.List(c.Request.Context(), listQuery(c, publishedOnly))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if books == nil {
		books = []catalog.Book{}
	}
	c.JSON(http.StatusOK, bookListResponsePayload{Books: books})
}

// handleGetBook hides unpublished books from the public catalog.
func (h *httpHandler) handleGetBook(c *gin.Context) {
	book, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !book.IsPublished {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "code": "catalog.get.not_found"})
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *httpHandler) handleCreateBook(c *gin.Context) {
	var request bookRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	book, err := h.catalog.Create(c.Request.Context(), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *httpHandler) handleUpdateBook(c *gin.Context) {
	var request bookRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	book, err := h.catalog.Update(c.Request.Context(), c.Param("id"), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *httpHandler) handleDeleteBook(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
