package server

import (
	"cmp"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hjyouh/books/backend/internal/slides"
	"go.uber.org/zap"
)

// slideRequestPayload accepts posting bounds as RFC3339 strings, plain
// dates, or {"seconds": n} objects.
type slideRequestPayload struct {
	Type            string          `json:"type"`
	IsActive        bool            `json:"isActive"`
	PostingStart    json.RawMessage `json:"postingStart"`
	PostingEnd      json.RawMessage `json:"postingEnd"`
	Title           string          `json:"title" binding:"max=255"`
	Subtitle        string          `json:"subtitle" binding:"max=512"`
	ImageURL        string          `json:"imageUrl" binding:"max=1024"`
	TextColor       string          `json:"textColor" binding:"max=32"`
	BackgroundColor string          `json:"backgroundColor" binding:"max=32"`
	LinkURL         string          `json:"linkUrl" binding:"max=1024"`
}

func (p slideRequestPayload) input() slides.SlideInput {
	return slides.SlideInput{
		Type:         slides.SlideType(p.Type),
		IsActive:     p.IsActive,
		PostingStart: rawInstant(p.PostingStart),
		PostingEnd:   rawInstant(p.PostingEnd),
		Content: slides.SlideContent{
			Title:           p.Title,
			Subtitle:        p.Subtitle,
			ImageURL:        p.ImageURL,
			TextColor:       p.TextColor,
			BackgroundColor: p.BackgroundColor,
			LinkURL:         p.LinkURL,
		},
	}
}

func rawInstant(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

type slidePayload struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	IsActive        bool    `json:"isActive"`
	Order           int64   `json:"order"`
	PostingStart    *string `json:"postingStart"`
	PostingEnd      *string `json:"postingEnd"`
	Title           string  `json:"title"`
	Subtitle        string  `json:"subtitle"`
	ImageURL        string  `json:"imageUrl"`
	TextColor       string  `json:"textColor"`
	BackgroundColor string  `json:"backgroundColor"`
	LinkURL         string  `json:"linkUrl"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

type slideListResponsePayload struct {
	Slides []slidePayload `json:"slides"`
}

type persistFailurePayload struct {
	Error  string         `json:"error"`
	Code   string         `json:"code"`
	Resync bool           `json:"resync"`
	Slides []slidePayload `json:"slides"`
}

func newSlidePayload(slide slides.Slide) slidePayload {
	return slidePayload{
		ID:              slide.ID,
		Type:            string(slide.Type),
		IsActive:        slide.IsActive,
		Order:           slide.Order,
		PostingStart:    formatInstant(slide.PostingStart),
		PostingEnd:      formatInstant(slide.PostingEnd),
		Title:           slide.Title,
		Subtitle:        slide.Subtitle,
		ImageURL:        slide.ImageURL,
		TextColor:       slide.TextColor,
		BackgroundColor: slide.BackgroundColor,
		LinkURL:         slide.LinkURL,
		CreatedAt:       slide.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       slide.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatInstant(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339)
	return &formatted
}

// newSlideList orders slides by type, ON before OFF, then display position.
func newSlideList(records []slides.Slide) []slidePayload {
	ordered := slices.Clone(records)
	slices.SortStableFunc(ordered, func(a, b slides.Slide) int {
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		if a.IsActive != b.IsActive {
			if a.IsActive {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	payloads := make([]slidePayload, 0, len(ordered))
	for _, slide := range ordered {
		payloads = append(payloads, newSlidePayload(slide))
	}
	return payloads
}

func (h *httpHandler) handleActiveSlides(c *gin.Context) {
	slideType, err := slides.ParseSlideType(c.DefaultQuery("type", string(slides.SlideTypeMain)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_slide_type"})
		return
	}
	active, err := h.slides.Active(c.Request.Context(), slideType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slideListResponsePayload{Slides: newSlideList(active)})
}

func (h *httpHandler) handleListSlides(c *gin.Context) {
	records, pending, err := h.slides.Refresh(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondAfterPersist(c, "slides.refresh.expiry_write_failed", records, pending)
}

func (h *httpHandler) handleCreateSlide(c *gin.Context) {
	var request slideRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	slide, err := h.slides.Create(c.Request.Context(), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSlidePayload(slide))
}

func (h *httpHandler) handleUpdateSlide(c *gin.Context) {
	var request slideRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}
	slide, err := h.slides.UpdateContent(c.Request.Context(), c.Param("id"), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSlidePayload(slide))
}

func (h *httpHandler) handleDeleteSlide(c *gin.Context) {
	if err := h.slides.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type slideActionFunc func(ctx context.Context, id string) ([]slides.Slide, *slides.Pending, error)

// slideAction runs an order or state change and answers once its writes settle.
func (h *httpHandler) slideAction(action slideActionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, pending, err := action(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.respondAfterPersist(c, "slides.persist.write_failed", records, pending)
	}
}

// respondAfterPersist returns the computed slide list once pending writes
// finish. A failed write answers 500 with resync set; the service has
// already marked its board stale.
func (h *httpHandler) respondAfterPersist(c *gin.Context, failureCode string, records []slides.Slide, pending *slides.Pending) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.persistTimeout)
	defer cancel()

	if err := pending.Wait(ctx); err != nil {
		h.logger.Warn("slide writes did not persist",
			zap.String("path", c.FullPath()),
			zap.Strings("failed_slide_ids", pending.Failed()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, persistFailurePayload{
			Error:  "persist_failed",
			Code:   failureCode,
			Resync: true,
			Slides: newSlideList(records),
		})
		return
	}
	c.JSON(http.StatusOK, slideListResponsePayload{Slides: newSlideList(records)})
}
