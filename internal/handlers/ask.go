package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"drawing-qa-backend/internal/common"
	"drawing-qa-backend/internal/pipeline"
	"drawing-qa-backend/internal/store"
)

type AskHandler struct {
	store    store.ImageStore
	pipeline *pipeline.Pipeline
}

func NewAskHandler(imageStore store.ImageStore, p *pipeline.Pipeline) *AskHandler {
	return &AskHandler{store: imageStore, pipeline: p}
}

// Show renders the question/answer page for one record.
func (h *AskHandler) Show(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.store.Get(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.String(http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		slog.Error("failed to load record", "image_id", id, "error", err)
		c.String(http.StatusInternalServerError, "failed to load record")
		return
	}

	c.HTML(http.StatusOK, "ask.html", gin.H{"Image": rec})
}

// Submit persists a new question, schedules answer generation and redirects
// back to the page. An empty question re-renders the page with an error and
// changes no state.
func (h *AskHandler) Submit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.store.Get(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.String(http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		slog.Error("failed to load record", "image_id", id, "error", err)
		c.String(http.StatusInternalServerError, "failed to load record")
		return
	}

	question := c.PostForm("question")
	err = h.pipeline.SubmitQuestion(c.Request.Context(), id, question)
	if errors.Is(err, common.ErrInvalidInput) {
		c.HTML(http.StatusBadRequest, "ask.html", gin.H{
			"Image": rec,
			"Error": "Question must not be empty.",
		})
		return
	}
	if err != nil {
		slog.Error("failed to submit question", "image_id", id, "error", err)
		c.String(http.StatusInternalServerError, "failed to submit question")
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/ask/%d", id))
}
