package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"drawing-qa-backend/internal/common"
	"drawing-qa-backend/internal/store"
)

// maxUploadBytes caps multipart uploads at 32MB.
const maxUploadBytes = 32 << 20

type ImagesHandler struct {
	store store.ImageStore
}

func NewImagesHandler(imageStore store.ImageStore) *ImagesHandler {
	return &ImagesHandler{store: imageStore}
}

// Index renders the listing page with all records, newest first.
func (h *ImagesHandler) Index(c *gin.Context) {
	images, err := h.store.List(c.Request.Context())
	if err != nil {
		slog.Error("failed to list images", "error", err)
		c.String(http.StatusInternalServerError, "failed to list images")
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{"Images": images})
}

// Upload creates a record from a multipart file upload and redirects back to
// the index. Requests without a usable file redirect without creating
// anything.
func (h *ImagesHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil || file.Filename == "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if file.Size > maxUploadBytes {
		c.String(http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read upload")
		return
	}

	id, err := h.store.Create(c.Request.Context(), file.Filename, data)
	if err != nil {
		slog.Error("failed to store upload", "error", err)
		c.String(http.StatusInternalServerError, "failed to store upload")
		return
	}

	slog.Info("image uploaded", "image_id", id, "filename", file.Filename, "size", len(data))
	c.Redirect(http.StatusSeeOther, "/")
}

// Serve writes the raw binary payload back with a sniffed content type.
func (h *ImagesHandler) Serve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	data, err := h.store.GetData(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.String(http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		slog.Error("failed to load image", "image_id", id, "error", err)
		c.String(http.StatusInternalServerError, "failed to load image")
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// Delete removes a record and redirects to the index. Deleting a missing id
// is a no-op.
func (h *ImagesHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		slog.Error("failed to delete image", "image_id", id, "error", err)
		c.String(http.StatusInternalServerError, "failed to delete image")
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
