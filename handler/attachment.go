package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/structiq/soqtender/service"
)

// AttachmentHandler mints opaque attachment references and resolves them
// to presigned URLs. The engine never sees file bytes.
type AttachmentHandler struct {
	attachments *service.AttachmentService
}

func NewAttachmentHandler(attachments *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

type CreateAttachmentRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// Create handles POST /api/attachments: returns a fresh reference and the
// presigned PUT URL to upload against
func (h *AttachmentHandler) Create(c *gin.Context) {
	var req CreateAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ref, uploadURL, err := h.attachments.NewUploadRef(c.Request.Context(), req.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create attachment reference: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ref": ref, "upload_url": uploadURL})
}

// Download handles GET /api/attachments/*ref: resolves a reference to a
// presigned download URL
func (h *AttachmentHandler) Download(c *gin.Context) {
	ref := strings.TrimPrefix(c.Param("ref"), "/")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Attachment reference required"})
		return
	}

	url, err := h.attachments.PresignedGet(c.Request.Context(), ref)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve attachment: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ref": ref, "download_url": url})
}
