package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/middleware"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"
	"fitcrush/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxUploadBytes = 10 << 20

type PhotoHandler struct {
	cloud    cloudinary.Client
	photos   *repository.PhotoRepository
	userRepo *repository.UserRepository
}

func NewPhotoHandler(cloud cloudinary.Client, photos *repository.PhotoRepository, userRepo *repository.UserRepository) *PhotoHandler {
	return &PhotoHandler{cloud: cloud, photos: photos, userRepo: userRepo}
}

func newPublicID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// upload sends the multipart "file" field to Cloudinary under folder.
func (h *PhotoHandler) upload(c *gin.Context, folder, prefix string) (*cloudinary.UploadResult, bool) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads not configured", "code": "uploads_disabled"})
		return nil, false
	}
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return nil, false
	}
	if file.Size > maxUploadBytes {
		badRequest(c, "file too large")
		return nil, false
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		badRequest(c, "only images are accepted")
		return nil, false
	}
	f, err := file.Open()
	if err != nil {
		badRequest(c, "could not read file")
		return nil, false
	}
	defer f.Close()

	res, err := h.cloud.UploadImage(c.Request.Context(), f, folder, newPublicID(prefix))
	if err != nil {
		slog.Error("cloudinary upload failed", "folder", folder, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed", "code": "upload_failed"})
		return nil, false
	}
	return res, true
}

// Upload adds a profile photo. The first photo becomes the main one.
func (h *PhotoHandler) Upload(c *gin.Context) {
	userID := middleware.GetUserID(c)
	count, err := h.photos.Count(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if count >= domain.MaxProfilePhotos {
		respondError(c, domain.ErrPhotoLimit)
		return
	}
	res, ok := h.upload(c, "FitCrush/profiles/"+strconv.FormatUint(uint64(userID), 10), "photo_")
	if !ok {
		return
	}
	p := &models.ProfilePhoto{
		UserID:       userID,
		URL:          res.URL,
		ThumbnailURL: res.ThumbnailURL,
		PublicID:     res.PublicID,
		Position:     int(count),
	}
	if err := h.photos.Create(p); err != nil {
		respondError(c, err)
		return
	}
	if count == 0 {
		if err := h.photos.SetMain(userID, p); err != nil {
			respondError(c, err)
			return
		}
		p.IsMain = true
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PhotoHandler) List(c *gin.Context) {
	list, err := h.photos.ListByUserID(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": list})
}

func (h *PhotoHandler) find(c *gin.Context) (*models.ProfilePhoto, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	p, err := h.photos.Get(id, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.ErrPhotoNotFound)
		} else {
			respondError(c, err)
		}
		return nil, false
	}
	return p, true
}

func (h *PhotoHandler) SetMain(c *gin.Context) {
	p, ok := h.find(c)
	if !ok {
		return
	}
	if err := h.photos.SetMain(p.UserID, p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *PhotoHandler) Delete(c *gin.Context) {
	p, ok := h.find(c)
	if !ok {
		return
	}
	if err := h.photos.Delete(p.UserID, p); err != nil {
		respondError(c, err)
		return
	}
	if h.cloud == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	if err := h.cloud.Destroy(c.Request.Context(), p.PublicID); err != nil {
		slog.Warn("cloudinary destroy failed", "public_id", p.PublicID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UploadChatImage stores an image for a chat message and returns its URL.
// Image messages are a premium capability.
func (h *PhotoHandler) UploadChatImage(c *gin.Context) {
	userID := middleware.GetUserID(c)
	u, err := h.userRepo.GetByID(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !domain.Can(u.Tier(time.Now()), domain.CapImageMessages) {
		respondError(c, domain.ErrCapabilityRequired)
		return
	}
	res, ok := h.upload(c, "FitCrush/chat/"+strconv.FormatUint(uint64(userID), 10), "img_")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": res.URL, "thumbnail_url": res.ThumbnailURL})
}
