package handler

import (
	"net/http"
	"strconv"

	"fitcrush/internal/domain"
	"fitcrush/internal/middleware"
	"fitcrush/internal/models"
	"fitcrush/internal/repository"

	"github.com/gin-gonic/gin"
)

type BlockHandler struct {
	repo  *repository.BlockRepository
	users *repository.UserRepository
}

func NewBlockHandler(repo *repository.BlockRepository, users *repository.UserRepository) *BlockHandler {
	return &BlockHandler{repo: repo, users: users}
}

func (h *BlockHandler) Block(c *gin.Context) {
	blockerID := middleware.GetUserID(c)
	blockedID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	if blockerID == blockedID {
		badRequest(c, "cannot block yourself")
		return
	}
	exists, err := h.users.Exists(blockedID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !exists {
		respondError(c, domain.ErrUserNotFound)
		return
	}
	if err := h.repo.Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *BlockHandler) Unblock(c *gin.Context) {
	blockerID := middleware.GetUserID(c)
	blockedID, ok := idParam(c, "user_id")
	if !ok {
		return
	}
	if err := h.repo.Delete(blockerID, blockedID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *BlockHandler) List(c *gin.Context) {
	list, err := h.repo.ListByBlocker(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": list})
}

type ReportHandler struct {
	repo      *repository.ReportRepository
	auditRepo *repository.AuditLogRepository
}

func NewReportHandler(repo *repository.ReportRepository, auditRepo *repository.AuditLogRepository) *ReportHandler {
	return &ReportHandler{repo: repo, auditRepo: auditRepo}
}

func (h *ReportHandler) Create(c *gin.Context) {
	reporterID := middleware.GetUserID(c)
	var req struct {
		ReportedID uint   `json:"reported_id" binding:"required"`
		Reason     string `json:"reason" binding:"max=50"`
		Details    string `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if reporterID == req.ReportedID {
		badRequest(c, "cannot report yourself")
		return
	}
	report := &models.Report{
		ReporterID: reporterID,
		ReportedID: req.ReportedID,
		Reason:     req.Reason,
		Details:    req.Details,
		Status:     "PENDING",
	}
	if err := h.repo.Create(report); err != nil {
		respondError(c, err)
		return
	}
	if h.auditRepo != nil {
		_ = h.auditRepo.Create(&models.AuditLog{
			UserID:     &reporterID,
			Action:     "report_create",
			Resource:   "report",
			ResourceID: strconv.FormatUint(uint64(report.ID), 10),
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		})
	}
	c.JSON(http.StatusCreated, report)
}
