package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sopstack/inventory-backend/internal/domain"
	"github.com/sopstack/inventory-backend/internal/service"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// parseFilter reads the common report query params. Year and month
// default to the previous calendar month, the most recent period a
// snapshot can exist for.
func (h *ReportHandler) parseFilter(c *gin.Context) domain.ReportFilter {
	prev := time.Now().UTC().AddDate(0, -1, 0)
	filter := domain.ReportFilter{
		Year:     prev.Year(),
		Month:    int(prev.Month()),
		Page:     1,
		PageSize: 50,
	}

	if year, err := strconv.Atoi(c.Query("year")); err == nil && year > 0 {
		filter.Year = year
	}
	if month, err := strconv.Atoi(c.Query("month")); err == nil && month >= 1 && month <= 12 {
		filter.Month = month
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	if variant := strings.TrimSpace(c.Query("variant")); variant != "" {
		filter.Variant = strings.ToLower(variant)
	}
	if scope := strings.TrimSpace(c.Query("scope")); scope != "" {
		filter.Scope = strings.ToLower(scope)
	}
	if major := strings.TrimSpace(c.Query("major_category")); major != "" {
		filter.MajorCategory = major
	}

	if owners := strings.TrimSpace(c.Query("owners")); owners != "" {
		for _, owner := range strings.Split(owners, ",") {
			owner = strings.ToLower(strings.TrimSpace(owner))
			if owner != "" {
				filter.Owners = append(filter.Owners, owner)
			}
		}
	}

	return filter
}

func (h *ReportHandler) GetCategoryReport(c *gin.Context) {
	filter := h.parseFilter(c)
	table, err := h.service.GetCategoryReport(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build category report", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, table)
}

func (h *ReportHandler) GetOwnerReport(c *gin.Context) {
	filter := h.parseFilter(c)
	rows, err := h.service.GetOwnerReport(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build owner report", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *ReportHandler) GetBatchResults(c *gin.Context) {
	filter := h.parseFilter(c)
	batches, quality, err := h.service.GetBatchResults(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to simulate batches", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batches": batches,
		"quality": quality,
	})
}

func (h *ReportHandler) GetBatchOutcomes(c *gin.Context) {
	filter := h.parseFilter(c)
	outcomes, total, err := h.service.GetBatchOutcomes(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch batch outcomes", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"outcomes": outcomes,
		"total":    total,
	})
}

func (h *ReportHandler) GetStockout(c *gin.Context) {
	filter := h.parseFilter(c)
	rows, err := h.service.GetStockout(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build stockout summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (h *ReportHandler) GetBucketSummary(c *gin.Context) {
	filter := h.parseFilter(c)
	summary, err := h.service.GetBucketSummary(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build bucket summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ReportHandler) GetAvailablePeriods(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "24"))
	if limit <= 0 {
		limit = 24
	}

	periods, err := h.service.GetAvailablePeriods(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch available periods", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

func (h *ReportHandler) TriggerRun(c *gin.Context) {
	var req struct {
		Year  int `json:"year" binding:"required"`
		Month int `json:"month" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year and month are required", "details": err.Error()})
		return
	}
	if req.Month < 1 || req.Month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be between 1 and 12"})
		return
	}

	results, err := h.service.Run(c.Request.Context(), req.Year, req.Month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "run failed", "details": err.Error()})
		return
	}

	runs := make([]gin.H, 0, len(results))
	for _, res := range results {
		runs = append(runs, gin.H{
			"run":     res.Run.Name(),
			"batches": len(res.Batches),
			"quality": res.Quality,
		})
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
