package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"presale/server/config"
	"presale/server/internal/database"
	"presale/server/internal/ingest"
	"presale/server/internal/rocdate"
	"presale/server/internal/stats"
)

type Handler struct {
	db         *database.Database
	pipeline   *ingest.Pipeline
	aggregator *stats.Aggregator
	logger     *logrus.Logger

	// now drives the monthly listing window; swapped out in tests
	now func() time.Time
}

func NewHandler(db *database.Database, pipeline *ingest.Pipeline, aggregator *stats.Aggregator, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{
		db:         db,
		pipeline:   pipeline,
		aggregator: aggregator,
		logger:     logger,
		now:        time.Now,
	}
}

// Upload ingests a multipart CSV export into one region's store.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}

	region, err := config.ParseRegion(c.PostForm("region"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid region"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.WithError(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	summary, err := h.pipeline.Ingest(fileBytes, region)
	if err != nil {
		var validationErr *ingest.ValidationError
		if errors.As(err, &validationErr) {
			h.logger.WithError(err).WithField("region", region.String()).Warn("Upload rejected")
			payload := gin.H{"error": validationErr.Message}
			if len(validationErr.MissingColumns) > 0 {
				payload["missingColumns"] = validationErr.MissingColumns
			}
			c.JSON(http.StatusBadRequest, payload)
			return
		}
		h.logger.WithError(err).WithField("region", region.String()).Error("Ingestion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process file"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ClearData wipes every region's transactions and cached stats.
func (h *Handler) ClearData(c *gin.Context) {
	deleted, err := h.db.ClearAllData()
	if err != nil {
		h.logger.WithError(err).Error("Failed to clear data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deletedCount": deleted})
}

// Trends dispatches the dashboard queries. The action parameter selects
// between district listing, price aggregation, paginated trends and the
// monthly presale listing.
func (h *Handler) Trends(c *gin.Context) {
	region, err := config.ParseRegion(c.Query("region"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid region"})
		return
	}

	switch c.Query("action") {
	case "getDistricts":
		h.getDistricts(c, region)
	case "getAveragePriceByDistrict":
		h.getAveragePriceByDistrict(c, region)
	case "getRealEstateTrends":
		h.getRealEstateTrends(c, region)
	case "getMonthlyPresaleHouses":
		h.getMonthlyPresaleHouses(c, region)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
	}
}

func (h *Handler) getDistricts(c *gin.Context, region config.Region) {
	districts, err := h.db.GetDistricts(region)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get districts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get districts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"districts": districts})
}

func (h *Handler) getAveragePriceByDistrict(c *gin.Context, region config.Region) {
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")
	if _, err := rocdate.ToTime(startDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date parameters"})
		return
	}
	if _, err := rocdate.ToTime(endDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date parameters"})
		return
	}

	points, err := h.aggregator.GetAveragePriceByDistrict(region, startDate, endDate)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get average price by district")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get average price by district"})
		return
	}

	c.JSON(http.StatusOK, points)
}

func (h *Handler) getRealEstateTrends(c *gin.Context, region config.Region) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	result, err := h.db.GetRealEstateTrends(region, page, limit, c.Query("district"), c.Query("search"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get real estate trends")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get real estate trends"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) getMonthlyPresaleHouses(c *gin.Context, region config.Region) {
	startDate, endDate := rocdate.MonthWindow(h.now())
	houses, err := h.db.GetHousesInDateRange(region, startDate, endDate, c.Query("district"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get monthly presale houses")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get monthly presale houses"})
		return
	}

	c.JSON(http.StatusOK, houses)
}

// Health is a liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
