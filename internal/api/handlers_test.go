package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presale/server/config"
	"presale/server/internal/database"
	"presale/server/internal/ingest"
	"presale/server/internal/models"
	"presale/server/internal/stats"
)

const csvHeader = "鄉鎮市區,建案名稱,棟及號,交易年月日,土地位置建物門牌,主要用途," +
	"建物移轉總面積平方公尺,建物現況格局-房,建物現況格局-廳,建物現況格局-衛," +
	"總價元,單價元平方公尺,車位類別,車位移轉總面積平方公尺,車位總價元"

func sampleRow(district, project, building, date string) string {
	return strings.Join([]string{
		district, project, building, date, "台北市" + district + "某路1號", "住家用",
		"99.17355", "3", "2", "2",
		"20000000", "201666", "坡道平面", "33.05785", "2000000",
	}, ",")
}

func newTestRouter(t *testing.T) (*gin.Engine, *Handler, *database.Database) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	pipeline := ingest.NewPipeline(db, logger)
	aggregator := stats.NewAggregator(db, logger, 24*time.Hour)
	handler := NewHandler(db, pipeline, aggregator, logger)

	router := gin.New()
	SetupRoutes(router, handler)
	return router, handler, db
}

func uploadRequest(t *testing.T, csvContent, region string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if csvContent != "" {
		part, err := writer.CreateFormFile("file", "presale.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(csvContent))
		require.NoError(t, err)
	}
	if region != "" {
		require.NoError(t, writer.WriteField("region", region))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	file := strings.Join([]string{
		csvHeader,
		sampleRow("中山區", "夢想家", "A棟1樓", "1130512"),
		sampleRow("大安區", "幸福居", "B棟1樓", "1130520"),
	}, "\n")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, file, "taipei"))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.IngestSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalProcessed)
	assert.Equal(t, 2, summary.InsertedCount)
	assert.Equal(t, 0, summary.UpdatedCount)
}

func TestUploadEndpointValidation(t *testing.T) {
	router, _, db := newTestRouter(t)

	t.Run("Missing file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, uploadRequest(t, "", "taipei"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Missing region", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, uploadRequest(t, csvHeader, ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Unsupported region", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, uploadRequest(t, csvHeader, "kaohsiung"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Missing required column", func(t *testing.T) {
		header := strings.Replace(csvHeader, "總價元,", "", 1)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, uploadRequest(t, header, "taipei"))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var payload struct {
			Error          string   `json:"error"`
			MissingColumns []string `json:"missingColumns"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.NotEmpty(t, payload.Error)
		assert.Equal(t, []string{"總價元"}, payload.MissingColumns)

		count, err := db.CountHouses(config.RegionTaipei)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func ingestSample(t *testing.T, router *gin.Engine, rows ...string) {
	t.Helper()
	file := strings.Join(append([]string{csvHeader}, rows...), "\n")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, file, "taipei"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTrendsRequiresValidRegionAndAction(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trends?action=getDistricts&region=mars", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trends?action=doSomething&region=taipei", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDistrictsEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)
	ingestSample(t, router,
		sampleRow("大安區", "幸福居", "B棟1樓", "1130520"),
		sampleRow("中山區", "夢想家", "A棟1樓", "1130512"),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trends?action=getDistricts&region=taipei", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Districts []string `json:"districts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, []string{"中山區", "大安區"}, payload.Districts)
}

func TestGetAveragePriceByDistrictEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)
	ingestSample(t, router,
		sampleRow("中山區", "夢想家", "A棟1樓", "1130512"),
		sampleRow("中山區", "夢想家", "A棟2樓", "1130512"),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/trends?action=getAveragePriceByDistrict&region=taipei&startDate=1130501&endDate=1130531", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var points []models.DistrictPricePoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, "中山區", points[0].District)
	assert.Equal(t, 2, points[0].Count)
	assert.Equal(t, 2024, points[0].Year)

	t.Run("Rejects malformed dates", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/trends?action=getAveragePriceByDistrict&region=taipei&startDate=2024-05-01&endDate=1130531", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Rejects missing dates", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/trends?action=getAveragePriceByDistrict&region=taipei", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetRealEstateTrendsEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)
	ingestSample(t, router,
		sampleRow("中山區", "Sky Tower", "A棟1樓", "1130512"),
		sampleRow("大安區", "幸福居", "B棟1樓", "1130520"),
		sampleRow("大安區", "幸福居", "B棟2樓", "1130521"),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/trends?action=getRealEstateTrends&region=taipei&page=1&limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.PaginatedHouses
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Houses, 2)
	assert.Equal(t, "1130521", page.Houses[0].TransactionDate)

	t.Run("Search matches case-insensitively", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/trends?action=getRealEstateTrends&region=taipei&search=sky", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var page models.PaginatedHouses
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, int64(1), page.TotalCount)
		require.Len(t, page.Houses, 1)
		assert.Equal(t, "Sky Tower", page.Houses[0].ProjectName)
	})

	t.Run("District filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/trends?action=getRealEstateTrends&region=taipei&district="+"大安區", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var page models.PaginatedHouses
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, int64(2), page.TotalCount)
	})
}

func TestGetMonthlyPresaleHousesEndpoint(t *testing.T) {
	router, handler, _ := newTestRouter(t)

	// Fixed clock: the listing window is May 2024 (ROC 11305)
	handler.now = func() time.Time {
		return time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	}

	ingestSample(t, router,
		sampleRow("中山區", "夢想家", "A棟1樓", "1130512"),
		sampleRow("大安區", "幸福居", "B棟1樓", "1130601"),
		sampleRow("中山區", "夢想家", "A棟2樓", "1130430"),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/trends?action=getMonthlyPresaleHouses&region=taipei", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var houses []models.House
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &houses))
	require.Len(t, houses, 1)
	assert.Equal(t, "1130512", houses[0].TransactionDate)

	t.Run("District filter excludes everything else", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
			"/api/trends?action=getMonthlyPresaleHouses&region=taipei&district="+"大安區", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var houses []models.House
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &houses))
		assert.Empty(t, houses)
	})
}

func TestClearDataEndpoint(t *testing.T) {
	router, _, db := newTestRouter(t)
	ingestSample(t, router,
		sampleRow("中山區", "夢想家", "A棟1樓", "1130512"),
		sampleRow("大安區", "幸福居", "B棟1樓", "1130520"),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/clearData", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, int64(2), payload.DeletedCount)

	count, err := db.CountHouses(config.RegionTaipei)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
