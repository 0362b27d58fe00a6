package exports

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"csv-json-stream/common"
	"csv-json-stream/parsers"
	"csv-json-stream/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := common.TestDBInit()
	t.Cleanup(func() { common.TestDBFree(db) })
	require.NoError(t, common.AutoMigrateJobs(db))

	store, err := storage.NewGormStore(db, 100)
	require.NoError(t, err)
	storage.Init(store)

	prev := settings
	t.Cleanup(func() {
		settings = prev
		storage.Init(nil)
	})
	Configure(common.Config{
		ExportsDir:       t.TempDir(),
		DefaultDelimiter: ",",
		MaxLineBytes:     parsers.DefaultMaxLineBytes,
	})

	router := gin.New()
	api := router.Group("/api/v1")
	RegisterRoutes(api, api.Group("/conversions"))
	return router
}

func seedJob(t *testing.T, id, sourceName, status, input string) {
	t.Helper()
	now := time.Now()
	job := common.ConversionJob{
		ID:             id,
		IdempotencyKey: "key-" + id,
		SourceName:     sourceName,
		Delimiter:      ",",
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, common.GetDB().Create(&job).Error)

	if input == "" {
		return
	}
	ctx := context.Background()
	p, err := parsers.New(parsers.Options{Delimiter: ','})
	require.NoError(t, err)
	_, err = p.Run(ctx, strings.NewReader(input), storage.NewStoreSink(ctx, storage.GetStore(), id))
	require.NoError(t, err)
}

func TestStreamRecords(t *testing.T) {
	router := setupTest(t)
	seedJob(t, "job-1", "People List.csv", common.JobStatusCompleted, "name,city\nAna,Porto\n<b>,\"x,y\"\n")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversions/job-1/records", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=people-list.ndjson", w.Header().Get("Content-Disposition"))
	assert.Equal(t, `{"name":"Ana","city":"Porto"}`+"\n"+`{"name":"<b>","city":"xy"}`+"\n", w.Body.String())
}

func TestStreamRecords_JobNotReady(t *testing.T) {
	router := setupTest(t)
	seedJob(t, "job-2", "a.csv", common.JobStatusProcessing, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversions/job-2/records", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversions/missing/records", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportFile(t *testing.T) {
	router := setupTest(t)
	seedJob(t, "0123456789", "sales.tsv", common.JobStatusCompleted, "id\n1\n2\n")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/conversions/0123456789/export", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"file_name":"01234567_sales.ndjson"`)
	assert.Contains(t, w.Body.String(), `"total_records":2`)

	data, err := os.ReadFile(filepath.Join(settings.ExportsDir, "01234567_sales.ndjson"))
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":\"1\"}\n{\"id\":\"2\"}\n", string(data))
}

func TestConvertStream(t *testing.T) {
	router := setupTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert?delimiter=%3B", strings.NewReader("name;age\r\nAlice;30\r\nBob\r\n"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"name":"Alice","age":"30"}`+"\n"+`{"name":"Bob","age":null}`+"\n", w.Body.String())
}

func TestConvertStream_HeaderOnly(t *testing.T) {
	router := setupTest(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader("a,b\n")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestConvertStream_BadDelimiter(t *testing.T) {
	router := setupTest(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, `/api/v1/convert?delimiter=%22`, strings.NewReader("a\n")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid delimiter")
}

func TestConvertStream_LineTooLong(t *testing.T) {
	router := setupTest(t)
	settings.MaxLineBytes = 8

	body := strings.Repeat("x", 32) + "\n"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "read: line 1")
}
