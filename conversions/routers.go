package conversions

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"csv-json-stream/common"
	"csv-json-stream/parsers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// settings used by handlers and jobs, replaced by Configure
var settings = common.Config{
	UploadsDir:       common.UploadsDir,
	DefaultDelimiter: ",",
	MaxLineBytes:     parsers.DefaultMaxLineBytes,
}

// startJob queues a job for background processing
var startJob = func(jobID string) {
	go ProcessConversionJob(jobID)
}

// Configure applies the service configuration
func Configure(cfg common.Config) {
	settings = cfg
}

// CreateConversionRequest represents the request body for URL based conversions
type CreateConversionRequest struct {
	FileURL   string `json:"file_url" binding:"required"`
	Delimiter string `json:"delimiter"`
}

// CreateConversionResponse represents the response for conversion job creation
type CreateConversionResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// GetConversionResponse represents the response for conversion job status
type GetConversionResponse struct {
	JobID        string  `json:"job_id"`
	SourceName   string  `json:"source_name"`
	Delimiter    string  `json:"delimiter"`
	Status       string  `json:"status"`
	LinesRead    int     `json:"lines_read"`
	TotalRecords int     `json:"total_records"`
	Checksum     string  `json:"checksum,omitempty"`
	DurationMs   int64   `json:"duration_ms"`
	Error        string  `json:"error,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

// RegisterRoutes mounts the conversion job endpoints
func RegisterRoutes(router *gin.RouterGroup) {
	router.POST("", CreateConversion)
	router.GET("/:job_id", GetConversion)
}

// CreateConversion godoc
// @Summary Create a new conversion job
// @Description Converts an uploaded or remote delimited text file to NDJSON in the background
// @Tags conversions
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param Idempotency-Key header string true "Unique key to prevent duplicate conversions"
// @Param file formData file false "Delimited text file"
// @Param delimiter formData string false "Field delimiter, one character"
// @Param file_url body string false "URL of the file (alternative to file upload)"
// @Success 202 {object} CreateConversionResponse "Conversion job created"
// @Success 200 {object} CreateConversionResponse "Existing job returned (idempotency)"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /conversions [post]
func CreateConversion(c *gin.Context) {
	db := common.GetDB()

	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key header is required"})
		return
	}

	var existingJob common.ConversionJob
	if err := db.Where("idempotency_key = ?", idempotencyKey).First(&existingJob).Error; err == nil {
		c.JSON(http.StatusOK, CreateConversionResponse{
			JobID:     existingJob.ID,
			Status:    existingJob.Status,
			CreatedAt: existingJob.CreatedAt.Format(time.RFC3339),
		})
		return
	}

	var filePath, sourceName, delimiter string

	if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
			return
		}
		defer file.Close()

		delimiter = c.DefaultPostForm("delimiter", settings.DefaultDelimiter)
		if _, verr := common.ValidateDelimiter(delimiter); verr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}

		sourceName = filepath.Base(header.Filename)
		filePath, err = saveUpload(file, filepath.Ext(sourceName))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
			return
		}
	} else {
		var req CreateConversionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		delimiter = req.Delimiter
		if delimiter == "" {
			delimiter = settings.DefaultDelimiter
		}
		if _, verr := common.ValidateDelimiter(delimiter); verr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}

		u, err := url.Parse(req.FileURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file_url must be an http or https URL"})
			return
		}
		sourceName = path.Base(u.Path)
		if sourceName == "/" || sourceName == "." {
			sourceName = u.Host
		}

		filePath, err = downloadFile(req.FileURL, path.Ext(u.Path))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to download file: %v", err)})
			return
		}
	}

	now := time.Now()
	job := common.ConversionJob{
		ID:             uuid.New().String(),
		IdempotencyKey: idempotencyKey,
		SourceName:     sourceName,
		Delimiter:      delimiter,
		Status:         common.JobStatusPending,
		FilePath:       filePath,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := db.Create(&job).Error; err != nil {
		os.Remove(filePath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversion job"})
		return
	}

	startJob(job.ID)

	c.JSON(http.StatusAccepted, CreateConversionResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	})
}

// GetConversion godoc
// @Summary Get conversion job status
// @Tags conversions
// @Produce json
// @Param job_id path string true "Conversion Job ID"
// @Success 200 {object} GetConversionResponse "Conversion job details"
// @Failure 404 {object} map[string]string "Job not found"
// @Router /conversions/{job_id} [get]
func GetConversion(c *gin.Context) {
	db := common.GetDB()
	jobID := c.Param("job_id")

	var job common.ConversionJob
	if err := db.Where("id = ?", jobID).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversion job not found"})
		return
	}

	c.Set("rows_processed", job.TotalRecords)

	response := GetConversionResponse{
		JobID:        job.ID,
		SourceName:   job.SourceName,
		Delimiter:    job.Delimiter,
		Status:       job.Status,
		LinesRead:    job.LinesRead,
		TotalRecords: job.TotalRecords,
		Checksum:     job.Checksum,
		DurationMs:   job.DurationMs,
		Error:        job.Error,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    job.UpdatedAt.Format(time.RFC3339),
	}

	if job.CompletedAt != nil {
		completedStr := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedStr
	}

	c.JSON(http.StatusOK, response)
}

func uploadPath(ext string) (string, error) {
	if err := os.MkdirAll(settings.UploadsDir, 0755); err != nil {
		return "", err
	}
	fileName := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102_150405"), uuid.New().String()[:8], ext)
	return filepath.Join(settings.UploadsDir, fileName), nil
}

// saveUpload copies an uploaded file into the uploads directory
func saveUpload(src io.Reader, ext string) (string, error) {
	filePath, err := uploadPath(ext)
	if err != nil {
		return "", err
	}

	out, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(filePath)
		return "", err
	}
	return filePath, nil
}

// downloadFile downloads a file from URL into the uploads directory
func downloadFile(fileURL, ext string) (string, error) {
	resp, err := http.Get(fileURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	return saveUpload(resp.Body, ext)
}
