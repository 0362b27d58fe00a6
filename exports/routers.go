package exports

import (
	"bufio"
	"fmt"
		"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"csv-json-stream/common"
	"csv-json-stream/parsers"
	"csv-json-stream/storage"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

var settings = common.Config{
	ExportsDir:       common.ExportsDir,
	DefaultDelimiter: ",",
	MaxLineBytes:     parsers.DefaultMaxLineBytes,
}

// Configure applies the service configuration
func Configure(cfg common.Config) {
	settings = cfg
}

// ExportFileResponse describes an NDJSON file written to the exports directory
type ExportFileResponse struct {
	JobID        string `json:"job_id"`
	FileName     string `json:"file_name"`
	TotalRecords int    `json:"total_records"`
	CreatedAt    string `json:"created_at"`
}

// RegisterRoutes mounts the export endpoints. jobs is the conversions group,
// router the API root.
func RegisterRoutes(router *gin.RouterGroup, jobs *gin.RouterGroup) {
	router.POST("/convert", ConvertStream)
	jobs.GET("/:job_id/records", StreamRecords)
	jobs.POST("/:job_id/export", ExportFile)
}

// StreamRecords godoc
// @Summary Stream the records of a conversion job
// @Description Streams the stored NDJSON output of a completed conversion job
// @Tags exports
// @Produce application/x-ndjson
// @Param job_id path string true "Conversion Job ID"
// @Success 200 {file} file "Streaming NDJSON"
// @Failure 404 {object} map[string]string "Job not found"
// @Failure 409 {object} map[string]string "Job not completed"
// @Router /conversions/{job_id}/records [get]
func StreamRecords(c *gin.Context) {
	job, ok := completedJob(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exportFileName(job)))
	c.Header("Transfer-Encoding", "chunked")

	c.Status(http.StatusOK)

	totalRecords := 0
	w := c.Writer
	err := storage.GetStore().Stream(c.Request.Context(), job.ID, func(row int, line []byte) error {
		if _, err := w.Write(line); err != nil {
			return err
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return err
		}
		totalRecords++
		return nil
	})
	if err != nil {
		log.Printf("stream records of job %s: %v", job.ID, err)
		c.Error(err)
	}
	w.Flush()

	c.Set("rows_processed", totalRecords)
}

// ExportFile godoc
// @Summary Write the records of a conversion job to the exports directory
// @Tags exports
// @Produce json
// @Param job_id path string true "Conversion Job ID"
// @Success 201 {object} ExportFileResponse "Export file written"
// @Failure 404 {object} map[string]string "Job not found"
// @Failure 409 {object} map[string]string "Job not completed"
// @Router /conversions/{job_id}/export [post]
func ExportFile(c *gin.Context) {
	job, ok := completedJob(c)
	if !ok {
		return
	}

	if err := os.MkdirAll(settings.ExportsDir, 0750); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create exports directory"})
		return
	}

	prefix := job.ID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fileName := fmt.Sprintf("%s_%s", prefix, exportFileName(job))
	filePath := filepath.Join(settings.ExportsDir, fileName)

	total, err := writeExport(c, job.ID, filePath)
	if err != nil {
		os.Remove(filePath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to export records: %v", err)})
		return
	}

	c.Set("rows_processed", total)
	c.JSON(http.StatusCreated, ExportFileResponse{
		JobID:        job.ID,
		FileName:     fileName,
		TotalRecords: total,
		CreatedAt:    time.Now().Format(time.RFC3339),
	})
}

func writeExport(c *gin.Context, jobID, filePath string) (int, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	total := 0
	err = storage.GetStore().Stream(c.Request.Context(), jobID, func(row int, line []byte) error {
		if _, err := w.Write(line); err != nil {
			return err
		}
		total++
		return w.WriteByte('\n')
	})
	if err != nil {
		return total, err
	}
	return total, w.Flush()
}

// ConvertStream godoc
// @Summary Convert delimited text to NDJSON (synchronous)
// @Description Streams the request body through the pipeline straight into the response
// @Tags exports
// @Accept text/csv
// @Produce application/x-ndjson
// @Param delimiter query string false "Field delimiter, one character"
// @Success 200 {file} file "Streaming NDJSON"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 422 {object} map[string]string "Conversion failed"
// @Router /convert [post]
func ConvertStream(c *gin.Context) {
	delimiter, verr := common.ValidateDelimiter(c.DefaultQuery("delimiter", settings.DefaultDelimiter))
	if verr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}

	pipeline, err := parsers.New(parsers.Options{Delimiter: delimiter, MaxLineBytes: settings.MaxLineBytes})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")

	start := time.Now()
	stats, err := pipeline.Run(c.Request.Context(), c.Request.Body, parsers.NewWriterSink(c.Writer))
	c.Set("rows_processed", stats.Records)

	if err != nil {
		log.Printf("convert stream failed after %d records: %v", stats.Records, err)
		if !c.Writer.Written() {
			c.Header("Content-Type", "application/json; charset=utf-8")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.Error(err)
		return
	}

	if !c.Writer.Written() {
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
	}
	log.Printf("Pipeline finished in %s (%d records)", time.Since(start), stats.Records)
}

// completedJob loads the job named in the path and writes an error response unless it
// has completed
func completedJob(c *gin.Context) (common.ConversionJob, bool) {
	var job common.ConversionJob
	if err := common.GetDB().Where("id = ?", c.Param("job_id")).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversion job not found"})
		return job, false
	}
	if job.Status != common.JobStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Conversion job is %s", job.Status)})
		return job, false
	}
	if storage.GetStore() == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Record store is not configured"})
		return job, false
	}
	return job, true
}

// exportFileName derives the download name from the uploaded file name
func exportFileName(job common.ConversionJob) string {
	base := strings.TrimSuffix(job.SourceName, filepath.Ext(job.SourceName))
	name := slug.Make(base)
	if name == "" {
		name = job.ID
	}
	return name + ".ndjson"
}
