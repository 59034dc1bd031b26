package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/orvilledev/smw-spd-formatter/internal/archive"
	"github.com/orvilledev/smw-spd-formatter/internal/cache"
	"github.com/orvilledev/smw-spd-formatter/internal/manifest"
	"github.com/orvilledev/smw-spd-formatter/internal/pipeline"
	"github.com/orvilledev/smw-spd-formatter/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxUploadMemory bounds the in-memory portion of multipart parsing.
const maxUploadMemory = 64 << 20

// ManifestHandler handles manifest-processing HTTP requests
type ManifestHandler struct {
	service *services.ManifestService
}

// NewManifestHandler creates a new manifest handler
func NewManifestHandler(service *services.ManifestService) *ManifestHandler {
	return &ManifestHandler{service: service}
}

// RegisterRoutes wires the handler into the router.
func (h *ManifestHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/runs", h.CreateRun)
		v1.POST("/runs/single", h.CreateSingleRun)
		v1.GET("/runs", h.ListRuns)
		v1.GET("/runs/:id", h.GetRun)
		v1.GET("/runs/:id/artifact", h.DownloadArtifact)
		v1.GET("/search", h.SearchRuns)
		v1.POST("/finder", h.FindFiles)
	}
}

func readUploads(c *gin.Context, field string) ([]archive.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse multipart form")
	}
	files := form.File[field]

	uploads := make([]archive.Upload, 0, len(files))
	for _, fh := range files {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read upload %s", fh.Filename)
		}
		uploads = append(uploads, archive.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// CreateRun consolidates an uploaded batch of manifest files.
func (h *ManifestHandler) CreateRun(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form data"})
		return
	}

	uploads, err := readUploads(c, "files")
	if err != nil {
		log.Error().Err(err).Msg("Invalid upload request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.ProcessBatch(c.Request.Context(), uploads)
	if err != nil {
		var tooMany *pipeline.BatchSizeExceededError
		if errors.As(err, &tooMany) {
			c.JSON(http.StatusBadRequest, gin.H{"error": tooMany.Error()})
			return
		}
		log.Error().Err(err).Msg("Batch processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusCreated
	if outcome.Empty {
		// No valid files: terminal empty-result state, no artifact.
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"run":          outcome,
		"artifact_url": artifactURL(outcome.RunID, outcome.Empty),
	})
}

// CreateSingleRun formats one manifest file in single-file mode.
func (h *ManifestHandler) CreateSingleRun(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A single 'file' upload is required"})
		return
	}
	data, err := readFileHeader(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.ProcessSingle(c.Request.Context(), fh.Filename, data)
	if err != nil {
		c.JSON(statusForParseError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"run":          outcome,
		"artifact_url": artifactURL(outcome.RunID, false),
	})
}

// statusForParseError maps parse-level failures to caller errors;
// anything else is ours.
func statusForParseError(err error) int {
	var missing *manifest.MissingColumnsError
	var unreadable *manifest.UnreadableInputError
	if errors.As(err, &missing) || errors.As(err, &unreadable) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// DownloadArtifact streams a cached workbook by run id.
func (h *ManifestHandler) DownloadArtifact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run id"})
		return
	}

	data, name, err := h.service.Artifact(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Artifact not found or expired"})
			return
		}
		log.Error().Err(err).Str("run_id", id.String()).Msg("Artifact lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if name == "" {
		name = "output.xlsx"
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetRun returns one run record.
func (h *ManifestHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run id"})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

// SearchRuns queries indexed run history.
func (h *ManifestHandler) SearchRuns(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	results, err := h.service.SearchRuns(c.Request.Context(), term)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ListRuns returns recent run history.
func (h *ManifestHandler) ListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// FindFiles searches upload names with keywords and returns a zip of the
// matching spreadsheets.
func (h *ManifestHandler) FindFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form data"})
		return
	}

	uploads, err := readUploads(c, "files")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	keywords := strings.Split(c.PostForm("keywords"), "\n")
	zipData, names, warnings, err := h.service.FindSpreadsheets(uploads, keywords)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if zipData == nil {
		c.JSON(http.StatusOK, gin.H{"matches": []string{}, "warnings": warnings})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="excel_search_results.zip"`)
	c.Header("X-Match-Count", strconv.Itoa(len(names)))
	c.Data(http.StatusOK, "application/zip", zipData)
}

func artifactURL(id uuid.UUID, empty bool) string {
	if empty {
		return ""
	}
	return "/api/v1/runs/" + id.String() + "/artifact"
}
