package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/orvilledev/smw-spd-formatter/config"
	"github.com/orvilledev/smw-spd-formatter/internal/services"
)

func testRouter(cfg config.PipelineConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := services.NewManifestService(nil, nil, nil, nil, nil, nil, cfg)
	router := gin.New()
	NewManifestHandler(service).RegisterRoutes(router)
	return router
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxUploadFiles:    100,
		RoutingSource:     "cell",
		IncludeCustomerPO: true,
		HeaderRow:         10,
		MetadataSheet:     "Page1_1",
		POCell:            "G5",
		RoutingCell:       "G6",
		WeightColumn:      "G",
		SKUColumn:         "UPC",
		BoxColumn:         "Box X",
		UnitsColumn:       "Sku Units",
	}
}

func manifestBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A11", &[]interface{}{"UPC", "Box X", "Sku Units"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A12", &[]interface{}{"111", 1, 5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		w, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestCreateRun(t *testing.T) {
	router := testRouter(testConfig())

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"load1.xlsx": manifestBytes(t),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Run struct {
			OutputName    string `json:"output_name"`
			TotalQuantity int    `json:"total_quantity"`
		} `json:"run"`
		ArtifactURL string `json:"artifact_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "SMW-BC-Output-1-ITEMS.xlsx", resp.Run.OutputName)
	require.Equal(t, 5, resp.Run.TotalQuantity)
	require.Contains(t, resp.ArtifactURL, "/artifact")
}

func TestCreateRunEmptyBatch(t *testing.T) {
	router := testRouter(testConfig())

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"notes.txt": []byte("not a spreadsheet"),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Terminal empty-result state, not an error
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateRunBatchTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadFiles = 1
	router := testRouter(cfg)

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"a.xlsx": manifestBytes(t),
		"b.xlsx": manifestBytes(t),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "exceeds the limit")
}

func TestCreateSingleRunUnparseableFile(t *testing.T) {
	router := testRouter(testConfig())

	body, contentType := multipartBody(t, "file", map[string][]byte{
		"bad.xlsx": []byte("not a workbook"),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/single", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDownloadArtifactBadID(t *testing.T) {
	router := testRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/not-a-uuid/artifact", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRunsRequiresQuery(t *testing.T) {
	router := testRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRunsWithoutIndexer(t *testing.T) {
	router := testRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=PO-77", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFindFiles(t *testing.T) {
	router := testRouter(testConfig())

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"PO-9-load.xlsx": []byte("x"),
		"other.xlsx":     []byte("y"),
	}, map[string]string{"keywords": "po-9"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/finder", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	require.Equal(t, "1", rec.Header().Get("X-Match-Count"))
}
