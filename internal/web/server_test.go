package web

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/flexgen/internal/config"
	"github.com/JonMunkholm/flexgen/internal/core"
	"github.com/JonMunkholm/flexgen/internal/table"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{Port: 5001, RequestTimeout: time.Minute, ShutdownTimeout: time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 10 << 20, MaxExtractSize: 10 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second},
		Staging:  config.StagingConfig{Dir: filepath.Join(t.TempDir(), "staging"), SweepInterval: time.Hour, MaxAge: time.Hour},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{EnableCSP: true, AllowedOrigins: []string{"*"}},
		Logging:  config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	svc, err := core.NewService(core.ServiceConfig{
		StagingDir:      cfg.Staging.Dir,
		MaxExtractBytes: cfg.Upload.MaxExtractSize,
		MaxConcurrent:   cfg.Upload.MaxConcurrent,
		MaxWait:         cfg.Upload.MaxWaitTime,
	}, nil)
	require.NoError(t, err)

	s := NewServer(svc, cfg)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func xlsxBytes(t *testing.T, tbl *table.Table) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.xlsx")
	require.NoError(t, table.WriteFile(tbl, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func primaryTable() *table.Table {
	p := table.New(core.JoinKey)
	p.AppendRow(table.Text("A"))
	p.AppendRow(table.Text("B"))
	return p
}

// multipartRequest builds a POST /generate request from field -> (filename, content).
func multipartRequest(t *testing.T, files map[string][2]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, file := range files {
		fw, err := mw.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = fw.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	require.NoError(t, os.RemoveAll(cfg.Staging.Dir))
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.NotEmpty(t, body["error"])
}

func TestGenerate_Success(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)

	req := multipartRequest(t, map[string][2]string{
		"excel_file": {"input.xlsx", string(xlsxBytes(t, primaryTable()))},
		"folder_zip": {"config.zip", string(zipOf(t, map[string]string{"region.txt": " EMEA \n", "skip.csv": "x"}))},
	})
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="output.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Disposition", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, rec.Header().Get("Content-Length"), strconv.Itoa(rec.Body.Len()))

	path := filepath.Join(t.TempDir(), "output.xlsx")
	require.NoError(t, os.WriteFile(path, rec.Body.Bytes(), 0o644))
	got, err := table.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{core.JoinKey, "CONFIG_region"}, got.Columns)
	assert.Equal(t, []table.Cell{table.Text("A"), table.Text("EMEA")}, got.Rows[0])

	entries, err := os.ReadDir(cfg.Staging.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace should be removed after the response")
}

func TestGenerate_MissingFolderZip(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := serve(s, multipartRequest(t, map[string][2]string{
		"excel_file": {"input.xlsx", string(xlsxBytes(t, primaryTable()))},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Missing required files (excel_file or folder_zip)", resp.Error)
	assert.Equal(t, "VAL001", resp.Code)
}

func TestGenerate_NotMultipart(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/generate", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required files (excel_file or folder_zip)", decodeError(t, rec).Error)
}

func TestGenerate_ReferenceWithoutJoinKey(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)

	noKey := table.New("NAME")
	noKey.AppendRow(table.Text("x"))
	ref := table.New(core.ReferenceColumns...)
	ref.AppendRow(table.Text("A"), table.Text("Attr"), table.Text("Prompt"))

	rec := serve(s, multipartRequest(t, map[string][2]string{
		"excel_file": {"input.xlsx", string(xlsxBytes(t, noKey))},
		"folder_zip": {"config.zip", string(zipOf(t, map[string]string{"region.txt": "EMEA"}))},
		"dff_file":   {"dff.xlsx", string(xlsxBytes(t, ref))},
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Contains(t, resp.Error, "Generation failed: ")
	assert.Contains(t, resp.Error, core.JoinKey)
	assert.Equal(t, "PROC001", resp.Code)

	entries, err := os.ReadDir(cfg.Staging.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerate_CorruptSpreadsheet(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServer(t, cfg)

	rec := serve(s, multipartRequest(t, map[string][2]string{
		"excel_file": {"input.xlsx", "definitely not xlsx"},
		"folder_zip": {"config.zip", string(zipOf(t, map[string]string{"region.txt": "EMEA"}))},
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "PARSE001", resp.Code)
	assert.Contains(t, resp.Error, "input.xlsx")
	assert.NotContains(t, resp.Error, cfg.Staging.Dir)
}

func TestGenerate_TooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxFileSize = 1024
	s := newTestServer(t, cfg)

	rec := serve(s, multipartRequest(t, map[string][2]string{
		"excel_file": {"input.xlsx", string(bytes.Repeat([]byte("x"), 4096))},
		"folder_zip": {"config.zip", "zip"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "VAL002", resp.Code)
	assert.Equal(t, "The upload was rejected", resp.Message)
	assert.NotContains(t, resp.Message, "Missing required files")
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := serve(s, httptest.NewRequest(http.MethodOptions, "/generate", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="folder_zip"`)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestListRuns(t *testing.T) {
	s := newTestServer(t, testConfig(t))

	serve(s, multipartRequest(t, map[string][2]string{
		"excel_file": {"input.xlsx", string(xlsxBytes(t, primaryTable()))},
	}))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/runs?limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []core.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, core.RunFailed, body.Runs[0].Status)
	assert.Equal(t, "VAL001", body.Runs[0].ErrorCode)
	assert.Equal(t, "input.xlsx", body.Runs[0].InputName)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, GenerateLimit: 2}
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	}
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestParseIntParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=5&bad=x&neg=-1", nil)
	assert.Equal(t, 5, parseIntParam(req, "limit", 20))
	assert.Equal(t, 20, parseIntParam(req, "bad", 20))
	assert.Equal(t, 20, parseIntParam(req, "neg", 20))
	assert.Equal(t, 20, parseIntParam(req, "missing", 20))
}

func TestFormError(t *testing.T) {
	err := formError(fmt.Errorf("multipart: NextPart: %w", &http.MaxBytesError{Limit: 1024}))
	assert.Equal(t, "VAL002", core.MapError(err).Code)
	assert.Equal(t, "upload exceeds maximum size of 1024 bytes", core.Describe(err))

	err = formError(http.ErrNotMultipart)
	assert.Equal(t, "VAL001", core.MapError(err).Code)
	assert.Equal(t, "Missing required files (excel_file or folder_zip)", core.Describe(err))
}
