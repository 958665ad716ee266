package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/asodocumentflow/internal/config"
	"github.com/Lllllllleong/asodocumentflow/internal/extract"
	"github.com/Lllllllleong/asodocumentflow/internal/models"
	"github.com/Lllllllleong/asodocumentflow/internal/services"
	"github.com/Lllllllleong/asodocumentflow/internal/testutil"
)

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string][]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestServer(extractor extract.Extractor, apiKey string) *Server {
	cfg := config.Config{APIKey: apiKey, MaxUploadBytes: 10 << 20}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(services.NewPipeline(extractor, services.PipelineConfig{}), log, cfg)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func attachmentName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	return params["filename"]
}

func TestHealth(t *testing.T) {
	rec := serve(newTestServer(nil, "secret"), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.AIEnabled)
}

func TestAuth(t *testing.T) {
	s := newTestServer(nil, "secret")
	pdf := upload{"file", "a.pdf", testutil.NewPDF(2, 100)}

	rec := serve(s, multipartRequest(t, "/api/info", nil, pdf))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := multipartRequest(t, "/api/info", nil, pdf)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(s, req).Code)

	req = multipartRequest(t, "/api/info", nil, pdf)
	req.Header.Set("Authorization", "Bearer secret")
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var info models.InfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 2, info.PageCount)
}

func TestSplit_FixedSizeReturnsArchive(t *testing.T) {
	s := newTestServer(nil, "")
	req := multipartRequest(t, "/api/split", map[string][]string{
		"mode":            {"fixed"},
		"pages_per_chunk": {"3"},
		"pattern":         {"parte_{numero}"},
	}, upload{"file", "lote.pdf", testutil.NewPDF(7, 100)})

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "pdf_dividido.zip", attachmentName(t, rec))
	assert.Equal(t, "0", rec.Header().Get(HeaderFailures))
	assert.Equal(t, "7", rec.Header().Get(HeaderPageCount))

	data := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"parte_1.pdf", "parte_2.pdf", "parte_3.pdf"}, names)
}

func TestSplit_SinglePageWithWarnings(t *testing.T) {
	s := newTestServer(nil, "")
	req := multipartRequest(t, "/api/split", map[string][]string{
		"mode":  {"pages"},
		"pages": {"2, 9, x"},
	}, upload{"file", "lote.pdf", testutil.NewPDF(3, 100)})

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "pagina_2.pdf", attachmentName(t, rec))

	var warnings []string
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get(HeaderWarnings)), &warnings))
	assert.Len(t, warnings, 2)

	widths, err := testutil.PageWidths(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []int{102}, widths)
}

func TestSplit_AIFailuresAreCounted(t *testing.T) {
	failing := extract.ExtractorFunc(func(ctx context.Context, pdf []byte) (extract.Fields, error) {
		return extract.Fields{}, extract.ErrMalformedResponse
	})
	s := newTestServer(failing, "")
	req := multipartRequest(t, "/api/split", map[string][]string{
		"mode":   {"single"},
		"naming": {"ai"},
	}, upload{"file", "lote.pdf", testutil.NewPDF(2, 100)})

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get(HeaderFailures))
}

func TestSplit_BadRequests(t *testing.T) {
	s := newTestServer(nil, "")

	rec := serve(s, multipartRequest(t, "/api/split", map[string][]string{"mode": {"halves"}},
		upload{"file", "a.pdf", testutil.NewPDF(2, 100)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, multipartRequest(t, "/api/split", map[string][]string{"mode": {"single"}},
		upload{"file", "a.pdf", []byte("not a pdf")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)

	rec = serve(s, multipartRequest(t, "/api/split", map[string][]string{"mode": {"single"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, multipartRequest(t, "/api/split", map[string][]string{"mode": {"pages"}, "pages": {"7"}},
		upload{"file", "a.pdf", testutil.NewPDF(2, 100)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRename_Manual(t *testing.T) {
	s := newTestServer(nil, "")
	req := multipartRequest(t, "/api/rename", map[string][]string{
		"mode":  {"manual"},
		"names": {"ASO 01012024 FULANO", ""},
	},
		upload{"files", "scan1.pdf", testutil.NewPDF(1, 100)},
		upload{"files", "scan2.pdf", testutil.NewPDF(1, 200)},
	)

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "asos_renomeados.zip", attachmentName(t, rec))

	data := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "ASO 01012024 FULANO.pdf", zr.File[0].Name)
	assert.Equal(t, "scan2.pdf", zr.File[1].Name)
}

func TestMerge(t *testing.T) {
	s := newTestServer(nil, "")
	req := multipartRequest(t, "/api/merge", map[string][]string{"name": {"lote: completo"}},
		upload{"files", "1.pdf", testutil.NewPDF(2, 100)},
		upload{"files", "2.pdf", testutil.NewPDF(1, 200)},
	)

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "lote completo.pdf", attachmentName(t, rec))

	widths, err := testutil.PageWidths(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 201}, widths)
}

func TestMerge_InvalidInput(t *testing.T) {
	s := newTestServer(nil, "")
	req := multipartRequest(t, "/api/merge", nil,
		upload{"files", "1.pdf", testutil.NewPDF(2, 100)},
		upload{"files", "broken.pdf", []byte("garbage")},
	)

	rec := serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "broken.pdf")
}

func TestThumbnail(t *testing.T) {
	s := newTestServer(nil, "")

	rec := serve(s, multipartRequest(t, "/api/thumbnail", map[string][]string{"page": {"2"}, "size": {"80"}},
		upload{"file", "a.pdf", testutil.NewPDF(2, 100)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = serve(s, multipartRequest(t, "/api/thumbnail", map[string][]string{"page": {"5"}},
		upload{"file", "a.pdf", testutil.NewPDF(2, 100)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(nil, "")
	rec := serve(s, multipartRequest(t, "/api/preview", map[string][]string{"limit": {"2"}},
		upload{"file", "a.pdf", testutil.NewPDF(4, 100)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.PageCount)
	assert.Len(t, body.Thumbnails, 2)
}
