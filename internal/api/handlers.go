package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Lllllllleong/asodocumentflow/internal/models"
	"github.com/Lllllllleong/asodocumentflow/internal/pdfdoc"
	"github.com/Lllllllleong/asodocumentflow/internal/preview"
	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

const (
	HeaderWarnings  = "X-Pipeline-Warnings"
	HeaderFailures  = "X-Pipeline-Failures"
	HeaderPageCount = "X-Page-Count"

	maxFormMemory = 32 << 20
)

// PreviewResponse carries base64 PNG thumbnails of the first pages.
type PreviewResponse struct {
	PageCount  int      `json:"pageCount"`
	Thumbnails [][]byte `json:"thumbnails"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, err := s.formFile(r, "file")
	if err != nil {
		s.uploadError(w, err)
		return
	}
	doc, err := pdfdoc.Load(file.Data)
	if err != nil {
		s.pipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.InfoResponse{PageCount: doc.PageCount(), AIEnabled: s.pipeline.AIEnabled()})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, err := s.formFile(r, "file")
	if err != nil {
		s.uploadError(w, err)
		return
	}
	doc, err := pdfdoc.Load(file.Data)
	if err != nil {
		s.pipelineError(w, r, err)
		return
	}
	thumbs, err := preview.Grid(file.Data, formInt(r, "limit", preview.DefaultGridLimit), formInt(r, "size", preview.DefaultMaxSize))
	if err != nil {
		s.pipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{PageCount: doc.PageCount(), Thumbnails: thumbs})
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, err := s.formFile(r, "file")
	if err != nil {
		s.uploadError(w, err)
		return
	}
	// Pages are 1-indexed on the wire.
	page := formInt(r, "page", 1)
	png, err := preview.Thumbnail(file.Data, page-1, formInt(r, "size", preview.DefaultMaxSize))
	if err != nil {
		if errors.Is(err, preview.ErrPageOutOfRange) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.pipelineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, err := s.formFile(r, "file")
	if err != nil {
		s.uploadError(w, err)
		return
	}
	spec, warnings, err := pdfdoc.SpecText{
		Mode:          r.FormValue("mode"),
		PagesPerChunk: r.FormValue("pages_per_chunk"),
		Ranges:        r.FormValue("ranges"),
		Pages:         r.FormValue("pages"),
	}.Parse()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	namingMode, err := services.ParseNamingMode(r.FormValue("naming"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.pipeline.Split(r.Context(), services.SplitRequest{
		Source:        file.Data,
		Spec:          spec,
		Naming:        namingMode,
		Pattern:       r.FormValue("pattern"),
		Names:         r.MultipartForm.Value["names"],
		InputWarnings: warnings,
	})
	if err != nil {
		s.pipelineError(w, r, err)
		return
	}
	writeResult(w, res)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := s.formFiles(r, "files")
	if err != nil {
		s.uploadError(w, err)
		return
	}
	mode := r.FormValue("mode")
	if mode == "" {
		mode = string(services.NamingAI)
	}
	namingMode, err := services.ParseNamingMode(mode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.pipeline.RenameBatch(r.Context(), services.RenameRequest{
		Files:   files,
		Naming:  namingMode,
		Names:   r.MultipartForm.Value["names"],
		Pattern: r.FormValue("pattern"),
	})
	if err != nil {
		s.pipelineError(w, r, err)
		return
	}
	writeResult(w, res)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := s.formFiles(r, "files")
	if err != nil {
		s.uploadError(w, err)
		return
	}
	res, err := s.pipeline.Merge(r.Context(), services.MergeRequest{Files: files, Name: r.FormValue("name")})
	if err != nil {
		s.pipelineError(w, r, err)
		return
	}
	writeResult(w, res)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

var (
	errMissingFile = errors.New("file is required")
	errTooLarge    = errors.New("file exceeds max size")
)

func (s *Server) formFile(r *http.Request, field string) (services.InputFile, error) {
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return services.InputFile{}, fmt.Errorf("%w: %s", errMissingFile, field)
	}
	return s.readUpload(headers[0])
}

func (s *Server) formFiles(r *http.Request, field string) ([]services.InputFile, error) {
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: %s", errMissingFile, field)
	}
	files := make([]services.InputFile, 0, len(headers))
	for _, h := range headers {
		f, err := s.readUpload(h)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *Server) readUpload(h *multipart.FileHeader) (services.InputFile, error) {
	file, err := h.Open()
	if err != nil {
		return services.InputFile{}, fmt.Errorf("failed to open upload %s: %w", h.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return services.InputFile{}, fmt.Errorf("failed to read upload %s: %w", h.Filename, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return services.InputFile{}, fmt.Errorf("%w (%d bytes): %s", errTooLarge, s.cfg.MaxUploadBytes, h.Filename)
	}
	return services.InputFile{Name: filepath.Base(h.Filename), Data: data}, nil
}

func (s *Server) uploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errMissingFile):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errTooLarge):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// pipelineError maps the error taxonomy onto status codes: anything caused
// by the request is a 400, the rest a 500.
func (s *Server) pipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		inputErr *pdfdoc.InputError
		parseErr *pdfdoc.ParseError
		mergeErr *pdfdoc.MergeError
	)
	switch {
	case errors.As(err, &inputErr), errors.As(err, &parseErr), errors.As(err, &mergeErr), errors.Is(err, services.ErrNoOutput):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("Request failed.", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error: "+err.Error(), http.StatusInternalServerError)
	}
}

func writeResult(w http.ResponseWriter, res *services.Result) {
	if len(res.Report.Warnings) > 0 {
		if b, err := json.Marshal(res.Report.Warnings); err == nil {
			w.Header().Set(HeaderWarnings, string(b))
		}
	}
	w.Header().Set(HeaderFailures, strconv.Itoa(len(res.Report.Failures)))
	w.Header().Set(HeaderPageCount, strconv.Itoa(res.PageCount))
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

func formInt(r *http.Request, key string, fallback int) int {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
