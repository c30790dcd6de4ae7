package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/smartchef/internal/service"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff algorithm
// has no WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	pantryID, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid pantry id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		s.badRequest(w, "failed to parse form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.badRequest(w, "image file required")
		return
	}
	defer s.closeWithLog(file, "upload file")

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "pantry_id", pantryID, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read file"})
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		s.badRequest(w, "unsupported image format")
		return
	}

	det, err := s.service.DetectIngredients(r.Context(), pantryID, imageData, mimeType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newDetectionJSON(det))
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	pantryID, err := parseID(r, "id")
	if err != nil {
		s.badRequest(w, "invalid pantry id")
		return
	}

	photo, err := s.service.LatestPhoto(r.Context(), pantryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serveMedia(w, r, photo.StorageKey)
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	s.serveMedia(w, r, r.PathValue("key"))
}

func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request, key string) {
	reader, mimeType, err := s.service.OpenMedia(r.Context(), key)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			s.logger.Warn("open media failed", "storage_key", key, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer s.closeWithLog(reader, "media reader")

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write media failed", "storage_key", key, "error", err)
	}
}
