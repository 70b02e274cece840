package web

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/eatlytic/internal/domain"
	"github.com/vbonduro/eatlytic/internal/imageenc"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusForKind maps a failure kind to the HTTP status returned to clients.
func statusForKind(k domain.FailureKind) int {
	switch k {
	case domain.KindEncoding:
		return http.StatusBadRequest
	case domain.KindTransport:
		return http.StatusBadGateway
	case domain.KindResponseParse:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleAnalyze accepts either a multipart form with an "image" file or a
// raw image body whose Content-Type is the media type, and replies with the
// FoodAnalysis as JSON.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	imageData, declared, err := s.readImage(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "image too large", domain.KindEncoding)
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error(), domain.KindEncoding)
		return
	}

	mediaType, ok := acceptedMediaType(imageData, declared)
	if !ok {
		s.writeError(w, http.StatusUnsupportedMediaType, "unsupported image format", domain.KindEncoding)
		return
	}

	result, err := s.service.Analyze(r.Context(), bytes.NewReader(imageData), mediaType, nil)
	if err != nil {
		kind := domain.KindOf(err)
		s.logger.Error("analyze failed", "kind", kind.String(), "error", err)
		s.writeError(w, statusForKind(kind), err.Error(), kind)
		return
	}

	writeJSON(w, http.StatusOK, result, s.logger)
}

// readImage returns the uploaded bytes and the media type the client declared.
func (s *Server) readImage(r *http.Request) ([]byte, string, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/") {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		return data, ct, nil
	}

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", errors.New("image file required")
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}

// acceptedMediaType prefers the type sniffed from the bytes over what the
// client claims. Formats the sniffer cannot identify (HEIC) fall back to a
// supported declared type. Data-URI text and empty bodies pass through to
// the encoder, which validates them.
func acceptedMediaType(data []byte, declared string) (string, bool) {
	if mt, ok := imageenc.Sniff(data); ok {
		return mt, true
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.HasPrefix(trimmed, []byte("data:")) {
		if imageenc.Supported(declared) {
			return declared, true
		}
		return "", true
	}
	if imageenc.Supported(declared) {
		return declared, true
	}
	return "", false
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit", domain.KindUnknown)
			return
		}
		limit = n
	}

	attempts, err := s.service.RecentAttempts(r.Context(), limit)
	if err != nil {
		s.logger.Error("list attempts failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list attempts", domain.KindUnknown)
		return
	}
	writeJSON(w, http.StatusOK, attempts, s.logger)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, kind domain.FailureKind) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind.String()}, s.logger)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
