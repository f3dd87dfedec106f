package scanner

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// maxScanPayload caps the request body for scan uploads. Base64 inflates
// images by a third, so this allows photos of roughly 35MB.
const maxScanPayload = int64(50 << 20)

// scanRequest is the POST /api/scan payload: a base64 data URL, the way
// browsers produce them from canvas captures and file readers.
type scanRequest struct {
	Image string `json:"image"`
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes a JSON response with CORS headers
func writeJSON(w http.ResponseWriter, status int, body any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error response with CORS headers
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleScan accepts a base64 data-URL image and runs the scan pipeline
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxScanPayload)

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request")
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}

	frameData, contentType, err := decodeDataURL(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.ProcessScan(r.Context(), frameData, contentType)
	if err != nil {
		slog.Error("Error processing scan", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleScanImage serves the stored rectified card image for a scan
func (s *Server) handleScanImage(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("id")
	if scanID == "" {
		writeError(w, http.StatusBadRequest, "Scan ID required")
		return
	}

	png, err := s.service.ScanImage(scanID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Scan image not found")
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		slog.Error("Error writing scan image", "scan_id", scanID, "error", err)
	}
}

// handleHistory returns recorded valuations for a cache key
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "History key required")
		return
	}

	valuations, err := s.service.ValuationHistory(key)
	if err != nil {
		slog.Error("Error listing valuation history", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"key":        key,
		"valuations": valuations,
	})
}

// handleHealth reports service liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeDataURL strips an optional "data:<mime>;base64," prefix and
// decodes the payload. Bare base64 strings are accepted too.
func decodeDataURL(dataURL string) ([]byte, string, error) {
	payload := dataURL
	contentType := ""

	if strings.HasPrefix(dataURL, "data:") {
		header, rest, found := strings.Cut(dataURL, ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		payload = rest
		contentType = strings.TrimPrefix(header, "data:")
		contentType = strings.TrimSuffix(contentType, ";base64")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image data")
	}
	return data, contentType, nil
}
