package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/medcv-review/internal/http/response"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into v. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.DebugContext(r.Context(), "Invalid request body", "error", err)
		response.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}
