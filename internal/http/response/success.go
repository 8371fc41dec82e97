package response

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/medcv-review/pkg/logger"
)

type envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func write(w http.ResponseWriter, statusCode int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// JSON writes data inside the success envelope.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	write(w, statusCode, envelope{Status: "success", Data: data})
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// List writes a slice with its length as results.
func List[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	write(w, http.StatusOK, envelope{Status: "success", Results: &n, Data: items})
}

// Message writes a success envelope carrying only a message and optional data.
func Message(w http.ResponseWriter, message string, data any) {
	write(w, http.StatusOK, envelope{Status: "success", Message: message, Data: data})
}
