package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response with the given status code. A nil body
// writes the status code alone.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
