package middleware

import (
	"log/slog"
	"net/http"

	"github.com/starweave/starweave/internal/api/response"
	"github.com/starweave/starweave/internal/middleware"
)

// Recovery creates panic recovery middleware for the API
// Returns JSON error responses on panic
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	response.JSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
