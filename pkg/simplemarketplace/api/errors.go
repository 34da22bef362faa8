package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
)

// writeError maps the package error taxonomy onto HTTP statuses. The
// user-facing message is derived here, at the outermost boundary.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, simplemarketplace.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, simplemarketplace.ErrAuthenticationRequired):
		http.Error(w, "authentication required", http.StatusUnauthorized)
	case errors.Is(err, simplemarketplace.ErrNotOwner):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, simplemarketplace.ErrUserNotFound),
		errors.Is(err, simplemarketplace.ErrPostNotFound),
		errors.Is(err, simplemarketplace.ErrBlobNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, simplemarketplace.ErrAlreadyExists):
		http.Error(w, "already exists", http.StatusConflict)
	case errors.Is(err, simplemarketplace.ErrUpstreamFailure):
		slog.Error("upstream failure", "error", err)
		http.Error(w, "upstream failure", http.StatusBadGateway)
	default:
		slog.Error("internal error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
