package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
)

// AuthHandler handles HTTP requests for accounts and sessions.
type AuthHandler struct {
	auth   *simplemarketplace.AuthBridge
	blobs  *simplemarketplace.BlobCoordinator
	tokens *jwtauth.JWTAuth
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *simplemarketplace.AuthBridge, blobs *simplemarketplace.BlobCoordinator, tokens *jwtauth.JWTAuth) *AuthHandler {
	return &AuthHandler{auth: auth, blobs: blobs, tokens: tokens}
}

// Routes returns the routes for auth
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", h.SignUp)
	r.Post("/signin", h.SignIn)
	r.Post("/signout", h.SignOut)
	r.Post("/reset", h.SendPasswordReset)
	r.Put("/profile", h.UpdateProfile)
	r.Put("/profile/picture", h.UpdateProfilePicture)

	return r
}

// SignUpRequest is the request body for creating an account
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// SignInRequest is the request body for signing in
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetRequest is the request body for a password reset email
type ResetRequest struct {
	Email string `json:"email"`
}

// UpdateProfileRequest is the request body for profile updates. Empty fields
// are left unchanged.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// IdentityResponse is the response body for session-establishing operations
type IdentityResponse struct {
	UserID            string `json:"uid"`
	Email             string `json:"email"`
	DisplayName       string `json:"displayName"`
	ProfilePicture    string `json:"profilePicture,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

func (h *AuthHandler) identityResponse(r *http.Request, identity *simplemarketplace.Identity) IdentityResponse {
	resp := IdentityResponse{
		UserID:      identity.UserID.String(),
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
	}
	if identity.ProfilePicture != nil {
		resp.ProfilePicture = identity.ProfilePicture.Key()
		if url, err := h.blobs.ResolveURL(r.Context(), *identity.ProfilePicture); err == nil {
			resp.ProfilePictureURL = url
		}
	}
	return resp
}

// SignUp creates an account and establishes a session
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	identity, err := h.auth.SignUp(r.Context(), simplemarketplace.SignUpRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := setSessionCookie(w, h.tokens, identity); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Account created", "uid", identity.UserID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.identityResponse(r, identity))
}

// SignIn authenticates and establishes a session
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	identity, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := setSessionCookie(w, h.tokens, identity); err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, h.identityResponse(r, identity))
}

// SignOut ends the session
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromRequest(r)
	if caller == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if err := h.auth.SignOut(r.Context(), caller); err != nil {
		writeError(w, err)
		return
	}

	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// SendPasswordReset mails a reset link for the given email
func (h *AuthHandler) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.auth.SendPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// UpdateProfile changes display name, email or password and refreshes the
// session cookie with the resulting identity
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromRequest(r)
	if caller == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	identity, err := h.auth.UpdateProfile(r.Context(), caller, simplemarketplace.UpdateProfileRequest{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := setSessionCookie(w, h.tokens, identity); err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, h.identityResponse(r, identity))
}

// UpdateProfilePicture uploads a new profile picture and refreshes the
// session cookie with the new ref
func (h *AuthHandler) UpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	caller := IdentityFromRequest(r)
	if caller == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	identity, err := h.auth.UpdateProfilePicture(r.Context(), caller, simplemarketplace.UploadFile{
		Name:   header.Filename,
		Reader: file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := setSessionCookie(w, h.tokens, identity); err != nil {
		writeError(w, err)
		return
	}

	render.JSON(w, r, h.identityResponse(r, identity))
}
