package api

import (
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/tendant/simple-marketplace/pkg/simplemarketplace"
)

// sessionCookie is the cookie jwtauth.TokenFromCookie reads the token from.
const sessionCookie = "jwt"

// NewTokenAuth creates the JWT codec for session cookies.
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Verifier extracts and validates the session token from the Authorization
// header or the jwt cookie. Requests without a token pass through with no
// identity; handlers that need one use RequireSession.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verifier(ja)
}

// IdentityFromRequest reconstructs the caller's identity from verified token
// claims. Returns nil when the request carries no valid session, mirroring
// the signed-out state.
func IdentityFromRequest(r *http.Request) *simplemarketplace.Identity {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return nil
	}

	uidStr, _ := claims["uid"].(string)
	uid, err := uuid.Parse(uidStr)
	if err != nil || uid == uuid.Nil {
		return nil
	}

	identity := &simplemarketplace.Identity{UserID: uid}
	identity.Email, _ = claims["email"].(string)
	identity.DisplayName, _ = claims["displayName"].(string)
	if key, ok := claims["profilePicture"].(string); ok && key != "" {
		if ref, err := simplemarketplace.ParseBlobRef(key); err == nil {
			identity.ProfilePicture = &ref
		}
	}

	return identity
}

// RequireSession rejects requests that carry no valid session token.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromRequest(r) == nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setSessionCookie signs the identity's session projection into the jwt
// cookie with the 7-day max age.
func setSessionCookie(w http.ResponseWriter, ja *jwtauth.JWTAuth, identity *simplemarketplace.Identity) error {
	claims := map[string]interface{}{
		"uid":         identity.UserID.String(),
		"email":       identity.Email,
		"displayName": identity.DisplayName,
	}
	if identity.ProfilePicture != nil {
		claims["profilePicture"] = identity.ProfilePicture.Key()
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, simplemarketplace.SessionTTL)

	_, tokenString, err := ja.Encode(claims)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(simplemarketplace.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// clearSessionCookie expires the jwt cookie immediately.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
