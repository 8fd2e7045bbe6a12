package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Stewz00/go-backoffice-service/internal/middleware"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/Stewz00/go-backoffice-service/internal/service"
)

const googleStateCookie = "google_oauth_state"

type AuthHandler struct {
	log          *slog.Logger
	authService  *service.AuthService
	userService  *service.UserService
	appURL       string
	secureCookie bool
}

func NewAuthHandler(log *slog.Logger, authService *service.AuthService, userService *service.UserService, appURL string) *AuthHandler {
	return &AuthHandler{
		log:          log,
		authService:  authService,
		userService:  userService,
		appURL:       appURL,
		secureCookie: strings.HasPrefix(appURL, "https://"),
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MeResponse struct {
	User             *model.UserProfile      `json:"user"`
	TwoFactorPending bool                    `json:"requiresTwoFactor"`
	TwoFactorMethods []model.TwoFactorMethod `json:"twoFactorMethods,omitempty"`
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.Profile())
}

// Login handles user authentication and returns a JWT token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Logout handles user logout by revoking the JWT token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		sendJSONError(w, "No token provided", http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeMessage(w, "Logged out successfully")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	profile, err := h.userService.Profile(r.Context(), claims.UserID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		User:             profile,
		TwoFactorPending: claims.TwoFactorPending,
		TwoFactorMethods: claims.TwoFactorMethods,
	})
}

// GoogleLogin sends the browser to Google with a state bound to a cookie.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	state := hex.EncodeToString(b)

	target, err := h.authService.GoogleAuthURL(state)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     googleStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

// GoogleCallback finishes sign-in and hands the session token to the app in
// the URL fragment, which browsers never send to servers.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(googleStateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		sendJSONError(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: googleStateCookie, Path: "/auth/google", MaxAge: -1})

	session, err := h.authService.LoginWithGoogle(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	fragment := url.Values{
		"token":             {session.Token},
		"requiresTwoFactor": {strconv.FormatBool(session.TwoFactorPending)},
	}
	http.Redirect(w, r, h.appURL+"/auth/callback#"+fragment.Encode(), http.StatusFound)
}
