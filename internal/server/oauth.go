package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/desertthunder/pluto/internal/models"
	"github.com/desertthunder/pluto/internal/shared"
)

const (
	stateCookie = "pluto_oauth_state"
	stateMaxAge = 10 * time.Minute
)

// IDTokenClaims are the ID token claims used to find or create a user.
type IDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

// IDTokenVerifier verifies a raw ID token and extracts its claims.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*IDTokenClaims, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v oidcVerifier) Verify(ctx context.Context, raw string) (*IDTokenClaims, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var claims IDTokenClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode ID token claims: %w", err)
	}
	return &claims, nil
}

// UserStore finds or creates users by email.
type UserStore interface {
	FindOrCreateByEmail(ctx context.Context, email, name string) (*models.User, bool, error)
}

// OAuthHandler handles the OpenID Connect authorization code flow for browser logins.
type OAuthHandler struct {
	config   *oauth2.Config
	verifier IDTokenVerifier
	users    UserStore
	auth     *Authenticator
	secure   bool
	logger   *log.Logger
}

// NewOAuthHandler creates a handler from an already discovered oauth2 config and verifier.
func NewOAuthHandler(config *oauth2.Config, verifier IDTokenVerifier, users UserStore, auth *Authenticator, secure bool, logger *log.Logger) *OAuthHandler {
	return &OAuthHandler{
		config:   config,
		verifier: verifier,
		users:    users,
		auth:     auth,
		secure:   secure,
		logger:   logger,
	}
}

// DiscoverOAuthHandler runs OIDC discovery against the configured provider.
func DiscoverOAuthHandler(ctx context.Context, cfg shared.OIDCConfig, users UserStore, auth *Authenticator, secure bool, logger *log.Logger) (*OAuthHandler, error) {
	if !cfg.Enabled() {
		return nil, shared.ErrAuthDisabled
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("%w: OIDC discovery: %v", shared.ErrServiceUnavailable, err)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	verifier := oidcVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})}

	return NewOAuthHandler(config, verifier, users, auth, secure, logger), nil
}

// Register adds the login, callback, and logout routes.
func (h *OAuthHandler) Register(r Router) {
	r.Handle(http.MethodGet, "/auth/login", http.HandlerFunc(h.Login))
	r.Handle(http.MethodGet, "/auth/callback", http.HandlerFunc(h.Callback))
	r.Handle(http.MethodPost, "/auth/logout", http.HandlerFunc(h.Logout))
}

// Login stores a random state in a short-lived cookie and redirects to the provider.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusFound)
}

// Callback validates the state, exchanges the code, verifies the ID token, and starts a session
// for the user with the token's email.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if err := h.callback(w, r); err != nil {
		switch {
		case errors.Is(err, shared.ErrStateMismatch), errors.Is(err, shared.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		case errors.Is(err, shared.ErrInvalidToken):
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
		default:
			h.logger.Error("login callback failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: internalErrorMessage})
		}
		return
	}
	http.Redirect(w, r, "/api/me", http.StatusFound)
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		return shared.ErrStateMismatch
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})

	code := q.Get("code")
	if code == "" {
		return fmt.Errorf("%w: authorization failed: %s - %s", shared.ErrInvalidInput, q.Get("error"), q.Get("error_description"))
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return fmt.Errorf("%w: no id_token in token response", shared.ErrInvalidToken)
	}

	claims, err := h.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}
	if claims.Email == "" || (claims.EmailVerified != nil && !*claims.EmailVerified) {
		return fmt.Errorf("%w: ID token has no verified email", shared.ErrInvalidToken)
	}

	user, created, err := h.users.FindOrCreateByEmail(r.Context(), claims.Email, claims.Name)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	if created {
		h.logger.Info("created user", "user_id", user.ID)
	}

	return h.auth.Login(w, r, Identity{UserID: user.ID, Email: user.Email})
}

// Logout clears the session.
func (h *OAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(w, r); err != nil {
		h.logger.Error("logout failed", "err", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
