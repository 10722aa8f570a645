package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"

	"github.com/desertthunder/pluto/internal/shared"
)

const (
	sessionName     = "pluto_session"
	sessionUserID   = "user_id"
	sessionEmail    = "email"
	sessionMaxAge   = 30 * 24 * 60 * 60
	tokenIssuerName = "pluto"
)

// Identity is the authenticated user of a request.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the request identity; the zero value means anonymous.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// Claims are the JWT claims of an API token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 API tokens for non-browser clients.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a [TokenIssuer]. An empty secret disables bearer authentication.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user that expires after the issuer's TTL.
func (t *TokenIssuer) Issue(userID, email string) (string, error) {
	if len(t.secret) == 0 {
		return "", fmt.Errorf("%w: server.jwt_secret is not set", shared.ErrMissingCredentials)
	}
	if userID == "" {
		return "", fmt.Errorf("%w: user ID", shared.ErrMissingArgument)
	}

	now := t.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuerName,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, algorithm, issuer, and expiry of a token.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	if len(t.secret) == 0 {
		return nil, fmt.Errorf("%w: bearer tokens are disabled", shared.ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuerName),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}

// NewSessionStore creates the cookie store that holds browser identities.
func NewSessionStore(key string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Authenticator resolves the request identity from a bearer token or the session cookie.
type Authenticator struct {
	tokens   *TokenIssuer
	sessions sessions.Store
}

// NewAuthenticator creates an [Authenticator].
func NewAuthenticator(tokens *TokenIssuer, store sessions.Store) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: store}
}

// Middleware attaches the identity to the request context. It never rejects a request: handlers
// decide whether an anonymous caller is allowed. A malformed bearer token yields 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := bearerToken(r); ok {
			claims, err := a.tokens.Parse(raw)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
				return
			}
			r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: claims.UserID, Email: claims.Email}))
			next.ServeHTTP(w, r)
			return
		}

		if id, ok := a.sessionIdentity(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Login stores the identity in the session cookie.
func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request, id Identity) error {
	session, _ := a.sessions.Get(r, sessionName)
	session.Values[sessionUserID] = id.UserID
	session.Values[sessionEmail] = id.Email
	return session.Save(r, w)
}

// Logout expires the session cookie.
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := a.sessions.Get(r, sessionName)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func (a *Authenticator) sessionIdentity(r *http.Request) (Identity, bool) {
	if a.sessions == nil {
		return Identity{}, false
	}
	session, err := a.sessions.Get(r, sessionName)
	if err != nil {
		return Identity{}, false
	}
	userID, _ := session.Values[sessionUserID].(string)
	email, _ := session.Values[sessionEmail].(string)
	if userID == "" {
		return Identity{}, false
	}
	return Identity{UserID: userID, Email: email}, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}
