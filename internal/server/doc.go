// Package server provides HTTP routing, middleware, authentication, and the JSON API of the course service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so one path can serve GET and POST
// and path wildcards such as {id} are available through [http.Request.PathValue].
//
// # Identity
//
// [Authenticator.Middleware] resolves the caller from either:
//   - an Authorization: Bearer token signed by [TokenIssuer] (CLI and terminal viewer)
//   - the gorilla/sessions cookie written after an OpenID Connect login (browsers)
//
// Anonymous requests pass through; handlers and services reject them with 401.
//
// # OpenID Connect
//
// [OAuthHandler] implements the authorization code flow. Login stores a random state in a short-lived
// cookie, the callback checks it, exchanges the code, verifies the ID token, and finds or creates the
// user by email before starting a session.
//
// # JSON API
//
// [API] serves the dashboard, course, progress, and check-in endpoints. Sentinel errors map to
// status codes: 401 unauthenticated, 404 unknown or foreign course, 400 invalid input, and 500 with
// {"error":"Internal server error"} for store failures, which are logged and never echoed.
package server
