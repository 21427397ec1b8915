// Package server provides HTTP routing, middleware, and OAuth handling for CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] is applied in the order it is added: the first added is the outermost wrapper and executes first.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Current Usage
//
// The server package supports two things: CLI OAuth flows for Spotify
// authentication, and a task status stream for the long-running service.
//
// When the user runs an authentication command, a temporary HTTP server
// starts on localhost, handles the OAuth callback, and shuts down after
// receiving the token.
//
// When the service runs (the serve command), an [SSEHandler] streams a
// single task's status updates as Server-Sent Events, sourced from
// [taskstore.TaskLog]'s per-task subscription channel. A full HTTP
// route surface, session middleware, and an HTML front end are out of
// scope; internal/web documents that decision.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
