// Package server provides HTTP routing, middleware, the loopback callback listener and the JSON web mode.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [NewRouter] installs request ids, request logging and panic recovery. Query strings are never logged
// because the callback carries the authorization code in one.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Loopback Callback
//
// CLI logins start a temporary listener on the host and port of the configured redirect URI
// ([LoopbackAddr]). The [LoopbackHandler] accepts exactly one callback, runs it through the
// authorization flow and delivers the result on a channel. The browser tab receives plain text;
// on failure it shows the raw code and state.
//
// # Web Mode
//
// [WebApp] serves the same flow as JSON for `spx serve`:
//
//	GET /                            status and configuration error
//	GET /login                       302 to the provider, 503 without a client id
//	GET /callback                    flow result, raw code and state on failure
//	GET /logout                      clears the session
//	GET /playlists                   sorted playlist list
//	GET /playlists/{id}/tracks       tracks as JSON
//	GET /playlists/{id}/tracks.txt   numbered text list
//	GET /playlists/{id}/download     JSON export as an attachment
//
// The browser only holds a signed gorilla/sessions cookie naming its flow id. The verifier,
// state and access token stay in the in-process session store.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
