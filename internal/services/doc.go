// Package services defines the [Service] interface for playlist providers and implements it for Spotify.
//
// # Service Interface
//
// Callers hold an access token obtained by the auth package and pass it on each call.
// Services never refresh tokens; an expired token must be replaced by a new login.
//
// # Pagination
//
// [SpotifyService.FetchAllPages] follows the provider's next links one page at a time
// and concatenates items in the order they arrive. A failing page aborts the fetch and
// returns a [shared.HTTPError] of kind [shared.ErrPageFetch]; nothing fetched before the
// failure is returned.
//
// # Transport
//
// [APIService] is the raw GET layer. Every request carries its own timeout, reported as
// [shared.ErrTimeout], and may be paced with a token bucket. Requests are never retried.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrProfileFetch] : GET /me returned a non-success status
//   - [shared.ErrPageFetch] : a page of a paginated listing failed
//   - [shared.ErrTimeout] : a request exceeded its timeout
//   - [shared.ErrMissingArgument] : empty playlist id
package services
