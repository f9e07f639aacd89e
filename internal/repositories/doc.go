// Package repositories implements the session-scoped store behind the PKCE flow.
//
// [SessionStore] keeps two kinds of entries keyed by flow id:
//   - flow state (code verifier, state nonce, redirect URI), written by the initiator and
//     deleted exactly once after a successful token exchange
//   - token sets (access token, expiry), read by every authenticated API call
//
// The default database is an in-memory SQLite instance, so nothing outlives the process.
// Expired tokens are removed on read and reported as [shared.ErrTokenExpired]; there is no refresh.
package repositories
