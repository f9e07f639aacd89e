// Package models defines the data carried through the spx authorization and export flow.
//
// The package contains two categories of types:
//
// 1. Session state: short-lived values held in the session store
//   - [FlowState] : PKCE verifier, CSRF state nonce and redirect URI for one authorization attempt
//   - [TokenSet] : access token and its expiry, never refreshed
//
// 2. Provider data: read-only views rebuilt on every load
//   - [Profile] : the signed-in user
//   - [PlaylistSummary] : entries of the playlist selection list
//   - [Track] : track records exported as text or JSON
package models
