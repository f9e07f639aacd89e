// package models defines the data model for the playlist exporter
package models

import (
	"strings"
	"time"
)

// FlowState is the transient state of one authorization attempt.
//
// Created by the initiator and deleted exactly once after a successful token exchange.
type FlowState struct {
	CodeVerifier string
	State        string
	RedirectURI  string
}

// TokenSet holds an access token for the current session.
type TokenSet struct {
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Expired reports whether the token is no longer usable at now.
func (t TokenSet) Expired(now time.Time) bool {
	return t.AccessToken == "" || !now.Before(t.ExpiresAt)
}

// Profile is the subset of the current user's profile spx uses.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Label returns the display name, falling back to the user id.
func (p Profile) Label() string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return p.ID
}

// PlaylistSummary is a playlist entry in the selection list.
type PlaylistSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"trackCount"`
}

// Track is a playlist track as exported.
//
// Artists are joined by ", " in the order the provider lists them.
type Track struct {
	Name    string    `json:"name"`
	Artists string    `json:"artists"`
	Album   string    `json:"album"`
	AddedAt time.Time `json:"addedAt"`
	URI     string    `json:"uri"`
}
