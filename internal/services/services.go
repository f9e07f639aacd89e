// package services defines interface Service for reading playlists from the provider's HTTP API
package services

import (
	"context"

	"github.com/desertthunder/spx/internal/models"
)

// Service defines the read-only provider operations the flow and exporters need.
//
// Every call takes the bearer token explicitly; services hold no session state.
type Service interface {
	// UserProfile retrieves the current user's profile.
	UserProfile(ctx context.Context, token string) (*models.Profile, error)

	// Playlists retrieves every playlist of the current user, sorted by name.
	Playlists(ctx context.Context, token string) ([]models.PlaylistSummary, error)

	// PlaylistTracks retrieves every track of a playlist in playlist order.
	PlaylistTracks(ctx context.Context, token, playlistID string) ([]models.Track, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
