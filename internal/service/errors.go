package service

import "errors"

var (
	// ErrNoSuggestion means no swap suggestion is currently proposed.
	ErrNoSuggestion = errors.New("no suggestion pending")

	// ErrNoRatings means the selected rating source has no data for the
	// current roster yet.
	ErrNoRatings = errors.New("no ratings available")

	// ErrNotParticipant means the player is not part of the pending
	// suggestion.
	ErrNotParticipant = errors.New("player is not part of the suggestion")
)
