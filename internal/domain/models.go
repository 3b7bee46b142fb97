package domain

import "time"

// PlayerID is a steam-style 64-bit account id. Stable for the lifetime of
// the process, never reused.
type PlayerID int64

// GameType is the short tag the rating APIs key their tables by.
type GameType string

const (
	GameTypeCA  GameType = "ca"
	GameTypeTDM GameType = "tdm"
	GameTypeCTF GameType = "ctf"
	GameTypeFT  GameType = "ft"
	GameTypeDOM GameType = "dom"
	GameTypeAD  GameType = "ad"
)

var supportedGameTypes = map[GameType]bool{
	GameTypeCA:  true,
	GameTypeTDM: true,
	GameTypeCTF: true,
	GameTypeFT:  true,
	GameTypeDOM: true,
	GameTypeAD:  true,
}

func (g GameType) Supported() bool {
	return supportedGameTypes[g]
}

// RatingEntry is one player's standing for one game type within one rating
// source. A missing entry means "unrated", which callers must keep distinct
// from an entry with Games == 0.
type RatingEntry struct {
	Value   float64
	Games   int
	Privacy string
}

type TeamName string

const (
	TeamRed       TeamName = "red"
	TeamBlue      TeamName = "blue"
	TeamSpectator TeamName = "spectator"
	TeamFree      TeamName = "free"
)

// Opposite returns the other playing team. Non-playing teams map to
// themselves.
func (t TeamName) Opposite() TeamName {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	}
	return t
}

func (t TeamName) Playing() bool {
	return t == TeamRed || t == TeamBlue
}

// Roster is the host-owned view of connected players. The core reads it
// per call and never holds on to it across events.
type Roster struct {
	Red       []PlayerID
	Blue      []PlayerID
	Spectator []PlayerID
	Free      []PlayerID
}

func (r Roster) TeamOf(id PlayerID) TeamName {
	for _, p := range r.Red {
		if p == id {
			return TeamRed
		}
	}
	for _, p := range r.Blue {
		if p == id {
			return TeamBlue
		}
	}
	for _, p := range r.Free {
		if p == id {
			return TeamFree
		}
	}
	return TeamSpectator
}

// Playing returns red and blue players, red first.
func (r Roster) Playing() []PlayerID {
	out := make([]PlayerID, 0, len(r.Red)+len(r.Blue))
	out = append(out, r.Red...)
	out = append(out, r.Blue...)
	return out
}

// Connected returns every player the host knows about.
func (r Roster) Connected() []PlayerID {
	out := make([]PlayerID, 0, len(r.Red)+len(r.Blue)+len(r.Spectator)+len(r.Free))
	out = append(out, r.Red...)
	out = append(out, r.Blue...)
	out = append(out, r.Spectator...)
	out = append(out, r.Free...)
	return out
}

// UnevenTeamsPolicy controls what happens to the odd player out during
// large-roster balancing.
type UnevenTeamsPolicy string

const (
	UnevenSpectateExtra UnevenTeamsPolicy = "spectate"
	UnevenAllow         UnevenTeamsPolicy = "allow"
)

// SourceStrategy selects which rating source drives balancing.
type SourceStrategy string

const (
	StrategyMapPrimary SourceStrategy = "map-primary"
	StrategyPrimary    SourceStrategy = "primary"
	StrategyEloA       SourceStrategy = "elo-a"
	StrategyEloB       SourceStrategy = "elo-b"
)

// SwitchRecord is one executed or vetoed suggestion, persisted so the
// unique-switches and no-repeat-vetoed filters survive restarts.
type SwitchRecord struct {
	ID         string
	MatchSeq   int64
	RedPlayer  PlayerID
	BluePlayer PlayerID
	Vetoed     bool
	CreatedAt  time.Time
}

// AliasSighting is one (name, address) observation for a player.
type AliasSighting struct {
	PlayerID PlayerID
	Name     string
	Address  string
	SeenAt   time.Time
}
