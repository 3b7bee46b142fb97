package rating

import (
	"fmt"
	"team-balancer/internal/config"
	"team-balancer/internal/domain"
)

const (
	SourceSkill = "Skill"
	SourceEloA  = "A-elo"
	SourceEloB  = "B-elo"
)

// Source describes one external rating system.
type Source struct {
	Name    string
	BaseURL string
	Path    string

	// MapQualifiable sources additionally serve a per-map table selected
	// with a request header; results are cached under CacheKey(map).
	MapQualifiable bool
}

// CacheKey returns the cache entry name for this source, qualified by map
// when the source supports it and a map is active.
func (s Source) CacheKey(mapName string) string {
	if s.MapQualifiable && mapName != "" {
		return fmt.Sprintf("%s %s", mapName, s.Name)
	}
	return s.Name
}

// URL builds the fetch URL for a batch of players:
// <base>/<path>/<id>[+<id>...].
func (s Source) URL(ids []domain.PlayerID) string {
	url := fmt.Sprintf("%s/%s/", s.BaseURL, s.Path)
	for i, id := range ids {
		if i > 0 {
			url += "+"
		}
		url += fmt.Sprintf("%d", id)
	}
	return url
}

// SourcesFromConfig builds the configured source set: the primary skill
// source (map-qualifiable) and the two Elo-style sources.
func SourcesFromConfig(cfg *config.Config) []Source {
	return []Source{
		{Name: SourceSkill, BaseURL: cfg.SkillAPIURL, Path: cfg.SkillAPIPath, MapQualifiable: true},
		{Name: SourceEloA, BaseURL: cfg.EloAAPIURL, Path: cfg.EloAAPIPath},
		{Name: SourceEloB, BaseURL: cfg.EloBAPIURL, Path: cfg.EloBAPIPath},
	}
}

// SourceNameForStrategy maps the configured strategy to the cache entry the
// balancer should read.
func SourceNameForStrategy(strategy domain.SourceStrategy, mapName string) string {
	switch strategy {
	case domain.StrategyMapPrimary:
		if mapName != "" {
			return fmt.Sprintf("%s %s", mapName, SourceSkill)
		}
		return SourceSkill
	case domain.StrategyPrimary:
		return SourceSkill
	case domain.StrategyEloA:
		return SourceEloA
	case domain.StrategyEloB:
		return SourceEloB
	}
	return SourceSkill
}
