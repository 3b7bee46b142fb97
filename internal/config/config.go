package config

import (
	"fmt"
	"os"
	"strconv"
	"team-balancer/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	ServerPort string
	DBPath     string

	HostBridgeURL   string
	HostBridgeToken string

	// Rating source endpoints. The primary skill source is map-qualifiable.
	SkillAPIURL  string
	SkillAPIPath string
	EloAAPIURL   string
	EloAAPIPath  string
	EloBAPIURL   string
	EloBAPIPath  string

	Strategy domain.SourceStrategy

	// Raw threshold specs: either a flat number ("25") or a
	// rounds-keyed step table ("15:50,30:25"). Parsed by the service;
	// a misparse disables the threshold rather than failing startup.
	MinSuggestionDiff      string
	MinSuggestionDeviation string

	AutoSwitch        bool
	RepeatVetoed      bool
	UniqueSwitches    bool
	UnevenTeamsPolicy domain.UnevenTeamsPolicy

	// Rating-limit gate for joining a team. Zero values disable a bound.
	RatingFloor   float64
	RatingCeiling float64
	MinGames      int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		ServerPort:             getEnv("SERVER_PORT", "8090"),
		DBPath:                 getEnv("DB_PATH", "balancer.db"),
		HostBridgeURL:          getEnv("HOST_BRIDGE_URL", ""),
		HostBridgeToken:        getEnv("HOST_BRIDGE_TOKEN", ""),
		SkillAPIURL:            getEnv("SKILL_API_URL", "https://qlstats.net"),
		SkillAPIPath:           getEnv("SKILL_API_PATH", "elo"),
		EloAAPIURL:             getEnv("ELO_A_API_URL", "https://qlstats.net"),
		EloAAPIPath:            getEnv("ELO_A_API_PATH", "elo"),
		EloBAPIURL:             getEnv("ELO_B_API_URL", "https://qlstats.net"),
		EloBAPIPath:            getEnv("ELO_B_API_PATH", "elo_b"),
		Strategy:               domain.SourceStrategy(getEnv("RATING_STRATEGY", string(domain.StrategyMapPrimary))),
		MinSuggestionDiff:      getEnv("MIN_SUGGESTION_DIFF", "25"),
		MinSuggestionDeviation: getEnv("MIN_SUGGESTION_DEVIATION", "50"),
		AutoSwitch:             getEnvBool("AUTO_SWITCH", false),
		RepeatVetoed:           getEnvBool("REPEAT_VETOED_SUGGESTIONS", true),
		UniqueSwitches:         getEnvBool("UNIQUE_PLAYER_SWITCHES", false),
		UnevenTeamsPolicy:      domain.UnevenTeamsPolicy(getEnv("UNEVEN_TEAMS_POLICY", string(domain.UnevenSpectateExtra))),
		RatingFloor:            getEnvFloat("RATING_FLOOR", 0),
		RatingCeiling:          getEnvFloat("RATING_CEILING", 0),
		MinGames:               getEnvInt("MIN_GAMES", 0),
	}

	if cfg.HostBridgeURL == "" {
		return nil, fmt.Errorf("HOST_BRIDGE_URL is required")
	}

	switch cfg.Strategy {
	case domain.StrategyMapPrimary, domain.StrategyPrimary, domain.StrategyEloA, domain.StrategyEloB:
	default:
		return nil, fmt.Errorf("unknown RATING_STRATEGY %q", cfg.Strategy)
	}

	switch cfg.UnevenTeamsPolicy {
	case domain.UnevenSpectateExtra, domain.UnevenAllow:
	default:
		return nil, fmt.Errorf("unknown UNEVEN_TEAMS_POLICY %q", cfg.UnevenTeamsPolicy)
	}

	logger.Info().
		Str("server_port", cfg.ServerPort).
		Str("db_path", cfg.DBPath).
		Str("host_bridge_url", cfg.HostBridgeURL).
		Str("strategy", string(cfg.Strategy)).
		Str("min_suggestion_diff", cfg.MinSuggestionDiff).
		Str("min_suggestion_deviation", cfg.MinSuggestionDeviation).
		Bool("auto_switch", cfg.AutoSwitch).
		Str("uneven_teams", string(cfg.UnevenTeamsPolicy)).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
