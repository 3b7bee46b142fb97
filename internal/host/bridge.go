package host

import (
	"context"
	"encoding/json"
	"fmt"
	"team-balancer/internal/config"
	"team-balancer/internal/constants"
	"team-balancer/internal/domain"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Bridge talks to the game server's remote-console HTTP endpoint and
// implements game.Host. The roster is read fresh on every call; the bridge
// holds no game state of its own.
type Bridge struct {
	baseURL string
	token   string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewBridge(cfg *config.Config, logger zerolog.Logger) *Bridge {
	return &Bridge{
		baseURL: cfg.HostBridgeURL,
		token:   cfg.HostBridgeToken,
		client: &fasthttp.Client{
			MaxConnsPerHost:     8,
			ReadTimeout:         constants.HostBridgeTimeout,
			WriteTimeout:        constants.HostBridgeTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

type stateResponse struct {
	Map          string         `json:"map"`
	GameType     string         `json:"gametype"`
	RoundsPlayed int            `json:"rounds_played"`
	InProgress   bool           `json:"in_progress"`
	Roster       rosterResponse `json:"roster"`
}

type rosterResponse struct {
	Red       []int64 `json:"red"`
	Blue      []int64 `json:"blue"`
	Spectator []int64 `json:"spectator"`
	Free      []int64 `json:"free"`
}

func (b *Bridge) state(ctx context.Context) (*stateResponse, error) {
	body, err := b.do(ctx, fasthttp.MethodGet, "/v1/state", nil)
	if err != nil {
		return nil, err
	}
	var state stateResponse
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("decoding host state: %w", err)
	}
	return &state, nil
}

func (b *Bridge) CurrentRoster(ctx context.Context) (domain.Roster, error) {
	state, err := b.state(ctx)
	if err != nil {
		return domain.Roster{}, err
	}
	return domain.Roster{
		Red:       toPlayerIDs(state.Roster.Red),
		Blue:      toPlayerIDs(state.Roster.Blue),
		Spectator: toPlayerIDs(state.Roster.Spectator),
		Free:      toPlayerIDs(state.Roster.Free),
	}, nil
}

func (b *Bridge) CurrentRoundsPlayed(ctx context.Context) (int, error) {
	state, err := b.state(ctx)
	if err != nil {
		return 0, err
	}
	return state.RoundsPlayed, nil
}

func (b *Bridge) CurrentGameType(ctx context.Context) (domain.GameType, error) {
	state, err := b.state(ctx)
	if err != nil {
		return "", err
	}
	return domain.GameType(state.GameType), nil
}

func (b *Bridge) CurrentMap(ctx context.Context) (string, error) {
	state, err := b.state(ctx)
	if err != nil {
		return "", err
	}
	return state.Map, nil
}

func (b *Bridge) MatchInProgress(ctx context.Context) (bool, error) {
	state, err := b.state(ctx)
	if err != nil {
		return false, err
	}
	return state.InProgress, nil
}

func (b *Bridge) MovePlayerToTeam(ctx context.Context, id domain.PlayerID, team domain.TeamName) error {
	b.logger.Info().Int64("player", int64(id)).Str("team", string(team)).Msg("moving player")
	_, err := b.do(ctx, fasthttp.MethodPost, "/v1/teams/move", map[string]any{
		"player_id": int64(id),
		"team":      string(team),
	})
	return err
}

func (b *Bridge) SwapPlayers(ctx context.Context, a, bPlayer domain.PlayerID) error {
	b.logger.Info().Int64("a", int64(a)).Int64("b", int64(bPlayer)).Msg("swapping players")
	_, err := b.do(ctx, fasthttp.MethodPost, "/v1/teams/swap", map[string]any{
		"a": int64(a),
		"b": int64(bPlayer),
	})
	return err
}

func (b *Bridge) NotifyPlayer(ctx context.Context, id domain.PlayerID, message string) error {
	_, err := b.do(ctx, fasthttp.MethodPost, "/v1/players/notify", map[string]any{
		"player_id": int64(id),
		"message":   message,
	})
	return err
}

func (b *Bridge) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(b.baseURL + path)
	req.Header.SetMethod(method)
	if b.token != "" {
		req.Header.Set("Authorization", b.token)
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding bridge request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(constants.HostBridgeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := b.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("host bridge %s %s: %w", method, path, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("host bridge %s %s: status %d", method, path, resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func toPlayerIDs(raw []int64) []domain.PlayerID {
	out := make([]domain.PlayerID, len(raw))
	for i, id := range raw {
		out[i] = domain.PlayerID(id)
	}
	return out
}
