package rating

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"team-balancer/internal/constants"
	"team-balancer/internal/domain"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

const mapContextHeader = "X-QuakeLive-Map"

// Failure is the tagged error every unsuccessful fetch collapses into.
// Transient failures have already been retried by the time one surfaces.
type Failure struct {
	Source string
	Status int
	Err    error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("rating fetch from %s failed: status %d", f.Source, f.Status)
	}
	return fmt.Sprintf("rating fetch from %s failed: %v", f.Source, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Client fetches rating tables over HTTP with bounded retries.
type Client struct {
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		client: &fasthttp.Client{
			MaxConnsPerHost: 16,
			ReadTimeout:     constants.FetchReadTimeout,
			Dial: func(addr string) (net.Conn, error) {
				return fasthttp.DialTimeout(addr, constants.FetchConnectTimeout)
			},
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

// Fetch retrieves ratings for the given players from one source. Transient
// statuses and transport errors are retried with exponential backoff up to
// a fixed attempt count; anything else is a terminal *Failure.
func (c *Client) Fetch(ctx context.Context, src Source, mapName string, ids []domain.PlayerID) (*Snapshot, error) {
	if len(ids) == 0 {
		return NewSnapshot(), nil
	}

	url := src.URL(ids)
	c.logger.Debug().
		Str("source", src.Name).
		Str("url", url).
		Int("players", len(ids)).
		Msg("fetching ratings")

	var body []byte
	backoff := retry.WithMaxRetries(constants.FetchMaxAttempts-1, retry.NewExponential(constants.FetchBackoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		raw, status, err := c.get(src, mapName, url)
		if err != nil {
			// Transport errors are always worth another attempt.
			return retry.RetryableError(&Failure{Source: src.Name, Err: err})
		}
		if status != fasthttp.StatusOK {
			failure := &Failure{Source: src.Name, Status: status}
			if transientStatus(status) {
				return retry.RetryableError(failure)
			}
			return failure
		}
		body = raw
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("source", src.Name).Msg("rating fetch failed")
		return nil, err
	}

	table, err := decodePlayerInfo(body)
	if err != nil {
		c.logger.Warn().Err(err).Str("source", src.Name).Msg("malformed rating response")
		return nil, &Failure{Source: src.Name, Err: err}
	}

	c.logger.Debug().
		Str("source", src.Name).
		Int("players", len(table)).
		Msg("ratings fetched")
	return SnapshotOf(table), nil
}

func (c *Client) get(src Source, mapName, url string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if src.MapQualifiable && mapName != "" {
		req.Header.Set(mapContextHeader, mapName)
	}

	if err := c.client.DoDeadline(req, resp, time.Now().Add(constants.FetchReadTimeout)); err != nil {
		return nil, 0, err
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, resp.StatusCode(), nil
}

func transientStatus(status int) bool {
	return status == fasthttp.StatusRequestTimeout ||
		status == fasthttp.StatusTooManyRequests ||
		status >= 500
}

type ratingPayload struct {
	Elo   float64 `json:"elo"`
	Games int     `json:"games"`
}

// decodePlayerInfo turns the wire body into a well-typed Table at the fetch
// boundary. Unknown game-type keys are skipped; type mismatches anywhere
// make the whole body a failure.
func decodePlayerInfo(body []byte) (Table, error) {
	var envelope struct {
		PlayerInfo map[string]json.RawMessage `json:"playerinfo"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if envelope.PlayerInfo == nil {
		return nil, fmt.Errorf("missing playerinfo object")
	}

	table := Table{}
	for rawID, rawPlayer := range envelope.PlayerInfo {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad player id %q: %w", rawID, err)
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rawPlayer, &fields); err != nil {
			return nil, fmt.Errorf("decoding player %s: %w", rawID, err)
		}

		privacy := ""
		if rawPrivacy, ok := fields["privacy"]; ok {
			if err := json.Unmarshal(rawPrivacy, &privacy); err != nil {
				return nil, fmt.Errorf("decoding privacy for player %s: %w", rawID, err)
			}
		}

		byType := map[domain.GameType]domain.RatingEntry{}
		for key, raw := range fields {
			gt := domain.GameType(key)
			if !gt.Supported() {
				continue
			}
			var payload ratingPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, fmt.Errorf("decoding %s rating for player %s: %w", key, rawID, err)
			}
			byType[gt] = domain.RatingEntry{
				Value:   payload.Elo,
				Games:   payload.Games,
				Privacy: privacy,
			}
		}
		if len(byType) > 0 {
			table[domain.PlayerID(id)] = byType
		}
	}
	return table, nil
}

// FormatValue renders a rating for player-facing messages: Elo-style
// integers print bare, fractional skill values keep their precision.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
