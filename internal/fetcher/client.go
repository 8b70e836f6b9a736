// Package fetcher talks to the upstream clinic backend. The backend
// exposes no joined or aggregated endpoints, so this layer only loads
// flat collections and normalizes their inconsistent envelopes; the
// join engine does the relational work client-side.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-ops/pkg/errors"
	"github.com/jwalitptl/clinic-ops/pkg/logger"
	"github.com/jwalitptl/clinic-ops/pkg/metrics"
)

type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxFailures    int
	BreakerTimeout time.Duration
}

// Client issues one request per source collection and normalizes each
// response into the uniform envelope.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	cb      *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg ClientConfig, tokens TokenSource, log *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		tokens:  tokens,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "upstream",
			MaxFailures: cfg.MaxFailures,
			Timeout:     cfg.BreakerTimeout,
		}),
		logger:  log,
		metrics: m,
	}
}

// List fetches a whole collection.
func (c *Client) List(ctx context.Context, collection string) (*model.Envelope, error) {
	return c.do(ctx, http.MethodGet, collection, "", nil)
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, collection, id string) (*model.Envelope, error) {
	return c.do(ctx, http.MethodGet, collection, id, nil)
}

func (c *Client) Post(ctx context.Context, collection string, body any) (*model.Envelope, error) {
	return c.do(ctx, http.MethodPost, collection, "", body)
}

func (c *Client) Put(ctx context.Context, collection, id string, body any) (*model.Envelope, error) {
	return c.do(ctx, http.MethodPut, collection, id, body)
}

func (c *Client) Delete(ctx context.Context, collection, id string) (*model.Envelope, error) {
	return c.do(ctx, http.MethodDelete, collection, id, nil)
}

// Exists probes whether a dependent record exists under the given
// collection path. The lab-test lookup is keyed by treatment id with
// no bulk variant, so this is the unit the probe pool batches. A 404
// means absent; any other failure is a probe error the caller must
// surface, a backend outage is not the same as "no record".
func (c *Client) Exists(ctx context.Context, collection, id string) (bool, error) {
	env, err := c.Get(ctx, collection, id)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(env.Data) > 0, nil
}

// BreakerState exposes the upstream breaker for health reporting.
func (c *Client) BreakerState() string {
	return c.cb.State()
}

func (c *Client) do(ctx context.Context, method, collection, id string, body any) (*model.Envelope, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, collection)
	if id != "" {
		url = fmt.Sprintf("%s/%s", url, id)
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Internal(fmt.Errorf("failed to encode request body: %w", err))
		}
		reqBody = bytes.NewReader(payload)
	}

	var env *model.Envelope
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return errors.Internal(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.Upstream(fmt.Sprintf("upstream %s %s failed", method, collection), err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Upstream("failed to read upstream response", err)
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return errors.Unauthorized(fmt.Errorf("upstream rejected token: %s", resp.Status))
		}

		env = normalize(raw, resp.StatusCode)

		if resp.StatusCode == http.StatusNotFound {
			return errors.NotFound(collection, fmt.Errorf("%s %s: status %d", method, collection, resp.StatusCode))
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			message := env.Message
			if message == "" {
				message = fmt.Sprintf("upstream returned %s", resp.Status)
			}
			return errors.Mutation(message, fmt.Errorf("%s %s: status %d", method, collection, resp.StatusCode))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// normalize tolerates the three body shapes the upstream actually
// produces: a full envelope, a bare array, and a bare object.
func normalize(raw []byte, httpStatus int) *model.Envelope {
	env := &model.Envelope{}
	if len(raw) == 0 {
		env.StatusCode = httpStatus
		return env
	}

	if err := json.Unmarshal(raw, env); err == nil && (env.Data != nil || env.StatusCode != 0 || env.Message != "") {
		if env.StatusCode == 0 {
			env.StatusCode = httpStatus
		}
		if env.Data == nil {
			env.Data = tryUnwrapSingle(raw)
		}
		return env
	}

	var list []model.Raw
	if err := json.Unmarshal(raw, &list); err == nil {
		return &model.Envelope{StatusCode: httpStatus, Data: list}
	}

	var single model.Raw
	if err := json.Unmarshal(raw, &single); err == nil && len(single) > 0 {
		return &model.Envelope{StatusCode: httpStatus, Data: []model.Raw{single}}
	}

	return &model.Envelope{StatusCode: httpStatus}
}

// tryUnwrapSingle handles envelopes whose data field is one object
// instead of an array.
func tryUnwrapSingle(raw []byte) []model.Raw {
	var wrapper struct {
		Data model.Raw `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Data) > 0 {
		return []model.Raw{wrapper.Data}
	}
	return nil
}
