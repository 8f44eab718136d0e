// Package marketplace implements the subset of the Allegro REST API consumed by the
// sync engine. Every request is rate limited and passes through the retry executor.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/allisson/marketsync/internal/retry"
)

const mediaType = "application/vnd.allegro.public.v1+json"

// maxErrorBody bounds how much of an error response is kept in APIError.
const maxErrorBody = 4096

// Config holds the client settings.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
}

// Client talks to the marketplace REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retrier    *retry.Executor
	logger     *slog.Logger
}

// NewClient creates a marketplace client.
func NewClient(cfg Config, retrier *retry.Executor, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	if retrier == nil {
		retrier = retry.New(0, 0, 0, false)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		retrier:    retrier,
		logger:     logger,
	}
}

// ListOfferEvents returns offer events recorded after the given event id.
// An empty after starts from the oldest retained event.
func (c *Client) ListOfferEvents(ctx context.Context, token, after string, limit int) (*EventPage, error) {
	return c.listEvents(ctx, token, "/sale/offer-events", after, limit)
}

// ListOrderEvents returns order events recorded after the given event id.
func (c *Client) ListOrderEvents(ctx context.Context, token, after string, limit int) (*EventPage, error) {
	return c.listEvents(ctx, token, "/order/events", after, limit)
}

// ListEvents dispatches to the feed of the given stream.
func (c *Client) ListEvents(
	ctx context.Context,
	token string,
	stream Stream,
	after string,
	limit int,
) (*EventPage, error) {
	switch stream {
	case StreamOffers:
		return c.ListOfferEvents(ctx, token, after, limit)
	case StreamOrders:
		return c.ListOrderEvents(ctx, token, after, limit)
	default:
		return nil, fmt.Errorf("unknown event stream %q", stream)
	}
}

// GetOffer fetches a single offer.
func (c *Client) GetOffer(ctx context.Context, token, offerID string) (*Offer, error) {
	var offer Offer
	if err := c.do(ctx, http.MethodGet, "/sale/offers/"+url.PathEscape(offerID), token, nil, nil, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

// UpdateOffer replaces the editable fields of an existing offer.
func (c *Client) UpdateOffer(ctx context.Context, token, offerID string, offer *Offer) (*Offer, error) {
	var updated Offer
	path := "/sale/offers/" + url.PathEscape(offerID)
	if err := c.do(ctx, http.MethodPut, path, token, nil, offer, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CreateOffer creates a new offer and returns it with its marketplace id.
func (c *Client) CreateOffer(ctx context.Context, token string, offer *Offer) (*Offer, error) {
	var created Offer
	if err := c.do(ctx, http.MethodPost, "/sale/offers", token, nil, offer, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: created offer has no id", ErrRemoteRejected)
	}
	return &created, nil
}

// GetOrder fetches a single order (checkout form).
func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*Order, error) {
	var order Order
	path := "/order/checkout-forms/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetProducer fetches a responsible producer record.
func (c *Client) GetProducer(ctx context.Context, token, producerID string) (*Producer, error) {
	var raw json.RawMessage
	path := "/sale/responsible-producers/" + url.PathEscape(producerID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeProducer(raw)
}

// ListProducers returns every responsible producer visible to the account.
func (c *Client) ListProducers(ctx context.Context, token string) ([]*Producer, error) {
	const pageSize = 100

	var producers []*Producer
	for offset := 0; ; offset += pageSize {
		var page struct {
			ResponsibleProducers []json.RawMessage `json:"responsibleProducers"`
			TotalCount           int               `json:"totalCount"`
		}
		query := url.Values{}
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(pageSize))
		if err := c.do(ctx, http.MethodGet, "/sale/responsible-producers", token, query, nil, &page); err != nil {
			return nil, err
		}

		for _, raw := range page.ResponsibleProducers {
			producer, err := decodeProducer(raw)
			if err != nil {
				return nil, err
			}
			producers = append(producers, producer)
		}

		if len(page.ResponsibleProducers) < pageSize ||
			(page.TotalCount > 0 && len(producers) >= page.TotalCount) {
			return producers, nil
		}
	}
}

func (c *Client) listEvents(ctx context.Context, token, path, after string, limit int) (*EventPage, error) {
	query := url.Values{}
	if after != "" {
		query.Set("from", after)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	// The offer feed names its list "offerEvents"; the order feed uses "events".
	var body struct {
		Events      []json.RawMessage `json:"events"`
		OfferEvents []json.RawMessage `json:"offerEvents"`
		LastEventID string            `json:"lastEventId"`
	}
	if err := c.do(ctx, http.MethodGet, path, token, query, nil, &body); err != nil {
		return nil, err
	}

	raws := body.Events
	if len(raws) == 0 {
		raws = body.OfferEvents
	}

	page := &EventPage{Events: make([]Event, 0, len(raws)), LastEventID: body.LastEventID}
	for i, raw := range raws {
		event, err := decodeEvent(raw)
		if err != nil {
			c.logger.Warn("skipping undecodable marketplace event",
				slog.String("path", path),
				slog.Int("index", i),
				slog.Any("error", err),
			)
			page.Skipped++
			continue
		}
		page.Events = append(page.Events, event)
	}
	if page.LastEventID == "" && len(page.Events) > 0 {
		page.LastEventID = page.Events[len(page.Events)-1].ID
	}
	return page, nil
}

func (c *Client) do(
	ctx context.Context,
	method, path, token string,
	query url.Values,
	in, out any,
) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", mediaType)
		if payload != nil {
			req.Header.Set("Content-Type", mediaType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			c.logger.Warn("marketplace request failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Any("error", err),
			)
			return fmt.Errorf("%w: %s %s: %v", ErrRemoteUnreachable, method, path, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode >= http.StatusBadRequest {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			apiErr := &APIError{
				Method:     method,
				Path:       path,
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(data)),
			}
			if !apiErr.retryable() {
				return retry.Permanent(apiErr)
			}
			c.logger.Warn("marketplace returned retryable status",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)
			return apiErr
		}

		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return retry.Permanent(fmt.Errorf("failed to decode %s %s response: %w", method, path, err))
		}
		return nil
	})
}

func decodeEvent(raw json.RawMessage) (Event, error) {
	var header struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		OccurredAt string `json:"occurredAt"`
		Offer      *struct {
			ID string `json:"id"`
		} `json:"offer"`
		Order *struct {
			ID           string `json:"id"`
			CheckoutForm *struct {
				ID string `json:"id"`
			} `json:"checkoutForm"`
		} `json:"order"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}

	event := Event{
		ID:         header.ID,
		Type:       header.Type,
		OccurredAt: header.OccurredAt,
		Payload:    raw,
	}
	switch {
	case header.Offer != nil:
		event.EntityID = header.Offer.ID
	case header.Order != nil && header.Order.ID != "":
		event.EntityID = header.Order.ID
	case header.Order != nil && header.Order.CheckoutForm != nil:
		event.EntityID = header.Order.CheckoutForm.ID
	}
	return event, nil
}

func decodeProducer(raw json.RawMessage) (*Producer, error) {
	var producer Producer
	if err := json.Unmarshal(raw, &producer); err != nil {
		return nil, fmt.Errorf("failed to decode responsible producer: %w", err)
	}
	producer.Raw = raw
	return &producer, nil
}
