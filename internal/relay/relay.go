// Package relay submits orders to the remote script endpoint when the
// primary store is unreachable. The endpoint does not grant cross-origin
// access, so the relay path posts through a same-origin intermediary and can
// only presume success once the ack window closes. Results carry a tri-state
// delivery status so a reconciliation job can audit presumed deliveries
// instead of trusting them as confirmed.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// DeliveryStatus classifies how much the transport actually observed.
type DeliveryStatus string

const (
	// DeliveryConfirmed means the endpoint acknowledged the order.
	DeliveryConfirmed DeliveryStatus = "confirmed"
	// DeliveryPresumed means the ack window elapsed with no response; the
	// order is likely delivered but was never observed as such.
	DeliveryPresumed DeliveryStatus = "presumed_success"
	// DeliveryFailed means the transport refused the submission outright.
	DeliveryFailed DeliveryStatus = "failed"
)

// Payload is the order envelope the script endpoint accepts.
type Payload struct {
	Cart       map[string]int `json:"cart"`
	ShopType   string         `json:"shopType"`
	StoreName  string         `json:"storeName"`
	BranchName string         `json:"branchName"`
	UserEmail  string         `json:"userEmail"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Ack is the endpoint's acknowledgment shape.
type Ack struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	OrderID   string `json:"orderId"`
	ShopID    string `json:"shopId"`
	ItemCount int    `json:"itemCount"`
	Timestamp string `json:"timestamp"`
}

// Delivery is the tri-state submission result.
type Delivery struct {
	Status    DeliveryStatus `json:"status"`
	OrderID   string         `json:"order_id,omitempty"`
	ShopID    string         `json:"shop_id,omitempty"`
	ItemCount int            `json:"item_count"`
	Timestamp time.Time      `json:"timestamp"`
}

// Submitter delivers an order payload to the script endpoint.
type Submitter interface {
	Submit(ctx context.Context, payload *Payload) (*Delivery, error)
}

// Client submits orders through the relay with presumed-success semantics.
type Client struct {
	endpoint   string
	ackTimeout time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a relay client. ackTimeout bounds how long a submission
// waits for an acknowledgment before resolving as presumed success.
func NewClient(endpoint string, ackTimeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		ackTimeout: ackTimeout,
		httpClient: &http.Client{Timeout: ackTimeout + time.Second},
		logger:     util.GetLogger(),
	}
}

// Submit delivers the payload as a single form-encoded `data` field. A valid
// ack inside the window yields Confirmed; silence yields PresumedSuccess.
// Only a connection-level refusal maps to Failed: once the intermediary has
// answered, even with an error status, the form may already have reached the
// script behind it, so the outcome stays ambiguous and resolves as presumed.
// There is deliberately no retry here: retrying an ambiguous-outcome
// submission risks duplicate orders.
func (c *Client) Submit(ctx context.Context, payload *Payload) (*Delivery, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay payload: %w", err)
	}

	form := url.Values{}
	form.Set("data", string(data))

	ctx, cancel := context.WithTimeout(ctx, c.ackTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	itemCount := countPositive(payload.Cart)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.logger.Warn("Relay ack window elapsed, presuming success",
				zap.String("store_name", payload.StoreName))
			util.RelayPresumedTotal.Inc()
			return &Delivery{
				Status:    DeliveryPresumed,
				ItemCount: itemCount,
				Timestamp: time.Now(),
			}, nil
		}
		util.RelayFailedTotal.Inc()
		return &Delivery{Status: DeliveryFailed}, fmt.Errorf("relay submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Relay answered with error status, presuming success",
			zap.Int("status", resp.StatusCode))
		util.RelayPresumedTotal.Inc()
		return &Delivery{
			Status:    DeliveryPresumed,
			ItemCount: itemCount,
			Timestamp: time.Now(),
		}, nil
	}

	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil || !ack.Success {
		// The intermediary answered but not with a usable ack. The form
		// was still posted, so this degrades to presumed delivery.
		c.logger.Warn("Relay response unreadable, presuming success", zap.Error(err))
		util.RelayPresumedTotal.Inc()
		return &Delivery{
			Status:    DeliveryPresumed,
			ItemCount: itemCount,
			Timestamp: time.Now(),
		}, nil
	}

	util.RelayConfirmedTotal.Inc()
	return &Delivery{
		Status:    DeliveryConfirmed,
		OrderID:   ack.OrderID,
		ShopID:    ack.ShopID,
		ItemCount: ack.ItemCount,
		Timestamp: time.Now(),
	}, nil
}

func countPositive(cart map[string]int) int {
	n := 0
	for _, qty := range cart {
		if qty > 0 {
			n++
		}
	}
	return n
}

// DirectClient posts orders straight to the script endpoint as JSON. Used by
// the legacy path where cross-origin access happens to be granted.
type DirectClient struct {
	endpoint    string
	maxAttempts int
	baseDelay   time.Duration
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewDirectClient creates a direct client with exponential backoff retries
// (baseDelay doubles per attempt: 2s, 4s, 8s with the defaults).
func NewDirectClient(endpoint string, maxAttempts int, baseDelay time.Duration) *DirectClient {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &DirectClient{
		endpoint:    endpoint,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      util.GetLogger(),
	}
}

// ErrRejected marks a validation-level rejection from the endpoint. Not
// retried: the endpoint saw the order and refused it.
var ErrRejected = errors.New("order rejected by endpoint")

// Submit posts the payload, retrying transport failures with exponential
// backoff up to the attempt cap. Validation-level rejections from the
// endpoint are terminal.
func (c *DirectClient) Submit(ctx context.Context, payload *Payload) (*Delivery, error) {
	var lastErr error

	delay := c.baseDelay
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		ack, err := c.submitOnce(ctx, payload)
		if err == nil {
			util.RelayConfirmedTotal.Inc()
			return &Delivery{
				Status:    DeliveryConfirmed,
				OrderID:   ack.OrderID,
				ShopID:    ack.ShopID,
				ItemCount: ack.ItemCount,
				Timestamp: time.Now(),
			}, nil
		}

		if errors.Is(err, ErrRejected) {
			util.RelayFailedTotal.Inc()
			return &Delivery{Status: DeliveryFailed}, err
		}

		lastErr = err
		c.logger.Warn("Direct submission attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return &Delivery{Status: DeliveryFailed}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	util.RelayFailedTotal.Inc()
	return &Delivery{Status: DeliveryFailed},
		fmt.Errorf("submission failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *DirectClient) submitOnce(ctx context.Context, payload *Payload) (*Ack, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("malformed ack: %w", err)
	}
	if !ack.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, ack.Message)
	}
	return &ack, nil
}
