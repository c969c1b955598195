package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"treasurehunt/core/types"
	"treasurehunt/integrations/exports"
	"treasurehunt/native/treasure"
)

// EventType represents the logical webhook topic.
type EventType string

const (
	// EventTreasureDiscovered is delivered for every committed claim.
	EventTreasureDiscovered EventType = "treasure.discovered"
	// EventExportReady is delivered when a discovery snapshot has been written.
	EventExportReady EventType = "exports.ready"

	defaultMaxAttempts = 5
	defaultMinBackoff  = 2 * time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// DiscoveredPayload describes the webhook body for discovery events.
type DiscoveredPayload struct {
	Type         EventType `json:"type"`
	Treasure     string    `json:"treasure"`
	Name         string    `json:"name"`
	Mint         string    `json:"mint"`
	Finder       string    `json:"finder"`
	RewardAmount uint64    `json:"rewardAmount"`
	FoundAt      time.Time `json:"foundAt"`
	DeliveryID   string    `json:"deliveryId"`
}

// ExportReadyPayload describes the webhook body for snapshot events.
type ExportReadyPayload struct {
	Type        EventType      `json:"type"`
	RunID       string         `json:"runId"`
	Rows        int            `json:"rows"`
	Files       []exports.File `json:"files"`
	GeneratedAt time.Time      `json:"generatedAt"`
	DeliveryID  string         `json:"deliveryId"`
}

// Dispatcher orchestrates webhook deliveries with retry and exponential backoff.
type Dispatcher struct {
	endpoint    string
	secret      []byte
	client      *http.Client
	logger      *slog.Logger
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan delivery
	wg     sync.WaitGroup
}

type delivery struct {
	eventType EventType
	body      []byte
}

// Option mutates dispatcher configuration.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithLogger routes delivery failures to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRetryPolicy overrides the retry configuration.
func WithRetryPolicy(maxAttempts int, minBackoff, maxBackoff time.Duration) Option {
	return func(d *Dispatcher) {
		if maxAttempts > 0 {
			d.maxAttempts = maxAttempts
		}
		if minBackoff > 0 {
			d.minBackoff = minBackoff
		}
		if maxBackoff >= minBackoff && maxBackoff > 0 {
			d.maxBackoff = maxBackoff
		}
	}
}

// NewDispatcher constructs a dispatcher and spawns the worker goroutine.
func NewDispatcher(endpoint string, secret []byte, opts ...Option) (*Dispatcher, error) {
	endpoint = string(bytes.TrimSpace([]byte(endpoint)))
	if endpoint == "" {
		return nil, errors.New("webhook: endpoint required")
	}
	if len(secret) == 0 {
		return nil, errors.New("webhook: secret required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher := &Dispatcher{
		endpoint:    endpoint,
		secret:      append([]byte(nil), secret...),
		client:      &http.Client{Timeout: 15 * time.Second},
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan delivery, 32),
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	dispatcher.wg.Add(1)
	go dispatcher.worker()
	return dispatcher, nil
}

// Close stops the dispatcher and waits for inflight deliveries to complete.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// EnqueueDiscovered sends a discovery event asynchronously.
func (d *Dispatcher) EnqueueDiscovered(payload DiscoveredPayload) error {
	payload.Type = EventTreasureDiscovered
	if payload.DeliveryID == "" {
		payload.DeliveryID = fmt.Sprintf("discovered-%s", payload.Treasure)
	}
	return d.enqueue(payload.Type, payload)
}

// NotifyExport sends a snapshot event asynchronously.
func (d *Dispatcher) NotifyExport(m *exports.Manifest) error {
	if m == nil {
		return errors.New("webhook: nil manifest")
	}
	payload := ExportReadyPayload{
		Type:        EventExportReady,
		RunID:       m.RunID,
		Rows:        m.Rows,
		Files:       m.Files,
		GeneratedAt: m.GeneratedAt,
		DeliveryID:  "export-" + m.RunID,
	}
	return d.enqueue(payload.Type, payload)
}

// Forward relays discovery events from a node subscription until ctx is
// cancelled or the channel closes.
func (d *Dispatcher) Forward(ctx context.Context, events <-chan *types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt == nil || evt.Type != treasure.EventTypeTreasureDiscovered {
				continue
			}
			payload, err := discoveredPayload(evt)
			if err != nil {
				d.logger.Warn("webhook: skip malformed event", slog.Any("error", err))
				continue
			}
			if err := d.EnqueueDiscovered(payload); err != nil {
				d.logger.Warn("webhook: enqueue failed", slog.Any("error", err))
			}
		}
	}
}

func discoveredPayload(evt *types.Event) (DiscoveredPayload, error) {
	attrs := evt.Attributes
	reward, err := strconv.ParseUint(attrs["rewardAmount"], 10, 64)
	if err != nil {
		return DiscoveredPayload{}, fmt.Errorf("rewardAmount: %w", err)
	}
	foundAt, err := strconv.ParseInt(attrs["foundAt"], 10, 64)
	if err != nil {
		return DiscoveredPayload{}, fmt.Errorf("foundAt: %w", err)
	}
	return DiscoveredPayload{
		Treasure:     attrs["treasure"],
		Name:         attrs["name"],
		Mint:         attrs["mint"],
		Finder:       attrs["finder"],
		RewardAmount: reward,
		FoundAt:      time.Unix(foundAt, 0).UTC(),
	}, nil
}

func (d *Dispatcher) enqueue(eventType EventType, body interface{}) error {
	if d == nil {
		return errors.New("webhook: dispatcher not initialised")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	select {
	case d.queue <- delivery{eventType: eventType, body: data}:
		return nil
	case <-d.ctx.Done():
		return errors.New("webhook: dispatcher closed")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.queue:
			d.process(job)
		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(job delivery) {
	attempt := 0
	backoff := d.minBackoff
	for {
		attempt++
		ctx, cancel := context.WithTimeout(d.ctx, d.client.Timeout)
		err := d.send(ctx, job)
		cancel()
		if err == nil {
			return
		}
		if attempt >= d.maxAttempts {
			d.logger.Warn("webhook: delivery abandoned",
				slog.String("event", string(job.eventType)),
				slog.Int("attempts", attempt),
				slog.Any("error", err))
			return
		}
		select {
		case <-time.After(backoff):
		case <-d.ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, d.maxBackoff)
	}
}

func (d *Dispatcher) send(ctx context.Context, job delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(job.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hunt-Event", string(job.eventType))
	req.Header.Set("X-Hunt-Signature", d.sign(job.body))
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook: delivery failed with status %d", resp.StatusCode)
}

func (d *Dispatcher) sign(body []byte) string {
	mac := hmac.New(sha256.New, d.secret)
	_, _ = mac.Write(body)
	sum := mac.Sum(nil)
	return "sha256=" + hex.EncodeToString(sum)
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	if next < current {
		return max
	}
	return next
}
