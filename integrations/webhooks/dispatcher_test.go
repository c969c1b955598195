package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"treasurehunt/core/types"
	"treasurehunt/integrations/exports"
	"treasurehunt/native/treasure"
)

type capture struct {
	mu        sync.Mutex
	bodies    [][]byte
	events    []string
	signature []string
}

func (c *capture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.events = append(c.events, r.Header.Get("X-Hunt-Event"))
		c.signature = append(c.signature, r.Header.Get("X-Hunt-Signature"))
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func TestDispatcherSignsPayload(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handler())
	defer server.Close()
	dispatcher, err := NewDispatcher(server.URL, []byte("secret"))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	defer dispatcher.Close()
	if err := dispatcher.EnqueueDiscovered(DiscoveredPayload{Treasure: "hunt1cave", Finder: "hunt1finder"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(func() bool { return c.count() == 1 }, time.Second)
	require.Equal(t, 1, c.count())

	c.mu.Lock()
	defer c.mu.Unlock()
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(c.bodies[0])
	require.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), c.signature[0])
	require.Equal(t, string(EventTreasureDiscovered), c.events[0])
}

func TestDispatcherRetries(t *testing.T) {
	attempts := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	dispatcher, err := NewDispatcher(server.URL, []byte("secret"), WithRetryPolicy(5, time.Millisecond*10, time.Millisecond*20))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	defer dispatcher.Close()
	if err := dispatcher.NotifyExport(&exports.Manifest{RunID: "run-1", Rows: 2}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(func() bool { return atomic.LoadInt32(&attempts) >= 3 }, time.Second)
	if atomic.LoadInt32(&attempts) < 3 {
		t.Fatalf("expected retries, got %d", attempts)
	}
}

func TestForwardRelaysOnlyDiscoveries(t *testing.T) {
	c := &capture{}
	server := httptest.NewServer(c.handler())
	defer server.Close()
	dispatcher, err := NewDispatcher(server.URL, []byte("secret"))
	require.NoError(t, err)
	defer dispatcher.Close()

	events := make(chan *types.Event, 3)
	events <- &types.Event{Type: treasure.EventTypeTreasureCreated, Attributes: map[string]string{"treasure": "hunt1cave"}}
	events <- &types.Event{Type: treasure.EventTypeTreasureDiscovered, Attributes: map[string]string{
		"treasure":     "hunt1cave",
		"name":         "The Cave",
		"finder":       "hunt1finder",
		"rewardAmount": "100",
		"foundAt":      "1700000000",
	}}
	close(events)
	dispatcher.Forward(context.Background(), events)

	waitFor(func() bool { return c.count() == 1 }, time.Second)
	require.Equal(t, 1, c.count())

	c.mu.Lock()
	defer c.mu.Unlock()
	var payload DiscoveredPayload
	require.NoError(t, json.Unmarshal(c.bodies[0], &payload))
	require.Equal(t, "hunt1finder", payload.Finder)
	require.Equal(t, uint64(100), payload.RewardAmount)
	require.Equal(t, "discovered-hunt1cave", payload.DeliveryID)
	require.Equal(t, int64(1700000000), payload.FoundAt.Unix())
}

func TestNewDispatcherValidates(t *testing.T) {
	_, err := NewDispatcher(" ", []byte("secret"))
	require.Error(t, err)
	_, err = NewDispatcher("http://localhost", nil)
	require.Error(t, err)
}

func waitFor(cond func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond * 10)
	}
}
