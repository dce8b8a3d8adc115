package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() *Payload {
	return &Payload{
		Cart:       map[string]int{"Carrot": 3, "Onion": 0, "Fish": 2},
		ShopType:   "regular",
		StoreName:  "Test Shop",
		BranchName: "Main Branch",
		UserEmail:  "t@example.com",
		Timestamp:  time.Now(),
	}
}

func TestRelaySubmitConfirmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		var payload Payload
		require.NoError(t, json.Unmarshal([]byte(r.PostFormValue("data")), &payload))
		assert.Equal(t, "Test Shop", payload.StoreName)

		json.NewEncoder(w).Encode(Ack{
			Success:   true,
			OrderID:   "ORD-20250825134507-042",
			ShopID:    "REG123",
			ItemCount: 2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	delivery, err := client.Submit(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Equal(t, DeliveryConfirmed, delivery.Status)
	assert.Equal(t, "ORD-20250825134507-042", delivery.OrderID)
	assert.Equal(t, "REG123", delivery.ShopID)
	assert.Equal(t, 2, delivery.ItemCount)
}

func TestRelaySubmitPresumedOnTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, 100*time.Millisecond)

	delivery, err := client.Submit(context.Background(), testPayload())
	require.NoError(t, err, "an elapsed ack window is not an error")
	assert.Equal(t, DeliveryPresumed, delivery.Status)
	assert.Equal(t, 2, delivery.ItemCount, "counts only positive-quantity entries")
}

func TestRelaySubmitPresumedOnUnreadableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	delivery, err := client.Submit(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Equal(t, DeliveryPresumed, delivery.Status)
}

func TestRelaySubmitPresumedOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>server error</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	// The intermediary answered, so the form may have been relayed before
	// the failure; only a refused connection maps to Failed.
	delivery, err := client.Submit(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Equal(t, DeliveryPresumed, delivery.Status)
}

func TestRelaySubmitFailedOnRefusedConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, time.Second)

	delivery, err := client.Submit(context.Background(), testPayload())
	assert.Error(t, err)
	assert.Equal(t, DeliveryFailed, delivery.Status)
}

func TestDirectSubmitRetriesThenSucceeds(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(Ack{Success: true, OrderID: "ORD-1", ShopID: "REG123", ItemCount: 2})
	}))
	defer server.Close()

	client := NewDirectClient(server.URL, 3, 10*time.Millisecond)

	delivery, err := client.Submit(context.Background(), testPayload())
	require.NoError(t, err)
	assert.Equal(t, DeliveryConfirmed, delivery.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestDirectSubmitExhaustsAttempts(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewDirectClient(server.URL, 3, 10*time.Millisecond)

	delivery, err := client.Submit(context.Background(), testPayload())
	assert.Error(t, err)
	assert.Equal(t, DeliveryFailed, delivery.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestDirectSubmitRejectionIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Ack{Success: false, Message: "cart is empty"})
	}))
	defer server.Close()

	client := NewDirectClient(server.URL, 3, 10*time.Millisecond)

	_, err := client.Submit(context.Background(), testPayload())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cart is empty")
}
