package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// echoServer upgrades each request and echoes text frames back.
type echoServer struct {
	*httptest.Server

	mu       sync.Mutex
	upgrades int
	conns    []*websocket.Conn
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	es := &echoServer{}
	es.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		es.mu.Lock()
		es.upgrades++
		es.conns = append(es.conns, conn)
		es.mu.Unlock()
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(es.Close)
	return es
}

func (es *echoServer) wsURL() string {
	return "ws" + strings.TrimPrefix(es.URL, "http")
}

// dropConns closes every upgraded connection. httptest.Server stops tracking
// hijacked connections, so CloseClientConnections cannot reach them.
func (es *echoServer) dropConns() {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, c := range es.conns {
		c.Close()
	}
	es.conns = nil
}

func (es *echoServer) upgradeCount() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.upgrades
}

func TestClientConnectAndEcho(t *testing.T) {
	srv := newEchoServer(t)

	connected := make(chan struct{})
	received := make(chan []byte, 16)

	client := New(Config{URL: srv.wsURL()})
	client.OnConnect = func() { close(connected) }
	client.OnMessage = func(data []byte) { received <- data }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}

	client.Send([]byte(`{"type":"HELLO","node":"t"}`))

	select {
	case data := <-received:
		assert.JSONEq(t, `{"type":"HELLO","node":"t"}`, string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("echo never arrived")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClientReconnects(t *testing.T) {
	srv := newEchoServer(t)

	var mu sync.Mutex
	connects := 0
	reconnected := make(chan struct{})

	client := New(Config{
		URL:        srv.wsURL(),
		BackoffMin: 10 * time.Millisecond,
		BackoffMax: 50 * time.Millisecond,
	})
	client.OnConnect = func() {
		mu.Lock()
		connects++
		n := connects
		mu.Unlock()
		if n == 2 {
			close(reconnected)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	require.Eventually(t, func() bool {
		return srv.upgradeCount() >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// drop every server-side connection; the client should redial
	srv.dropConns()

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("client did not reconnect after the link dropped")
	}
}

func TestClientKeepsRetryingWhileServerDown(t *testing.T) {
	// reserve an address, then close the listener so every dial fails
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	connected := make(chan struct{}, 1)
	client := New(Config{
		URL:        url,
		BackoffMin: 10 * time.Millisecond,
		BackoffMax: 50 * time.Millisecond,
	})
	client.OnConnect = func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	// let a few dial attempts fail before the server appears
	time.Sleep(100 * time.Millisecond)
	select {
	case <-connected:
		t.Fatal("client connected while server was down")
	default:
	}

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSendNeverBlocks(t *testing.T) {
	client := New(Config{URL: "ws://127.0.0.1:1/", SendBuffer: 4})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			client.Send([]byte("frame"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked with no connection")
	}
}
