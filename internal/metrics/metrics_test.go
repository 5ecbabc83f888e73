package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/rooms/{roomId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/rooms/{roomId}", "404"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/abc12345", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/rooms/{roomId}", "404"))
	assert.Equal(t, before+1, after)
}

func TestMiddlewarePassesWebsocketUpgrade(t *testing.T) {
	upgrader := websocket.Upgrader{}
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/ws/{roomId}", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		conn.Close()
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	counter := httpRequests.WithLabelValues(http.MethodGet, "/ws/{roomId}", "101")
	before := testutil.ToFloat64(counter)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/r1", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(counter) == before+1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMiddlewareDefaultsToOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(http.ResponseWriter, *http.Request) {})

	counter := httpRequests.WithLabelValues(http.MethodGet, "/healthz", "200")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandlerExposesCollabMetrics(t *testing.T) {
	MessagesTotal.WithLabelValues("code_change").Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "pairprog_ws_messages_total"))
}
