package relay

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PadhikariDev/querynest/internal/chat"
	"github.com/PadhikariDev/querynest/internal/model"
	"github.com/PadhikariDev/querynest/internal/realtime"
	"github.com/PadhikariDev/querynest/internal/session"
)

const adminKey = "test-admin-key"

func startServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	opts.AdminKey = adminKey
	opts.Logger = zerolog.Nop()
	srv := NewServer(opts)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown(time.Second) })

	return srv, "ws://" + ln.Addr().String() + "/ws"
}

func connect(t *testing.T, endpoint, token string) (*realtime.Channel, *chat.Store) {
	t.Helper()
	store := chat.NewStore(chat.ViewerUser)
	ch, err := realtime.NewChannel(realtime.Config{
		Dialer: &realtime.WebSocketDialer{Token: token, HandshakeTimeout: 2 * time.Second},
		Sink:   store,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, ch.Connect(context.Background(), endpoint))
	t.Cleanup(func() { _ = ch.Disconnect() })
	return ch, store
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealth(t *testing.T) {
	srv := NewServer(Options{Logger: zerolog.Nop(), AdminKey: adminKey})
	defer srv.Shutdown(time.Second)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
}

func TestWSRequiresUpgrade(t *testing.T) {
	srv := NewServer(Options{Logger: zerolog.Nop(), AdminKey: adminKey})
	defer srv.Shutdown(time.Second)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestAdminStats(t *testing.T) {
	srv := NewServer(Options{Logger: zerolog.Nop(), AdminKey: adminKey})
	defer srv.Shutdown(time.Second)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	resp, err = srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode(t, resp)
	assert.EqualValues(t, 0, stats["clients_online"])
	assert.EqualValues(t, 0, stats["rooms_active"])
}

func announce(t *testing.T, srv *Server, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/announce", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", adminKey)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	return resp
}

func TestAnnounceValidation(t *testing.T) {
	srv := NewServer(Options{Logger: zerolog.Nop(), AdminKey: adminKey})
	defer srv.Shutdown(time.Second)

	resp := announce(t, srv, `{"roomId":"q1","text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = announce(t, srv, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = announce(t, srv, `{"roomId":"q1","text":"maintenance at noon"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, decode(t, resp)["delivered"])
}

func TestRoomRelayEchoesToEveryMember(t *testing.T) {
	srv, endpoint := startServer(t, Options{})

	ann, annStore := connect(t, endpoint, "")
	bob, bobStore := connect(t, endpoint, "")
	_, eveStore := connect(t, endpoint, "")

	require.NoError(t, ann.JoinRoom("q1"))
	require.NoError(t, bob.JoinRoom("q1"))
	require.Eventually(t, func() bool { return srv.Hub().RoomSize("q1") == 2 }, 2*time.Second, 10*time.Millisecond)

	msg := &model.ChatMessage{Sender: "ann", Text: "hello", Role: model.RoleUser, Tag: "Technical", Time: time.Now().UTC()}
	require.NoError(t, ann.SendMessage("q1", msg))

	for _, store := range []*chat.Store{annStore, bobStore} {
		require.Eventually(t, func() bool { return store.Len("q1", "Technical") == 1 }, 2*time.Second, 10*time.Millisecond)
		got := store.Bucket("q1", "Technical")[0]
		assert.Equal(t, "hello", got.Text)
		assert.True(t, got.SameAs(msg))
	}
	assert.Empty(t, eveStore.Rooms())

	resp := announce(t, srv, `{"roomId":"q1","tag":"Technical","text":"maintenance at noon"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decode(t, resp)["delivered"])
	require.Eventually(t, func() bool { return bobStore.Len("q1", "Technical") == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, model.RoleSystem, bobStore.Bucket("q1", "Technical")[1].Role)
}

func TestAnnounceWithoutRoomReachesEveryRoom(t *testing.T) {
	srv, endpoint := startServer(t, Options{})

	ann, annStore := connect(t, endpoint, "")
	bob, bobStore := connect(t, endpoint, "")
	_, eveStore := connect(t, endpoint, "")

	require.NoError(t, ann.JoinRoom("q1"))
	require.NoError(t, bob.JoinRoom("q2"))
	require.Eventually(t, func() bool {
		return srv.Hub().RoomSize("q1") == 1 && srv.Hub().RoomSize("q2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp := announce(t, srv, `{"text":"maintenance at noon"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decode(t, resp)["delivered"])

	require.Eventually(t, func() bool { return annStore.Len("q1", model.DefaultTag) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return bobStore.Len("q2", model.DefaultTag) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := bobStore.Bucket("q2", model.DefaultTag)[0]
	assert.Equal(t, AnnounceSender, got.Sender)
	assert.Equal(t, model.RoleSystem, got.Role)
	assert.Empty(t, eveStore.Rooms())
}

func TestPingIsAnswered(t *testing.T) {
	_, endpoint := startServer(t, Options{})

	conn, err := (&realtime.WebSocketDialer{}).Dial(context.Background(), endpoint)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(&model.WSEvent{Type: model.EventPing}))
	var ev model.WSEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, model.EventPong, ev.Type)
}

func TestTokenRequiredWhenSecretSet(t *testing.T) {
	_, endpoint := startServer(t, Options{JWTSecret: "relay-secret"})

	_, err := (&realtime.WebSocketDialer{}).Dial(context.Background(), endpoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = (&realtime.WebSocketDialer{Token: "garbage"}).Dial(context.Background(), endpoint)
	require.Error(t, err)

	token, err := session.Sign("relay-secret", model.Identity{UserName: "ann"}, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	conn, err := (&realtime.WebSocketDialer{Token: token}).Dial(context.Background(), endpoint)
	require.NoError(t, err)
	_ = conn.Close()
}
