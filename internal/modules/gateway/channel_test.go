package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/gradflow/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// staticValidator resolves fixed token strings; anything else is anonymous.
func staticValidator(tokens map[string]Principal) TokenValidator {
	return func(_ context.Context, token string) Principal {
		return tokens[normalizeToken(token)]
	}
}

// fakeActions is an in-memory ActionHandler.
type fakeActions struct {
	unread []models.NotificationModel
	marked []string
}

func (f *fakeActions) ListUnread(context.Context, Principal) ([]models.NotificationModel, error) {
	return f.unread, nil
}

func (f *fakeActions) MarkRead(_ context.Context, _ Principal, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

type gatewayFixture struct {
	layer   *LocalLayer
	actions *fakeActions
	srv     *httptest.Server
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	layer := NewLocalLayer()
	actions := &fakeActions{}
	validate := staticValidator(map[string]Principal{
		"advisor-token": {UserID: "42", Role: models.RoleAdvisor},
		"student-token": {UserID: "7", Role: models.RoleStudent},
	})

	r := gin.New()
	h := NewHandler(validate, layer, actions, zap.NewNop(), nil)
	h.RegisterRoutes(&r.RouterGroup)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &gatewayFixture{layer: layer, actions: actions, srv: srv}
}

func (f *gatewayFixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readRaw(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

func readFrame(t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame outboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func waitForMembers(t *testing.T, layer *LocalLayer, group string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return layer.MemberCount(group) == n
	}, 2*time.Second, 10*time.Millisecond, "group %s never reached %d members", group, n)
}

func TestConnJoinsGroupsByPrincipal(t *testing.T) {
	f := newGatewayFixture(t)
	f.dial(t, "/ws/notifications/?token=advisor-token")

	waitForMembers(t, f.layer, GroupAll, 1)
	waitForMembers(t, f.layer, RoleGroup("Advisor"), 1)
	waitForMembers(t, f.layer, UserGroup("42"), 1)
	assert.Zero(t, f.layer.MemberCount(RoleGroup("Student")))
}

func TestAnonymousConnJoinsOnlyGlobalGroup(t *testing.T) {
	f := newGatewayFixture(t)
	f.dial(t, "/ws/notifications/")

	waitForMembers(t, f.layer, GroupAll, 1)
	assert.Zero(t, f.layer.MemberCount(UserGroup("42")))
	assert.Zero(t, f.layer.MemberCount(RoleGroup("Advisor")))
}

func TestDirectNotificationReachesOnlyItsUser(t *testing.T) {
	f := newGatewayFixture(t)
	advisor := f.dial(t, "/ws/notifications/?token=advisor-token")
	waitForMembers(t, f.layer, UserGroup("42"), 1)

	require.NoError(t, f.layer.GroupSend(context.Background(), UserGroup("42"), Envelope{
		ID:    "n1",
		Title: "Defense scheduled",
	}))

	raw := readRaw(t, advisor)
	var id string
	require.NoError(t, json.Unmarshal(raw["id"], &id))
	assert.Equal(t, "n1", id)

	// A send to a role group the advisor is not in must not arrive.
	require.NoError(t, f.layer.GroupSend(context.Background(), RoleGroup("Student"), Envelope{ID: "n2"}))
	require.NoError(t, advisor.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := advisor.ReadMessage()
	assert.Error(t, err, "nothing should be delivered from a foreign role group")
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	f := newGatewayFixture(t)
	advisor := f.dial(t, "/ws/notifications/?token=advisor-token")
	anon := f.dial(t, "/ws/notifications/")
	waitForMembers(t, f.layer, GroupAll, 2)

	require.NoError(t, f.layer.GroupSend(context.Background(), GroupAll, Envelope{ID: "b1"}))

	for _, conn := range []*websocket.Conn{advisor, anon} {
		raw := readRaw(t, conn)
		var id string
		require.NoError(t, json.Unmarshal(raw["id"], &id))
		assert.Equal(t, "b1", id)
	}
}

func TestAnonymousActionsAreRejected(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "/ws/notifications/")
	waitForMembers(t, f.layer, GroupAll, 1)

	require.NoError(t, conn.WriteJSON(inboundFrame{Action: "get_notifications"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Event)
	assert.Equal(t, "authentication required", frame.Message)
}

func TestUnknownActionGetsErrorFrame(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "/ws/notifications/?token=advisor-token")
	waitForMembers(t, f.layer, UserGroup("42"), 1)

	require.NoError(t, conn.WriteJSON(inboundFrame{Action: "reticulate_splines"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Event)
	assert.Equal(t, "unknown action", frame.Message)
}

func TestMalformedFrameGetsErrorFrame(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "/ws/notifications/?token=advisor-token")
	waitForMembers(t, f.layer, UserGroup("42"), 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Event)
	assert.Equal(t, "malformed frame", frame.Message)
}

func TestGetNotificationsAction(t *testing.T) {
	f := newGatewayFixture(t)
	unread := models.NotificationModel{Title: "Milestone overdue"}
	unread.ID = "n7"
	f.actions.unread = []models.NotificationModel{unread}

	conn := f.dial(t, "/ws/notifications/?token=student-token")
	waitForMembers(t, f.layer, UserGroup("7"), 1)

	require.NoError(t, conn.WriteJSON(inboundFrame{Action: "get_notifications"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "notifications", frame.Event)
	require.Len(t, frame.Data, 1)
	assert.Equal(t, "n7", frame.Data[0].ID)
}

func TestMarkReadAction(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "/ws/notifications/?token=student-token")
	waitForMembers(t, f.layer, UserGroup("7"), 1)

	require.NoError(t, conn.WriteJSON(inboundFrame{Action: "mark_read", NotificationID: "n3"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "read", frame.Event)
	assert.Equal(t, "n3", frame.NotificationID)
	assert.Equal(t, []string{"n3"}, f.actions.marked)
}

func TestDisconnectLeavesEveryGroup(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "/ws/notifications/?token=advisor-token")
	waitForMembers(t, f.layer, UserGroup("42"), 1)

	conn.Close()

	waitForMembers(t, f.layer, GroupAll, 0)
	waitForMembers(t, f.layer, RoleGroup("Advisor"), 0)
	waitForMembers(t, f.layer, UserGroup("42"), 0)
}

func TestProjectRouteJoinsProjectGroup(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "/ws/projects/p1/?token=student-token")
	waitForMembers(t, f.layer, ProjectGroup("p1"), 1)

	require.NoError(t, f.layer.GroupSend(context.Background(), ProjectGroup("p1"), Envelope{ID: "pn1"}))

	raw := readRaw(t, conn)
	var id string
	require.NoError(t, json.Unmarshal(raw["id"], &id))
	assert.Equal(t, "pn1", id)
}
