package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentwerk/teamrouter"
	"github.com/agentwerk/teamrouter/core"
	"github.com/agentwerk/teamrouter/oracle"
	"github.com/agentwerk/teamrouter/store"
	"github.com/agentwerk/teamrouter/team"
	"github.com/agentwerk/teamrouter/tool"
)

func testServer(t *testing.T, o oracle.Oracle) *Server {
	t.Helper()

	teams := team.NewRegistry()
	teams.MustRegister(team.Team{
		ID: "log_team", Label: "Log Investigation", Role: "logs",
		Affinity: team.KeywordAffinity("order", "compare"),
	})

	engine := teamrouter.New(o, teams, tool.NewRegistry(), func(eo *teamrouter.Options) {
		eo.Store = store.NewInMemoryStore()
	})
	t.Cleanup(func() { engine.Close() })

	return New(engine)
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := testServer(t, oracle.NewScripted())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatEndpoint(t *testing.T) {
	scripted := oracle.NewScripted(oracle.Decision{FinalAnswer: "the answer"})
	s := testServer(t, scripted)

	w := postChat(t, s.Handler(), `{"message":"compare order GOOD001 and BAD001"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res teamrouter.ChatResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "the answer", res.Response)
	assert.NotEmpty(t, res.ThreadID)
	assert.Equal(t, []string{"log_team"}, res.AgentPath)
}

func TestChatEndpoint_BadRequest(t *testing.T) {
	s := testServer(t, oracle.NewScripted())
	w := postChat(t, s.Handler(), `{"thread_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThreadLifecycle(t *testing.T) {
	scripted := oracle.NewScripted(
		oracle.Decision{FinalAnswer: "first"},
		oracle.Decision{FinalAnswer: "second"},
	)
	s := testServer(t, scripted)
	h := s.Handler()

	w := postChat(t, h, `{"thread_id":"th-1","message":"compare orders"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = postChat(t, h, `{"thread_id":"th-1","message":"compare again"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// List shows the thread with two turns.
	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Threads []store.ThreadInfo `json:"threads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Threads, 1)
	assert.Equal(t, "th-1", list.Threads[0].ThreadID)
	assert.Equal(t, 2, list.Threads[0].TurnCount)

	// Get returns the full history.
	req = httptest.NewRequest(http.MethodGet, "/threads/th-1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var th core.Thread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &th))
	require.Len(t, th.Turns, 2)
	assert.Equal(t, "first", th.Turns[0].AssistantText)

	// Delete, then the thread reads back empty.
	req = httptest.NewRequest(http.MethodDelete, "/threads/th-1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/threads/th-1", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &th))
	assert.Empty(t, th.Turns)
}

func TestGetUnknownThreadIsEmptyNotError(t *testing.T) {
	s := testServer(t, oracle.NewScripted())

	req := httptest.NewRequest(http.MethodGet, "/threads/ghost", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var th core.Thread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &th))
	assert.Equal(t, "ghost", th.ID)
	assert.Empty(t, th.Turns)
}

func TestWebsocketStreamsRunEvents(t *testing.T) {
	scripted := oracle.NewScripted(oracle.Decision{FinalAnswer: "ws answer"})
	s := testServer(t, scripted)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/th-ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "compare order GOOD001"}))

	var types []core.EventType
	for {
		var ev core.Event
		require.NoError(t, conn.ReadJSON(&ev))
		types = append(types, ev.Type)
		if ev.IsTerminal() {
			assert.Equal(t, core.EventComplete, ev.Type)
			assert.Equal(t, "ws answer", ev.FinalResponse)
			break
		}
	}
	assert.Equal(t, core.EventAgentStart, types[0])

	// An empty message yields an error frame, not a closed socket.
	require.NoError(t, conn.WriteJSON(map[string]string{"message": ""}))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame["type"])
}

// slowStore delays turn writes and honors context cancellation, matching the
// transactional behavior of the SQLite store.
type slowStore struct {
	store.ThreadStore
	delay time.Duration
}

func (s *slowStore) AppendTurn(ctx context.Context, threadID string, turn core.Turn) error {
	time.Sleep(s.delay)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ThreadStore.AppendTurn(ctx, threadID, turn)
}

func TestWebsocketCloseAfterCompleteStillPersistsTurn(t *testing.T) {
	scripted := oracle.NewScripted(oracle.Decision{FinalAnswer: "kept"})

	teams := team.NewRegistry()
	teams.MustRegister(team.Team{
		ID: "log_team", Label: "Log Investigation", Role: "logs",
		Affinity: team.KeywordAffinity("order", "compare"),
	})
	backing := &slowStore{ThreadStore: store.NewInMemoryStore(), delay: 100 * time.Millisecond}
	engine := teamrouter.New(scripted, teams, tool.NewRegistry(), func(eo *teamrouter.Options) {
		eo.Store = backing
	})
	t.Cleanup(func() { engine.Close() })

	srv := httptest.NewServer(New(engine).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/th-close"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "compare order GOOD001"}))
	for {
		var ev core.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.IsTerminal() {
			require.Equal(t, core.EventComplete, ev.Type)
			break
		}
	}

	// Typical client behavior: hang up as soon as the terminal event
	// arrives, while the turn write is still in flight.
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		th, err := engine.Threads().GetThread(context.Background(), "th-close")
		return err == nil && len(th.Turns) == 1 && th.Turns[0].AssistantText == "kept"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestChatEndpoint_AllTeamsFailed(t *testing.T) {
	o := oracle.Func(func(context.Context, oracle.Request) (oracle.Decision, error) {
		return oracle.Decision{}, assert.AnError
	})
	s := testServer(t, o)

	w := postChat(t, s.Handler(), `{"message":"compare orders"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
