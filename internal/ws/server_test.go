package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stake-arena/internal/economy"
	"stake-arena/internal/ledger"
	"stake-arena/internal/match"
)

type wireMsg struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Error  string `json:"error"`
	Reason string `json:"reason"`
	match.Snapshot
}

func startServer(t *testing.T, wallet match.Wallet) (*match.Registry, string) {
	t.Helper()
	reg := match.NewRegistry(wallet, match.Options{})
	srv := httptest.NewServer(http.HandlerFunc(NewServer(reg).HandleWS))
	t.Cleanup(func() {
		srv.Close()
		reg.Close()
	})
	return reg, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write %s: %v", msg, err)
	}
}

func read(t *testing.T, conn *websocket.Conn) wireMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m wireMsg
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

// waitState reads state updates until pred holds. Any error frame fails the
// test.
func waitState(t *testing.T, conn *websocket.Conn, pred func(wireMsg) bool) wireMsg {
	t.Helper()
	for {
		m := read(t, conn)
		if m.Type == "error" {
			t.Fatalf("unexpected error frame: %s (%s)", m.Error, m.Reason)
		}
		if pred(m) {
			return m
		}
	}
}

func expectError(t *testing.T, conn *websocket.Conn, code string) wireMsg {
	t.Helper()
	for {
		m := read(t, conn)
		if m.Type != "error" {
			continue
		}
		if m.Error != code {
			t.Fatalf("expected %s, got %s", code, m.Error)
		}
		return m
	}
}

func joinBoth(t *testing.T, url, roomID string) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	a := dial(t, url)
	send(t, a, `{"type":"join","room_id":"`+roomID+`","player_id":"tg:1","stake":5}`)
	waitState(t, a, func(m wireMsg) bool { return m.Seats[0].PlayerID == "tg:1" })

	b := dial(t, url)
	send(t, b, `{"type":"join","room_id":"`+roomID+`","player_id":"tg:2"}`)
	waitState(t, b, func(m wireMsg) bool { return m.Seats[1].PlayerID == "tg:2" })
	return a, b
}

func startMatch(t *testing.T, a, b *websocket.Conn) {
	t.Helper()
	send(t, b, `{"type":"ready"}`)
	waitState(t, b, func(m wireMsg) bool { return m.Seats[1].Ready })
	send(t, a, `{"type":"start"}`)
	waitState(t, a, func(m wireMsg) bool { return m.Status == match.StatusPlaying })
	waitState(t, b, func(m wireMsg) bool { return m.Status == match.StatusPlaying })
}

func play(t *testing.T, conn *websocket.Conn, cell int, mark string) wireMsg {
	t.Helper()
	send(t, conn, `{"type":"move","cell":`+strconv.Itoa(cell)+`}`)
	return waitState(t, conn, func(m wireMsg) bool { return m.Board[cell] == mark })
}

func TestMatchOverSockets(t *testing.T) {
	ctx := context.Background()
	gw := economy.New(ledger.NewMemory(nil), time.Second)
	for _, p := range []string{"tg:1", "tg:2"} {
		if err := gw.Grant(ctx, economy.Request{PlayerID: p, Amount: 10, Asset: ledger.AssetCoins}); err != nil {
			t.Fatalf("grant %s: %v", p, err)
		}
	}
	_, url := startServer(t, gw)
	a, b := joinBoth(t, url, "r1")
	startMatch(t, a, b)

	send(t, b, `{"type":"move","cell":0}`)
	expectError(t, b, "not_your_turn")

	play(t, a, 0, "X")
	play(t, b, 3, "O")
	play(t, a, 1, "X")
	play(t, b, 4, "O")
	last := play(t, a, 2, "X")
	if last.Status != match.StatusFinished || last.Result == nil || last.Result.Winner != "A" {
		t.Fatalf("expected A to win, got %+v", last.Snapshot)
	}

	// The move's settlement has run by the time the next event is handled.
	send(t, a, `{"type":"rematch"}`)
	waitState(t, a, func(m wireMsg) bool { return m.Seats[0].RematchVote })

	balA, err := gw.Balances(ctx, "tg:1")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	balB, err := gw.Balances(ctx, "tg:2")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if balA.Coins != 15 || balB.Coins != 5 {
		t.Fatalf("expected 15/5 after settlement, got %d/%d", balA.Coins, balB.Coins)
	}
}

func TestStartWithoutFundsReportsReason(t *testing.T) {
	gw := economy.New(ledger.NewMemory(nil), time.Second)
	_, url := startServer(t, gw)
	a, b := joinBoth(t, url, "r1")

	send(t, b, `{"type":"ready"}`)
	waitState(t, b, func(m wireMsg) bool { return m.Seats[1].Ready })
	send(t, a, `{"type":"start"}`)
	m := expectError(t, a, "payment_failed")
	if m.Reason != economy.ReasonInsufficientCoins || m.Event != "start" {
		t.Fatalf("unexpected error frame: %+v", m)
	}
}

func TestDisconnectPausesAndRejoinResumes(t *testing.T) {
	_, url := startServer(t, nil)
	a := dial(t, url)
	send(t, a, `{"type":"join","room_id":"r2","player_id":"tg:1"}`)
	waitState(t, a, func(m wireMsg) bool { return m.Seats[0].PlayerID == "tg:1" })
	b := dial(t, url)
	send(t, b, `{"type":"join","room_id":"r2","player_id":"tg:2"}`)
	waitState(t, b, func(m wireMsg) bool { return m.Seats[1].PlayerID == "tg:2" })
	startMatch(t, a, b)

	_ = b.Close()
	paused := waitState(t, a, func(m wireMsg) bool { return m.Status == match.StatusPaused })
	if paused.PausedSeat != "B" || paused.Seats[1].Connected {
		t.Fatalf("expected seat B paused and offline, got %+v", paused.Snapshot)
	}

	b2 := dial(t, url)
	send(t, b2, `{"type":"join","room_id":"r2","player_id":"tg:2"}`)
	resumed := waitState(t, a, func(m wireMsg) bool { return m.Status == match.StatusPlaying })
	if !resumed.Seats[1].Connected {
		t.Fatalf("expected seat B back online")
	}
}

func TestProtocolErrors(t *testing.T) {
	_, url := startServer(t, nil)
	c := dial(t, url)

	send(t, c, `not json`)
	expectError(t, c, "invalid_json")
	send(t, c, `{"type":"ready"}`)
	expectError(t, c, "not_joined")
	send(t, c, `{"type":"dance"}`)
	expectError(t, c, "unknown_type")
	send(t, c, `{"type":"join","player_id":"tg:1"}`)
	expectError(t, c, "invalid_request")

	send(t, c, `{"type":"join","room_id":"r3","player_id":"tg:1","asset":"gold"}`)
	expectError(t, c, "invalid_wager")

	send(t, c, `{"type":"join","room_id":"r3","player_id":"tg:1"}`)
	waitState(t, c, func(m wireMsg) bool { return m.Seats[0].PlayerID == "tg:1" })
	send(t, c, `{"type":"join","room_id":"r4","player_id":"tg:1"}`)
	expectError(t, c, "already_joined")
	send(t, c, `{"type":"move","cell":4}`)
	expectError(t, c, "not_playing")
}

func TestLeaveUnbindsConnection(t *testing.T) {
	reg, url := startServer(t, nil)
	c := dial(t, url)
	send(t, c, `{"type":"join","room_id":"r5","player_id":"tg:1"}`)
	waitState(t, c, func(m wireMsg) bool { return m.Seats[0].PlayerID == "tg:1" })

	send(t, c, `{"type":"leave"}`)
	send(t, c, `{"type":"ready"}`)
	expectError(t, c, "not_joined")
	if _, err := reg.Snapshot("r5"); !errors.Is(err, match.ErrRoomNotFound) {
		t.Fatalf("expected empty room removed, got %v", err)
	}
}
