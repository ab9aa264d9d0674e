package ws

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"stake-arena/internal/ledger"
	"stake-arena/internal/match"
)

func compileSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	compiler := jsonschema.NewCompiler()
	data, err := os.ReadFile("../../api/schema/ws_v1.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := compiler.AddResource("ws_v1.schema.json", strings.NewReader(string(data))); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	schema, err := compiler.Compile("ws_v1.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return schema
}

func validate(t *testing.T, schema *jsonschema.Schema, raw []byte) error {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return schema.Validate(v)
}

func TestWSProtocolSchema(t *testing.T) {
	schema := compileSchema(t)

	samples := []string{
		`{"type":"join","room_id":"r1","player_id":"tg:42","stake":5,"asset":"coins"}`,
		`{"type":"ready"}`,
		`{"type":"move","cell":4}`,
		`{"type":"rematch"}`,
		`{"type":"state_update","room_id":"r1","seq":3,"status":"playing","round":1,"board":["X","","","","O","","","",""],"turn":"A","seats":[{"player_id":"tg:1","connected":true,"ready":false,"paid":true,"rematch_vote":false,"wins":0,"pause_budget_ms":30000},{"player_id":"tg:2","connected":true,"ready":true,"paid":true,"rematch_vote":false,"wins":0,"pause_budget_ms":30000}],"wager":{"asset":"coins","stake":5},"draws":0,"turn_deadline_ms":1767268810000}`,
		`{"type":"state_update","room_id":"r1","seq":9,"status":"finished","round":1,"board":["X","X","X","O","O","","","",""],"seats":[{"connected":true,"ready":false,"paid":false,"rematch_vote":false,"wins":1,"pause_budget_ms":30000},{"connected":false,"ready":true,"paid":false,"rematch_vote":false,"wins":0,"pause_budget_ms":0}],"wager":{"asset":"gems","stake":2},"draws":0,"result":{"winner":"A","reason":"line"}}`,
		`{"type":"error","event":"start","error":"payment_failed","reason":"insufficient_coins"}`,
	}
	for i, s := range samples {
		if err := validate(t, schema, []byte(s)); err != nil {
			t.Fatalf("schema validate sample %d: %v", i, err)
		}
	}

	invalid := []string{
		`{"type":"move","cell":9}`,
		`{"type":"join","room_id":"r1","player_id":"steam:1"}`,
		`{"type":"state_update","room_id":"r1","seq":1,"status":"playing","round":1,"board":[],"seats":[],"wager":{"asset":"coins","stake":0},"draws":0}`,
		`{"type":"error"}`,
	}
	for i, s := range invalid {
		if err := validate(t, schema, []byte(s)); err == nil {
			t.Fatalf("invalid sample %d accepted", i)
		}
	}
}

func TestOutboundMessagesMatchSchema(t *testing.T) {
	schema := compileSchema(t)

	reg := match.NewRegistry(nil, match.Options{DefaultAsset: ledger.AssetCoins})
	t.Cleanup(reg.Close)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	snap, err := reg.Dispatch(ctx, "r1", match.Event{Kind: match.EventJoin, PlayerID: "tg:1"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	update, err := json.Marshal(StateUpdate{Type: "state_update", Snapshot: snap})
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	if err := validate(t, schema, update); err != nil {
		t.Fatalf("state_update: %v", err)
	}

	code, reason := match.Code(&match.PaymentError{Reason: "insufficient_gems"})
	errMsg, err := json.Marshal(ErrorMessage{Type: "error", Event: "start", Error: code, Reason: reason})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if err := validate(t, schema, errMsg); err != nil {
		t.Fatalf("error message: %v", err)
	}
}
