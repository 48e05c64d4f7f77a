package telemetry

import (
	"testing"

	"github.com/teslashibe/go-waypoint/pkg/geom"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
)

func TestHandle_State(t *testing.T) {
	store := NewStore()
	msg, _ := protocol.NewStateMessage([3]float64{1, 2, 3}, 0.5, nil)
	raw, _ := msg.Bytes()

	reply, err := Handle(store, raw)
	if err != nil {
		t.Fatal(err)
	}
	if reply != nil {
		t.Errorf("state frame produced reply %+v", reply)
	}
	if got := store.Snapshot().Position; got != geom.V(1, 2, 3) {
		t.Errorf("Position = %+v", got)
	}
}

func TestHandle_PingReplies(t *testing.T) {
	msg, _ := protocol.NewMessage(protocol.TypePing, protocol.PingData{ID: "abc"})
	raw, _ := msg.Bytes()

	reply, err := Handle(NewStore(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Type != protocol.TypePong {
		t.Fatalf("reply = %+v, want pong", reply)
	}
	var pong protocol.PongData
	if err := reply.ParseData(&pong); err != nil {
		t.Fatal(err)
	}
	if pong.ID != "abc" {
		t.Errorf("pong ID = %q", pong.ID)
	}
}

func TestHandle_Rejects(t *testing.T) {
	store := NewStore()
	if _, err := Handle(store, []byte("not json")); err == nil {
		t.Error("expected parse error")
	}
	msg, _ := protocol.NewMessage(protocol.TypeResult, nil)
	raw, _ := msg.Bytes()
	if _, err := Handle(store, raw); err == nil {
		t.Error("expected error for unexpected type")
	}
	if store.Seq() != 0 {
		t.Errorf("Seq = %d, want 0", store.Seq())
	}
}
