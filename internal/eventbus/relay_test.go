package eventbus

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jtoledo1974/atcapp/internal/events"
)

func TestNewRelayFailsWithoutRedis(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 200 * time.Millisecond
	if _, err := NewRelay(cfg, events.NewBus(), zerolog.Nop()); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestDeliverSkipsOwnMessagesAndTagsOrigin(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventRosterImported)
	defer bus.Unsubscribe(events.EventRosterImported, sub)

	r := &Relay{local: bus, nodeID: "self", logger: zerolog.Nop()}

	own, err := marshalMessage(events.EventRosterImported, events.Payload{"roster_id": "r0"}, "self")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r.deliver(string(own))

	remote, err := marshalMessage(events.EventRosterImported, events.Payload{"roster_id": "r1"}, "other")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r.deliver(string(remote))

	select {
	case payload := <-sub:
		if payload["roster_id"] != "r1" || payload[originKey] != "other" {
			t.Fatalf("payload = %v, want r1 from other", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("remote event not delivered")
	}
	select {
	case payload := <-sub:
		t.Fatalf("unexpected extra event %v", payload)
	default:
	}
}

func TestNodeIDHasRandomSuffix(t *testing.T) {
	a, b := NodeID(), NodeID()
	if a == b {
		t.Fatalf("node ids collide: %q", a)
	}
	if !strings.Contains(a, "-") {
		t.Fatalf("node id %q has no suffix", a)
	}
}
