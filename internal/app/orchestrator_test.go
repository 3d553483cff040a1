package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/peercall/peercall/internal/core"
	"github.com/peercall/peercall/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// events decodes every queued frame into a generic map.
func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var ev map[string]any
		if err := json.Unmarshal(f, &ev); err != nil {
			t.Fatalf("bad outbound frame %q: %v", f, err)
		}
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range c.events(t) {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// deadConn refuses every send, standing in for a member whose
// transport queue is full or already torn down.
type deadConn struct {
	mu    sync.Mutex
	calls int
}

func (c *deadConn) TrySend(core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return errors.New("transport gone")
}

func (c *deadConn) Close() {}

func (c *deadConn) attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestOrchestrator() *Orchestrator {
	ice := []webrtc.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}}
	return NewOrchestrator(core.NewRegistry(), core.NewRoomDirectory(), ice)
}

func joinReq(room, name string) JoinRequest {
	return JoinRequest{
		Room:    domain.RoomID(room),
		Profile: domain.PeerProfile{Name: name, Video: true, Audio: true},
	}
}

func connect(o *Orchestrator, id string) *fakeConn {
	c := &fakeConn{}
	o.Connect(domain.PeerID(id), c)
	return c
}

func TestJoinFirstMember(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")

	o.Join("alice", alice, joinReq("r1", "alice"))

	evs := alice.events(t)
	if len(evs) != 1 {
		t.Fatalf("alice got %d events, want only serverInfo", len(evs))
	}
	if evs[0]["type"] != "serverInfo" {
		t.Fatalf("event type = %v, want serverInfo", evs[0]["type"])
	}
	if evs[0]["peers_count"] != float64(1) {
		t.Errorf("peers_count = %v, want 1", evs[0]["peers_count"])
	}
}

func TestJoinSecondMember(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")

	o.Join("alice", alice, joinReq("r1", "alice"))
	alice.reset()
	o.Join("bob", bob, joinReq("r1", "bob"))

	t.Run("Existing member answers", func(t *testing.T) {
		adds := alice.eventsOfType(t, "addPeer")
		if len(adds) != 1 {
			t.Fatalf("alice got %d addPeer events, want 1", len(adds))
		}
		if adds[0]["peer_id"] != "bob" {
			t.Errorf("peer_id = %v, want bob", adds[0]["peer_id"])
		}
		if adds[0]["should_create_offer"] != false {
			t.Error("existing member must not create the offer")
		}
	})

	t.Run("Joiner offers", func(t *testing.T) {
		adds := bob.eventsOfType(t, "addPeer")
		if len(adds) != 1 {
			t.Fatalf("bob got %d addPeer events, want 1", len(adds))
		}
		if adds[0]["peer_id"] != "alice" {
			t.Errorf("peer_id = %v, want alice", adds[0]["peer_id"])
		}
		if adds[0]["should_create_offer"] != true {
			t.Error("joiner must create the offer")
		}
	})

	t.Run("Both get ICE servers and full profile map", func(t *testing.T) {
		adds := bob.eventsOfType(t, "addPeer")
		if _, ok := adds[0]["iceServers"]; !ok {
			t.Error("addPeer without iceServers")
		}
		peers, ok := adds[0]["peers"].(map[string]any)
		if !ok || len(peers) != 2 {
			t.Errorf("peers map = %v, want both members", adds[0]["peers"])
		}
	})
}

func TestOffererUniqueness(t *testing.T) {
	o := newTestOrchestrator()
	ids := []string{"c1", "c2", "c3", "c4"}
	conns := make(map[string]*fakeConn, len(ids))
	for _, id := range ids {
		conns[id] = connect(o, id)
		o.Join(domain.PeerID(id), conns[id], joinReq("r1", id))
	}

	// offers[a][b] == true when a was told to create the offer toward b.
	offers := make(map[string]map[string]bool)
	for _, id := range ids {
		offers[id] = make(map[string]bool)
		for _, ev := range conns[id].eventsOfType(t, "addPeer") {
			other := ev["peer_id"].(string)
			if _, dup := offers[id][other]; dup {
				t.Fatalf("%s got two addPeer events for %s", id, other)
			}
			offers[id][other] = ev["should_create_offer"].(bool)
		}
	}

	for i, a := range ids {
		for _, b := range ids[i+1:] {
			fa, oka := offers[a][b]
			fb, okb := offers[b][a]
			if !oka || !okb {
				t.Fatalf("pair (%s,%s) missing addPeer in one direction", a, b)
			}
			if fa == fb {
				t.Errorf("pair (%s,%s): exactly one side must offer, got %v/%v", a, b, fa, fb)
			}
		}
	}
}

func TestRepeatedJoinIsQuiet(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")
	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	alice.reset()
	bob.reset()

	o.Join("bob", bob, joinReq("r1", "bob"))

	if n := len(alice.events(t)) + len(bob.events(t)); n != 0 {
		t.Errorf("repeated join produced %d events, want 0", n)
	}
}

func TestLockedRoomGatesJoin(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")
	carol := connect(o, "carol")

	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	o.RoomAction("alice", alice, "r1", "alice", domain.RoomLock, "xyz")

	t.Run("Lock is announced to the rest of the room", func(t *testing.T) {
		acts := bob.eventsOfType(t, "roomAction")
		if len(acts) != 1 || acts[0]["action"] != "lock" || acts[0]["peer_name"] != "alice" {
			t.Errorf("bob roomAction events = %v", acts)
		}
		if len(alice.eventsOfType(t, "roomAction")) != 0 {
			t.Error("actor must not receive its own broadcast")
		}
	})

	t.Run("Wrong password is bounced", func(t *testing.T) {
		req := joinReq("r1", "carol")
		req.Password = "wrong"
		o.Join("carol", carol, req)

		if len(carol.eventsOfType(t, "roomIsLocked")) != 1 {
			t.Fatal("carol should get roomIsLocked")
		}
		if o.Rooms.MemberCount("r1") != 2 {
			t.Errorf("membership = %d, want {alice, bob}", o.Rooms.MemberCount("r1"))
		}
	})

	t.Run("Matching password joins fully", func(t *testing.T) {
		carol.reset()
		req := joinReq("r1", "carol")
		req.Password = "xyz"
		o.Join("carol", carol, req)

		if len(carol.eventsOfType(t, "addPeer")) != 2 {
			t.Error("carol should pair with both existing members")
		}
		if len(carol.eventsOfType(t, "serverInfo")) != 1 {
			t.Error("carol should get the occupancy snapshot")
		}
	})

	t.Run("CheckPassword replies only to the requester", func(t *testing.T) {
		alice.reset()
		bob.reset()
		carol.reset()

		o.RoomAction("carol", carol, "r1", "carol", domain.RoomCheckPassword, "xyz")
		acts := carol.eventsOfType(t, "roomAction")
		if len(acts) != 1 || acts[0]["password"] != "OK" {
			t.Errorf("carol checkPassword reply = %v, want OK", acts)
		}

		o.RoomAction("carol", carol, "r1", "carol", domain.RoomCheckPassword, "nah")
		acts = carol.eventsOfType(t, "roomAction")
		if len(acts) != 2 || acts[1]["password"] != "KO" {
			t.Errorf("carol checkPassword replies = %v, want trailing KO", acts)
		}

		if len(alice.events(t))+len(bob.events(t)) != 0 {
			t.Error("checkPassword must not be broadcast")
		}
	})
}

func TestDisconnectCleanup(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")
	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	alice.reset()
	bob.reset()

	t.Run("Remaining member is told", func(t *testing.T) {
		o.Disconnect("bob")

		removes := alice.eventsOfType(t, "removePeer")
		if len(removes) != 1 || removes[0]["peer_id"] != "bob" {
			t.Fatalf("alice removePeer events = %v", removes)
		}
		if !o.Rooms.Exists("r1") {
			t.Error("room must survive with alice still inside")
		}
	})

	t.Run("Duplicate disconnect is a no-op", func(t *testing.T) {
		o.Disconnect("bob")

		if len(alice.eventsOfType(t, "removePeer")) != 1 {
			t.Error("removePeer must not be double-delivered")
		}
	})

	t.Run("Last member deletes the room", func(t *testing.T) {
		o.Disconnect("alice")
		if o.Rooms.Exists("r1") {
			t.Error("room should be gone after last disconnect")
		}
		if _, ok := o.Registry.Resolve("alice"); ok {
			t.Error("connection should be unregistered")
		}
	})
}

func TestDisconnectSpansAllRooms(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")
	carol := connect(o, "carol")
	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("alice", alice, joinReq("r2", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	o.Join("carol", carol, joinReq("r2", "carol"))
	bob.reset()
	carol.reset()

	o.Disconnect("alice")

	if len(bob.eventsOfType(t, "removePeer")) != 1 {
		t.Error("r1 member not told")
	}
	if len(carol.eventsOfType(t, "removePeer")) != 1 {
		t.Error("r2 member not told")
	}
}

func TestRelayTargeted(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")
	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	alice.reset()
	bob.reset()

	t.Run("SDP reaches only the target", func(t *testing.T) {
		o.RelaySDP("alice", "bob", json.RawMessage(`{"sdp":"blob","type":"offer"}`))

		evs := bob.eventsOfType(t, "sessionDescription")
		if len(evs) != 1 {
			t.Fatalf("bob got %d sessionDescription events, want 1", len(evs))
		}
		if evs[0]["peer_id"] != "alice" {
			t.Errorf("peer_id = %v, want alice (the sender)", evs[0]["peer_id"])
		}
		sd := evs[0]["session_description"].(map[string]any)
		if sd["sdp"] != "blob" {
			t.Errorf("payload not passed through opaquely: %v", sd)
		}
		if len(alice.events(t)) != 0 {
			t.Error("sender must not get the relay back")
		}
	})

	t.Run("ICE to an unknown target is a silent no-op", func(t *testing.T) {
		o.RelayICE("alice", "ghost", json.RawMessage(`{"candidate":"c"}`))
	})

	t.Run("ICE carries the sender id", func(t *testing.T) {
		o.RelayICE("bob", "alice", json.RawMessage(`{"candidate":"c"}`))
		evs := alice.eventsOfType(t, "iceCandidate")
		if len(evs) != 1 || evs[0]["peer_id"] != "bob" {
			t.Errorf("alice iceCandidate events = %v", evs)
		}
	})
}

func TestPeerStatusAndRename(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")
	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	alice.reset()
	bob.reset()

	t.Run("Status change is broadcast to the others", func(t *testing.T) {
		o.PeerStatus("alice", "r1", domain.ElementHand, true)

		evs := bob.eventsOfType(t, "peerStatus")
		if len(evs) != 1 {
			t.Fatalf("bob got %d peerStatus events, want 1", len(evs))
		}
		if evs[0]["peer_id"] != "alice" || evs[0]["element"] != "hand" || evs[0]["status"] != true {
			t.Errorf("peerStatus payload = %v", evs[0])
		}
		if len(alice.events(t)) != 0 {
			t.Error("sender must not get its own status broadcast")
		}
	})

	t.Run("Status for an unknown room is dropped", func(t *testing.T) {
		o.PeerStatus("alice", "nope", domain.ElementRec, true)
	})

	t.Run("Rename matches by old name", func(t *testing.T) {
		o.PeerName("bob", "r1", "bob", "bobby")

		evs := alice.eventsOfType(t, "peerName")
		if len(evs) != 1 || evs[0]["peer_name"] != "bobby" || evs[0]["peer_id"] != "bob" {
			t.Errorf("alice peerName events = %v", evs)
		}
	})

	t.Run("Rename with a stale old name is dropped", func(t *testing.T) {
		alice.reset()
		o.PeerName("bob", "r1", "bob", "bobbest")
		if len(alice.events(t)) != 0 {
			t.Error("stale rename must not broadcast")
		}
	})
}

func TestPeerActionRouting(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")
	carol := connect(o, "carol")
	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	o.Join("carol", carol, joinReq("r1", "carol"))
	alice.reset()
	bob.reset()
	carol.reset()

	frame := core.Frame(`{"type":"peerAction","room_id":"r1","peer_name":"alice","peer_action":"mute"}`)

	t.Run("send_to_all fans out minus sender", func(t *testing.T) {
		o.PeerAction("alice", "r1", "", true, frame)

		if len(bob.eventsOfType(t, "peerAction")) != 1 || len(carol.eventsOfType(t, "peerAction")) != 1 {
			t.Error("both others should receive the action")
		}
		if len(alice.events(t)) != 0 {
			t.Error("sender excluded from its own action")
		}
	})

	t.Run("targeted action reaches one peer", func(t *testing.T) {
		bob.reset()
		carol.reset()
		o.PeerAction("alice", "r1", "bob", false, frame)

		if len(bob.eventsOfType(t, "peerAction")) != 1 {
			t.Error("bob should receive the targeted action")
		}
		if len(carol.events(t)) != 0 {
			t.Error("carol must not receive the targeted action")
		}
	})

	t.Run("kickOut is targeted", func(t *testing.T) {
		bob.reset()
		o.KickOut("alice", "bob", "alice")
		evs := bob.eventsOfType(t, "kickOut")
		if len(evs) != 1 || evs[0]["peer_id"] != "alice" {
			t.Errorf("bob kickOut events = %v", evs)
		}
	})
}

func TestBroadcastSurvivesDeadMember(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := &deadConn{}
	o.Connect("bob", bob)
	carol := connect(o, "carol")

	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	o.Join("carol", carol, joinReq("r1", "carol"))
	alice.reset()
	carol.reset()

	t.Run("Broadcast keeps going past a failing recipient", func(t *testing.T) {
		before := bob.attempts()
		o.PeerStatus("alice", "r1", domain.ElementHand, true)

		if bob.attempts() == before {
			t.Fatal("dead member was never attempted, failure path not exercised")
		}
		if len(carol.eventsOfType(t, "peerStatus")) != 1 {
			t.Error("healthy member lost the broadcast after a failed send")
		}
	})

	t.Run("Disconnect cleanup completes despite a failing recipient", func(t *testing.T) {
		o.Disconnect("alice")

		if len(carol.eventsOfType(t, "removePeer")) != 1 {
			t.Error("healthy member not told about the departure")
		}
		if o.Rooms.MemberCount("r1") != 2 {
			t.Errorf("membership = %d, want 2 after cleanup", o.Rooms.MemberCount("r1"))
		}
		if _, ok := o.Registry.Resolve("alice"); ok {
			t.Error("departed connection still registered")
		}
	})
}

func TestRoomRelayOpaque(t *testing.T) {
	o := newTestOrchestrator()
	alice := connect(o, "alice")
	bob := connect(o, "bob")
	o.Join("alice", alice, joinReq("r1", "alice"))
	o.Join("bob", bob, joinReq("r1", "bob"))
	alice.reset()
	bob.reset()

	frame := core.Frame(`{"type":"wbCanvasToJson","room_id":"r1","data":"{\"objects\":[]}"}`)
	o.RelayRoom("alice", "r1", true, "", frame)

	evs := bob.eventsOfType(t, "wbCanvasToJson")
	if len(evs) != 1 {
		t.Fatalf("bob got %d wbCanvasToJson events, want 1", len(evs))
	}
	if evs[0]["data"] != `{"objects":[]}` {
		t.Errorf("frame not forwarded verbatim: %v", evs[0])
	}
	if len(alice.events(t)) != 0 {
		t.Error("sender excluded from room relay")
	}
}
