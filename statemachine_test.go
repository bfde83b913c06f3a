package netdicom

import (
	"io"
	"net"
	"testing"
)

// allStates/allEvents enumerate the P3.8 9.2.3 state and event space this
// package implements (§4.2, §8 "FSM totality").
var allStates = []stateType{sta01, sta02, sta03, sta04, sta05, sta06, sta07, sta08, sta09, sta10, sta11, sta12, sta13}
var allEvents = []eventType{evt01, evt02, evt03, evt04, evt05, evt06, evt07, evt08, evt09, evt10, evt11, evt12, evt13, evt14, evt15, evt16, evt17, evt18, evt19}

// TestFindActionTotalOverListedPairs checks every (state, event) pair that
// has an entry in stateTransitions returns that entry unchanged: the table
// itself, not just the runtime fallback, is what callers rely on.
func TestFindActionTotalOverListedPairs(t *testing.T) {
	for key, want := range stateTransitions {
		got := findAction(key.current, &stateEvent{event: key.event})
		if got != want {
			t.Errorf("findAction(%v, %v) = %v, want %v", key.current, key.event, got, want)
		}
	}
}

// TestFindActionNilForUnlistedPairs asserts the pairs absent from the P3.8
// table return nil from findAction, which the run loop then maps to
// actionAa8 rather than hanging or panicking (§8 "FSM totality").
func TestFindActionNilForUnlistedPairs(t *testing.T) {
	unlisted := 0
	for _, s := range allStates {
		for _, e := range allEvents {
			key := stateTransitionKey{s, e}
			if _, listed := stateTransitions[key]; listed {
				continue
			}
			unlisted++
			if got := findAction(s, &stateEvent{event: e}); got != nil {
				t.Errorf("findAction(%v, %v) = %v, want nil (not in the P3.8 table)", s, e, got)
			}
		}
	}
	if unlisted == 0 {
		t.Fatal("every (state, event) pair is listed; this test would no longer exercise the fallback path")
	}
}

// TestAR9NextStateIsSta11 pins the spec's Open Question decision for AR-9:
// its next state follows the table heading (Sta11), not an unspecified
// return.
func TestAR9NextStateIsSta11(t *testing.T) {
	action := stateTransitions[stateTransitionKey{sta09, evt14}]
	if action != actionAr9 {
		t.Fatalf("sta09+evt14 = %v, want actionAr9", action)
	}
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	go io.Copy(io.Discard, server)
	sm := &stateMachine{label: "test", conn: client, errorCh: make(chan stateEvent, 1)}
	if next := action.Callback(sm, stateEvent{event: evt14}); next != sta11 {
		t.Errorf("actionAr9 next state = %v, want sta11", next)
	}
}

// TestReleaseCollisionSides pins the table entries behind the release
// walks of §8 Scenario 6: requestor Sta6->Sta7->Sta9->Sta11, and on the
// acceptor side the Sta6->Sta8, Sta8 P-DATA and Sta10->Sta12 entries.
func TestReleaseCollisionSides(t *testing.T) {
	// Requestor side: Sta6 --(AR-1, local release)--> Sta7
	// --(AR-8, peer RELEASE-RQ collides)--> Sta9
	// --(AR-9, local release response)--> Sta11.
	requestorSteps := []struct {
		state stateType
		event eventType
		want  *stateAction
	}{
		{sta06, evt11, actionAr1},
		{sta07, evt12, actionAr8},
		{sta09, evt14, actionAr9},
	}
	for _, step := range requestorSteps {
		if got := findAction(step.state, &stateEvent{event: step.event}); got != step.want {
			t.Errorf("requestor: findAction(%v, %v) = %v, want %v", step.state, step.event, got, step.want)
		}
	}

	// Acceptor side: Sta6 --(AR-2, peer RELEASE-RQ)--> Sta8, where a local
	// P-DATA request (AR-7) keeps it in Sta8. In a collision the acceptor
	// enters Sta10 from Sta7 through AR-8 (the requestor's second step
	// above), then Sta10 --(AR-10, peer RELEASE-RP arrives)--> Sta12.
	acceptorSteps := []struct {
		state stateType
		event eventType
		want  *stateAction
	}{
		{sta06, evt12, actionAr2},
		{sta08, evt09, actionAr7},
		{sta10, evt13, actionAr10},
	}
	for _, step := range acceptorSteps {
		if got := findAction(step.state, &stateEvent{event: step.event}); got != step.want {
			t.Errorf("acceptor: findAction(%v, %v) = %v, want %v", step.state, step.event, got, step.want)
		}
	}
}

// TestAbortFromSta06IsAA1 covers §8 Scenario 5: a user A-ABORT request while
// established goes through AA-1.
func TestAbortFromSta06IsAA1(t *testing.T) {
	if got := findAction(sta06, &stateEvent{event: evt15}); got != actionAa1 {
		t.Errorf("sta06+evt15 = %v, want actionAa1", got)
	}
}

// TestDecodeFailureAbortsFromEveryEstablishedState covers §7
// decode-failure: Evt19 always maps to an abort action (AA-1, AA-7 or AA-8
// depending on state), never silently continuing.
func TestDecodeFailureAbortsFromEveryEstablishedState(t *testing.T) {
	for _, s := range allStates {
		if s == sta01 || s == sta04 {
			// No transport connection exists yet in these states; Evt19
			// (a received PDU) cannot occur and is intentionally absent.
			continue
		}
		action := findAction(s, &stateEvent{event: evt19})
		if action != actionAa1 && action != actionAa7 && action != actionAa8 {
			t.Errorf("state %v + evt19 = %v, want an abort action (AA-1, AA-7 or AA-8)", s, action)
		}
	}
}
