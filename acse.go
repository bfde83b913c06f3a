package netdicom

import (
	"fmt"
	"time"
)

// This file implements the thin ACSE layer: stateless helpers built on top
// of a dulEndpoint that drive one association handshake, release, or abort
// to completion. Each call here corresponds to one blocking DUL receive (or
// a non-blocking peek for the check_* helpers). None of them own a
// goroutine; the dulEndpoint's background run loop already does.

// acseRequest waits for the response to an A-ASSOCIATE request already
// issued by dialRequestor. On success it returns the negotiated context
// manager so the Association Runtime can resolve presentation contexts.
func acseRequest(d *dulEndpoint, timeout time.Duration) (*contextManager, error) {
	ev, ok := d.receive(timeout)
	if !ok {
		return nil, ErrConnectionClosed
	}
	switch ev.eventType {
	case upcallEventHandshakeCompleted:
		return ev.cm, nil
	case upcallEventAssociationRejected:
		return nil, &AssociationRejectedError{Result: ev.rejectResult, Source: ev.rejectSource, Reason: ev.rejectReason}
	case upcallEventAborted:
		return nil, &AssociationAbortedError{Source: ev.abortSource, Reason: ev.abortReason}
	default:
		return nil, fmt.Errorf("dicom: acseRequest: unexpected upcall %v", ev.eventType.String())
	}
}

// acseAccept waits for the automatic context negotiation on the acceptor
// side (AE-6, governed by the contextPolicy the AE installed) to complete.
// The FSM decides accept/reject per presentation context itself; this call
// only observes the outcome.
func acseAccept(d *dulEndpoint, timeout time.Duration) (*contextManager, error) {
	ev, ok := d.receive(timeout)
	if !ok {
		return nil, ErrConnectionClosed
	}
	if ev.eventType != upcallEventHandshakeCompleted {
		return nil, fmt.Errorf("dicom: acseAccept: unexpected upcall %v", ev.eventType.String())
	}
	return ev.cm, nil
}

// acseRelease issues an A-RELEASE request and blocks for confirmation.
func acseRelease(d *dulEndpoint, timeout time.Duration) error {
	d.send(stateEvent{event: evt11})
	ev, ok := d.receive(timeout)
	if !ok {
		return fmt.Errorf("dicom: acseRelease: no confirmation before timeout")
	}
	if ev.eventType != upcallEventReleased {
		return fmt.Errorf("dicom: acseRelease: unexpected upcall %v", ev.eventType.String())
	}
	return nil
}

// acseAbort issues an A-ABORT request. Aborts are not confirmed at the
// protocol level, so this does not wait.
func acseAbort(d *dulEndpoint) {
	d.send(stateEvent{event: evt15})
}

// acseCheckRelease is a non-destructive peek for a pending release
// indication; if found, it is consumed and true is returned.
func acseCheckRelease(d *dulEndpoint) bool {
	ev, ok := d.peek()
	if !ok || ev.eventType != upcallEventReleased {
		return false
	}
	d.receive(0)
	return true
}

// acseCheckAbort is a non-destructive peek for a pending abort indication.
func acseCheckAbort(d *dulEndpoint) (upcallEvent, bool) {
	ev, ok := d.peek()
	if !ok || ev.eventType != upcallEventAborted {
		return upcallEvent{}, false
	}
	d.receive(0)
	return ev, true
}
