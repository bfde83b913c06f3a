package netdicom

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/grailbio/go-dicom/dicomlog"
)

// dulEndpoint is the DUL provider for one association: it owns the
// background goroutine running the upper-layer state machine and exposes
// the primitive send/receive/peek/stop/kill surface. P3.8 9.1. One
// dulEndpoint is created per Association and destroyed when the state
// machine reaches Sta1.
type dulEndpoint struct {
	label string

	// downcallCh is the from-user queue: send() enqueues here, never
	// blocking beyond channel admission.
	downcallCh chan stateEvent

	// upcallCh is the to-user queue: the state machine posts indications
	// here. Closed when the association reaches Sta1.
	upcallCh chan upcallEvent

	killCh chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	pending *upcallEvent // one-slot lookahead buffer for peek()
}

func newDULEndpoint(label string) *dulEndpoint {
	return &dulEndpoint{
		label:      label,
		downcallCh: make(chan stateEvent, 128),
		upcallCh:   make(chan upcallEvent, 128),
		killCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// dialRequestor opens a TCP connection to addr and starts the
// service-user state machine, which immediately sends A-ASSOCIATE-RQ.
func dialRequestor(addr string, params ServiceUserParams, label string) (*dulEndpoint, error) {
	d := newDULEndpoint(label)
	go func() {
		defer close(d.done)
		runStateMachineForServiceUser(params, d.upcallCh, d.downcallCh, d.killCh, label)
	}()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		d.downcallCh <- stateEvent{event: evt17, err: err}
		return d, fmt.Errorf("dulEndpoint(%s): dial %s: %w", label, addr, err)
	}
	d.downcallCh <- stateEvent{event: evt02, conn: conn}
	return d, nil
}

// acceptProvider starts the service-provider state machine over an already
// accepted TCP connection.
func acceptProvider(conn net.Conn, params ServiceProviderParams, label string) *dulEndpoint {
	d := newDULEndpoint(label)
	go func() {
		defer close(d.done)
		runStateMachineForServiceProvider(conn, params, d.upcallCh, d.downcallCh, d.killCh, label)
	}()
	return d
}

// send enqueues a primitive on the from-user queue.
func (d *dulEndpoint) send(event stateEvent) {
	d.downcallCh <- event
}

// receive dequeues the next indication from the to-user queue. timeout<=0
// waits forever. ok is false if the queue closed (association terminated)
// or the deadline passed first.
func (d *dulEndpoint) receive(timeout time.Duration) (upcallEvent, bool) {
	d.mu.Lock()
	if d.pending != nil {
		ev := *d.pending
		d.pending = nil
		d.mu.Unlock()
		return ev, true
	}
	d.mu.Unlock()
	if timeout <= 0 {
		ev, ok := <-d.upcallCh
		return ev, ok
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case ev, ok := <-d.upcallCh:
		return ev, ok
	case <-t.C:
		return upcallEvent{}, false
	}
}

// peek non-destructively looks at the head of the to-user queue, buffering
// it locally so a subsequent receive() returns the same value.
func (d *dulEndpoint) peek() (upcallEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		return *d.pending, true
	}
	select {
	case ev, ok := <-d.upcallCh:
		if !ok {
			return upcallEvent{}, false
		}
		d.pending = &ev
		return ev, true
	default:
		return upcallEvent{}, false
	}
}

// stop succeeds only once the state machine has reached Sta1 and exited.
func (d *dulEndpoint) stop() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// kill forces immediate termination; the state machine exits on its next
// loop iteration without sending any PDU.
func (d *dulEndpoint) kill() {
	select {
	case <-d.killCh:
	default:
		close(d.killCh)
	}
	<-d.done
	dicomlog.Vprintf(1, "dicom.dulEndpoint(%s): killed", d.label)
}
