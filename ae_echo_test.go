package netdicom

import (
	"net"
	"testing"
	"time"

	"github.com/giesekow/go-netdicom/dimse"
	"github.com/giesekow/go-netdicom/sopclass"
)

// listenerPort returns the ephemeral port an already-started AE bound, so
// tests can pick port 0 (let the OS choose) instead of racing a fixed one.
func listenerPort(t *testing.T, ae *AE) int {
	t.Helper()
	ae.mu.Lock()
	defer ae.mu.Unlock()
	addr, ok := ae.listener.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("listener address is not a *net.TCPAddr: %v", ae.listener.Addr())
	}
	return addr.Port
}

// TestEchoRoundTrip implements §8 Scenario 1: two AEs on localhost, a
// requestor sending a single C-ECHO-RQ and receiving its C-ECHO-RSP, then a
// clean release, after which the acceptor's echo handler must have run.
func TestEchoRoundTrip(t *testing.T) {
	scp := NewAE("ECHOSCP", 0, nil, []sopclass.SOPUID{sopclass.Verification})
	scp.Timeout = 5 * time.Second
	var gotRq *dimse.CEchoRq
	scp.Handlers.OnReceiveEcho = func(a *Association, rq *dimse.CEchoRq) dimse.Status {
		gotRq = rq
		return dimse.Success
	}
	if err := scp.Start(); err != nil {
		t.Fatalf("scp.Start: %v", err)
	}
	defer scp.Quit()

	port := listenerPort(t, scp)

	scu := NewAE("ECHOSCU", 0, []sopclass.SOPUID{sopclass.Verification}, nil)
	scu.Timeout = 5 * time.Second
	defer scu.Quit()

	assoc, err := scu.RequestAssociation(RemoteAE{Host: "127.0.0.1", Port: port, AETitle: "ECHOSCP"})
	if err != nil {
		t.Fatalf("RequestAssociation: %v", err)
	}

	rsp, err := assoc.Echo(5 * time.Second)
	if err != nil {
		t.Fatalf("Echo: %v", err)
	}
	if rsp.Status.Status != dimse.StatusSuccess {
		t.Errorf("Status = %v, want Success", rsp.Status.Status)
	}

	if err := assoc.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if gotRq == nil {
		t.Fatal("acceptor's OnReceiveEcho was never invoked")
	}
}

// TestEchoUnsupportedAbstractSyntax covers the SCU side of §7's
// sop-class-unsupported error kind: calling Echo on an association that
// never negotiated the Verification context must fail synchronously
// without touching the wire.
func TestEchoUnsupportedAbstractSyntax(t *testing.T) {
	scp := NewAE("STORESCP", 0, nil, sopclass.StorageClasses)
	scp.Timeout = 5 * time.Second
	if err := scp.Start(); err != nil {
		t.Fatalf("scp.Start: %v", err)
	}
	defer scp.Quit()
	port := listenerPort(t, scp)

	scu := NewAE("STORESCU", 0, sopclass.StorageClasses, nil)
	scu.Timeout = 5 * time.Second
	defer scu.Quit()

	assoc, err := scu.RequestAssociation(RemoteAE{Host: "127.0.0.1", Port: port, AETitle: "STORESCP"})
	if err != nil {
		t.Fatalf("RequestAssociation: %v", err)
	}
	defer assoc.Release()

	if _, err := assoc.Echo(5 * time.Second); err != ErrSOPClassNotSupported {
		t.Errorf("Echo on unnegotiated context: err = %v, want ErrSOPClassNotSupported", err)
	}
}
