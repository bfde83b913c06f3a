package netdicom

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/giesekow/go-netdicom/audit"
	"github.com/giesekow/go-netdicom/directory"
	"github.com/giesekow/go-netdicom/metrics"
	"github.com/giesekow/go-netdicom/sopclass"
	"github.com/google/uuid"
	"github.com/grailbio/go-dicom/dicomlog"
)

// RemoteAE names a peer to connect to for AE.RequestAssociation.
type RemoteAE struct {
	Host    string
	Port    int
	AETitle string
}

func (r RemoteAE) addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AE is an Application Entity: it owns a listening socket, the SCU/SCP SOP
// class lists, and the callback table consulted by every Association it
// accepts. P3.7 describes the AE as the top-level actor; this type is the
// package's equivalent of the teacher's per-process service object.
type AE struct {
	AETitle          string
	Port             int
	SCUSOPClasses    []sopclass.SOPUID
	SCPSOPClasses    []sopclass.SOPUID
	TransferSyntaxes []string
	MaxPDUSize       int
	Timeout          time.Duration

	Handlers AEHandlers

	// AuditSink, if set, receives one audit.Event per association
	// lifecycle transition and completed DIMSE operation. Defaults to
	// audit.NopSink{} when unset.
	AuditSink audit.Sink

	// Metrics, if set, receives association and DIMSE operation counters
	// and latency observations. A nil Registry is safe to use: every
	// Registry method no-ops on a nil receiver.
	Metrics *metrics.Registry

	// Directory resolves a C-MOVE MoveDestination AE title to a network
	// location for the acceptor's sub-association dispatch. Defaults to
	// an empty directory.MemoryDirectory when unset, so Resolve always
	// returns directory.ErrNotFound rather than panicking.
	Directory directory.Directory

	mu       sync.Mutex
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
	assocsMu sync.Mutex
	assocs   map[*Association]struct{}
}

// NewAE builds an AE with the default transfer syntax list if none was
// given explicitly.
func NewAE(aeTitle string, port int, scuClasses, scpClasses []sopclass.SOPUID) *AE {
	return &AE{
		AETitle:          aeTitle,
		Port:             port,
		SCUSOPClasses:    scuClasses,
		SCPSOPClasses:    scpClasses,
		TransferSyntaxes: sopclass.DefaultTransferSyntaxes,
		MaxPDUSize:       DefaultMaxPDUSize,
		assocs:           make(map[*Association]struct{}),
	}
}

func (ae *AE) serviceProviderParams() ServiceProviderParams {
	return ServiceProviderParams{
		AETitle:          ae.AETitle,
		MaxPDUSize:       ae.MaxPDUSize,
		Timeout:          ae.Timeout,
		SCPSOPClasses:    ae.SCPSOPClasses,
		TransferSyntaxes: ae.acceptableTransferSyntaxes(),
	}
}

func (ae *AE) directoryOrDefault() directory.Directory {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	if ae.Directory == nil {
		ae.Directory = directory.NewMemoryDirectory()
	}
	return ae.Directory
}

func (ae *AE) acceptableTransferSyntaxes() []string {
	if len(ae.TransferSyntaxes) > 0 {
		return ae.TransferSyntaxes
	}
	return sopclass.DefaultTransferSyntaxes
}

// Start binds the listening socket and begins the accept loop in the
// background. P3.8 9.1.2 (service-provider connection acceptance).
func (ae *AE) Start() error {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	if ae.listener != nil {
		return fmt.Errorf("dicom.AE(%s): already started", ae.AETitle)
	}
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", ae.Port))
	if err != nil {
		return fmt.Errorf("dicom.AE(%s): listen: %w", ae.AETitle, err)
	}
	ae.listener = l
	ae.quit = make(chan struct{})
	ae.wg.Add(1)
	go ae.acceptLoop(l, ae.quit)
	dicomlog.Vprintf(1, "dicom.AE(%s): listening on %s", ae.AETitle, l.Addr())
	return nil
}

func (ae *AE) acceptLoop(l net.Listener, quit chan struct{}) {
	defer ae.wg.Done()
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-quit:
				return
			default:
				dicomlog.Vprintf(0, "dicom.AE(%s): accept: %v", ae.AETitle, err)
				return
			}
		}
		ae.wg.Add(1)
		go ae.serveConn(conn)
	}
}

func (ae *AE) serveConn(conn net.Conn) {
	defer ae.wg.Done()
	label := fmt.Sprintf("%s<-%s", ae.AETitle, conn.RemoteAddr())
	d := acceptProvider(conn, ae.serviceProviderParams(), label)
	cm, err := acseAccept(d, ae.Timeout)
	if err != nil {
		ae.Metrics.AssociationOutcome("rejected")
		dicomlog.Vprintf(1, "dicom.AE(%s): association from %s not established: %v", ae.AETitle, conn.RemoteAddr(), err)
		return
	}
	assoc := &Association{ID: uuid.New(), d: d, cm: cm, isUser: false, label: label, audit: ae.AuditSink, metrics: ae.Metrics, directory: ae.directoryOrDefault()}
	assoc.onDone = func() { ae.untrackAssociation(assoc) }
	ae.trackAssociation(assoc)
	ae.Metrics.AssociationOutcome("accepted")
	ae.Metrics.AssociationStarted()
	assoc.recordAudit("associate", "", "success", "", time.Now())
	if ae.Handlers.OnAssociateRequest != nil {
		ae.Handlers.OnAssociateRequest(assoc)
	}
	if err := assoc.Serve(ae.Handlers); err != nil {
		dicomlog.Vprintf(1, "dicom.AE(%s): association %s ended: %v", ae.AETitle, label, err)
	}
}

// ActiveAssociationCount reports how many associations are currently
// tracked, for the management HTTP plane's /healthz response.
func (ae *AE) ActiveAssociationCount() int {
	ae.assocsMu.Lock()
	defer ae.assocsMu.Unlock()
	return len(ae.assocs)
}

// IsListening reports whether Start has bound the listening socket.
func (ae *AE) IsListening() bool {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.listener != nil
}

func (ae *AE) trackAssociation(a *Association) {
	ae.assocsMu.Lock()
	defer ae.assocsMu.Unlock()
	ae.assocs[a] = struct{}{}
}

func (ae *AE) untrackAssociation(a *Association) {
	ae.assocsMu.Lock()
	_, tracked := ae.assocs[a]
	delete(ae.assocs, a)
	ae.assocsMu.Unlock()
	if tracked {
		ae.Metrics.AssociationEnded()
	}
}

// Quit terminates the accept loop and kills every active Association: each
// one's state machine stops without sending an A-ABORT PDU.
func (ae *AE) Quit() {
	ae.mu.Lock()
	if ae.listener != nil {
		close(ae.quit)
		ae.listener.Close()
	}
	ae.mu.Unlock()

	ae.assocsMu.Lock()
	live := make([]*Association, 0, len(ae.assocs))
	for a := range ae.assocs {
		live = append(live, a)
	}
	ae.assocsMu.Unlock()
	for _, a := range live {
		a.Kill()
	}

	ae.wg.Wait()
}

// RequestAssociation dials remote, negotiates presentation contexts for
// every SCU SOP class, and blocks until the association is established or
// refused.
func (ae *AE) RequestAssociation(remote RemoteAE) (*Association, error) {
	label := fmt.Sprintf("%s->%s", ae.AETitle, remote.addr())
	params := ServiceUserParams{
		CallingAETitle:   ae.AETitle,
		CalledAETitle:    remote.AETitle,
		SOPClasses:       ae.SCUSOPClasses,
		TransferSyntaxes: ae.acceptableTransferSyntaxes(),
		MaxPDUSize:       ae.MaxPDUSize,
		Timeout:          ae.Timeout,
	}
	d, err := dialRequestor(remote.addr(), params, label)
	if err != nil {
		return nil, err
	}
	cm, err := acseRequest(d, ae.Timeout)
	if err != nil {
		ae.Metrics.AssociationOutcome("rejected")
		return nil, err
	}
	assoc := &Association{ID: uuid.New(), d: d, cm: cm, isUser: true, label: label, audit: ae.AuditSink, metrics: ae.Metrics, directory: ae.directoryOrDefault()}
	assoc.onDone = func() { ae.untrackAssociation(assoc) }
	ae.trackAssociation(assoc)
	ae.Metrics.AssociationOutcome("accepted")
	ae.Metrics.AssociationStarted()
	assoc.recordAudit("associate", "", "success", "", time.Now())
	if ae.Handlers.OnAssociateResponse != nil {
		ae.Handlers.OnAssociateResponse(assoc)
	}
	return assoc, nil
}
