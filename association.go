package netdicom

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/giesekow/go-netdicom/audit"
	"github.com/giesekow/go-netdicom/dimse"
	"github.com/giesekow/go-netdicom/directory"
	"github.com/giesekow/go-netdicom/metrics"
	"github.com/giesekow/go-netdicom/sopclass"
	"github.com/google/uuid"
	"github.com/grailbio/go-dicom/dicomlog"
)

// Association is one live DICOM upper-layer association: a dulEndpoint plus
// the negotiated presentation contexts, exposing both the requestor SCU
// surface and the acceptor dispatch loop. The dataset bytes exchanged here
// are opaque; decoding them against the negotiated transfer syntax is left
// to the caller via github.com/suyashkumar/dicom.
type Association struct {
	ID     uuid.UUID
	d      *dulEndpoint
	cm     *contextManager
	isUser bool
	label  string

	// audit receives one Event per lifecycle transition and completed
	// DIMSE operation. Defaults to audit.NopSink{} when the owning AE
	// does not configure one.
	audit audit.Sink

	// metrics receives association/DIMSE counters. A nil Registry
	// no-ops on every method.
	metrics *metrics.Registry

	// directory resolves a C-MOVE MoveDestination AE title to a network
	// location, consulted by dispatchMove before handing a C-MOVE-RQ to
	// the registered handler.
	directory directory.Directory

	// onDone, if set, is called exactly once when the association ends
	// by any path (release, abort, or kill) so the owning AE can drop it
	// from its active-association set.
	onDone func()

	// cancelMu guards cancels, which maps a pending query's MessageID to
	// the cancel function of the context.Context handed to its
	// OnReceiveFind/Get/Move handler. A matching inbound C-CANCEL-RQ
	// invokes it so the handler can stop producing further results.
	cancelMu sync.Mutex
	cancels  map[uint16]context.CancelFunc
}

func (a *Association) recordAudit(action, resourceUID, status, errMsg string, started time.Time) {
	sink := a.audit
	if sink == nil {
		sink = audit.NopSink{}
	}
	sink.Record(audit.Event{
		AssociationID: a.ID,
		Action:        action,
		ResourceUID:   resourceUID,
		Status:        status,
		ErrorMessage:  errMsg,
		Duration:      time.Since(started),
		Timestamp:     time.Now(),
	})
}

func (a *Association) markDone() {
	if a.onDone != nil {
		a.onDone()
		a.onDone = nil
	}
}

func (a *Association) trackCancel(messageID uint16, cancel context.CancelFunc) {
	a.cancelMu.Lock()
	defer a.cancelMu.Unlock()
	if a.cancels == nil {
		a.cancels = make(map[uint16]context.CancelFunc)
	}
	a.cancels[messageID] = cancel
}

func (a *Association) untrackCancel(messageID uint16) {
	a.cancelMu.Lock()
	defer a.cancelMu.Unlock()
	delete(a.cancels, messageID)
}

func (a *Association) cancelPending(messageID uint16) {
	a.cancelMu.Lock()
	cancel, ok := a.cancels[messageID]
	delete(a.cancels, messageID)
	a.cancelMu.Unlock()
	if ok {
		cancel()
	}
}

// Release performs an orderly A-RELEASE. Valid from either role once the
// association is established.
func (a *Association) Release() error {
	started := time.Now()
	defer a.markDone()
	err := acseRelease(a.d, 0)
	status := "success"
	errMsg := ""
	if err != nil {
		status, errMsg = "failure", err.Error()
	}
	a.recordAudit("release", "", status, errMsg, started)
	return err
}

// Abort sends an A-ABORT request. The association is unusable afterwards.
func (a *Association) Abort() {
	started := time.Now()
	defer a.markDone()
	acseAbort(a.d)
	a.recordAudit("abort", "", "success", "", started)
}

// Kill forces immediate termination without an A-ABORT on the wire. Use
// only when the peer is presumed gone.
func (a *Association) Kill() {
	started := time.Now()
	defer a.markDone()
	a.d.kill()
	a.recordAudit("kill", "", "success", "", started)
}

func (a *Association) contextForAbstractSyntax(uid string) (contextManagerEntry, error) {
	return a.cm.lookupByAbstractSyntaxUID(uid)
}

// ResolveMoveDestination looks up a C-MOVE MoveDestination AE title in the
// association's configured directory. A C-MOVE handler calls this to learn
// where to open its C-STORE sub-association back out to.
func (a *Association) ResolveMoveDestination(ctx context.Context, aeTitle string) (directory.RemoteAE, error) {
	if a.directory == nil {
		return directory.RemoteAE{}, directory.ErrNotFound
	}
	return a.directory.Resolve(ctx, aeTitle)
}

// sendDIMSE frames command (and, if present, data) into P-DATA-TF PDUs on
// the presentation context negotiated for abstractSyntaxUID.
func (a *Association) sendDIMSE(abstractSyntaxUID string, command dimse.Message, data []byte) {
	a.d.send(stateEvent{
		event: evt09,
		dimsePayload: &stateEventDIMSEPayload{
			abstractSyntaxName: abstractSyntaxUID,
			command:            command,
			data:               data,
		},
	})
}

// nextDIMSE blocks for the next fully assembled DIMSE command. It returns
// ErrConnectionClosed when nothing arrives within timeout or the upcall
// channel is closed, a "dicom: association released" error on release, and
// an *AssociationAbortedError on abort.
func (a *Association) nextDIMSE(timeout time.Duration) (contextManagerEntry, dimse.Message, []byte, error) {
	for {
		ev, ok := a.d.receive(timeout)
		if !ok {
			return contextManagerEntry{}, nil, nil, ErrConnectionClosed
		}
		switch ev.eventType {
		case upcallEventData:
			entry, err := a.cm.lookupByContextID(ev.contextID)
			if err != nil {
				return contextManagerEntry{}, nil, nil, err
			}
			return entry, ev.command, ev.data, nil
		case upcallEventReleased:
			return contextManagerEntry{}, nil, nil, fmt.Errorf("dicom: association released")
		case upcallEventAborted:
			return contextManagerEntry{}, nil, nil, &AssociationAbortedError{Source: ev.abortSource, Reason: ev.abortReason}
		default:
			return contextManagerEntry{}, nil, nil, fmt.Errorf("dicom: nextDIMSE: unexpected upcall %v", ev.eventType.String())
		}
	}
}

// ---------------------------------------------------------------------
// Requestor (SCU) operations. Each builds an RQ, sends it, and collects
// the RSP(s) for the matching MessageID.

// Echo issues a C-ECHO-RQ and waits for the response. P3.7 9.1.5.
func (a *Association) Echo(timeout time.Duration) (*dimse.CEchoRsp, error) {
	entry, err := a.contextForAbstractSyntax(string(sopclass.Verification))
	if err != nil {
		return nil, ErrSOPClassNotSupported
	}
	messageID := dimse.NewMessageID()
	rq := &dimse.CEchoRq{MessageID: messageID, CommandDataSetType: dimse.CommandDataSetTypeNull}
	a.sendDIMSE(entry.abstractSyntaxUID, rq, nil)
	_, rsp, _, err := a.nextDIMSE(timeout)
	if err != nil {
		return nil, err
	}
	v, ok := rsp.(*dimse.CEchoRsp)
	if !ok || v.MessageIDBeingRespondedTo != messageID {
		return nil, fmt.Errorf("dicom: Echo: unexpected response %v", rsp)
	}
	return v, nil
}

// Store issues a C-STORE-RQ carrying dataset bytes already encoded in the
// negotiated transfer syntax for sopClassUID.
func (a *Association) Store(sopClassUID, sopInstanceUID string, dataset []byte, timeout time.Duration) (*dimse.CStoreRsp, error) {
	entry, err := a.contextForAbstractSyntax(sopClassUID)
	if err != nil {
		return nil, ErrSOPClassNotSupported
	}
	messageID := dimse.NewMessageID()
	rq := &dimse.CStoreRq{
		AffectedSOPClassUID:    sopClassUID,
		MessageID:              messageID,
		Priority:               0,
		CommandDataSetType:     dimse.CommandDataSetTypeNonNull,
		AffectedSOPInstanceUID: sopInstanceUID,
	}
	a.sendDIMSE(entry.abstractSyntaxUID, rq, dataset)
	_, rsp, _, err := a.nextDIMSE(timeout)
	if err != nil {
		return nil, err
	}
	v, ok := rsp.(*dimse.CStoreRsp)
	if !ok || v.MessageIDBeingRespondedTo != messageID {
		return nil, fmt.Errorf("dicom: Store: unexpected response %v", rsp)
	}
	return v, nil
}

// QueryResult is one item of the lazy response sequence produced by
// Find/Get/Move, mirroring the pending-then-terminal status pattern of
// C-FIND/C-GET/C-MOVE. Progress is populated only for Get/Move.
type QueryResult struct {
	Dataset  []byte
	Status   dimse.Status
	Progress *SubOperationProgress
	Err      error
}

// SubOperationProgress reports the running C-GET/C-MOVE sub-operation
// counters carried on each pending response.
type SubOperationProgress struct {
	Remaining, Completed, Failed, Warning uint16
}

// Find issues a C-FIND-RQ and returns a channel of QueryResult, one per
// pending response plus a final terminal one. The channel is closed after
// the terminal (non-Pending: neither 0xFF00 nor 0xFF01) status or an error.
func (a *Association) Find(sopClassUID string, query []byte, timeout time.Duration) <-chan QueryResult {
	out := make(chan QueryResult, 1)
	entry, err := a.contextForAbstractSyntax(sopClassUID)
	if err != nil {
		out <- QueryResult{Err: ErrSOPClassNotSupported}
		close(out)
		return out
	}
	messageID := dimse.NewMessageID()
	rq := &dimse.CFindRq{
		AffectedSOPClassUID: sopClassUID,
		MessageID:           messageID,
		Priority:            0,
		CommandDataSetType:  dimse.CommandDataSetTypeNonNull,
	}
	a.sendDIMSE(entry.abstractSyntaxUID, rq, query)
	go func() {
		defer close(out)
		for {
			_, rsp, data, err := a.nextDIMSE(timeout)
			if err != nil {
				out <- QueryResult{Err: err}
				return
			}
			v, ok := rsp.(*dimse.CFindRsp)
			if !ok || v.MessageIDBeingRespondedTo != messageID {
				out <- QueryResult{Err: fmt.Errorf("dicom: Find: unexpected response %v", rsp)}
				return
			}
			out <- QueryResult{Dataset: data, Status: v.Status}
			if v.Status.Category() != "Pending" {
				return
			}
		}
	}()
	return out
}

// Get issues a C-GET-RQ. The acceptor is expected to also open C-STORE
// sub-associations back to this requestor per P3.4 GG4; that exchange is
// driven by the AE's on_receive_store callback on the reverse connection,
// outside this call's scope.
func (a *Association) Get(sopClassUID string, query []byte, timeout time.Duration) <-chan QueryResult {
	out := make(chan QueryResult, 1)
	entry, err := a.contextForAbstractSyntax(sopClassUID)
	if err != nil {
		out <- QueryResult{Err: ErrSOPClassNotSupported}
		close(out)
		return out
	}
	messageID := dimse.NewMessageID()
	rq := &dimse.CGetRq{
		AffectedSOPClassUID: sopClassUID,
		MessageID:           messageID,
		Priority:            0,
		CommandDataSetType:  dimse.CommandDataSetTypeNonNull,
	}
	a.sendDIMSE(entry.abstractSyntaxUID, rq, query)
	go func() {
		defer close(out)
		for {
			_, rsp, data, err := a.nextDIMSE(timeout)
			if err != nil {
				out <- QueryResult{Err: err}
				return
			}
			v, ok := rsp.(*dimse.CGetRsp)
			if !ok || v.MessageIDBeingRespondedTo != messageID {
				out <- QueryResult{Err: fmt.Errorf("dicom: Get: unexpected response %v", rsp)}
				return
			}
			out <- QueryResult{
				Dataset: data,
				Status:  v.Status,
				Progress: &SubOperationProgress{
					Remaining: v.NumberOfRemainingSuboperations,
					Completed: v.NumberOfCompletedSuboperations,
					Failed:    v.NumberOfFailedSuboperations,
					Warning:   v.NumberOfWarningSuboperations,
				},
			}
			if v.Status.Category() != "Pending" {
				return
			}
		}
	}()
	return out
}

// Move issues a C-MOVE-RQ naming the destination AE title that will
// receive the C-STORE sub-operations.
func (a *Association) Move(sopClassUID, destinationAET string, query []byte, timeout time.Duration) <-chan QueryResult {
	out := make(chan QueryResult, 1)
	entry, err := a.contextForAbstractSyntax(sopClassUID)
	if err != nil {
		out <- QueryResult{Err: ErrSOPClassNotSupported}
		close(out)
		return out
	}
	messageID := dimse.NewMessageID()
	rq := &dimse.CMoveRq{
		AffectedSOPClassUID: sopClassUID,
		MessageID:           messageID,
		Priority:            0,
		MoveDestination:     destinationAET,
		CommandDataSetType:  dimse.CommandDataSetTypeNonNull,
	}
	a.sendDIMSE(entry.abstractSyntaxUID, rq, query)
	go func() {
		defer close(out)
		for {
			_, rsp, data, err := a.nextDIMSE(timeout)
			if err != nil {
				out <- QueryResult{Err: err}
				return
			}
			v, ok := rsp.(*dimse.CMoveRsp)
			if !ok || v.MessageIDBeingRespondedTo != messageID {
				out <- QueryResult{Err: fmt.Errorf("dicom: Move: unexpected response %v", rsp)}
				return
			}
			out <- QueryResult{
				Dataset: data,
				Status:  v.Status,
				Progress: &SubOperationProgress{
					Remaining: v.NumberOfRemainingSuboperations,
					Completed: v.NumberOfCompletedSuboperations,
					Failed:    v.NumberOfFailedSuboperations,
					Warning:   v.NumberOfWarningSuboperations,
				},
			}
			if v.Status.Category() != "Pending" {
				return
			}
		}
	}()
	return out
}

// ---------------------------------------------------------------------
// Acceptor dispatch loop.

// AEHandlers holds the per-service callbacks an Application Entity
// registers. One handler serves every negotiated SOP class of its
// service; the decoded command carries AffectedSOPClassUID for handlers
// that need to distinguish.
type AEHandlers struct {
	OnAssociateRequest  func(a *Association)
	OnAssociateResponse func(a *Association)
	OnReceiveEcho       func(a *Association, rq *dimse.CEchoRq) dimse.Status
	OnReceiveStore      func(a *Association, rq *dimse.CStoreRq, dataset []byte) dimse.Status

	// OnReceiveFind/Get/Move run for the duration of one C-FIND/C-GET/
	// C-MOVE exchange. ctx is cancelled when a matching C-CANCEL-RQ
	// arrives for the same MessageID; a well-behaved handler stops
	// sending further pending results once ctx.Done() fires and closes
	// its channel with a final Cancel-status result.
	OnReceiveFind func(ctx context.Context, a *Association, rq *dimse.CFindRq, query []byte) <-chan QueryResult
	OnReceiveGet  func(ctx context.Context, a *Association, rq *dimse.CGetRq, query []byte) <-chan QueryResult
	OnReceiveMove func(ctx context.Context, a *Association, rq *dimse.CMoveRq, query []byte) <-chan QueryResult
}

// Serve runs the acceptor dispatch loop until the association is released,
// aborted, or the peer disconnects. Each inbound DIMSE request is resolved
// to its presentation context, handed to the matching callback, and the
// response(s) are sent back on the same context in order.
func (a *Association) Serve(h AEHandlers) error {
	defer a.markDone()
	for {
		if acseCheckRelease(a.d) {
			dicomlog.Vprintf(1, "dicom.Association(%s): released", a.label)
			return nil
		}
		if ev, aborted := acseCheckAbort(a.d); aborted {
			dicomlog.Vprintf(1, "dicom.Association(%s): aborted (source=%v reason=%v)", a.label, ev.abortSource, ev.abortReason)
			return &AssociationAbortedError{Source: ev.abortSource, Reason: ev.abortReason}
		}
		entry, command, data, err := a.nextDIMSE(100 * time.Millisecond)
		if err != nil {
			if err == ErrConnectionClosed {
				if a.d.stop() {
					return nil
				}
				// A momentary receive timeout just means no DIMSE arrived this
				// round; loop back to the release/abort checks.
				continue
			}
			if _, ok := err.(*AssociationAbortedError); ok {
				return err
			}
			if err.Error() == "dicom: association released" {
				return nil
			}
			continue
		}
		if err := a.dispatch(h, entry, command, data); err != nil {
			dicomlog.Vprintf(0, "dicom.Association(%s): handler error: %v", a.label, err)
		}
	}
}

// auditStatusFor maps a DIMSE status's category to the coarse
// success/failure label carried on an audit.Event.
func auditStatusFor(status dimse.Status) string {
	return auditStatusForCategory(status.Category())
}

func auditStatusForCategory(category string) string {
	switch category {
	case "Success", "Pending":
		return "success"
	default:
		return "failure"
	}
}

func (a *Association) dispatch(h AEHandlers, entry contextManagerEntry, command dimse.Message, data []byte) error {
	switch rq := command.(type) {
	case *dimse.CEchoRq:
		started := time.Now()
		status := dimse.Success
		if h.OnReceiveEcho != nil {
			status = h.OnReceiveEcho(a, rq)
		}
		rsp := &dimse.CEchoRsp{MessageIDBeingRespondedTo: rq.MessageID, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: status}
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
		a.recordAudit("c-echo", entry.abstractSyntaxUID, auditStatusFor(status), "", started)
		a.metrics.DIMSEOperation("c-echo", status.Category(), time.Since(started))
		return nil
	case *dimse.CStoreRq:
		started := time.Now()
		status := dimse.Status{Status: dimse.StatusUnrecognizedOperation}
		if h.OnReceiveStore != nil {
			status = h.OnReceiveStore(a, rq, data)
		}
		rsp := &dimse.CStoreRsp{
			AffectedSOPClassUID:       rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: rq.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			AffectedSOPInstanceUID:    rq.AffectedSOPInstanceUID,
			Status:                    status,
		}
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
		a.recordAudit("c-store", rq.AffectedSOPInstanceUID, auditStatusFor(status), "", started)
		a.metrics.DIMSEOperation("c-store", status.Category(), time.Since(started))
		return nil
	case *dimse.CFindRq:
		return a.dispatchFind(h, entry, rq, data)
	case *dimse.CGetRq:
		return a.dispatchGet(h, entry, rq, data)
	case *dimse.CMoveRq:
		return a.dispatchMove(h, entry, rq, data)
	case *dimse.CCancelRq:
		a.cancelPending(rq.MessageIDBeingRespondedTo)
		return nil
	default:
		return fmt.Errorf("dicom: unsupported DIMSE command %T", command)
	}
}

func (a *Association) dispatchFind(h AEHandlers, entry contextManagerEntry, rq *dimse.CFindRq, query []byte) error {
	if h.OnReceiveFind == nil {
		rsp := &dimse.CFindRsp{MessageIDBeingRespondedTo: rq.MessageID, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Status{Status: dimse.StatusUnrecognizedOperation}}
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.trackCancel(rq.MessageID, cancel)
	defer a.untrackCancel(rq.MessageID)
	defer cancel()
	started := time.Now()
	category := "Success"
	for result := range h.OnReceiveFind(ctx, a, rq, query) {
		if result.Err != nil {
			rsp := &dimse.CFindRsp{MessageIDBeingRespondedTo: rq.MessageID, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Status{Status: dimse.CFindUnableToProcess, ErrorComment: result.Err.Error()}}
			a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
			a.recordAudit("c-find", rq.AffectedSOPClassUID, "failure", result.Err.Error(), started)
			a.metrics.DIMSEOperation("c-find", "Failure", time.Since(started))
			return result.Err
		}
		rsp := &dimse.CFindRsp{MessageIDBeingRespondedTo: rq.MessageID, Status: result.Status}
		if len(result.Dataset) > 0 {
			rsp.CommandDataSetType = dimse.CommandDataSetTypeNonNull
		} else {
			rsp.CommandDataSetType = dimse.CommandDataSetTypeNull
		}
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, result.Dataset)
		category = result.Status.Category()
	}
	a.recordAudit("c-find", rq.AffectedSOPClassUID, auditStatusForCategory(category), "", started)
	a.metrics.DIMSEOperation("c-find", category, time.Since(started))
	return nil
}

func (a *Association) dispatchGet(h AEHandlers, entry contextManagerEntry, rq *dimse.CGetRq, query []byte) error {
	if h.OnReceiveGet == nil {
		rsp := &dimse.CGetRsp{MessageIDBeingRespondedTo: rq.MessageID, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Status{Status: dimse.StatusUnrecognizedOperation}}
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.trackCancel(rq.MessageID, cancel)
	defer a.untrackCancel(rq.MessageID)
	defer cancel()
	started := time.Now()
	category := "Success"
	for result := range h.OnReceiveGet(ctx, a, rq, query) {
		rsp := &dimse.CGetRsp{MessageIDBeingRespondedTo: rq.MessageID, Status: result.Status}
		if result.Err != nil {
			rsp.Status = dimse.Status{Status: dimse.CMoveOutOfResourcesUnableToPerformSubOperations, ErrorComment: result.Err.Error()}
			a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
			a.recordAudit("c-get", rq.AffectedSOPClassUID, "failure", result.Err.Error(), started)
			a.metrics.DIMSEOperation("c-get", "Failure", time.Since(started))
			return result.Err
		}
		if result.Progress != nil {
			rsp.NumberOfRemainingSuboperations = result.Progress.Remaining
			rsp.NumberOfCompletedSuboperations = result.Progress.Completed
			rsp.NumberOfFailedSuboperations = result.Progress.Failed
			rsp.NumberOfWarningSuboperations = result.Progress.Warning
		}
		rsp.CommandDataSetType = dimse.CommandDataSetTypeNull
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
		category = result.Status.Category()
	}
	a.recordAudit("c-get", rq.AffectedSOPClassUID, auditStatusForCategory(category), "", started)
	a.metrics.DIMSEOperation("c-get", category, time.Since(started))
	return nil
}

func (a *Association) dispatchMove(h AEHandlers, entry contextManagerEntry, rq *dimse.CMoveRq, query []byte) error {
	if h.OnReceiveMove == nil {
		rsp := &dimse.CMoveRsp{MessageIDBeingRespondedTo: rq.MessageID, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Status{Status: dimse.StatusUnrecognizedOperation}}
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
		return nil
	}
	if _, err := a.ResolveMoveDestination(context.Background(), rq.MoveDestination); err != nil {
		rsp := &dimse.CMoveRsp{MessageIDBeingRespondedTo: rq.MessageID, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Status{Status: dimse.CMoveMoveDestinationUnknown, ErrorComment: err.Error()}}
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
		a.recordAudit("c-move", rq.AffectedSOPClassUID, "failure", err.Error(), time.Now())
		a.metrics.DIMSEOperation("c-move", "Failure", 0)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.trackCancel(rq.MessageID, cancel)
	defer a.untrackCancel(rq.MessageID)
	defer cancel()
	started := time.Now()
	category := "Success"
	for result := range h.OnReceiveMove(ctx, a, rq, query) {
		rsp := &dimse.CMoveRsp{MessageIDBeingRespondedTo: rq.MessageID, Status: result.Status}
		if result.Err != nil {
			rsp.Status = dimse.Status{Status: dimse.CMoveOutOfResourcesUnableToPerformSubOperations, ErrorComment: result.Err.Error()}
			a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
			a.recordAudit("c-move", rq.AffectedSOPClassUID, "failure", result.Err.Error(), started)
			a.metrics.DIMSEOperation("c-move", "Failure", time.Since(started))
			return result.Err
		}
		if result.Progress != nil {
			rsp.NumberOfRemainingSuboperations = result.Progress.Remaining
			rsp.NumberOfCompletedSuboperations = result.Progress.Completed
			rsp.NumberOfFailedSuboperations = result.Progress.Failed
			rsp.NumberOfWarningSuboperations = result.Progress.Warning
		}
		rsp.CommandDataSetType = dimse.CommandDataSetTypeNull
		a.sendDIMSE(entry.abstractSyntaxUID, rsp, nil)
		category = result.Status.Category()
	}
	a.recordAudit("c-move", rq.AffectedSOPClassUID, auditStatusForCategory(category), "", started)
	a.metrics.DIMSEOperation("c-move", category, time.Since(started))
	return nil
}
