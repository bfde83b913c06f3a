package netdicom

import (
	"fmt"

	"github.com/giesekow/go-netdicom/pdu/pdu_item"
	"github.com/giesekow/go-netdicom/sopclass"
	"github.com/grailbio/go-dicom/dicomlog"
	"github.com/grailbio/go-dicom/dicomuid"
)

// implementationClassUID and implementationVersionName identify this
// library to peers during association negotiation. P3.7 D.3.3.2.
const (
	implementationClassUID    = "1.2.826.0.1.3680043.2.1143.107.104.103.115"
	implementationVersionName = "GIESEKOW_NETDICOM_1"
)

type contextManagerEntry struct {
	contextID         byte
	abstractSyntaxUID string
	transferSyntaxUID string
}

// contextPolicyResult is returned by a contextPolicy for one proposed
// presentation context.
type contextPolicyResult struct {
	transferSyntaxUID string // meaningful only if accepted
	result            pdu_item.PresentationContextResult
}

// contextPolicy decides whether to accept a proposed abstract syntax, and if
// so which of the proposed transfer syntaxes to use. It is how actionAE-6
// distinguishes a real accept/reject decision from blindly taking whatever
// the requestor offers.
type contextPolicy func(abstractSyntaxUID string, transferSyntaxUIDs []string) contextPolicyResult

// acceptAnyFirstTransferSyntax is the fallback policy used when an
// Application Entity is not supplying its own: it accepts every abstract
// syntax and picks the first proposed transfer syntax, matching the
// historical behavior of this library.
func acceptAnyFirstTransferSyntax(abstractSyntaxUID string, transferSyntaxUIDs []string) contextPolicyResult {
	if len(transferSyntaxUIDs) == 0 {
		return contextPolicyResult{result: pdu_item.PresentationContextProviderRejectionTransferSyntaxNotSupported}
	}
	return contextPolicyResult{transferSyntaxUID: transferSyntaxUIDs[0], result: pdu_item.PresentationContextAccepted}
}

// newSOPClassPolicy builds a contextPolicy that accepts only the SOP classes
// in acceptable, picking the first transfer syntax the requestor proposed
// that is also in preferred (falling back to the requestor's first proposal
// if none of preferred is offered). This is the policy hook an AE wires in
// on its acceptor side so that proposing an unregistered abstract syntax is
// actually rejected instead of silently accepted.
func newSOPClassPolicy(acceptable []sopclass.SOPUID, preferred []string) contextPolicy {
	allowed := make(map[string]bool, len(acceptable))
	for _, sop := range acceptable {
		allowed[string(sop)] = true
	}
	return func(abstractSyntaxUID string, transferSyntaxUIDs []string) contextPolicyResult {
		if !allowed[abstractSyntaxUID] {
			return contextPolicyResult{result: pdu_item.PresentationContextProviderRejectionAbstractSyntaxNotSupported}
		}
		supported := make(map[string]bool, len(preferred))
		for _, ts := range preferred {
			supported[ts] = true
		}
		for _, ts := range transferSyntaxUIDs {
			if supported[ts] {
				return contextPolicyResult{transferSyntaxUID: ts, result: pdu_item.PresentationContextAccepted}
			}
		}
		if len(transferSyntaxUIDs) == 0 {
			return contextPolicyResult{result: pdu_item.PresentationContextProviderRejectionTransferSyntaxNotSupported}
		}
		return contextPolicyResult{transferSyntaxUID: transferSyntaxUIDs[0], result: pdu_item.PresentationContextAccepted}
	}
}

// contextManager manages the mapping between a per-association contextID
// (odd byte, allocated during the handshake) and the abstract-syntax /
// transfer-syntax UID pair it denotes. One contextManager is created per
// association.
type contextManager struct {
	label string

	contextIDToEntry   map[byte]*contextManagerEntry
	abstractUIDToEntry map[string]*contextManagerEntry

	// ownMaxPDUSize is advertised to the peer via UserInformationMaximumLengthItem.
	ownMaxPDUSize int

	peerMaxPDUSize                int
	peerImplementationClassUID    string
	peerImplementationVersionName string

	// tmpRequests holds the contextID -> PresentationContextItem mapping
	// generated by generateAssociateRequest, on the requestor side. It is
	// consulted when the A-ASSOCIATE-AC arrives, to recover which abstract
	// syntax a given contextID in the response refers to.
	tmpRequests map[byte]*pdu_item.PresentationContextItem

	// policy decides accept/reject for each proposed context. Set by the
	// acceptor (ServiceProvider/AE) before the handshake; nil means accept
	// everything.
	policy contextPolicy
}

func newContextManager(label string, ownMaxPDUSize int) *contextManager {
	if ownMaxPDUSize <= 0 {
		ownMaxPDUSize = DefaultMaxPDUSize
	}
	return &contextManager{
		label:              label,
		contextIDToEntry:   make(map[byte]*contextManagerEntry),
		abstractUIDToEntry: make(map[string]*contextManagerEntry),
		ownMaxPDUSize:      ownMaxPDUSize,
		peerMaxPDUSize:     DefaultMaxPDUSize,
		tmpRequests:        make(map[byte]*pdu_item.PresentationContextItem),
		policy:             acceptAnyFirstTransferSyntax,
	}
}

// setPolicy installs the acceptor-side context policy. Called before the
// A-ASSOCIATE-RQ is processed.
func (m *contextManager) setPolicy(p contextPolicy) {
	if p != nil {
		m.policy = p
	}
}

// generateAssociateRequest builds the item list for an A-ASSOCIATE-RQ,
// proposing one presentation context per SOP class in services, each
// offering every syntax in transferSyntaxUIDs.
func (m *contextManager) generateAssociateRequest(services []sopclass.SOPUID, transferSyntaxUIDs []string) []pdu_item.SubItem {
	items := []pdu_item.SubItem{pdu_item.NewApplicationContextItem()}
	var contextID byte = 1
	for _, sop := range services {
		syntaxItems := []pdu_item.SubItem{pdu_item.NewAbstractSyntaxSubItem(string(sop))}
		for _, ts := range transferSyntaxUIDs {
			syntaxItems = append(syntaxItems, pdu_item.NewTransferSyntaxSubItem(ts))
		}
		item := pdu_item.NewPresentationContextItem(pdu_item.ItemTypePresentationContextRequest, contextID, syntaxItems)
		items = append(items, item)
		m.tmpRequests[contextID] = item
		contextID += 2 // context IDs are odd, allocated 1, 3, 5, ...
	}
	items = append(items, &pdu_item.UserInformationItem{
		Items: []pdu_item.SubItem{
			&pdu_item.UserInformationMaximumLengthItem{MaximumLengthReceived: uint32(m.ownMaxPDUSize)},
			pdu_item.NewImplementationClassUIDSubItem(implementationClassUID),
			pdu_item.NewImplementationVersionNameSubItem(implementationVersionName),
		},
	})
	return items
}

// onAssociateRequest is called on the acceptor side when an A-ASSOCIATE-RQ
// arrives. It runs m.policy over every proposed presentation context and
// returns the item list for the A-ASSOCIATE-AC; a context the policy
// rejects is echoed back with its result code (not accepted), never
// dropped, per P3.8 9.3.3.
func (m *contextManager) onAssociateRequest(requestItems []pdu_item.SubItem) ([]pdu_item.SubItem, error) {
	responses := []pdu_item.SubItem{pdu_item.NewApplicationContextItem()}
	for _, requestItem := range requestItems {
		switch ri := requestItem.(type) {
		case *pdu_item.ApplicationContextItem:
			if ri.Name != pdu_item.DICOMApplicationContextItemName {
				dicomlog.Vprintf(0, "dicom.contextManager(%s): unexpected application context name %s", m.label, ri.Name)
			}
		case *pdu_item.PresentationContextItem:
			var abstractSyntaxUID string
			var transferSyntaxUIDs []string
			for _, subItem := range ri.Items {
				switch c := subItem.(type) {
				case *pdu_item.AbstractSyntaxSubItem:
					if abstractSyntaxUID != "" {
						return nil, fmt.Errorf("dicom.contextManager: multiple abstract syntaxes in context %d", ri.ContextID)
					}
					abstractSyntaxUID = c.Name
				case *pdu_item.TransferSyntaxSubItem:
					transferSyntaxUIDs = append(transferSyntaxUIDs, c.Name)
				}
			}
			if abstractSyntaxUID == "" {
				return nil, fmt.Errorf("dicom.contextManager: context %d proposes no abstract syntax", ri.ContextID)
			}
			decision := m.policy(abstractSyntaxUID, transferSyntaxUIDs)
			respItems := []pdu_item.SubItem{}
			if decision.result == pdu_item.PresentationContextAccepted {
				respItems = append(respItems, pdu_item.NewTransferSyntaxSubItem(decision.transferSyntaxUID))
			}
			resp := pdu_item.NewPresentationContextItem(pdu_item.ItemTypePresentationContextResponse, ri.ContextID, respItems)
			resp.Result = decision.result
			responses = append(responses, resp)
			if decision.result == pdu_item.PresentationContextAccepted {
				m.addContextMapping(abstractSyntaxUID, decision.transferSyntaxUID, ri.ContextID)
			} else {
				dicomlog.Vprintf(1, "dicom.contextManager(%s): rejecting context %d (%s): result %d",
					m.label, ri.ContextID, dicomuid.UIDString(abstractSyntaxUID), decision.result)
			}
		case *pdu_item.UserInformationItem:
			m.absorbUserInformation(ri.Items)
		}
	}
	// P3.8 9.3.3 / spec scenario "reject on unknown abstract syntax": the
	// overall association is still accepted even when every individual
	// proposed context is rejected. A caller that wants to refuse the
	// whole association does so via the contextPolicy or a higher-level
	// hook, not by starving this loop of acceptances.
	responses = append(responses, &pdu_item.UserInformationItem{
		Items: []pdu_item.SubItem{
			&pdu_item.UserInformationMaximumLengthItem{MaximumLengthReceived: uint32(m.ownMaxPDUSize)},
			pdu_item.NewImplementationClassUIDSubItem(implementationClassUID),
			pdu_item.NewImplementationVersionNameSubItem(implementationVersionName),
		},
	})
	dicomlog.Vprintf(1, "dicom.contextManager(%s): associate request: %d contexts, peerMaxPDU %d",
		m.label, len(m.contextIDToEntry), m.peerMaxPDUSize)
	return responses, nil
}

// onAssociateResponse is called on the requestor side when the
// A-ASSOCIATE-AC arrives; it reconciles the accepted contexts against
// tmpRequests to recover each contextID's abstract syntax.
func (m *contextManager) onAssociateResponse(responses []pdu_item.SubItem) error {
	for _, responseItem := range responses {
		switch ri := responseItem.(type) {
		case *pdu_item.PresentationContextItem:
			if ri.Result != pdu_item.PresentationContextAccepted {
				dicomlog.Vprintf(1, "dicom.contextManager(%s): peer rejected context %d: result %d", m.label, ri.ContextID, ri.Result)
				continue
			}
			var transferSyntaxUID string
			for _, subItem := range ri.Items {
				if c, ok := subItem.(*pdu_item.TransferSyntaxSubItem); ok {
					if transferSyntaxUID != "" {
						return fmt.Errorf("dicom.contextManager: multiple transfer syntaxes accepted for context %d", ri.ContextID)
					}
					transferSyntaxUID = c.Name
				}
			}
			if transferSyntaxUID == "" {
				return fmt.Errorf("dicom.contextManager: no transfer syntax in accepted context %d", ri.ContextID)
			}
			request, ok := m.tmpRequests[ri.ContextID]
			if !ok {
				return fmt.Errorf("dicom.contextManager: unknown context ID %d in A-ASSOCIATE-AC", ri.ContextID)
			}
			var abstractSyntaxUID string
			for _, subItem := range request.Items {
				if c, ok := subItem.(*pdu_item.AbstractSyntaxSubItem); ok {
					abstractSyntaxUID = c.Name
				}
			}
			if abstractSyntaxUID == "" {
				return fmt.Errorf("dicom.contextManager: original request for context %d had no abstract syntax", ri.ContextID)
			}
			m.addContextMapping(abstractSyntaxUID, transferSyntaxUID, ri.ContextID)
		case *pdu_item.UserInformationItem:
			m.absorbUserInformation(ri.Items)
		}
	}
	if len(m.contextIDToEntry) == 0 {
		return fmt.Errorf("dicom.contextManager(%s): peer accepted no presentation context", m.label)
	}
	dicomlog.Vprintf(1, "dicom.contextManager(%s): associate response: %d contexts, peerMaxPDU %d",
		m.label, len(m.contextIDToEntry), m.peerMaxPDUSize)
	return nil
}

func (m *contextManager) absorbUserInformation(items []pdu_item.SubItem) {
	for _, subItem := range items {
		switch c := subItem.(type) {
		case *pdu_item.UserInformationMaximumLengthItem:
			m.peerMaxPDUSize = int(c.MaximumLengthReceived)
		case *pdu_item.ImplementationClassUIDSubItem:
			m.peerImplementationClassUID = c.Name
		case *pdu_item.ImplementationVersionNameSubItem:
			m.peerImplementationVersionName = c.Name
		}
	}
}

func (m *contextManager) addContextMapping(abstractSyntaxUID, transferSyntaxUID string, contextID byte) {
	doassert(abstractSyntaxUID != "")
	doassert(transferSyntaxUID != "")
	doassert(contextID%2 == 1)
	e := &contextManagerEntry{
		contextID:         contextID,
		abstractSyntaxUID: abstractSyntaxUID,
		transferSyntaxUID: transferSyntaxUID,
	}
	m.contextIDToEntry[contextID] = e
	m.abstractUIDToEntry[abstractSyntaxUID] = e
	dicomlog.Vprintf(2, "dicom.contextManager(%s): map context %d -> %s, %s",
		m.label, contextID, dicomuid.UIDString(abstractSyntaxUID), dicomuid.UIDString(transferSyntaxUID))
}

func (m *contextManager) lookupByAbstractSyntaxUID(name string) (contextManagerEntry, error) {
	e, ok := m.abstractUIDToEntry[name]
	if !ok {
		return contextManagerEntry{}, fmt.Errorf("dicom.contextManager(%s): unknown abstract syntax %s", m.label, dicomuid.UIDString(name))
	}
	return *e, nil
}

func (m *contextManager) lookupByContextID(contextID byte) (contextManagerEntry, error) {
	e, ok := m.contextIDToEntry[contextID]
	if !ok {
		return contextManagerEntry{}, fmt.Errorf("dicom.contextManager(%s): unknown context ID %d", m.label, contextID)
	}
	return *e, nil
}
