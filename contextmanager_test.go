package netdicom

import (
	"testing"

	"github.com/giesekow/go-netdicom/pdu/pdu_item"
	"github.com/giesekow/go-netdicom/sopclass"
)

// TestContextManagerAcceptsAssociationWithAllContextsRejected exercises §8
// Scenario 2: the acceptor only recognizes Verification, the requestor
// proposes an unrelated abstract syntax. The per-context result is
// abstract-syntax-not-supported, but the association as a whole must still
// be negotiable (no error), matching DICOM's own accept/reject split.
func TestContextManagerAcceptsAssociationWithAllContextsRejected(t *testing.T) {
	m := newContextManager("test", DefaultMaxPDUSize)
	m.setPolicy(newSOPClassPolicy([]sopclass.SOPUID{sopclass.Verification}, sopclass.DefaultTransferSyntaxes))

	requestItems := []pdu_item.SubItem{
		pdu_item.NewApplicationContextItem(),
		pdu_item.NewPresentationContextItem(pdu_item.ItemTypePresentationContextRequest, 1, []pdu_item.SubItem{
			pdu_item.NewAbstractSyntaxSubItem("9.9.9.9"),
			pdu_item.NewTransferSyntaxSubItem(string(sopclass.ImplicitVRLittleEndian)),
		}),
		&pdu_item.UserInformationItem{Items: []pdu_item.SubItem{
			&pdu_item.UserInformationMaximumLengthItem{MaximumLengthReceived: 16000},
		}},
	}

	responses, err := m.onAssociateRequest(requestItems)
	if err != nil {
		t.Fatalf("onAssociateRequest returned an error, expected the association to be negotiable: %v", err)
	}

	var pc *pdu_item.PresentationContextItem
	for _, item := range responses {
		if p, ok := item.(*pdu_item.PresentationContextItem); ok {
			pc = p
		}
	}
	if pc == nil {
		t.Fatal("no presentation-context-AC item in response")
	}
	if pc.ContextID != 1 {
		t.Errorf("ContextID = %d, want 1", pc.ContextID)
	}
	if pc.Result != pdu_item.PresentationContextProviderRejectionAbstractSyntaxNotSupported {
		t.Errorf("Result = %d, want abstract-syntax-not-supported (3)", pc.Result)
	}
	if len(m.contextIDToEntry) != 0 {
		t.Errorf("expected no accepted contexts, got %d", len(m.contextIDToEntry))
	}
}

// TestContextManagerAcceptsFirstRequestedTransferSyntax exercises the normal
// accept path: the abstract syntax is recognized and the first proposed
// transfer syntax the policy also supports is chosen.
func TestContextManagerAcceptsFirstRequestedTransferSyntax(t *testing.T) {
	m := newContextManager("test", DefaultMaxPDUSize)
	m.setPolicy(newSOPClassPolicy([]sopclass.SOPUID{sopclass.Verification}, sopclass.DefaultTransferSyntaxes))

	requestItems := []pdu_item.SubItem{
		pdu_item.NewApplicationContextItem(),
		pdu_item.NewPresentationContextItem(pdu_item.ItemTypePresentationContextRequest, 1, []pdu_item.SubItem{
			pdu_item.NewAbstractSyntaxSubItem(string(sopclass.Verification)),
			pdu_item.NewTransferSyntaxSubItem(string(sopclass.ImplicitVRLittleEndian)),
		}),
	}

	responses, err := m.onAssociateRequest(requestItems)
	if err != nil {
		t.Fatalf("onAssociateRequest: %v", err)
	}
	for _, item := range responses {
		if pc, ok := item.(*pdu_item.PresentationContextItem); ok {
			if pc.Result != pdu_item.PresentationContextAccepted {
				t.Errorf("Result = %d, want accepted (0)", pc.Result)
			}
		}
	}
	entry, ok := m.contextIDToEntry[1]
	if !ok {
		t.Fatal("context 1 was not recorded as accepted")
	}
	if entry.transferSyntaxUID != string(sopclass.ImplicitVRLittleEndian) {
		t.Errorf("transferSyntaxUID = %q, want %q", entry.transferSyntaxUID, sopclass.ImplicitVRLittleEndian)
	}
}
