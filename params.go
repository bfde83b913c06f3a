package netdicom

import (
	"time"

	"github.com/giesekow/go-netdicom/sopclass"
)

// ServiceUserParams configures the requestor (association-initiating) side
// of the upper-layer state machine. One instance is created per outgoing
// association.
type ServiceUserParams struct {
	// CallingAETitle is this side's AE title, sent as the Calling AE Title
	// field of the A-ASSOCIATE-RQ.
	CallingAETitle string

	// CalledAETitle is the peer's AE title.
	CalledAETitle string

	// SOPClasses lists the abstract syntaxes to propose, one presentation
	// context per entry.
	SOPClasses []sopclass.SOPUID

	// TransferSyntaxes lists the transfer syntaxes offered for every
	// proposed presentation context, in preference order.
	TransferSyntaxes []string

	// MaxPDUSize is advertised to the peer via the Maximum-Length
	// sub-item. Zero means DefaultMaxPDUSize.
	MaxPDUSize int

	// Timeout is the ARTIM duration. Zero means DefaultARTIMTimeout.
	Timeout time.Duration
}

// ServiceProviderParams configures the acceptor (association-receiving)
// side. One instance is shared by every Association a listening AE
// accepts.
type ServiceProviderParams struct {
	// AETitle is this side's AE title.
	AETitle string

	// MaxPDUSize is advertised to the peer. Zero means DefaultMaxPDUSize.
	MaxPDUSize int

	// Timeout is the ARTIM duration. Zero means DefaultARTIMTimeout.
	Timeout time.Duration

	// SCPSOPClasses lists the abstract syntaxes this side accepts as a
	// service provider. A proposed context whose abstract syntax is not
	// in this list is rejected with
	// PresentationContextProviderRejectionAbstractSyntaxNotSupported.
	SCPSOPClasses []sopclass.SOPUID

	// TransferSyntaxes lists the transfer syntaxes this side accepts. For
	// each accepted context, the first syntax in the requestor's proposal
	// order that is also in this list is picked.
	TransferSyntaxes []string
}

func (p ServiceProviderParams) acceptableSOPClasses() []sopclass.SOPUID {
	return p.SCPSOPClasses
}

func (p ServiceProviderParams) acceptableTransferSyntaxes() []string {
	return p.TransferSyntaxes
}
