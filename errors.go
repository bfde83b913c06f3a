package netdicom

import (
	"errors"
	"fmt"

	"github.com/giesekow/go-netdicom/pdu"
)

// Sentinel errors for conditions that carry no further context.
var (
	// ErrAssociationNotEstablished is returned by SCU operations invoked
	// before ACSE negotiation completed.
	ErrAssociationNotEstablished = errors.New("dicom: association not established")

	// ErrSOPClassNotSupported is returned when an SCU/SCP operation names
	// an abstract syntax that was not accepted during negotiation.
	ErrSOPClassNotSupported = errors.New("dicom: sop class not supported on this association")

	// ErrConnectionClosed surfaces a transport close with no PDU
	// (connect-failure / Evt17 before any A-ASSOCIATE response).
	ErrConnectionClosed = errors.New("dicom: connection closed before association response")
)

// AssociationRejectedError reports an A-ASSOCIATE-RJ. P3.8 9.3.4.
type AssociationRejectedError struct {
	Result pdu.RejectResultType
	Source pdu.SourceType
	Reason pdu.RejectReasonType
}

func (e *AssociationRejectedError) Error() string {
	return fmt.Sprintf("dicom: association rejected (result=%d source=%d reason=%d)", e.Result, e.Source, e.Reason)
}

// AssociationAbortedError reports an A-ABORT or A-P-ABORT indication.
type AssociationAbortedError struct {
	Source pdu.SourceType
	Reason pdu.AbortReasonType
}

func (e *AssociationAbortedError) Error() string {
	return fmt.Sprintf("dicom: association aborted (source=%d reason=%d)", e.Source, e.Reason)
}

// DIMSEStatusError wraps a non-success DIMSE response status, per P3.7 C.
type DIMSEStatusError struct {
	Operation string
	Status    uint16
}

func (e *DIMSEStatusError) Error() string {
	return fmt.Sprintf("dicom: %s failed with status 0x%04x", e.Operation, e.Status)
}
