package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/suyashkumar/dicom/pkg/dicomio"
)

type AbortReasonType byte

const (
	AbortReasonNotSpecified              AbortReasonType = 0
	AbortReasonUnexpectedPDU             AbortReasonType = 2
	AbortReasonUnrecognizedPDUParameter  AbortReasonType = 3
	AbortReasonUnexpectedPDUParameter    AbortReasonType = 4
	AbortReasonInvalidPDUParameterValue  AbortReasonType = 5
)

// AAbort is sent by either peer to immediately terminate an association.
// P3.8 9.3.8.
type AAbort struct {
	Source SourceType
	Reason AbortReasonType
}

func (AAbort) Read(d *dicomio.Reader) (PDU, error) {
	pdu := &AAbort{}
	d.Skip(2)
	source, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	pdu.Source = SourceType(source)
	reason, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	pdu.Reason = AbortReasonType(reason)
	return pdu, nil
}

func (pdu *AAbort) Write() ([]byte, error) {
	var buf bytes.Buffer
	e := dicomio.NewWriter(&buf, binary.BigEndian, false)
	if err := e.WriteZeros(2); err != nil {
		return nil, err
	}
	if err := e.WriteUInt8(byte(pdu.Source)); err != nil {
		return nil, err
	}
	if err := e.WriteUInt8(byte(pdu.Reason)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (pdu *AAbort) String() string {
	return fmt.Sprintf("A_ABORT{source:%v reason:%v}", pdu.Source, pdu.Reason)
}
