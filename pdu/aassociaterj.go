package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/suyashkumar/dicom/pkg/dicomio"
)

type RejectResultType byte

const (
	ResultRejectedPermanent RejectResultType = 1
	ResultRejectedTransient RejectResultType = 2
)

type SourceType byte

const (
	SourceULServiceUser                 SourceType = 1
	SourceULServiceProviderACSE         SourceType = 2
	SourceULServiceProviderPresentation SourceType = 3
)

type RejectReasonType byte

const (
	RejectReasonNone                              RejectReasonType = 1
	RejectReasonApplicationContextNameNotSupported RejectReasonType = 2
	RejectReasonCallingAETitleNotRecognized        RejectReasonType = 3
	RejectReasonCalledAETitleNotRecognized         RejectReasonType = 7
)

// AAssociateRj is the rejection response to an A-ASSOCIATE-RQ. P3.8 9.3.4.
type AAssociateRj struct {
	Result RejectResultType
	Source SourceType
	Reason RejectReasonType
}

func (AAssociateRj) Read(d *dicomio.Reader) (PDU, error) {
	pdu := &AAssociateRj{}
	d.Skip(1)
	result, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	pdu.Result = RejectResultType(result)
	source, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	pdu.Source = SourceType(source)
	reason, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	pdu.Reason = RejectReasonType(reason)
	return pdu, nil
}

func (pdu *AAssociateRj) Write() ([]byte, error) {
	var buf bytes.Buffer
	e := dicomio.NewWriter(&buf, binary.BigEndian, false)
	if err := e.WriteZeros(1); err != nil {
		return nil, err
	}
	if err := e.WriteUInt8(byte(pdu.Result)); err != nil {
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

func (pdu *AAssociateRj) String() string {
	return fmt.Sprintf("A_ASSOCIATE_RJ{result:%v source:%v reason:%v}", pdu.Result, pdu.Source, pdu.Reason)
}
