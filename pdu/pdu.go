// Package pdu implements the DICOM Upper Layer PDU wire codec: the seven
// PDU types exchanged during association negotiation, data transfer and
// release/abort, plus their common 6-byte header. P3.8 Section 9.3.
package pdu

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/suyashkumar/dicom/pkg/dicomio"
)

// Type is the one-byte PDU type field in the common PDU header.
type Type byte

// CurrentProtocolVersion is the only upper-layer protocol version this
// library speaks, carried in A-ASSOCIATE-RQ/AC. P3.8 9.3.2.
const CurrentProtocolVersion uint16 = 1

const (
	TypeAAssociateRQ Type = 1
	TypeAAssociateAC Type = 2
	TypeAAssociateRJ Type = 3
	TypePDataTf      Type = 4
	TypeAReleaseRQ   Type = 5
	TypeAReleaseRP   Type = 6
	TypeAAbort       Type = 7
)

func (t Type) String() string {
	switch t {
	case TypeAAssociateRQ:
		return "A_ASSOCIATE_RQ"
	case TypeAAssociateAC:
		return "A_ASSOCIATE_AC"
	case TypeAAssociateRJ:
		return "A_ASSOCIATE_RJ"
	case TypePDataTf:
		return "P_DATA_TF"
	case TypeAReleaseRQ:
		return "A_RELEASE_RQ"
	case TypeAReleaseRP:
		return "A_RELEASE_RP"
	case TypeAAbort:
		return "A_ABORT"
	default:
		return fmt.Sprintf("PDUType(0x%x)", byte(t))
	}
}

// PDU is implemented by every upper-layer PDU. Each concrete type also has
// a constructor-style Read method, outside this interface: called on a
// zero value, it parses the PDU's payload (the PDU header has already been
// consumed) from d.
type PDU interface {
	fmt.Stringer
	Write() ([]byte, error)
}

func pduType(v PDU) (Type, error) {
	switch v.(type) {
	case *AAssociateRQ:
		return TypeAAssociateRQ, nil
	case *AAssociateAC:
		return TypeAAssociateAC, nil
	case *AAssociateRj:
		return TypeAAssociateRJ, nil
	case *PDataTf:
		return TypePDataTf, nil
	case *AReleaseRq:
		return TypeAReleaseRQ, nil
	case *AReleaseRp:
		return TypeAReleaseRP, nil
	case *AAbort:
		return TypeAAbort, nil
	default:
		return 0, fmt.Errorf("EncodePDU: unknown PDU type %T", v)
	}
}

// EncodePDU serializes v, prefixing it with the common 6-byte PDU header.
func EncodePDU(v PDU) ([]byte, error) {
	t, err := pduType(v)
	if err != nil {
		return nil, err
	}
	payload, err := v.Write()
	if err != nil {
		return nil, fmt.Errorf("EncodePDU: %w", err)
	}
	var header [6]byte
	header[0] = byte(t)
	header[1] = 0
	binary.BigEndian.PutUint32(header[2:6], uint32(len(payload)))
	return append(header[:], payload...), nil
}

// PeekType reads the 1-byte PDU type without consuming the rest of the
// header, by peeking at a buffered reader.
func PeekType(r *bufio.Reader) (Type, error) {
	b, err := r.Peek(1)
	if err != nil {
		return 0, err
	}
	return Type(b[0]), nil
}

// ReadPDU reads one complete PDU (header + payload) from in. maxPDUSize
// bounds the accepted payload length as a sanity check against malformed
// peers; it is not itself negotiated here.
func ReadPDU(in io.Reader, maxPDUSize int) (PDU, error) {
	var header [6]byte
	if _, err := io.ReadFull(in, header[:]); err != nil {
		return nil, err
	}
	t := Type(header[0])
	length := binary.BigEndian.Uint32(header[2:6])
	if maxPDUSize > 0 && length >= uint32(maxPDUSize)*2 {
		return nil, fmt.Errorf("ReadPDU: length %d far exceeds max PDU size %d", length, maxPDUSize)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(in, payload); err != nil {
		return nil, fmt.Errorf("ReadPDU: short payload: %w", err)
	}
	d := dicomio.NewReader(bufio.NewReader(bytes.NewReader(payload)), binary.BigEndian, int64(length))

	var v PDU
	var err error
	switch t {
	case TypeAAssociateRQ:
		v, err = AAssociateRQ{}.Read(d)
	case TypeAAssociateAC:
		v, err = AAssociateAC{}.Read(d)
	case TypeAAssociateRJ:
		v, err = AAssociateRj{}.Read(d)
	case TypePDataTf:
		v, err = PDataTf{}.Read(d)
	case TypeAReleaseRQ:
		v, err = AReleaseRq{}.Read(d)
	case TypeAReleaseRP:
		v, err = AReleaseRp{}.Read(d)
	case TypeAAbort:
		v, err = AAbort{}.Read(d)
	default:
		return nil, fmt.Errorf("ReadPDU: unknown PDU type 0x%x", header[0])
	}
	if err != nil {
		return nil, fmt.Errorf("ReadPDU: failed to decode %v: %w", t, err)
	}
	return v, nil
}

// fillString pads/truncates an AE title to its fixed 16-byte wire width.
// P3.8 9.3.2.
func fillString(v string) string {
	const aeTitleLength = 16
	if len(v) > aeTitleLength {
		return v[:aeTitleLength]
	}
	for len(v) < aeTitleLength {
		v += " "
	}
	return v
}
