package pdu_test

import (
	"bytes"
	"testing"

	"github.com/giesekow/go-netdicom/pdu"
	"github.com/giesekow/go-netdicom/pdu/pdu_item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeDecode(t *testing.T, v pdu.PDU, maxPDUSize int) pdu.PDU {
	encoded, err := pdu.EncodePDU(v)
	require.NoError(t, err)

	decoded, err := pdu.ReadPDU(bytes.NewReader(encoded), maxPDUSize)
	require.NoError(t, err)
	return decoded
}

func TestAAssociateRQRoundTrip(t *testing.T) {
	rq := &pdu.AAssociateRQ{
		ProtocolVersion: 1,
		CalledAETitle:   "ECHOSCP",
		CallingAETitle:  "ECHOSCU",
		Items: []pdu_item.SubItem{
			pdu_item.NewApplicationContextItem(),
			pdu_item.NewPresentationContextItem(pdu_item.ItemTypePresentationContextRequest, 1, []pdu_item.SubItem{
				pdu_item.NewAbstractSyntaxSubItem("1.2.840.10008.1.1"),
				pdu_item.NewTransferSyntaxSubItem("1.2.840.10008.1.2"),
			}),
		},
	}
	got := encodeDecode(t, rq, 16000)
	assert.Equal(t, rq.String(), got.String())
}

func TestAAssociateRjRoundTrip(t *testing.T) {
	rj := &pdu.AAssociateRj{
		Result: pdu.ResultRejectedPermanent,
		Source: pdu.SourceULServiceUser,
		Reason: pdu.RejectReasonCalledAETitleNotRecognized,
	}
	got := encodeDecode(t, rj, 16000)
	assert.Equal(t, rj.String(), got.String())
}

func TestAAbortRoundTrip(t *testing.T) {
	v := &pdu.AAbort{Source: pdu.SourceULServiceUser, Reason: pdu.AbortReasonNotSpecified}
	got := encodeDecode(t, v, 16000)
	assert.Equal(t, v.String(), got.String())
}

func TestAReleaseRoundTrip(t *testing.T) {
	got := encodeDecode(t, &pdu.AReleaseRq{}, 16000)
	assert.Equal(t, "A_RELEASE_RQ{}", got.String())

	got = encodeDecode(t, &pdu.AReleaseRp{}, 16000)
	assert.Equal(t, "A_RELEASE_RP{}", got.String())
}

func TestPDataTfRoundTrip(t *testing.T) {
	v := &pdu.PDataTf{
		Items: []pdu.PresentationDataValueItem{
			{ContextID: 1, Command: true, Last: true, Value: []byte{1, 2, 3}},
			{ContextID: 1, Command: false, Last: false, Value: []byte{4, 5, 6, 7}},
			{ContextID: 1, Command: false, Last: true, Value: []byte{8, 9}},
		},
	}
	got := encodeDecode(t, v, 16000)
	assert.Equal(t, v.String(), got.String())
}
