package dimse_test

import (
	"bytes"
	"testing"

	"github.com/giesekow/go-netdicom/dimse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
)

func roundTrip(t *testing.T, v dimse.Message) dimse.Message {
	var buf bytes.Buffer
	require.NoError(t, dimse.EncodeMessage(&buf, v))

	parsed, err := dicom.Parse(&buf, int64(buf.Len()), nil,
		dicom.SkipPixelData(), dicom.SkipMetadataReadOnNewParserInit())
	require.NoError(t, err)

	got, err := dimse.ReadMessage(&parsed)
	require.NoError(t, err)
	return got
}

func TestCStoreRqRoundTrip(t *testing.T) {
	v := &dimse.CStoreRq{
		AffectedSOPClassUID:    "1.2.840.10008.5.1.4.1.1.7",
		MessageID:              7,
		Priority:               0,
		CommandDataSetType:     dimse.CommandDataSetTypeNonNull,
		AffectedSOPInstanceUID: "1.2.3.4.5",
	}
	got := roundTrip(t, v)
	assert.Equal(t, v.String(), got.String())
}

func TestCEchoRqRoundTrip(t *testing.T) {
	v := &dimse.CEchoRq{
		MessageID:          7,
		CommandDataSetType: dimse.CommandDataSetTypeNull,
	}
	got := roundTrip(t, v)
	assert.Equal(t, v.String(), got.String())
	assert.False(t, got.HasData())
}

func TestCEchoRspRoundTrip(t *testing.T) {
	v := &dimse.CEchoRsp{
		MessageIDBeingRespondedTo: 7,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    dimse.Success,
	}
	got := roundTrip(t, v)
	assert.Equal(t, v.String(), got.String())
	assert.Equal(t, dimse.StatusSuccess, got.GetStatus().Status)
}

func TestCMoveRspRoundTrip(t *testing.T) {
	v := &dimse.CMoveRsp{
		AffectedSOPClassUID:            "1.2.840.10008.5.1.4.1.2.2.2",
		MessageIDBeingRespondedTo:      3,
		CommandDataSetType:             dimse.CommandDataSetTypeNull,
		NumberOfRemainingSuboperations: 4,
		NumberOfCompletedSuboperations: 1,
		Status:                         dimse.Status{Status: dimse.StatusPending},
	}
	got := roundTrip(t, v)
	assert.Equal(t, v.String(), got.String())
}

func TestCCancelRqRoundTrip(t *testing.T) {
	v := &dimse.CCancelRq{MessageIDBeingRespondedTo: 9}
	got := roundTrip(t, v)
	assert.Equal(t, v.String(), got.String())
	assert.Equal(t, dimse.CommandFieldCCancelRq, got.CommandField())
}
