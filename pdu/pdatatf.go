package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/suyashkumar/dicom/pkg/dicomio"
)

// PresentationDataValueItem is one PDV fragment inside a P-DATA-TF PDU.
// Command is true for command-set fragments, false for dataset fragments.
// Last is true when this fragment completes its stream. P3.8 9.3.5.1.
type PresentationDataValueItem struct {
	ContextID byte
	Command   bool
	Last      bool
	Value     []byte
}

// control-byte bit layout, low 2 bits only; all other bits reserved-zero.
const (
	pdvControlDataNotLast  = 0x00
	pdvControlCmdNotLast   = 0x01
	pdvControlDataLast     = 0x02
	pdvControlCmdLast      = 0x03
)

func readPresentationDataValueItem(d *dicomio.Reader) (PresentationDataValueItem, error) {
	var v PresentationDataValueItem
	length, err := d.ReadUInt32()
	if err != nil {
		return v, err
	}
	contextID, err := d.ReadUInt8()
	if err != nil {
		return v, err
	}
	v.ContextID = contextID
	header, err := d.ReadUInt8()
	if err != nil {
		return v, err
	}
	if header&^0x03 != 0 {
		return v, fmt.Errorf("pdu: invalid PDV control header 0x%x", header)
	}
	v.Command = header&0x01 != 0
	v.Last = header&0x02 != 0
	if length < 2 {
		return v, fmt.Errorf("pdu: PDV length %d too small", length)
	}
	value, err := d.ReadBytes(int(length - 2))
	if err != nil {
		return v, err
	}
	v.Value = value
	return v, nil
}

func (v *PresentationDataValueItem) write(e *dicomio.Writer) error {
	var header byte
	if v.Command {
		header |= 0x01
	}
	if v.Last {
		header |= 0x02
	}
	if err := e.WriteUInt32(uint32(2 + len(v.Value))); err != nil {
		return err
	}
	if err := e.WriteUInt8(v.ContextID); err != nil {
		return err
	}
	if err := e.WriteUInt8(header); err != nil {
		return err
	}
	return e.WriteBytes(v.Value)
}

func (v PresentationDataValueItem) String() string {
	return fmt.Sprintf("PDV{context:%d command:%v last:%v len:%d}", v.ContextID, v.Command, v.Last, len(v.Value))
}

// PDataTf carries one or more PDV fragments of a DIMSE command/dataset
// stream. P3.8 9.3.5.
type PDataTf struct {
	Items []PresentationDataValueItem
}

func (PDataTf) Read(d *dicomio.Reader) (PDU, error) {
	pdu := &PDataTf{}
	for !d.IsLimitExhausted() {
		item, err := readPresentationDataValueItem(d)
		if err != nil {
			break
		}
		pdu.Items = append(pdu.Items, item)
	}
	return pdu, nil
}

func (pdu *PDataTf) Write() ([]byte, error) {
	var buf bytes.Buffer
	e := dicomio.NewWriter(&buf, binary.BigEndian, false)
	for i := range pdu.Items {
		if err := pdu.Items[i].write(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (pdu *PDataTf) String() string {
	return fmt.Sprintf("P_DATA_TF{items:%v}", pdu.Items)
}
