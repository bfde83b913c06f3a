package dimse

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/suyashkumar/dicom"
	dicomtag "github.com/suyashkumar/dicom/pkg/tag"
)

// NewElement builds a DICOM element for a command-set tag from a Go native
// value. Command sets are always encoded implicit-VR little-endian, so VR
// inference from the tag dictionary is sufficient here.
func NewElement(tag dicomtag.Tag, value interface{}) (*dicom.Element, error) {
	switch v := value.(type) {
	case string:
		return dicom.NewElement(tag, []string{v})
	case uint16:
		return dicom.NewElement(tag, []int{int(v)})
	case int:
		return dicom.NewElement(tag, []int{v})
	default:
		return nil, fmt.Errorf("NewElement: unsupported value type %T for tag %v", value, tag)
	}
}

// EncodeElements writes a command set built from elems to w, implicit-VR
// little-endian per P3.7 6.3.1.
func EncodeElements(w io.Writer, elems []*dicom.Element) error {
	writer, err := dicom.NewWriter(w)
	if err != nil {
		return fmt.Errorf("EncodeElements: failed to create writer: %w", err)
	}
	writer.SetTransferSyntax(
		binary.LittleEndian,
		true, // implicit VR
	)
	for _, elem := range elems {
		if err := writer.WriteElement(elem); err != nil {
			return fmt.Errorf("EncodeElements: failed to write element %v: %w", elem.Tag, err)
		}
	}
	return nil
}
