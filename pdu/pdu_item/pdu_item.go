// Package pdu_item implements the nested variable-length item tree carried
// inside A-ASSOCIATE-RQ/AC PDUs: application-context, presentation-context
// and user-information items and their sub-items. P3.8 9.3.2, 9.3.3.
package pdu_item

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/dicomio"
)

type ItemType byte

const (
	ItemTypeApplicationContext            ItemType = 0x10
	ItemTypePresentationContextRequest    ItemType = 0x20
	ItemTypePresentationContextResponse   ItemType = 0x21
	ItemTypeAbstractSyntax                ItemType = 0x30
	ItemTypeTransferSyntax                ItemType = 0x40
	ItemTypeUserInformation               ItemType = 0x50
	ItemTypeUserInformationMaximumLength  ItemType = 0x51
	ItemTypeImplementationClassUID        ItemType = 0x52
	ItemTypeAsynchronousOperationsWindow  ItemType = 0x53
	ItemTypeRoleSelection                 ItemType = 0x54
	ItemTypeImplementationVersionName     ItemType = 0x55
	ItemTypeSOPClassExtendedNegotiation   ItemType = 0x56
)

// DICOMApplicationContextItemName is the only application-context name
// defined by the standard. P3.7 Annex A.
const DICOMApplicationContextItemName = "1.2.840.10008.3.1.1.1"

// SubItem is implemented by every item and sub-item in the association
// negotiation tree.
type SubItem interface {
	fmt.Stringer
	Write(e *dicomio.Writer) error
}

func encodeSubItemHeader(e *dicomio.Writer, itemType ItemType, length uint16) error {
	if err := e.WriteUInt8(byte(itemType)); err != nil {
		return err
	}
	if err := e.WriteZeros(1); err != nil {
		return err
	}
	return e.WriteUInt16(length)
}

func decodeSubItemHeader(d *dicomio.Reader) (ItemType, uint16, error) {
	t, err := d.ReadUInt8()
	if err != nil {
		return 0, 0, err
	}
	d.Skip(1)
	length, err := d.ReadUInt16()
	if err != nil {
		return 0, 0, err
	}
	return ItemType(t), length, nil
}

// DecodeSubItem reads one item/sub-item, dispatching on its type byte.
// Unknown sub-item types are preserved verbatim so that round-tripping an
// association negotiation never loses information.
func DecodeSubItem(d *dicomio.Reader) (SubItem, error) {
	itemType, length, err := decodeSubItemHeader(d)
	if err != nil {
		return nil, err
	}
	d.PushLimit(int64(length))
	defer d.PopLimit()
	switch itemType {
	case ItemTypeApplicationContext:
		return decodeSubItemWithName(d, itemType)
	case ItemTypeAbstractSyntax:
		return decodeSubItemWithName(d, itemType)
	case ItemTypeTransferSyntax:
		return decodeSubItemWithName(d, itemType)
	case ItemTypeImplementationClassUID:
		return decodeSubItemWithName(d, itemType)
	case ItemTypeImplementationVersionName:
		return decodeSubItemWithName(d, itemType)
	case ItemTypePresentationContextRequest, ItemTypePresentationContextResponse:
		return decodePresentationContextItem(d, itemType)
	case ItemTypeUserInformation:
		return decodeUserInformationItem(d)
	case ItemTypeUserInformationMaximumLength:
		return decodeUserInformationMaximumLengthItem(d)
	case ItemTypeAsynchronousOperationsWindow:
		return decodeAsynchronousOperationsWindowSubItem(d)
	case ItemTypeRoleSelection:
		return decodeRoleSelectionSubItem(d)
	case ItemTypeSOPClassExtendedNegotiation:
		return decodeSOPClassExtendedNegotiationSubItem(d, length)
	default:
		bytes, err := d.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		return &SubItemUnsupported{Type: itemType, Data: bytes}, nil
	}
}

// SubItemListString renders a list of sub-items for debug printing.
func SubItemListString(items []SubItem) string {
	var b strings.Builder
	b.WriteString("[")
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item.String())
	}
	b.WriteString("]")
	return b.String()
}

// subItemWithName covers the simple UID/name sub-items: application
// context, abstract syntax, transfer syntax, implementation class UID and
// implementation version name.
type subItemWithName struct {
	Type ItemType
	Name string
}

func (s *subItemWithName) Write(e *dicomio.Writer) error {
	return encodeSubItemWithName(e, s.Type, s.Name)
}

func (s *subItemWithName) String() string {
	return fmt.Sprintf("%s", s.Name)
}

func encodeSubItemWithName(e *dicomio.Writer, itemType ItemType, name string) error {
	if err := encodeSubItemHeader(e, itemType, uint16(len(name))); err != nil {
		return err
	}
	return e.WriteString(name)
}

func decodeSubItemWithNameRaw(d *dicomio.Reader) (string, error) {
	var b bytes.Buffer
	for !d.IsLimitExhausted() {
		c, err := d.ReadUInt8()
		if err != nil {
			break
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func decodeSubItemWithName(d *dicomio.Reader, itemType ItemType) (SubItem, error) {
	name, err := decodeSubItemWithNameRaw(d)
	if err != nil {
		return nil, err
	}
	switch itemType {
	case ItemTypeApplicationContext:
		return &ApplicationContextItem{subItemWithName{Type: itemType, Name: name}}, nil
	case ItemTypeAbstractSyntax:
		return &AbstractSyntaxSubItem{subItemWithName{Type: itemType, Name: name}}, nil
	case ItemTypeTransferSyntax:
		return &TransferSyntaxSubItem{subItemWithName{Type: itemType, Name: name}}, nil
	case ItemTypeImplementationClassUID:
		return &ImplementationClassUIDSubItem{subItemWithName{Type: itemType, Name: name}}, nil
	case ItemTypeImplementationVersionName:
		return &ImplementationVersionNameSubItem{subItemWithName{Type: itemType, Name: name}}, nil
	default:
		return nil, fmt.Errorf("pdu_item: unexpected name item type 0x%x", itemType)
	}
}

// ApplicationContextItem names the DICOM application context negotiated on
// every association.
type ApplicationContextItem struct{ subItemWithName }

func NewApplicationContextItem() *ApplicationContextItem {
	return &ApplicationContextItem{subItemWithName{Type: ItemTypeApplicationContext, Name: DICOMApplicationContextItemName}}
}

// AbstractSyntaxSubItem names one proposed/accepted SOP class (abstract
// syntax) UID within a presentation context.
type AbstractSyntaxSubItem struct{ subItemWithName }

func NewAbstractSyntaxSubItem(name string) *AbstractSyntaxSubItem {
	return &AbstractSyntaxSubItem{subItemWithName{Type: ItemTypeAbstractSyntax, Name: name}}
}

// TransferSyntaxSubItem names one proposed/accepted transfer syntax UID.
type TransferSyntaxSubItem struct{ subItemWithName }

func NewTransferSyntaxSubItem(name string) *TransferSyntaxSubItem {
	return &TransferSyntaxSubItem{subItemWithName{Type: ItemTypeTransferSyntax, Name: name}}
}

// ImplementationClassUIDSubItem identifies the peer's software.
type ImplementationClassUIDSubItem struct{ subItemWithName }

func NewImplementationClassUIDSubItem(name string) *ImplementationClassUIDSubItem {
	return &ImplementationClassUIDSubItem{subItemWithName{Type: ItemTypeImplementationClassUID, Name: name}}
}

// ImplementationVersionNameSubItem is an optional free-text version string.
type ImplementationVersionNameSubItem struct{ subItemWithName }

func NewImplementationVersionNameSubItem(name string) *ImplementationVersionNameSubItem {
	return &ImplementationVersionNameSubItem{subItemWithName{Type: ItemTypeImplementationVersionName, Name: name}}
}

// PresentationContextResult enumerates the outcome of negotiating one
// presentation context. P3.8 Table 9-18.
type PresentationContextResult byte

const (
	PresentationContextAccepted                                     PresentationContextResult = 0
	PresentationContextUserRejection                                PresentationContextResult = 1
	PresentationContextProviderRejectionNoReason                    PresentationContextResult = 2
	PresentationContextProviderRejectionAbstractSyntaxNotSupported  PresentationContextResult = 3
	PresentationContextProviderRejectionTransferSyntaxNotSupported  PresentationContextResult = 4
)

// PresentationContextItem is both the RQ and AC variants; Type
// distinguishes them, and Result is meaningful only for the AC variant.
type PresentationContextItem struct {
	Type      ItemType
	ContextID byte
	Result    PresentationContextResult
	Items     []SubItem
}

func NewPresentationContextItem(itemType ItemType, contextID byte, items []SubItem) *PresentationContextItem {
	return &PresentationContextItem{Type: itemType, ContextID: contextID, Items: items}
}

func decodePresentationContextItem(d *dicomio.Reader, itemType ItemType) (*PresentationContextItem, error) {
	v := &PresentationContextItem{Type: itemType}
	var err error
	contextID, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	v.ContextID = contextID
	d.Skip(1)
	result, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	v.Result = PresentationContextResult(result)
	d.Skip(1)
	for !d.IsLimitExhausted() {
		item, err := DecodeSubItem(d)
		if err != nil {
			break
		}
		v.Items = append(v.Items, item)
	}
	if v.ContextID%2 != 1 {
		return nil, fmt.Errorf("pdu_item: PresentationContextItem ContextID %d must be odd", v.ContextID)
	}
	return v, nil
}

func (v *PresentationContextItem) Write(e *dicomio.Writer) error {
	var buf bytes.Buffer
	sub := dicomio.NewWriter(&buf, binary.BigEndian, false)
	for _, item := range v.Items {
		if err := item.Write(sub); err != nil {
			return err
		}
	}
	payload := buf.Bytes()
	if err := encodeSubItemHeader(e, v.Type, uint16(4+len(payload))); err != nil {
		return err
	}
	if err := e.WriteUInt8(v.ContextID); err != nil {
		return err
	}
	if err := e.WriteZeros(1); err != nil {
		return err
	}
	if err := e.WriteUInt8(byte(v.Result)); err != nil {
		return err
	}
	if err := e.WriteZeros(1); err != nil {
		return err
	}
	return e.WriteBytes(payload)
}

func (v *PresentationContextItem) String() string {
	return fmt.Sprintf("PresentationContext{id:%d result:%d items:%s}", v.ContextID, v.Result, SubItemListString(v.Items))
}

// UserInformationItem wraps the user-information sub-items: max-length,
// implementation identification, role selection and extended negotiation.
type UserInformationItem struct {
	Items []SubItem
}

func (v *UserInformationItem) Write(e *dicomio.Writer) error {
	var buf bytes.Buffer
	sub := dicomio.NewWriter(&buf, binary.BigEndian, false)
	for _, item := range v.Items {
		if err := item.Write(sub); err != nil {
			return err
		}
	}
	payload := buf.Bytes()
	if err := encodeSubItemHeader(e, ItemTypeUserInformation, uint16(len(payload))); err != nil {
		return err
	}
	return e.WriteBytes(payload)
}

func (v *UserInformationItem) String() string {
	return fmt.Sprintf("UserInformation%s", SubItemListString(v.Items))
}

func decodeUserInformationItem(d *dicomio.Reader) (*UserInformationItem, error) {
	v := &UserInformationItem{}
	for !d.IsLimitExhausted() {
		item, err := DecodeSubItem(d)
		if err != nil {
			break
		}
		v.Items = append(v.Items, item)
	}
	return v, nil
}

// UserInformationMaximumLengthItem (0x51) advertises the sender's maximum
// PDU length.
type UserInformationMaximumLengthItem struct {
	MaximumLengthReceived uint32
}

func (v *UserInformationMaximumLengthItem) Write(e *dicomio.Writer) error {
	if err := encodeSubItemHeader(e, ItemTypeUserInformationMaximumLength, 4); err != nil {
		return err
	}
	return e.WriteUInt32(v.MaximumLengthReceived)
}

func (v *UserInformationMaximumLengthItem) String() string {
	return fmt.Sprintf("MaximumLengthReceived{%d}", v.MaximumLengthReceived)
}

func decodeUserInformationMaximumLengthItem(d *dicomio.Reader) (*UserInformationMaximumLengthItem, error) {
	length, err := d.ReadUInt32()
	if err != nil {
		return nil, err
	}
	return &UserInformationMaximumLengthItem{MaximumLengthReceived: length}, nil
}

// AsynchronousOperationsWindowSubItem (0x53) negotiates the number of
// outstanding asynchronous operations. Not used beyond an echo of the
// proposal; async-ops behavior itself is out of scope.
type AsynchronousOperationsWindowSubItem struct {
	MaxOpsInvoked  uint16
	MaxOpsPerformed uint16
}

func (v *AsynchronousOperationsWindowSubItem) Write(e *dicomio.Writer) error {
	if err := encodeSubItemHeader(e, ItemTypeAsynchronousOperationsWindow, 4); err != nil {
		return err
	}
	if err := e.WriteUInt16(v.MaxOpsInvoked); err != nil {
		return err
	}
	return e.WriteUInt16(v.MaxOpsPerformed)
}

func (v *AsynchronousOperationsWindowSubItem) String() string {
	return fmt.Sprintf("AsyncOpsWindow{invoked:%d performed:%d}", v.MaxOpsInvoked, v.MaxOpsPerformed)
}

func decodeAsynchronousOperationsWindowSubItem(d *dicomio.Reader) (*AsynchronousOperationsWindowSubItem, error) {
	invoked, err := d.ReadUInt16()
	if err != nil {
		return nil, err
	}
	performed, err := d.ReadUInt16()
	if err != nil {
		return nil, err
	}
	return &AsynchronousOperationsWindowSubItem{MaxOpsInvoked: invoked, MaxOpsPerformed: performed}, nil
}

// RoleSelectionSubItem (0x54) negotiates SCU/SCP role for one abstract
// syntax.
type RoleSelectionSubItem struct {
	SOPClassUID string
	SCURole     byte
	SCPRole     byte
}

func (v *RoleSelectionSubItem) Write(e *dicomio.Writer) error {
	length := uint16(2 + len(v.SOPClassUID) + 2)
	if err := encodeSubItemHeader(e, ItemTypeRoleSelection, length); err != nil {
		return err
	}
	if err := e.WriteUInt16(uint16(len(v.SOPClassUID))); err != nil {
		return err
	}
	if err := e.WriteString(v.SOPClassUID); err != nil {
		return err
	}
	if err := e.WriteUInt8(v.SCURole); err != nil {
		return err
	}
	return e.WriteUInt8(v.SCPRole)
}

func (v *RoleSelectionSubItem) String() string {
	return fmt.Sprintf("RoleSelection{sopClass:%s scu:%d scp:%d}", v.SOPClassUID, v.SCURole, v.SCPRole)
}

func decodeRoleSelectionSubItem(d *dicomio.Reader) (*RoleSelectionSubItem, error) {
	uidLen, err := d.ReadUInt16()
	if err != nil {
		return nil, err
	}
	uid, err := d.ReadString(uint32(uidLen))
	if err != nil {
		return nil, err
	}
	scu, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	scp, err := d.ReadUInt8()
	if err != nil {
		return nil, err
	}
	return &RoleSelectionSubItem{SOPClassUID: uid, SCURole: scu, SCPRole: scp}, nil
}

// SOPClassExtendedNegotiationSubItem (0x56) carries SOP-class-specific
// application information as opaque bytes alongside the related SOP class
// UID. The application-information payload is not interpreted by this
// layer.
type SOPClassExtendedNegotiationSubItem struct {
	SOPClassUID         string
	ApplicationInfo     []byte
}

func (v *SOPClassExtendedNegotiationSubItem) Write(e *dicomio.Writer) error {
	length := uint16(2 + len(v.SOPClassUID) + len(v.ApplicationInfo))
	if err := encodeSubItemHeader(e, ItemTypeSOPClassExtendedNegotiation, length); err != nil {
		return err
	}
	if err := e.WriteUInt16(uint16(len(v.SOPClassUID))); err != nil {
		return err
	}
	if err := e.WriteString(v.SOPClassUID); err != nil {
		return err
	}
	return e.WriteBytes(v.ApplicationInfo)
}

func (v *SOPClassExtendedNegotiationSubItem) String() string {
	return fmt.Sprintf("SOPClassExtendedNegotiation{sopClass:%s info:%d bytes}", v.SOPClassUID, len(v.ApplicationInfo))
}

func decodeSOPClassExtendedNegotiationSubItem(d *dicomio.Reader, length uint16) (*SOPClassExtendedNegotiationSubItem, error) {
	uidLen, err := d.ReadUInt16()
	if err != nil {
		return nil, err
	}
	uid, err := d.ReadString(uint32(uidLen))
	if err != nil {
		return nil, err
	}
	remaining := int(length) - 2 - int(uidLen)
	if remaining < 0 {
		remaining = 0
	}
	info, err := d.ReadBytes(remaining)
	if err != nil {
		return nil, err
	}
	return &SOPClassExtendedNegotiationSubItem{SOPClassUID: uid, ApplicationInfo: info}, nil
}

// SubItemUnsupported preserves an unrecognized sub-item's raw bytes so it
// survives a decode/encode round trip unchanged.
type SubItemUnsupported struct {
	Type ItemType
	Data []byte
}

func (v *SubItemUnsupported) Write(e *dicomio.Writer) error {
	if err := encodeSubItemHeader(e, v.Type, uint16(len(v.Data))); err != nil {
		return err
	}
	return e.WriteBytes(v.Data)
}

func (v *SubItemUnsupported) String() string {
	return fmt.Sprintf("SubItemUnsupported{type:0x%x len:%d}", byte(v.Type), len(v.Data))
}
