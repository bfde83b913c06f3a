// Package sopclass lists the well-known SOP class and transfer syntax UIDs
// used to build an Application Entity's presentation-context proposals.
package sopclass

// SOPUID names one SOP class by UID.
type SOPUID string

const Verification SOPUID = "1.2.840.10008.1.1"

// StorageClasses lists commonly supported storage SOP classes. Real
// deployments register whichever subset they actually persist; this list
// is a reasonable SCU/SCP default.
var StorageClasses = []SOPUID{
	"1.2.840.10008.5.1.4.1.1.1",     // CR Image Storage
	"1.2.840.10008.5.1.4.1.1.2",     // CT Image Storage
	"1.2.840.10008.5.1.4.1.1.4",     // MR Image Storage
	"1.2.840.10008.5.1.4.1.1.6.1",   // Ultrasound Image Storage
	"1.2.840.10008.5.1.4.1.1.7",     // Secondary Capture Image Storage
	"1.2.840.10008.5.1.4.1.1.128",   // PET Image Storage
}

const (
	PatientRootQRFindClass SOPUID = "1.2.840.10008.5.1.4.1.2.1.1"
	PatientRootQRMoveClass SOPUID = "1.2.840.10008.5.1.4.1.2.1.2"
	PatientRootQRGetClass  SOPUID = "1.2.840.10008.5.1.4.1.2.1.3"
	StudyRootQRFindClass   SOPUID = "1.2.840.10008.5.1.4.1.2.2.1"
	StudyRootQRMoveClass   SOPUID = "1.2.840.10008.5.1.4.1.2.2.2"
	StudyRootQRGetClass    SOPUID = "1.2.840.10008.5.1.4.1.2.2.3"
)

// QRFindClasses/QRMoveClasses/QRGetClasses list the query/retrieve SOP
// classes an AE typically supports as an SCU or SCP.
var (
	QRFindClasses = []SOPUID{PatientRootQRFindClass, StudyRootQRFindClass}
	QRMoveClasses = []SOPUID{PatientRootQRMoveClass, StudyRootQRMoveClass}
	QRGetClasses  = []SOPUID{PatientRootQRGetClass, StudyRootQRGetClass}
)

// Transfer syntax UIDs. P3.5 Annex A. These are the three transfer syntaxes
// an AE proposes by default; explicit dataset VR codecs beyond these are
// out of scope.
const (
	ImplicitVRLittleEndian SOPUID = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian SOPUID = "1.2.840.10008.1.2.1"
	ExplicitVRBigEndian    SOPUID = "1.2.840.10008.1.2.2"
)

// DefaultTransferSyntaxes is the transfer syntax proposal list an AE uses
// when the caller does not supply one explicitly.
var DefaultTransferSyntaxes = []string{
	string(ExplicitVRLittleEndian),
	string(ImplicitVRLittleEndian),
	string(ExplicitVRBigEndian),
}
