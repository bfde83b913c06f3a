// Package commandset defines the DICOM command-group (group 0000) tag
// dictionary used by the dimse package to build and parse command sets.
package commandset

import "github.com/suyashkumar/dicom/pkg/tag"

var (
	CommandGroupLength                   = tag.Tag{Group: 0x0000, Element: 0x0000}
	AffectedSOPClassUID                  = tag.Tag{Group: 0x0000, Element: 0x0002}
	RequestedSOPClassUID                 = tag.Tag{Group: 0x0000, Element: 0x0003}
	CommandField                         = tag.Tag{Group: 0x0000, Element: 0x0100}
	MessageID                            = tag.Tag{Group: 0x0000, Element: 0x0110}
	MessageIDBeingRespondedTo            = tag.Tag{Group: 0x0000, Element: 0x0120}
	MoveDestination                      = tag.Tag{Group: 0x0000, Element: 0x0600}
	Priority                             = tag.Tag{Group: 0x0000, Element: 0x0700}
	CommandDataSetType                   = tag.Tag{Group: 0x0000, Element: 0x0800}
	Status                               = tag.Tag{Group: 0x0000, Element: 0x0900}
	AffectedSOPInstanceUID               = tag.Tag{Group: 0x0000, Element: 0x1000}
	RequestedSOPInstanceUID              = tag.Tag{Group: 0x0000, Element: 0x1001}
	MoveOriginatorApplicationEntityTitle = tag.Tag{Group: 0x0000, Element: 0x1030}
	MoveOriginatorMessageID              = tag.Tag{Group: 0x0000, Element: 0x1031}
	NumberOfRemainingSuboperations       = tag.Tag{Group: 0x0000, Element: 0x1020}
	NumberOfCompletedSuboperations       = tag.Tag{Group: 0x0000, Element: 0x1021}
	NumberOfFailedSuboperations          = tag.Tag{Group: 0x0000, Element: 0x1022}
	NumberOfWarningSuboperations         = tag.Tag{Group: 0x0000, Element: 0x1023}
	ErrorComment                         = tag.Tag{Group: 0x0000, Element: 0x0902}
	ErrorID                              = tag.Tag{Group: 0x0000, Element: 0x0903}
)
