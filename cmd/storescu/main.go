// Command storescu sends one or more DICOM files to a remote Application
// Entity via C-STORE. Dataset encoding is delegated to
// github.com/suyashkumar/dicom per spec.md §1's external-collaborator
// boundary; this command only negotiates the association and frames the
// already-encoded dataset bytes. Grounded on the antibios/go-netdicom
// C-STORE helper's writer-reuse pattern (see DESIGN.md).
package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/giesekow/go-netdicom"
	"github.com/giesekow/go-netdicom/sopclass"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "storescu",
		Usage: "send DICOM files to a remote Application Entity via C-STORE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "aet", Value: "STORESCU", Usage: "calling AE title"},
			&cli.StringFlag{Name: "called-aet", Required: true},
			&cli.StringFlag{Name: "host", Required: true},
			&cli.IntFlag{Name: "port", Required: true},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		ArgsUsage: "FILE [FILE...]",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("storescu failed")
	}
}

func run(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	files := c.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("storescu: at least one DICOM file is required")
	}

	ae := netdicom.NewAE(c.String("aet"), 0, sopclass.StorageClasses, nil)
	ae.Timeout = c.Duration("timeout")

	assoc, err := ae.RequestAssociation(netdicom.RemoteAE{
		Host:    c.String("host"),
		Port:    c.Int("port"),
		AETitle: c.String("called-aet"),
	})
	if err != nil {
		return fmt.Errorf("association failed: %w", err)
	}
	defer assoc.Release()

	for _, path := range files {
		if err := sendOne(assoc, path, c.Duration("timeout")); err != nil {
			logrus.WithError(err).WithField("file", path).Error("C-STORE failed")
			return err
		}
	}
	return nil
}

func sendOne(assoc *netdicom.Association, path string, timeout time.Duration) error {
	dataset, err := dicom.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	sopClassUID, err := elementString(dataset, tag.SOPClassUID)
	if err != nil {
		return err
	}
	sopInstanceUID, err := elementString(dataset, tag.SOPInstanceUID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w, err := dicom.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("build writer for %s: %w", path, err)
	}
	w.SetTransferSyntax(binary.LittleEndian, true)
	for _, elem := range dataset.Elements {
		if elem.Tag.Group == 0x0002 {
			continue // file meta information is not part of the wire dataset
		}
		if err := w.WriteElement(elem); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}

	rsp, err := assoc.Store(sopClassUID, sopInstanceUID, buf.Bytes(), timeout)
	if err != nil {
		return fmt.Errorf("C-STORE %s: %w", path, err)
	}
	logrus.WithFields(logrus.Fields{
		"file":   path,
		"sop":    sopInstanceUID,
		"status": fmt.Sprintf("0x%04X", uint16(rsp.Status.Status)),
	}).Info("C-STORE-RSP received")
	if rsp.Status.Status != 0 {
		return fmt.Errorf("remote AE rejected %s with status 0x%04X", path, uint16(rsp.Status.Status))
	}
	return nil
}

func elementString(ds dicom.Dataset, t tag.Tag) (string, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return "", fmt.Errorf("dataset lacks %s: %w", t.String(), err)
	}
	vals, ok := elem.Value.GetValue().([]string)
	if !ok || len(vals) == 0 {
		return "", fmt.Errorf("dataset element %s has no string value", t.String())
	}
	return vals[0], nil
}
