// Command echoscu verifies connectivity to a remote Application Entity by
// sending a single C-ECHO-RQ and reporting its response. Mirrors the
// single-purpose SCU commands shown by flatmapit-crgodicom's cmd/ layout
// and netdicom/examples/echoscu.py (see original_source/ in the retrieval
// pack for the originating script's flag shape).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/giesekow/go-netdicom"
	"github.com/giesekow/go-netdicom/sopclass"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "echoscu",
		Usage: "verify connectivity to a remote DICOM Application Entity",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "aet", Value: "ECHOSCU", Usage: "calling AE title"},
			&cli.StringFlag{Name: "called-aet", Required: true, Usage: "called AE title"},
			&cli.StringFlag{Name: "host", Required: true, Usage: "remote host"},
			&cli.IntFlag{Name: "port", Required: true, Usage: "remote port"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("echoscu failed")
	}
}

func run(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	ae := netdicom.NewAE(c.String("aet"), 0, []sopclass.SOPUID{sopclass.Verification}, nil)
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

	logrus.WithFields(logrus.Fields{
		"called_aet": c.String("called-aet"),
		"host":       c.String("host"),
		"port":       c.Int("port"),
	}).Info("association established")

	rsp, err := assoc.Echo(c.Duration("timeout"))
	if err != nil {
		return fmt.Errorf("C-ECHO failed: %w", err)
	}

	logrus.WithField("status", fmt.Sprintf("0x%04X", uint16(rsp.Status.Status))).Info("C-ECHO-RSP received")
	if rsp.Status.Status != 0 {
		return fmt.Errorf("remote AE returned non-success status 0x%04X", uint16(rsp.Status.Status))
	}
	fmt.Println("echo ok")
	return nil
}
