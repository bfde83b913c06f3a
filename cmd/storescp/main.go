// Command storescp runs a DICOM storage Application Entity: it accepts
// associations, writes every received C-STORE dataset to disk, and serves
// a management HTTP plane (/healthz, /metrics) alongside the DICOM
// listener, mirroring OtchereDev-ris-dicom-connector's cmd/server/main.go
// shape (config load, structured logging, chi management router,
// signal-driven graceful shutdown).
package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/giesekow/go-netdicom"
	"github.com/giesekow/go-netdicom/audit"
	"github.com/giesekow/go-netdicom/config"
	"github.com/giesekow/go-netdicom/dimse"
	"github.com/giesekow/go-netdicom/directory"
	"github.com/giesekow/go-netdicom/httpadmin"
	"github.com/giesekow/go-netdicom/metrics"
	"github.com/giesekow/go-netdicom/sopclass"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "storescp",
		Usage: "accept DICOM associations and store received instances to disk",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration file path"},
			&cli.StringFlag{Name: "out-dir", Value: "./received", Usage: "directory to write received instances to"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("storescp failed")
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zlog = zlog.Level(lvl)
	}

	if err := os.MkdirAll(c.String("out-dir"), 0o755); err != nil {
		return fmt.Errorf("create out-dir: %w", err)
	}

	metricsRegistry := metrics.NewRegistry()
	auditSink := audit.NewZerologSink(zlog)

	var dir directory.Directory = directory.NewMemoryDirectory()
	if cfg.Directory.Backend == "redis" {
		redisDir, err := directory.NewRedisDirectory(cfg.Directory.RedisURL, "", 0)
		if err != nil {
			return fmt.Errorf("connect directory backend: %w", err)
		}
		dir = redisDir
	}

	ae := netdicom.NewAE(cfg.AE.AETitle, cfg.AE.Port, nil, sopclass.StorageClasses)
	ae.MaxPDUSize = cfg.AE.MaxPDUSize
	ae.Timeout = cfg.AE.Timeout()
	ae.AuditSink = auditSink
	ae.Metrics = metricsRegistry
	ae.Directory = dir
	ae.Handlers.OnReceiveStore = storeHandler(c.String("out-dir"), &zlog)

	if err := ae.Start(); err != nil {
		return fmt.Errorf("start AE: %w", err)
	}
	zlog.Info().Str("ae_title", cfg.AE.AETitle).Int("port", cfg.AE.Port).Msg("storescp listening")

	var admin *httpadmin.Server
	if cfg.Admin.Enabled {
		admin = httpadmin.New(cfg.Admin.Addr, metricsRegistry.Registerer(), func() httpadmin.Status {
			return httpadmin.Status{Listening: ae.IsListening(), ActiveAssociations: ae.ActiveAssociationCount()}
		})
		admin.Start()
		zlog.Info().Str("addr", cfg.Admin.Addr).Msg("management HTTP plane listening")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zlog.Info().Msg("shutting down")
	ae.Quit()
	if admin != nil {
		_ = admin.Shutdown()
	}
	return nil
}

func storeHandler(outDir string, zlog *zerolog.Logger) func(*netdicom.Association, *dimse.CStoreRq, []byte) dimse.Status {
	return func(_ *netdicom.Association, rq *dimse.CStoreRq, data []byte) dimse.Status {
		ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
		if err != nil {
			zlog.Warn().Err(err).Str("sop_instance", rq.AffectedSOPInstanceUID).Msg("failed to parse stored dataset; writing raw bytes")
		}

		name := rq.AffectedSOPInstanceUID
		if name == "" {
			name = fmt.Sprintf("unnamed-%d", dimse.NewMessageID())
		}
		dest := filepath.Join(outDir, name+".dcm")

		var buf bytes.Buffer
		w, werr := dicom.NewWriter(&buf)
		if werr == nil && err == nil {
			w.SetTransferSyntax(binary.LittleEndian, true)
			if sop, e := ds.FindElementByTag(tag.SOPClassUID); e == nil {
				_ = w.WriteElement(sop)
			}
			for _, elem := range ds.Elements {
				_ = w.WriteElement(elem)
			}
		} else {
			buf.Write(data)
		}

		if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
			zlog.Error().Err(err).Str("path", dest).Msg("failed to write received instance")
			return dimse.Status{Status: dimse.CStoreOutOfResources, ErrorComment: err.Error()}
		}
		zlog.Info().Str("path", dest).Str("sop_class", rq.AffectedSOPClassUID).Msg("stored instance")
		return dimse.Success
	}
}
