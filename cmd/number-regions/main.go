package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/number-regions/internal/config"
	"github.com/ironsheep/number-regions/internal/extractor"
	"github.com/ironsheep/number-regions/internal/ocr"
	"github.com/ironsheep/number-regions/internal/raster"
	"github.com/ironsheep/number-regions/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type app struct {
	cfg *config.Config
	log *logrus.Logger

	language string
	timeout  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{log: logrus.New()}
	// stdout carries the tool protocol and region listings
	a.log.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:   "number-regions",
		Short: "Find image regions that may contain numbers",
		Long: `number-regions locates every region of an image that may hold a printed
or handwritten number and exports each one as a cropped PNG.

Settings come from the environment or a .env file:
  NUMBER_REGIONS_LOG_LEVEL     debug, info, warn or error (default info)
  NUMBER_REGIONS_OCR_LANGUAGE  Tesseract language (default eng)
  NUMBER_REGIONS_OCR_TIMEOUT   per-call OCR timeout (default 30s)
  NUMBER_REGIONS_WORKERS       parallel extractions (default: CPU count)
  NUMBER_REGIONS_OUTPUT_DIR    region PNG directory (default number_regions)
  TESSDATA_PREFIX              Tesseract language data directory
  DATABASE_URL                 PostgreSQL DSN for --persist`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log.SetLevel(cfg.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.language, "language", "l", "", "OCR language (overrides NUMBER_REGIONS_OCR_LANGUAGE)")
	root.PersistentFlags().StringVar(&a.timeout, "timeout", "", "per-call OCR timeout such as 10s (overrides NUMBER_REGIONS_OCR_TIMEOUT)")

	root.AddCommand(newServeCmd(a), newExtractCmd(a), newVersionCmd())
	return root
}

// newExtractor builds the pipeline from config and flag overrides.
func (a *app) newExtractor() (*extractor.Extractor, error) {
	lang := a.cfg.OCRLanguage
	if a.language != "" {
		lang = a.language
	}
	opts := extractor.DefaultOptions()
	opts.OCRTimeout = a.cfg.OCRTimeout
	if a.timeout != "" {
		d, err := parseTimeout(a.timeout)
		if err != nil {
			return nil, err
		}
		opts.OCRTimeout = d
	}
	opts.Logger = a.log

	tess := ocr.NewTesseract(lang, a.cfg.TessdataPrefix)
	info := tess.Info()
	a.log.WithFields(logrus.Fields{
		"ocr":         info.Backend,
		"ocr_version": info.Version,
		"language":    info.Language,
		"raster":      raster.Backend,
		"ocr_timeout": opts.OCRTimeout.String(),
	}).Debug("pipeline configured")
	if !info.Available {
		a.log.Warn("tesseract not available, model detector will report failures")
	}

	return extractor.New(tess, raster.Default(), opts), nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := a.newExtractor()
			if err != nil {
				return err
			}
			server.Version = Version
			a.log.WithField("version", Version).Info("number-regions MCP server starting")
			return server.New(ex, a.log).Run(cmd.Context())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version needs no configuration
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "number-regions %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Raster backend: %s\n", raster.Backend)
		},
	}
}
