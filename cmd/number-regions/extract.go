package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/number-regions/internal/config"
	"github.com/ironsheep/number-regions/internal/extractor"
	"github.com/ironsheep/number-regions/internal/store"
)

// regionSink receives the regions of one extracted image.
type regionSink interface {
	Save(ctx context.Context, path string, res *extractor.Result) error
}

// fileSink writes region_<name>_<index>.png files into Dir.
type fileSink struct {
	Dir string
}

func regionFileName(imagePath string, index int) string {
	name := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	return fmt.Sprintf("region_%s_%d.png", name, index)
}

func (s fileSink) Save(ctx context.Context, path string, res *extractor.Result) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	for _, r := range res.Regions {
		out := filepath.Join(s.Dir, regionFileName(path, r.Index))
		if err := os.WriteFile(out, r.PNG, 0o644); err != nil {
			return errors.Wrapf(err, "write %s", out)
		}
	}
	return nil
}

// dbSink stores regions through a RegionRepo.
type dbSink struct {
	Repo *store.RegionRepo
}

func (s dbSink) Save(ctx context.Context, path string, res *extractor.Result) error {
	id, err := s.Repo.CreateImage(ctx, path)
	if err != nil {
		return err
	}
	return s.Repo.SaveRegions(ctx, id, res.Regions)
}

type extractFlags struct {
	outDir  string
	workers int
	persist bool
}

func newExtractCmd(a *app) *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Extract number regions from image files",
		Long: `Extract runs the region pipeline on each file and writes every region as
region_<name>_<index>.png, or stores the regions in PostgreSQL with --persist.

Examples:
  number-regions extract scan.png
  number-regions extract pages/*.png --workers 4 --out regions
  number-regions extract scan.jpg --persist`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd.Context(), cmd.OutOrStdout(), args, f)
		},
	}
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "directory for region PNGs (overrides NUMBER_REGIONS_OUTPUT_DIR)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "parallel extractions (overrides NUMBER_REGIONS_WORKERS)")
	cmd.Flags().BoolVar(&f.persist, "persist", false, "store regions in PostgreSQL instead of writing files")
	return cmd
}

func (a *app) runExtract(ctx context.Context, stdout io.Writer, paths []string, f extractFlags) error {
	ex, err := a.newExtractor()
	if err != nil {
		return err
	}

	workers := a.cfg.Workers
	if f.workers > 0 {
		workers = f.workers
	}

	var sink regionSink
	if f.persist {
		db, err := openStore(ctx, a.cfg, a.log)
		if err != nil {
			return err
		}
		defer db.Close()
		sink = dbSink{Repo: store.NewRegionRepo(db)}
	} else {
		dir := a.cfg.OutputDir
		if f.outDir != "" {
			dir = f.outDir
		}
		sink = fileSink{Dir: dir}
	}

	var (
		mu     sync.Mutex
		failed int
	)
	err = ex.ExtractAll(ctx, paths, workers, func(path string, res *extractor.Result, err error) error {
		if err == nil {
			err = sink.Save(ctx, path, res)
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed++
			a.log.WithError(err).WithField("image", path).Error("extraction failed")
			return nil
		}
		fmt.Fprintf(stdout, "%s: %d regions", path, len(res.Regions))
		if res.FallbackUsed {
			fmt.Fprint(stdout, " (fallback)")
		}
		fmt.Fprintln(stdout)
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return errors.Errorf("%d of %d images failed", failed, len(paths))
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*sql.DB, error) {
	log.WithField("dsn", config.SafeDSN(cfg.DatabaseURL)).Info("connecting to database")
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.NewRegionRepo(db).Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrap(err, "--timeout")
	}
	if d < 0 {
		return 0, errors.Errorf("--timeout: negative duration %s", d)
	}
	return d, nil
}
