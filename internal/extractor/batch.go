package extractor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ResultFunc receives the outcome of one file of a batch. It is called from
// worker goroutines and must be safe for concurrent use. Returning an error
// cancels the batch.
type ResultFunc func(path string, res *Result, err error) error

// ExtractAll runs ExtractFile over paths with at most workers runs in
// flight; workers < 1 means one per CPU. Per-file errors are handed to fn,
// not returned. ExtractAll returns the first error returned by fn, or ctx's
// error if ctx ends the batch early.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string, workers int, fn ResultFunc) error {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			res, err := e.ExtractFile(gctx, path)
			return fn(path, res, err)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
