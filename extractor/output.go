package extractor

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// openOutput resolves and opens the destination. In stdout mode no file is
// created and the returned path is empty.
func (e *Extractor) openOutput() (io.Writer, string, error) {
	if e.cfg.CLI.Stdout {
		return os.Stdout, "", nil
	}

	outPath, err := e.cfg.OutputPath()
	if err != nil {
		return nil, "", err
	}

	if _, err := os.Stat(outPath); err == nil && !e.cfg.CLI.Force {
		return nil, "", errors.Errorf("output file %s already exists (use -f to overwrite)", outPath)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return nil, "", errors.Wrap(err, "unable to create output file")
	}

	return f, outPath, nil
}

func (e *Extractor) closeOutput(w io.Writer) error {
	f, ok := w.(*os.File)
	if !ok || f == os.Stdout {
		return nil
	}

	if err := f.Close(); err != nil {
		return errors.Wrap(err, "unable to close output file")
	}

	return nil
}

// removePartialOutput deletes the output file after a failed run. Output
// produced by a failed decode cannot be trusted, so nothing is kept.
func (e *Extractor) removePartialOutput(outPath string) {
	if outPath == "" {
		return
	}

	if err := os.Remove(outPath); err != nil {
		e.log.Warnf("unable to remove partial output file '%s': %v", outPath, err)
	} else {
		e.log.Debugf("removed partial output file '%s'", outPath)
	}
}

// startReporter emits a tick on the returned channel at the configured
// report interval until ctx is done.
func (e *Extractor) startReporter(ctx context.Context, pw *progressWriter) <-chan time.Time {
	ch := make(chan time.Time)

	go func() {
		ticker := time.NewTicker(e.cfg.CLI.ReportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case ch <- t:
				default:
					// Run loop busy; skip this report rather than block.
				}
			}
		}
	}()

	return ch
}

// progressWriter counts written bytes so the reporter goroutine can read
// progress while the decode goroutine writes.
type progressWriter struct {
	w io.Writer
	n int64
}

func newProgressWriter(w io.Writer) *progressWriter {
	return &progressWriter{w: w}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	atomic.AddInt64(&pw.n, int64(n))

	return n, err
}

func (pw *progressWriter) Count() int64 {
	return atomic.LoadInt64(&pw.n)
}
