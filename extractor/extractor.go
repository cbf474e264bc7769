// Package extractor drives a full gzip extraction: it owns the file
// handles, runs the decode, reports progress while it happens, and cleans
// up after failures.
package extractor

import (
	"bufio"
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/puff/config"
	"github.com/dselans/puff/gunzip"
)

type Extractor struct {
	cfg *config.Config
	log *logrus.Entry
}

type result struct {
	summary *gunzip.Summary
	err     error
}

func New(cfg *config.Config) (*Extractor, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "error validating config")
	}

	return &Extractor{
		cfg: cfg,
		log: logrus.WithField("pkg", "extractor"),
	}, nil
}

// Run decompresses the configured input file. The decode itself is
// synchronous and single-threaded; the goroutine here only exists so that
// progress can be reported and shutdown honored while it works.
func (e *Extractor) Run(shutdownCtx context.Context) error {
	llog := e.log.WithFields(logrus.Fields{
		"method": "Run",
	})
	llog.Debug("start")
	defer llog.Debug("exit")

	in, err := os.Open(e.cfg.CLI.InputFile)
	if err != nil {
		return errors.Wrap(err, "unable to open input file")
	}
	defer in.Close()

	out, outPath, err := e.openOutput()
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(out, e.cfg.TOML.Config.BufferSize)
	pw := newProgressWriter(bw)

	resCh := make(chan result, 1)

	go func() {
		summary, err := gunzip.Decompress(in, pw)
		resCh <- result{summary: summary, err: err}
	}()

	res, err := e.wait(shutdownCtx, pw, resCh)
	if err == nil {
		err = bw.Flush()
	}

	if closeErr := e.closeOutput(out); err == nil {
		err = closeErr
	}

	if err != nil {
		e.removePartialOutput(outPath)
		return err
	}

	e.displaySummary(res.summary, pw.Count())

	return nil
}

// wait blocks until the decode finishes or the shutdown context fires,
// reporting progress at the configured interval in the meantime.
func (e *Extractor) wait(shutdownCtx context.Context, pw *progressWriter, resCh <-chan result) (*result, error) {
	llog := e.log.WithFields(logrus.Fields{
		"method": "wait",
	})

	// The reporter should stop as soon as the decode is done, not when the
	// process shuts down.
	reportCtx, reportCancel := context.WithCancel(shutdownCtx)
	defer reportCancel()

	reportCh := e.startReporter(reportCtx, pw)

	for {
		select {
		case <-shutdownCtx.Done():
			llog.Debug("received shutdown signal")

			// The decode has no cancellation primitive; abandoning the run
			// and discarding its output is the defined way to stop it.
			return nil, errors.New("extraction aborted by shutdown signal")
		case <-reportCh:
			llog.Infof("progress: '%d' bytes written", pw.Count())
		case res := <-resCh:
			if res.err != nil {
				return nil, errors.Wrap(res.err, "error during decompress")
			}

			return &res, nil
		}
	}
}

func (e *Extractor) displaySummary(s *gunzip.Summary, written int64) {
	if e.cfg.CLI.Quiet {
		return
	}

	e.log.Infof("decompressed '%d' bytes to '%d' bytes", s.CompressedSize, s.UncompressedSize)
	e.log.Infof("crc32: %08x", s.CRC32)

	if s.Header.Name != "" {
		e.log.Infof("original name: %s", s.Header.Name)
	}

	if s.Header.Comment != "" {
		e.log.Infof("comment: %s", s.Header.Comment)
	}

	if !s.Header.ModTime.IsZero() {
		e.log.Infof("last modified: %s", s.Header.ModTime)
	}

	e.log.Infof("operating system: %s", s.Header.OSName())

	if written != s.UncompressedSize {
		// Both counters watched the same writer; disagreement means a bug.
		e.log.Warnf("written byte count '%d' does not match summary '%d'", written, s.UncompressedSize)
	}
}
