// Package printjob turns a dithered bit plane into a paced packet
// sequence on an established printer link.
package printjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/matheusdanoite/phomemo-go/internal/phomemo"
	"github.com/matheusdanoite/phomemo-go/internal/raster"
)

// ErrAlreadyPrinting is returned by Submit while a job is in flight.
// Jobs are rejected, not queued; callers retry once the link is idle.
var ErrAlreadyPrinting = errors.New("a print job is already in progress")

// Sender is the slice of the link a job needs. BeginJob reserves the
// channel, EndJob releases it, Send pushes one raw packet.
type Sender interface {
	BeginJob() error
	EndJob()
	Send(data []byte) error
}

// Job is one fully rendered print: pre-chunked frames plus the paper
// feed that pushes the output past the tear bar.
type Job struct {
	Frames    []raster.Frame
	FeedLines int
}

// NewJob chunks a bit plane into printable frames. feedLines <= 0
// selects the default advance.
func NewJob(bp *raster.BitPlane, feedLines int) Job {
	if feedLines <= 0 {
		feedLines = phomemo.DefaultFeedLines
	}
	return Job{
		Frames:    raster.Chunk(bp, phomemo.MaxFrameRows),
		FeedLines: feedLines,
	}
}

// Progress is a snapshot of a running job.
type Progress struct {
	FramesSent  int
	FramesTotal int
}

// Executor owns job serialization and pacing. One Executor serves one
// link; Submit from any goroutine.
type Executor struct {
	sender     Sender
	log        *slog.Logger
	frameDelay time.Duration
	onProgress func(Progress)

	active   atomic.Bool
	progress atomic.Value // Progress
}

// NewExecutor builds an executor over sender. frameDelay <= 0 selects
// the default pacing; onProgress may be nil.
func NewExecutor(sender Sender, log *slog.Logger, frameDelay time.Duration, onProgress func(Progress)) *Executor {
	if log == nil {
		log = slog.Default()
	}
	if frameDelay <= 0 {
		frameDelay = phomemo.DefaultFrameDelay
	}
	e := &Executor{
		sender:     sender,
		log:        log,
		frameDelay: frameDelay,
		onProgress: onProgress,
	}
	e.progress.Store(Progress{})
	return e
}

// Printing reports whether a job is currently in flight.
func (e *Executor) Printing() bool {
	return e.active.Load()
}

// Progress returns the latest snapshot; zero totals mean no job has
// run yet.
func (e *Executor) Progress() Progress {
	return e.progress.Load().(Progress)
}

// Submit runs one job to completion: initialize, frames with a fixed
// inter-frame delay, then the paper feed. Cancellation is honored at
// frame boundaries only, so the printer never receives a torn frame.
// The printer does not acknowledge raster data; a clean return means
// every packet was written, not that paper came out.
func (e *Executor) Submit(ctx context.Context, job Job) error {
	if len(job.Frames) == 0 {
		return errors.New("job has no frames")
	}
	if !e.active.CompareAndSwap(false, true) {
		return ErrAlreadyPrinting
	}
	defer e.active.Store(false)

	if err := e.sender.BeginJob(); err != nil {
		return err
	}
	defer e.sender.EndJob()

	total := len(job.Frames)
	e.report(Progress{FramesTotal: total}, true)
	e.log.Info("print job started", "frames", total, "feed_lines", job.FeedLines)

	timer := time.NewTimer(e.frameDelay)
	defer timer.Stop()
	pause := func() error {
		timer.Reset(e.frameDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	if err := e.sender.Send(phomemo.Init()); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := pause(); err != nil {
		return err
	}

	// The delay also covers the gap before the feed: the printer is
	// still draining the last frame when the loop ends.
	for i, frame := range job.Frames {
		if err := e.sender.Send(frame); err != nil {
			return fmt.Errorf("frame %d/%d: %w", i+1, total, err)
		}
		// Observers hear every 5th frame and the last one; the stored
		// snapshot stays per-frame for pollers.
		notify := (i+1)%5 == 0 || i+1 == total
		e.report(Progress{FramesSent: i + 1, FramesTotal: total}, notify)
		if notify {
			e.log.Debug("print progress", "sent", i+1, "total", total,
				"percent", (i+1)*100/total)
		}
		if err := pause(); err != nil {
			e.log.Warn("print job cancelled", "sent", i+1, "total", total)
			return err
		}
	}

	if err := e.sender.Send(phomemo.Feed(job.FeedLines)); err != nil {
		return fmt.Errorf("feed: %w", err)
	}

	e.log.Info("print job finished", "frames", total)
	return nil
}

func (e *Executor) report(p Progress, notify bool) {
	e.progress.Store(p)
	if notify && e.onProgress != nil {
		e.onProgress(p)
	}
}
