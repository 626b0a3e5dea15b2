package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/aboyet/scrobblepod/internal/chunk"
	"github.com/aboyet/scrobblepod/internal/history"
	"github.com/aboyet/scrobblepod/internal/scrobble"
)

// ErrNothingToSubmit is returned when no candidate play is active.
var ErrNothingToSubmit = errors.New("no tracks to submit")

// Progress receives submission progress for display. The handshake
// counts as the first step, each batch as one more.
type Progress interface {
	SetTotalSteps(n int)
	AdvanceStep(i int)
	SetStatusMessage(msg string)
	SetCompleted(done bool)
}

type noopProgress struct{}

func (noopProgress) SetTotalSteps(int) {}

func (noopProgress) AdvanceStep(int) {}

func (noopProgress) SetStatusMessage(string) {}

func (noopProgress) SetCompleted(bool) {}

// Run submits the active candidates in batches. After each successful
// batch its plays are flagged inactive in place and their timestamps
// are flushed to the history, so a failure on batch k leaves batches
// 1..k-1 durably committed and batches k..n untouched and eligible for
// a future run. The first failing batch aborts the run; there are no
// retries.
func Run(ctx context.Context, client *scrobble.Client, plays []CandidatePlay,
	hist *history.History, progress Progress,
) error {
	if progress == nil {
		progress = noopProgress{}
	}

	var active []*CandidatePlay
	for i := range plays {
		if plays[i].Active {
			active = append(active, &plays[i])
		}
	}
	if len(active) == 0 {
		return ErrNothingToSubmit
	}

	batches := chunk.Split(active, scrobble.MaxTracksPerBatch)
	progress.SetTotalSteps(len(batches) + 1)
	progress.SetStatusMessage("beginning handshake")

	if err := client.Handshake(ctx); err != nil {
		progress.SetStatusMessage(err.Error())
		return err
	}
	progress.AdvanceStep(1)
	progress.SetStatusMessage("handshake completed")

	for _, batch := range batches {
		wire := make([]scrobble.Play, 0, batch.Size())
		for _, play := range batch.Items {
			wire = append(wire, scrobble.Play{
				Artist:   play.Artist,
				Title:    play.Title,
				Album:    play.Track.Album,
				Duration: play.Track.DurationSeconds,
				PlayedAt: play.PlayedAt,
			})
		}
		progress.SetStatusMessage(fmt.Sprintf("submitting batch %d of %d", batch.Number, batch.Total))

		if err := client.SubmitBatch(ctx, wire); err != nil {
			progress.SetStatusMessage(err.Error())
			return fmt.Errorf("batch %d of %d: %w", batch.Number, batch.Total, err)
		}

		// Commit the batch before touching the next one: flag the
		// plays inactive and persist their timestamps, so a crash
		// here never resubmits them.
		for _, play := range batch.Items {
			play.Active = false
			play.Track.Active = false
			hist.Add(play.PlayedAt)
		}
		if err := hist.Write(); err != nil {
			return err
		}
		progress.AdvanceStep(batch.Number + 1)
	}

	progress.SetStatusMessage("done, you may now sync the device")
	progress.SetCompleted(true)
	return nil
}
