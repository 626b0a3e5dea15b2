// Package pipeline joins the parsed device databases and the
// submission history into candidate plays, and drives their batched
// submission.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/aboyet/scrobblepod/internal/history"
	"github.com/aboyet/scrobblepod/internal/ipod"
)

// CandidatePlay is one play resolved against the catalog and history:
// credits are final (compilation split applied) and PlayedAt is the
// normalized unix start-of-play time.
type CandidatePlay struct {
	Track    ipod.Track
	Artist   string
	Title    string
	PlayedAt int64
	// Active marks plays eligible for submission. Plays found in the
	// history stay in the list for display but are never resubmitted.
	Active bool
}

// Options controls reconciliation.
type Options struct {
	// ExpandMultiPlay synthesizes one candidate per repeat play, so a
	// device count of N yields N single-play candidates.
	ExpandMultiPlay bool
	// VariousArtistMarkers is the compilation marker set for credit
	// resolution. Empty disables the split.
	VariousArtistMarkers []string
}

// Reconcile joins catalog records with play-count entries by record
// index and suppresses plays already in the history. The result is
// sorted ascending by play time (stable, ties keep encounter order);
// the service rejects non-monotonic timestamps.
//
// For synthetic play counts (shuffle devices) timestamps are
// reconstructed by walking backward from now, one track duration per
// play, as if everything had been played back to back ending now. The
// clock is cumulative across entries and repeat plays.
func Reconcile(tracks []ipod.Track, counts ipod.PlayCounts, hist *history.History,
	opts Options, now time.Time,
) ([]CandidatePlay, error) {
	var plays []CandidatePlay
	clock := now.Unix()

	for _, entry := range counts.Entries {
		if entry.Index < 0 || entry.Index >= len(tracks) {
			return nil, fmt.Errorf(
				"play entry %d outside catalog of %d tracks", entry.Index, len(tracks))
		}
		track := tracks[entry.Index]
		artist, title := track.ResolveCredits(opts.VariousArtistMarkers)

		var playedAt int64
		active := true
		if counts.Synthetic {
			clock -= track.DurationSeconds
			playedAt = clock
		} else {
			// Stored timestamps mark the end of playback.
			playedAt = entry.EndedAt - track.DurationSeconds
			if hist != nil && hist.Contains(playedAt) {
				active = false
			}
		}

		base := CandidatePlay{
			Track:    track,
			Artist:   artist,
			Title:    title,
			PlayedAt: playedAt,
			Active:   active,
		}
		base.Track.PlayCount = entry.PlayCount
		base.Track.LastPlayedAt = playedAt
		base.Track.Active = active

		if !opts.ExpandMultiPlay || entry.PlayCount <= 1 {
			plays = append(plays, base)
			continue
		}

		// One candidate per play, each counted exactly once. Repeat
		// plays inherit the base play's active flag.
		base.Track.PlayCount = 1
		plays = append(plays, base)
		for i := int64(1); i < entry.PlayCount; i++ {
			repeat := base
			if counts.Synthetic {
				clock -= track.DurationSeconds
				repeat.PlayedAt = clock
			} else {
				repeat.PlayedAt = playedAt + i*track.DurationSeconds
			}
			repeat.Track.LastPlayedAt = repeat.PlayedAt
			plays = append(plays, repeat)
		}
	}

	sort.SliceStable(plays, func(i, j int) bool {
		return plays[i].PlayedAt < plays[j].PlayedAt
	})
	return plays, nil
}

// Load parses both device databases and reconciles them. Catalog order
// is the index space the play-count database correlates against, so
// the track list is consumed exactly as parsed.
func Load(dev ipod.Device, hist *history.History, opts Options, now time.Time,
) ([]CandidatePlay, error) {
	tracks, err := dev.ReadCatalog()
	if err != nil {
		return nil, err
	}
	counts, err := dev.ReadPlayCounts(now)
	if err != nil {
		return nil, err
	}
	return Reconcile(tracks, counts, hist, opts, now)
}
