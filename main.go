package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/aboyet/scrobblepod/internal/config"
	"github.com/aboyet/scrobblepod/internal/history"
	"github.com/aboyet/scrobblepod/internal/ipod"
	"github.com/aboyet/scrobblepod/internal/pipeline"
	"github.com/aboyet/scrobblepod/internal/scrobble"
	"github.com/aboyet/scrobblepod/internal/state"
)

var (
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle   = lipgloss.NewStyle().Bold(true)
)

func main() {
	devicePath := flag.String("device", "", "device iTunes directory (overrides config)")
	dryRun := flag.Bool("dry-run", false, "parse and list candidate plays without submitting")
	wait := flag.Bool("wait", false, "wait for the device to be mounted")
	verbose := flag.Bool("verbose", false, "log protocol traffic")
	flag.Parse()

	if err := run(*devicePath, *dryRun, *wait, *verbose); err != nil {
		if errors.Is(err, scrobble.ErrBadAuth) {
			log.Fatalf("authentication failed, check username/password: %v", err)
		}
		log.Fatal(err)
	}
}

func run(devicePath string, dryRun, wait, verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if devicePath != "" {
		cfg.DevicePath = devicePath
	}
	if cfg.DevicePath == "" {
		return errors.New("no device path: set device_path in config.toml or pass -device")
	}
	if !dryRun {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if wait {
		log.Printf("Waiting for device at %s", cfg.DevicePath)
		if err := ipod.WaitForDevice(ctx, cfg.DevicePath); err != nil {
			return err
		}
	}

	dev, err := ipod.Probe(cfg.DevicePath)
	if err != nil {
		return err
	}
	if dev.Shuffle {
		log.Printf("Shuffle device detected; play times are reconstructed and best-effort")
	}

	// The journal is informational; never fail a run over it.
	journal, err := state.Open()
	if err != nil {
		log.Printf("run journal unavailable: %v", err)
	} else {
		defer journal.Close()
		if last, err := journal.LastRun(dev.Dir); err == nil && last != nil {
			log.Printf("Last run %s: %d tracks in %d batches (%s)",
				humanize.Time(last.FinishedAt), last.TracksSubmitted,
				last.BatchesSubmitted, last.Status)
		}
	}

	hist, err := history.Open(filepath.Join(dev.Dir, history.DefaultFileName))
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		ExpandMultiPlay:      cfg.ExpandMultiPlayEnabled(),
		VariousArtistMarkers: cfg.Markers(),
	}
	plays, err := pipeline.Load(dev, hist, opts, time.Now())
	if err != nil {
		return err
	}

	printPlays(plays)
	if dryRun {
		return nil
	}

	client := scrobble.New(scrobble.Options{
		Username:        cfg.Username,
		PasswordDigest:  cfg.PasswordMD5,
		BackupURL:       cfg.BackupURL,
		HandshakeURL:    cfg.HandshakeURL,
		MinTrackSeconds: cfg.MinTrackSeconds,
		Logf:            protocolLogf(verbose),
	})

	started := time.Now()
	activeBefore := countActive(plays)
	runErr := pipeline.Run(ctx, client, plays, hist, &consoleProgress{})
	if journal != nil {
		submitted := activeBefore - countActive(plays)
		recordRun(journal, dev.Dir, started, submitted, runErr)
	}
	if errors.Is(runErr, pipeline.ErrNothingToSubmit) {
		log.Printf("Nothing to submit")
		return nil
	}
	return runErr
}

func printPlays(plays []pipeline.CandidatePlay) {
	if len(plays) == 0 {
		log.Printf("No plays found on the device")
		return
	}
	for _, p := range plays {
		style := activeStyle
		marker := "+"
		if !p.Active {
			style = inactiveStyle
			marker = "-"
		}
		playedAt := time.Unix(p.PlayedAt, 0).UTC().Format("2006-01-02 15:04:05")
		fmt.Println(style.Render(fmt.Sprintf("%s %s  %s - %s [%s] (%s)",
			marker, playedAt, p.Artist, p.Title, p.Track.Album,
			(time.Duration(p.Track.DurationSeconds) * time.Second).String())))
	}
	log.Printf("%s plays found, %d to submit",
		humanize.Comma(int64(len(plays))), countActive(plays))
}

func countActive(plays []pipeline.CandidatePlay) int {
	n := 0
	for _, p := range plays {
		if p.Active {
			n++
		}
	}
	return n
}

func recordRun(journal *state.Manager, devicePath string, started time.Time,
	submitted int, runErr error,
) {
	status := "ok"
	if runErr != nil {
		status = runErr.Error()
	}
	err := journal.RecordRun(state.Run{
		DevicePath:       devicePath,
		StartedAt:        started,
		FinishedAt:       time.Now(),
		TracksSubmitted:  submitted,
		BatchesSubmitted: (submitted + scrobble.MaxTracksPerBatch - 1) / scrobble.MaxTracksPerBatch,
		Status:           status,
	})
	if err != nil {
		log.Printf("record run: %v", err)
	}
}

func protocolLogf(verbose bool) func(string, ...any) {
	if !verbose {
		return nil
	}
	return log.Printf
}

// consoleProgress prints submission progress, one line per step.
type consoleProgress struct {
	total int
}

func (p *consoleProgress) SetTotalSteps(n int) {
	p.total = n
}

func (p *consoleProgress) AdvanceStep(i int) {
	log.Printf("Step %d/%d", i, p.total)
}

func (p *consoleProgress) SetStatusMessage(msg string) {
	log.Print(statusStyle.Render(msg))
}

func (p *consoleProgress) SetCompleted(done bool) {
	if done {
		log.Print(statusStyle.Render("Submission complete"))
	}
}
