// Debug tool that dumps the decoded contents of a device's iTunes
// directory: the track catalog and, when present, the play counts.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aboyet/scrobblepod/internal/ipod"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: dbdump <device iTunes directory>")
	}

	dev, err := ipod.Probe(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to probe device: %v", err)
	}
	log.Printf("Device directory: %s (shuffle=%v)", dev.Dir, dev.Shuffle)

	tracks, err := dev.ReadCatalog()
	if err != nil {
		log.Fatalf("Failed to parse catalog: %v", err)
	}
	log.Printf("Catalog: %s tracks", humanize.Comma(int64(len(tracks))))
	for i, t := range tracks {
		log.Printf("  [%d] id=%d %s - %s (%s) %s",
			i, t.ID, t.Artist, t.Title, t.Album,
			time.Duration(t.DurationSeconds)*time.Second)
	}

	counts, err := dev.ReadPlayCounts(time.Now())
	if err != nil {
		log.Printf("No play counts: %v", err)
		return
	}
	log.Printf("Play counts: %d entries (synthetic=%v)", len(counts.Entries), counts.Synthetic)
	for _, e := range counts.Entries {
		line := ""
		if e.Index < len(tracks) {
			line = tracks[e.Index].Title
		}
		if e.EndedAt != 0 {
			log.Printf("  [%d] count=%d ended %s  %s",
				e.Index, e.PlayCount, humanize.Time(time.Unix(e.EndedAt, 0)), line)
		} else {
			log.Printf("  [%d] count=%d  %s", e.Index, e.PlayCount, line)
		}
	}
}
