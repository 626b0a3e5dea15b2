package scrobble

// Play is one track play ready for submission.
type Play struct {
	Artist   string
	Title    string
	Album    string
	Duration int64 // seconds
	PlayedAt int64 // unix seconds, start of play
}
