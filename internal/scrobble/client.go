// Package scrobble implements the AudioScrobbler 1.1 submission
// protocol: one authenticated handshake, then one form POST per batch
// of at most ten tracks, with server-directed pacing between posts.
package scrobble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Protocol constants from the submission guidelines.
const (
	// MaxTracksPerBatch is the largest batch the service accepts.
	MaxTracksPerBatch = 10
	// MinTrackSeconds is the shortest track the service counts; shorter
	// plays are dropped from the POST body.
	MinTrackSeconds = 30

	protocolVersion = "1.1"
	clientID        = "apd"
	clientVersion   = "0.1"

	// DefaultHandshakeURL is the fixed handshake endpoint.
	DefaultHandshakeURL = "http://post.audioscrobbler.com/"

	playedAtFormat = "2006-01-02 15:04:05"
)

// Classification errors. ErrBadAuth covers BADUSER at handshake and
// BADAUTH at submission, so callers can prompt for credentials instead
// of treating the failure as transient.
var (
	ErrBadAuth        = errors.New("invalid username or password")
	ErrOutdatedClient = errors.New("server rejected client version")
)

// The negotiated submission endpoint is always plain http with an
// explicit port.
var submitURLPattern = regexp.MustCompile(`^http://(.*):(\d+)(.*)$`)

// Options configures a Client.
type Options struct {
	Username       string
	PasswordDigest string // hex md5 of the password, see DigestPassword
	// BackupURL, when set, receives a copy of every submission body.
	// Its outcome is logged and never affects the primary submission.
	BackupURL string
	// HandshakeURL overrides DefaultHandshakeURL, for testing.
	HandshakeURL string
	// MinTrackSeconds overrides the protocol minimum track length.
	MinTrackSeconds int64
	// Logf receives wire-level diagnostics. Nil discards them.
	Logf func(format string, args ...any)
}

// Client holds protocol state for one submission run: the session
// challenge and endpoint from the handshake, and the last pacing
// directive from the server. It is not safe for concurrent use; the
// protocol itself is strictly sequential.
type Client struct {
	httpClient      *http.Client
	username        string
	passwordDigest  string
	backupURL       string
	handshakeURL    string
	minTrackSeconds int64
	logf            func(format string, args ...any)

	challenge  string
	submitHost string
	submitPort string
	submitPath string
	// pause requested by the server; honored before the next POST and
	// kept until superseded by a newer directive.
	pause time.Duration
}

// New creates a submission client.
func New(opts Options) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		username:        opts.Username,
		passwordDigest:  opts.PasswordDigest,
		backupURL:       opts.BackupURL,
		handshakeURL:    opts.HandshakeURL,
		minTrackSeconds: opts.MinTrackSeconds,
		logf:            opts.Logf,
	}
	if c.handshakeURL == "" {
		c.handshakeURL = DefaultHandshakeURL
	}
	if c.minTrackSeconds == 0 {
		c.minTrackSeconds = MinTrackSeconds
	}
	if c.logf == nil {
		c.logf = func(string, ...any) {}
	}
	return c
}

// Pause returns the pacing interval last requested by the server.
func (c *Client) Pause() time.Duration {
	return c.pause
}

// SubmitURL returns the negotiated submission endpoint. Empty before a
// successful handshake.
func (c *Client) SubmitURL() string {
	if c.submitHost == "" {
		return ""
	}
	return "http://" + c.submitHost + ":" + c.submitPort + c.submitPath
}

// Handshake authenticates the session. On success the client holds the
// challenge token and submission endpoint; a pacing directive on the
// last response line is honored before the first submission.
func (c *Client) Handshake(ctx context.Context) error {
	// Parameter order follows the protocol documentation.
	reqURL := c.handshakeURL +
		"?hs=true&p=" + protocolVersion +
		"&c=" + clientID +
		"&v=" + clientVersion +
		"&u=" + url.QueryEscape(c.username)
	c.logf("handshake: GET %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("handshake: create request: %w", err)
	}
	req.Header.Set("Connection", "close")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("handshake: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("handshake: read response: %w", err)
	}
	c.logf("handshake response:\n%s", body)

	lines := responseLines(body)
	if len(lines) == 0 {
		return errors.New("handshake: empty response")
	}
	switch first := lines[0]; {
	case strings.HasPrefix(first, "FAILED"):
		return fmt.Errorf("handshake failed: %s", failureMessage(first, "FAILED"))
	case strings.HasPrefix(first, "BADUSER"):
		return fmt.Errorf("handshake: %w", ErrBadAuth)
	case strings.HasPrefix(first, "UPDATE"):
		return fmt.Errorf("handshake: %w: %s", ErrOutdatedClient, failureMessage(first, "UPDATE"))
	}
	if len(lines) < 3 {
		return fmt.Errorf("handshake: short response (%d lines)", len(lines))
	}

	if len(lines) >= 4 {
		if err := c.applyPauseDirective(lines[3]); err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
	}

	m := submitURLPattern.FindStringSubmatch(lines[2])
	if m == nil {
		return fmt.Errorf("handshake: unparseable submission URL %q", lines[2])
	}
	c.submitHost, c.submitPort, c.submitPath = m[1], m[2], m[3]
	c.challenge = lines[1]
	return nil
}

// SubmitBatch posts one batch. Before the POST it honors the last
// pacing directive; after it, a directive on the second response line
// replaces the current one even when the submission failed. Any
// response other than OK is fatal for the run: the protocol has no
// partial-batch retry.
func (c *Client) SubmitBatch(ctx context.Context, plays []Play) error {
	if c.challenge == "" {
		return errors.New("submit before handshake")
	}

	c.pauseIfRequested(ctx)
	body := c.buildBody(plays)
	c.logf("submission body:\n%s", body)

	if c.backupURL != "" {
		// Best effort only; a backup endpoint never fails the run.
		if backupResp, err := c.post(ctx, c.backupURL, body); err != nil {
			c.logf("backup submission: %v", err)
		} else {
			c.logf("backup response:\n%s", backupResp)
		}
	}

	respBody, err := c.post(ctx, c.SubmitURL(), body)
	if err != nil {
		return fmt.Errorf("submission: %w", err)
	}
	c.logf("submission response:\n%s", respBody)

	lines := responseLines([]byte(respBody))
	if len(lines) == 0 {
		return fmt.Errorf("submission: blank response %q", respBody)
	}
	if len(lines) >= 2 {
		if err := c.applyPauseDirective(lines[1]); err != nil {
			return fmt.Errorf("submission: %w", err)
		}
	}
	switch first := lines[0]; {
	case strings.HasPrefix(first, "FAILED"):
		return fmt.Errorf("submission failed: %s", failureMessage(first, "FAILED"))
	case strings.HasPrefix(first, "BADAUTH"):
		return fmt.Errorf("submission: %w", ErrBadAuth)
	case !strings.HasPrefix(first, "OK"):
		return fmt.Errorf("submission: unexpected response %q", first)
	}
	return nil
}

// buildBody assembles the urlencoded POST body: credentials, then
// a[i]/t[i]/b[i]/m[i]/l[i]/i[i] fields per track. Tracks shorter than
// the minimum are dropped; index numbers stay contiguous over the
// tracks actually included.
func (c *Client) buildBody(plays []Play) string {
	var b strings.Builder
	b.WriteString("u=" + url.QueryEscape(c.username))
	b.WriteString("&s=" + url.QueryEscape(sessionResponse(c.passwordDigest, c.challenge)))

	n := 0
	for _, p := range plays {
		if p.Duration < c.minTrackSeconds {
			continue
		}
		playedAt := time.Unix(p.PlayedAt, 0).UTC().Format(playedAtFormat)
		fmt.Fprintf(&b, "&a[%d]=%s", n, url.QueryEscape(p.Artist))
		fmt.Fprintf(&b, "&t[%d]=%s", n, url.QueryEscape(p.Title))
		fmt.Fprintf(&b, "&b[%d]=%s", n, url.QueryEscape(p.Album))
		fmt.Fprintf(&b, "&m[%d]=", n)
		fmt.Fprintf(&b, "&l[%d]=%d", n, p.Duration)
		fmt.Fprintf(&b, "&i[%d]=%s", n, url.QueryEscape(playedAt))
		n++
	}
	return b.String()
}

func (c *Client) post(ctx context.Context, urlStr, body string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Connection", "close")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty response")
	}
	return string(data), nil
}

// pauseIfRequested sleeps for the server's pacing interval. An early
// wake from context cancelation proceeds immediately; pacing is not
// cancelation of the run.
func (c *Client) pauseIfRequested(ctx context.Context) {
	if c.pause <= 0 {
		return
	}
	timer := time.NewTimer(c.pause)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// applyPauseDirective parses an "INTERVAL n" line. Lines too short to
// carry a directive are ignored; a malformed number on a directive
// line is a protocol error.
func (c *Client) applyPauseDirective(line string) error {
	if len(line) < 10 {
		return nil
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(line[9:]))
	if err != nil {
		return fmt.Errorf("bad pause directive %q: %w", line, err)
	}
	c.pause = time.Duration(seconds) * time.Second
	return nil
}

func responseLines(body []byte) []string {
	s := strings.TrimRight(string(body), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// failureMessage strips a response prefix like "FAILED" and returns
// the server's message.
func failureMessage(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}
