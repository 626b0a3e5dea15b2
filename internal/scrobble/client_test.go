package scrobble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// handshakeServer runs an httptest server whose handshake response
// points submissions back at itself, with submit handling the POSTs.
func handshakeServer(t *testing.T, status string, submit http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/submit" {
			submit(w, r)
			return
		}
		fmt.Fprintf(w, "%s\nchal123\n%s/submit\nINTERVAL 0\n", status, srv.URL)
	}))
	t.Cleanup(srv.Close)

	c := New(Options{
		Username:       "alice",
		PasswordDigest: DigestPassword("password"),
		HandshakeURL:   srv.URL + "/",
	})
	return srv, c
}

func okSubmit(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "OK\nINTERVAL 0\n")
}

func TestHandshake(t *testing.T) {
	var query url.Values
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		fmt.Fprintf(w, "UPTODATE\nchal123\n%s/v1.1/submit\nINTERVAL 2\n", srv.URL)
	}))
	defer srv.Close()

	c := New(Options{Username: "alice", PasswordDigest: "digest", HandshakeURL: srv.URL + "/"})
	if err := c.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}

	for key, want := range map[string]string{
		"hs": "true", "p": "1.1", "c": "apd", "v": "0.1", "u": "alice",
	} {
		if got := query.Get(key); got != want {
			t.Errorf("handshake query %s = %q, want %q", key, got, want)
		}
	}
	if c.challenge != "chal123" {
		t.Errorf("challenge = %q, want %q", c.challenge, "chal123")
	}
	if got := c.SubmitURL(); got != srv.URL+"/v1.1/submit" {
		t.Errorf("SubmitURL() = %q, want %q", got, srv.URL+"/v1.1/submit")
	}
	if c.Pause() != 2*time.Second {
		t.Errorf("Pause() = %v, want 2s", c.Pause())
	}
}

func TestHandshake_Failures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  error
		wantMsg  string
	}{
		{"failed", "FAILED server on fire\n", nil, "server on fire"},
		{"bad user", "BADUSER\nwhatever\n", ErrBadAuth, ""},
		{"update required", "UPDATE http://example.com/new\n", ErrOutdatedClient, ""},
		{"short response", "UPTODATE\nchal\n", nil, "short response"},
		{"bad submit url", "UPTODATE\nchal\nnot a url\nINTERVAL 0\n", nil, "submission URL"},
		{"empty response", "", nil, "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.response)
			}))
			defer srv.Close()

			c := New(Options{Username: "u", PasswordDigest: "d", HandshakeURL: srv.URL + "/"})
			err := c.Handshake(context.Background())
			if err == nil {
				t.Fatal("Handshake should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestBuildBody(t *testing.T) {
	c := New(Options{Username: "alice", PasswordDigest: DigestPassword("password")})
	c.challenge = "chal123"

	plays := []Play{
		{Artist: "Bob Marley & The Wailers", Title: "No Woman, No Cry (live)",
			Album: "Legend", Duration: 427, PlayedAt: 1181489924},
		{Artist: "Skipped", Title: "Too Short", Duration: 29, PlayedAt: 1181490351},
		{Artist: "Björk", Title: "Jóga", Album: "Homogenic", Duration: 307, PlayedAt: 1181490400},
	}
	body := c.buildBody(plays)

	values, err := url.ParseQuery(body)
	if err != nil {
		t.Fatalf("body is not valid urlencoded form data: %v", err)
	}
	if got := values.Get("u"); got != "alice" {
		t.Errorf("u = %q, want %q", got, "alice")
	}
	if got, want := values.Get("s"), sessionResponse(c.passwordDigest, "chal123"); got != want {
		t.Errorf("s = %q, want %q", got, want)
	}
	if got := values.Get("a[0]"); got != "Bob Marley & The Wailers" {
		t.Errorf("a[0] = %q", got)
	}
	// 1181489924 = 2007-06-10 14:18:44 UTC.
	if got := values.Get("i[0]"); got != "2007-06-10 14:18:44" {
		t.Errorf("i[0] = %q, want %q", got, "2007-06-10 14:18:44")
	}
	if got := values.Get("l[0]"); got != "427" {
		t.Errorf("l[0] = %q, want %q", got, "427")
	}
	if _, ok := values["m[0]"]; !ok {
		t.Error("m[0] missing; the streaming flag field must be present and empty")
	}
	// The short track is dropped and the next one renumbered into its
	// slot.
	if got := values.Get("a[1]"); got != "Björk" {
		t.Errorf("a[1] = %q, want %q (contiguous numbering)", got, "Björk")
	}
	if _, ok := values["a[2]"]; ok {
		t.Error("a[2] present, want only two submitted tracks")
	}
}

func TestSubmitBatch(t *testing.T) {
	var posted string
	_, c := handshakeServer(t, "UPTODATE", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		posted = string(body)
		fmt.Fprint(w, "OK\nINTERVAL 3\n")
	})
	if err := c.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}

	err := c.SubmitBatch(context.Background(), []Play{
		{Artist: "Artist", Title: "Title", Album: "Album", Duration: 100, PlayedAt: 1181489924},
	})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	if !strings.Contains(posted, "a%5B0%5D=Artist") {
		t.Errorf("posted body %q missing track fields", posted)
	}
	if c.Pause() != 3*time.Second {
		t.Errorf("Pause() = %v, want 3s from the response directive", c.Pause())
	}
}

func TestSubmitBatch_BadAuth(t *testing.T) {
	_, c := handshakeServer(t, "UPTODATE", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "BADAUTH\nINTERVAL 0\n")
	})
	if err := c.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}

	err := c.SubmitBatch(context.Background(), []Play{{Artist: "A", Title: "T", Duration: 100}})
	if !errors.Is(err, ErrBadAuth) {
		t.Fatalf("err = %v, want ErrBadAuth", err)
	}
}

func TestSubmitBatch_FailureStillAppliesPacing(t *testing.T) {
	_, c := handshakeServer(t, "UPTODATE", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "FAILED temporarily overloaded\nINTERVAL 7\n")
	})
	if err := c.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}

	err := c.SubmitBatch(context.Background(), []Play{{Artist: "A", Title: "T", Duration: 100}})
	if err == nil || !strings.Contains(err.Error(), "temporarily overloaded") {
		t.Fatalf("err = %v, want the server's failure message", err)
	}
	if c.Pause() != 7*time.Second {
		t.Errorf("Pause() = %v, want 7s even though the submission failed", c.Pause())
	}
}

func TestSubmitBatch_BlankResponse(t *testing.T) {
	_, c := handshakeServer(t, "UPTODATE", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "\n")
	})
	if err := c.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}

	err := c.SubmitBatch(context.Background(), []Play{{Artist: "A", Title: "T", Duration: 100}})
	if err == nil || !strings.Contains(err.Error(), "blank response") {
		t.Fatalf("err = %v, want a protocol error for a newline-only response", err)
	}
}

func TestPauseIfRequested_InterruptProceeds(t *testing.T) {
	c := New(Options{Username: "u", PasswordDigest: "d"})
	c.pause = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An interrupt wakes the pause early and proceeds; it is pacing,
	// not cancellation of the run.
	start := time.Now()
	c.pauseIfRequested(ctx)
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("pause took %v with a canceled context, want an immediate return", elapsed)
	}
}

func TestPauseIfRequested_ZeroReturnsImmediately(t *testing.T) {
	c := New(Options{Username: "u", PasswordDigest: "d"})

	start := time.Now()
	c.pauseIfRequested(context.Background())
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("pause took %v with no directive", elapsed)
	}
}

func TestSubmitBatch_BeforeHandshake(t *testing.T) {
	c := New(Options{Username: "u", PasswordDigest: "d"})

	if err := c.SubmitBatch(context.Background(), nil); err == nil {
		t.Fatal("SubmitBatch before Handshake should fail")
	}
}

func TestSubmitBatch_BackupNeverFailsRun(t *testing.T) {
	var backupHit bool
	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		backupHit = true
		http.Error(w, "backup down", http.StatusInternalServerError)
	}))
	defer backup.Close()

	_, c := handshakeServer(t, "UPTODATE", okSubmit)
	c.backupURL = backup.URL
	if err := c.Handshake(context.Background()); err != nil {
		t.Fatalf("Handshake failed: %v", err)
	}

	err := c.SubmitBatch(context.Background(), []Play{{Artist: "A", Title: "T", Duration: 100}})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	if !backupHit {
		t.Error("backup endpoint was never called")
	}
}
