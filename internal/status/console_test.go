package status_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"parley/internal/domain"
	"parley/internal/status"
)

func TestConsole_Deliver(t *testing.T) {
	var out, errOut bytes.Buffer
	c := status.NewConsole(&out, &errOut, zerolog.Nop())

	c.Deliver(domain.DeliveredMessage{Origin: domain.FromPeer, Peer: "bob", Plaintext: []byte("hi")})
	c.Deliver(domain.DeliveredMessage{Origin: domain.Echo, Peer: "bob", Plaintext: []byte("hello")})

	want := "[bob]: hi\n[You -> bob]: hello\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
	if errOut.Len() != 0 {
		t.Fatalf("status output %q", errOut.String())
	}
}

func TestConsole_DeliverStripsTerminalControl(t *testing.T) {
	var out bytes.Buffer
	c := status.NewConsole(&out, &bytes.Buffer{}, zerolog.Nop())

	c.Deliver(domain.DeliveredMessage{
		Origin:    domain.FromPeer,
		Peer:      "bob\x1b]0;owned\x07",
		Plaintext: []byte("\x1b[2J\x1b[31mred\rfake\nline\u202eevil\tok"),
	})
	want := "[bob]0;owned]: [2J[31mredfakelineevil\tok\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestPrintable(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain text", "plain text"},
		{"tab\tkept", "tab\tkept"},
		{"bell\a", "bell"},
		{"\xff\xfebad utf8", "\uFFFDbad utf8"},
		{"emoji \U0001F44B\U0001F3FD stays", "emoji \U0001F44B\U0001F3FD stays"},
		{"isolate\u2066x\u2069", "isolatex"},
	}
	for _, tc := range cases {
		if got := status.Printable(tc.in); got != tc.want {
			t.Fatalf("Printable(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConsole_StatusLines(t *testing.T) {
	var errOut bytes.Buffer
	c := status.NewConsole(&bytes.Buffer{}, &errOut, zerolog.Nop())
	c.Info("ready")
	c.Warn("careful")
	c.Error("failed", errors.New("boom"))
	c.Error("bare", nil)

	want := "* ready\n! careful\n! failed: boom\n! bare\n"
	if errOut.String() != want {
		t.Fatalf("got %q, want %q", errOut.String(), want)
	}
}
