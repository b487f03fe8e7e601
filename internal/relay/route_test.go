package relay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"parley/internal/domain"
	"parley/internal/relay"
)

func TestRoute_RecipientAndEcho(t *testing.T) {
	env := domain.Envelope{
		Type:       domain.EnvelopeEncryptedText,
		TargetUser: "bob",
		Sender:     "mallory",
		Recipient:  "carol",
		Content:    &domain.EncryptedPayload{IV: make(domain.ByteArray, 12), Ciphertext: domain.ByteArray{1, 2}},
	}
	got, err := relay.Route("alice", env)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(got))
	}
	to := got[0]
	if to.To != "bob" || to.Echo || to.Envelope.Sender != "alice" || to.Envelope.Recipient != "" {
		t.Fatalf("recipient copy %+v", to)
	}
	echo := got[1]
	if echo.To != "alice" || !echo.Echo || echo.Envelope.Sender != "" || echo.Envelope.Recipient != "bob" {
		t.Fatalf("echo copy %+v", echo)
	}
	if echo.Envelope.Content != env.Content || echo.Envelope.TargetUser != "bob" {
		t.Fatal("echo must carry the original payload")
	}
}

func TestRoute_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		sender domain.Username
		env    domain.Envelope
		want   error
	}{
		{"no target", "alice", domain.Envelope{Type: domain.EnvelopeKeyExchange}, relay.ErrNoTarget},
		{"unknown type", "alice", domain.Envelope{Type: "presence", TargetUser: "bob"}, relay.ErrUnknownType},
		{"no sender", "", domain.Envelope{Type: domain.EnvelopeKeyExchange, TargetUser: "bob"}, relay.ErrNoSender},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := relay.Route(tc.sender, tc.env); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func recv(t *testing.T, tr domain.Transport) domain.Envelope {
	t.Helper()
	select {
	case env, ok := <-tr.Receive():
		if !ok {
			t.Fatal("transport closed")
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
	return domain.Envelope{}
}

func TestMemory_Forwarding(t *testing.T) {
	m := relay.NewMemory(zerolog.Nop())
	alice := m.Connect("alice")
	bob := m.Connect("bob")
	defer alice.Close()
	defer bob.Close()

	env := domain.Envelope{Type: domain.EnvelopeKeyExchange, TargetUser: "bob", Sender: "carol"}
	if err := alice.Send(context.Background(), env); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := recv(t, bob); got.Sender != "alice" {
		t.Fatalf("bob got sender %q, want alice", got.Sender)
	}
	if got := recv(t, alice); got.Recipient != "bob" || got.Sender != "" {
		t.Fatalf("alice echo %+v", got)
	}
}

func TestMemory_OfflineRecipient(t *testing.T) {
	m := relay.NewMemory(zerolog.Nop())
	alice := m.Connect("alice")
	defer alice.Close()

	env := domain.Envelope{Type: domain.EnvelopeKeyExchange, TargetUser: "bob"}
	if err := alice.Send(context.Background(), env); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := recv(t, alice); got.Recipient != "bob" {
		t.Fatalf("echo %+v", got)
	}
}

func TestMemory_ReconnectReplaces(t *testing.T) {
	m := relay.NewMemory(zerolog.Nop())
	first := m.Connect("alice")
	second := m.Connect("alice")
	defer second.Close()

	if _, ok := <-first.Receive(); ok {
		t.Fatal("replaced transport should be closed")
	}
	if err := first.Send(context.Background(), domain.Envelope{}); !errors.Is(err, relay.ErrTransportClosed) {
		t.Fatalf("want ErrTransportClosed, got %v", err)
	}
	if !m.Online("alice") {
		t.Fatal("second connection should stay registered")
	}
	_ = second.Close()
	if m.Online("alice") {
		t.Fatal("closed connection still registered")
	}
}

func TestSubjects(t *testing.T) {
	if got := relay.OutboundSubject("parley", "alice"); got != "parley.out.alice" {
		t.Fatalf("OutboundSubject = %q", got)
	}
	if got := relay.InboundSubject("parley", "bob"); got != "parley.in.bob" {
		t.Fatalf("InboundSubject = %q", got)
	}
	if u, ok := relay.SenderFromSubject("parley", "parley.out.alice"); !ok || u != "alice" {
		t.Fatalf("SenderFromSubject = %q %v", u, ok)
	}
	for _, s := range []string{"parley.in.alice", "parley.out.", "parley.out.a.b", "other.out.alice"} {
		if _, ok := relay.SenderFromSubject("parley", s); ok {
			t.Fatalf("SenderFromSubject(%q) accepted", s)
		}
	}
}

func TestChatURL(t *testing.T) {
	cases := map[string]string{
		"ws://localhost:8080":   "ws://localhost:8080/chat/ws/alice",
		"ws://localhost:8080/":  "ws://localhost:8080/chat/ws/alice",
		"http://relay.example":  "ws://relay.example/chat/ws/alice",
		"https://relay.example": "wss://relay.example/chat/ws/alice",
	}
	for in, want := range cases {
		got, err := relay.ChatURL(in, "alice")
		if err != nil || got != want {
			t.Fatalf("ChatURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := relay.ChatURL("ftp://x", "alice"); err == nil {
		t.Fatal("ftp scheme accepted")
	}
}

func TestMemory_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	m := relay.NewMemory(zerolog.Nop())
	alice := m.Connect("alice")
	defer alice.Close()

	// Nobody drains alice's queue, as when the echo is produced by her own loop.
	const sends = 300
	done := make(chan error, 1)
	go func() {
		env := domain.Envelope{Type: domain.EnvelopeEncryptedText, TargetUser: "bob"}
		for i := 0; i < sends; i++ {
			if err := alice.Send(context.Background(), env); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked on a full queue")
	}

	queued := 0
	for {
		select {
		case <-alice.Receive():
			queued++
			continue
		default:
		}
		break
	}
	if queued == 0 || queued >= sends {
		t.Fatalf("queued %d echoes, want some dropped", queued)
	}
}
