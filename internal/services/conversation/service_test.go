package conversation_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/relay"
	"parley/internal/services/conversation"
	"parley/internal/status"
)

type party struct {
	sess *conversation.Session
	rec  *status.Recorder
	errc chan error
}

func engine(t *testing.T) *crypto.Engine {
	t.Helper()
	e, err := crypto.NewEngine(crypto.SuiteAES256GCM, crypto.KDFHKDFSHA256)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func start(ctx context.Context, t *testing.T, tr domain.Transport, self, peer domain.Username) *party {
	t.Helper()
	rec := status.NewRecorder()
	p := &party{
		sess: conversation.New(engine(t), self, peer, tr, rec, rec, zerolog.Nop()),
		rec:  rec,
		errc: make(chan error, 1),
	}
	go func() { p.errc <- p.sess.Run(ctx) }()
	return p
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func waitMessages(t *testing.T, rec *status.Recorder, n int) []domain.DeliveredMessage {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if got := rec.Messages(); len(got) >= n {
			return got
		}
		select {
		case <-rec.Changed():
		case <-deadline:
			t.Fatalf("timed out waiting for %d messages, have %d", n, len(rec.Messages()))
		}
	}
}

func TestSession_ChatOverMemoryRelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := relay.NewMemory(zerolog.Nop())
	aliceTr := r.Connect("alice")
	bobTr := r.Connect("bob")
	alice := start(ctx, t, aliceTr, "alice", "bob")
	bob := start(ctx, t, bobTr, "bob", "alice")

	waitClosed(t, alice.sess.Ready(), "alice ready")
	waitClosed(t, bob.sess.Ready(), "bob ready")

	if err := alice.sess.Send(ctx, "hello bob"); err != nil {
		t.Fatalf("alice Send: %v", err)
	}
	got := waitMessages(t, bob.rec, 1)
	if got[0].Origin != domain.FromPeer || got[0].Peer != "alice" || string(got[0].Plaintext) != "hello bob" {
		t.Fatalf("bob got %+v", got[0])
	}
	echo := waitMessages(t, alice.rec, 1)
	if echo[0].Origin != domain.Echo || string(echo[0].Plaintext) != "hello bob" {
		t.Fatalf("alice echo %+v", echo[0])
	}

	if err := bob.sess.Send(ctx, "hi alice"); err != nil {
		t.Fatalf("bob Send: %v", err)
	}
	got = waitMessages(t, alice.rec, 2)
	if got[1].Origin != domain.FromPeer || string(got[1].Plaintext) != "hi alice" {
		t.Fatalf("alice got %+v", got[1])
	}
	if n := len(alice.rec.Errors()) + len(bob.rec.Errors()); n != 0 {
		t.Fatalf("%d errors reported", n)
	}
}

func TestSession_LateJoinerConverges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := relay.NewMemory(zerolog.Nop())
	alice := start(ctx, t, r.Connect("alice"), "alice", "bob")
	// Alice may offer before bob connects; bob's offer must still complete the exchange.
	waitEvent(t, alice.rec)
	bob := start(ctx, t, r.Connect("bob"), "bob", "alice")

	waitClosed(t, alice.sess.Ready(), "alice ready")
	waitClosed(t, bob.sess.Ready(), "bob ready")
}

func waitEvent(t *testing.T, rec *status.Recorder) {
	t.Helper()
	select {
	case <-rec.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("no status reported")
	}
}

func TestSession_SendBeforeSecureIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := relay.NewMemory(zerolog.Nop())
	alice := start(ctx, t, r.Connect("alice"), "alice", "bob")
	if err := alice.sess.Send(ctx, "anyone?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case <-alice.sess.Ready():
		t.Fatal("session secure without a peer")
	default:
	}
	if n := len(alice.rec.Messages()); n != 0 {
		t.Fatalf("%d messages delivered", n)
	}
}

func TestSession_CloseEndsSession(t *testing.T) {
	ctx := context.Background()
	r := relay.NewMemory(zerolog.Nop())
	tr := r.Connect("alice")
	alice := start(ctx, t, tr, "alice", "bob")

	_ = tr.Close()
	waitClosed(t, alice.sess.Done(), "session done")
	if err := <-alice.errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := alice.sess.Send(ctx, "late"); !errors.Is(err, conversation.ErrSessionClosed) {
		t.Fatalf("want ErrSessionClosed, got %v", err)
	}
	if err := alice.sess.Run(ctx); !errors.Is(err, conversation.ErrAlreadyRunning) {
		t.Fatalf("want ErrAlreadyRunning, got %v", err)
	}
}

func TestSession_CancelClosesTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := relay.NewMemory(zerolog.Nop())
	alice := start(ctx, t, r.Connect("alice"), "alice", "bob")

	cancel()
	waitClosed(t, alice.sess.Done(), "session done")
	if r.Online("alice") {
		t.Fatal("transport still registered after cancel")
	}
}

// flakyTransport fails its first Send.
type flakyTransport struct {
	domain.Transport
	failed atomic.Bool
}

func (f *flakyTransport) Send(ctx context.Context, env domain.Envelope) error {
	if f.failed.CompareAndSwap(false, true) {
		return errors.New("write failed")
	}
	return f.Transport.Send(ctx, env)
}

func TestSession_LostOfferRecoveredByPeerOffer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := relay.NewMemory(zerolog.Nop())
	aliceTr := &flakyTransport{Transport: r.Connect("alice")}
	bobTr := r.Connect("bob")
	alice := start(ctx, t, aliceTr, "alice", "bob")
	bob := start(ctx, t, bobTr, "bob", "alice")

	waitClosed(t, alice.sess.Ready(), "alice ready")
	waitClosed(t, bob.sess.Ready(), "bob ready")

	select {
	case err := <-alice.errc:
		t.Fatalf("alice session ended: %v", err)
	default:
	}
	if len(alice.rec.Errors()) != 1 {
		t.Fatalf("want the failed offer reported once, got %+v", alice.rec.Errors())
	}
	if err := alice.sess.Send(ctx, "made it"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := waitMessages(t, bob.rec, 1); string(got[0].Plaintext) != "made it" {
		t.Fatalf("bob got %+v", got[0])
	}
}
