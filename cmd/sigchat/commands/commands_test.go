package commands_test

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/cmd/sigchat/commands"
	"sigchat/internal/relay"
)

const passphrase = "Correct-Horse-42"

// newHome returns a home directory whose config uses cheap scrypt settings.
func newHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	cfg := "keystore:\n  sealed: true\n  scrypt_n: 1024\n  scrypt_r: 8\n  scrypt_p: 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(cfg), 0o600))
	return home
}

type runner struct {
	t     *testing.T
	relay string
}

func (r runner) run(home string, args ...string) string {
	r.t.Helper()
	root := commands.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--home", home, "--relay", r.relay, "-p", passphrase}, args...))
	require.NoError(r.t, root.ExecuteContext(context.Background()), "sigchat %v", args)
	return out.String()
}

func TestDirectConversation(t *testing.T) {
	srv := httptest.NewServer(relay.NewServer(nil))
	defer srv.Close()
	r := runner{t: t, relay: srv.URL}
	alice, bob := newHome(t), newHome(t)

	require.Contains(t, r.run(alice, "init", "--user", "alice"), "Fingerprint:")
	require.Contains(t, r.run(bob, "init", "--user", "bob"), "Fingerprint:")
	require.Contains(t, r.run(bob, "register"), "Registered bob")

	require.Contains(t, r.run(alice, "start-session", "bob"), "Session created with bob")
	require.Contains(t, r.run(alice, "send", "bob", "hello bob"), "sent")
	require.Contains(t, r.run(bob, "recv"), "[alice] hello bob")

	r.run(bob, "send", "alice", "hi alice")
	require.Contains(t, r.run(alice, "recv"), "[bob] hi alice")
	require.Contains(t, r.run(alice, "sessions"), "bob")

	r.run(alice, "reset-session", "bob")
	require.NotContains(t, r.run(alice, "sessions"), "bob")
}

func TestGroupConversation(t *testing.T) {
	srv := httptest.NewServer(relay.NewServer(nil))
	defer srv.Close()
	r := runner{t: t, relay: srv.URL}
	a, b := newHome(t), newHome(t)

	r.run(a, "init", "--user", "a")
	r.run(b, "init", "--user", "b")
	r.run(b, "register")
	r.run(a, "start-session", "b")

	r.run(b, "group", "join", "g", "a")
	require.Contains(t, r.run(a, "group", "create", "g", "b"), "Sender key for g distributed")
	r.run(b, "recv")

	// b now holds a session with a and can send its own key back.
	out := r.run(b, "group", "distribute", "g")
	require.NotContains(t, out, "no session")
	r.run(a, "recv")

	r.run(a, "group", "send", "g", "hello group")
	require.Contains(t, r.run(b, "recv"), "[a@g] hello group")
	r.run(b, "group", "send", "g", "hello a")
	require.Contains(t, r.run(a, "recv"), "[b@g] hello a")

	require.Contains(t, r.run(a, "group", "list"), "g: a, b")
	require.Contains(t, r.run(a, "group", "leave", "g"), "Left g")
}
