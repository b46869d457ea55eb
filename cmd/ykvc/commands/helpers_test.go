package commands

import (
	"bytes"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/systmms/ykvc/internal/backup"
	"github.com/systmms/ykvc/internal/config"
	"github.com/systmms/ykvc/internal/logging"
	"github.com/systmms/ykvc/internal/metrics"
	"github.com/systmms/ykvc/internal/platform"
	"github.com/systmms/ykvc/internal/secure"
	"github.com/systmms/ykvc/internal/testutil"
)

// debianTools resolve on PATH in every harness unless a test overrides
// LookPath.
var debianTools = []string{"ykman", "ykpersonalize", "ykchalresp", "shred"}

type harness struct {
	cfg      *config.Config
	exec     *testutil.MockCommandExecutor
	prompter *testutil.FakePrompter
	store    *memStore
	dir      string
	// out collects both log lines and command output, in order.
	out   *bytes.Buffer
	audit *bytes.Buffer
}

func newHarness(t *testing.T, exec *testutil.MockCommandExecutor) *harness {
	t.Helper()

	h := &harness{
		exec:     exec,
		prompter: testutil.NewFakePrompter(),
		store:    newMemStore(),
		dir:      t.TempDir(),
		out:      &bytes.Buffer{},
		audit:    &bytes.Buffer{},
	}
	h.exec.AddResponse("shred", testutil.MockResponse{Effect: testutil.RemoveLastArg})

	h.cfg = &config.Config{
		Logger:     logging.NewWithWriter(h.out, false, true),
		Definition: &config.Definition{Keyfile: config.KeyfileConfig{Dir: h.dir}},
		Out:        h.out,
		Executor:   exec,
		Prompter:   h.prompter,
		LookPath:   testutil.LookPathWith(debianTools...),
		Resolver: platform.Resolver{
			GOOS:   "linux",
			Exists: func(string) bool { return true },
		},
		Keyring: h.store,
		Audit:   logging.NewAuditWithWriter(h.audit),
		Metrics: metrics.New(),
	}
	h.cfg.Init()
	return h
}

func (h *harness) run(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(h.out)
	cmd.SetErr(h.out)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

// memStore is an in-memory backup.Store.
type memStore struct {
	mu      sync.Mutex
	secrets map[string]string
}

var _ backup.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{secrets: make(map[string]string)}
}

func (s *memStore) Save(serial string, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[serial] = hex.EncodeToString(secret)
	return nil
}

func (s *memStore) Load(serial string) (*secure.SecureBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.secrets[serial]
	if !ok {
		return nil, backup.ErrNoBackup
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, err
	}
	return secure.NewSecureBuffer(b), nil
}

func (s *memStore) Delete(serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, serial)
	return nil
}

func (s *memStore) get(serial string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secrets[serial]
}

// lastArg returns the final argument of the only recorded call to name.
func lastArg(t *testing.T, exec *testutil.MockCommandExecutor, name string) string {
	t.Helper()
	calls := exec.GetCalls(name)
	if len(calls) != 1 {
		t.Fatalf("expected one %s call, got %d", name, len(calls))
	}
	args := calls[0].Args
	return args[len(args)-1]
}
