// pkg/keyring/provision_test.go

package keyring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_io"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/execute"
)

type authStep struct {
	stdout string
	exit   int
	err    error
}

// fakeRunner replays authStep results, streaming each step's stdout into the
// caller's writer the way the real CLI would. The last step repeats.
type fakeRunner struct {
	calls []execute.Options
	steps []authStep
}

func (f *fakeRunner) Run(_ context.Context, opts execute.Options) (*execute.Result, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, opts)
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	st := f.steps[idx]
	if st.err != nil {
		return nil, st.err
	}
	if st.stdout != "" && opts.Stdout != nil {
		if _, err := opts.Stdout.Write([]byte(st.stdout)); err != nil {
			return nil, err
		}
	}
	return &execute.Result{Output: st.stdout, ExitCode: st.exit}, nil
}

func testRC() *cephkeys_io.RuntimeContext {
	return cephkeys_io.NewContext(context.Background(), "test")
}

func newTestProvisioner(t *testing.T, runner execute.Runner) *Provisioner {
	t.Helper()
	return &Provisioner{
		Runner:         runner,
		Cluster:        "ceph",
		MonID:          "a",
		MaxAttempts:    3,
		Interval:       time.Millisecond,
		ConnectTimeout: 20 * time.Second,
		ConfDir:        t.TempDir(),
		DataDir:        t.TempDir(),
		Owner:          UnresolvedOwner,
	}
}

// requireNoStagingResidue asserts the directory holds nothing besides the
// paths the test expects, in particular no leftover *.tmp files.
func requireNoStagingResidue(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, want, names)
}

func TestEnsureExistingKeyringUntouched(t *testing.T) {
	runner := &fakeRunner{}
	p := newTestProvisioner(t, runner)

	key := p.BootstrapKey("osd")
	require.NoError(t, os.MkdirAll(filepath.Dir(key.Path), 0o770))
	require.NoError(t, os.WriteFile(key.Path, []byte("hand-rolled\n"), 0o600))

	require.NoError(t, p.Ensure(testRC(), key))

	assert.Empty(t, runner.calls, "an existing keyring must not trigger any request")
	content, err := os.ReadFile(key.Path)
	require.NoError(t, err)
	assert.Equal(t, "hand-rolled\n", string(content))
}

func TestEnsureInstallsBootstrapKeyring(t *testing.T) {
	material := "[client.bootstrap-osd]\n\tkey = AQIDBAUGBwgJCgsM\n"
	runner := &fakeRunner{steps: []authStep{
		{stdout: material},
	}}
	p := newTestProvisioner(t, runner)
	key := p.BootstrapKey("osd")

	require.NoError(t, p.Ensure(testRC(), key))

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "ceph", call.Command)
	assert.Equal(t, []string{
		"--connect-timeout=20",
		"--cluster=ceph",
		"--name=mon.",
		"--keyring=" + filepath.Join(p.DataDir, "mon", "ceph-a", "keyring"),
		"auth",
		"get-or-create",
		"client.bootstrap-osd",
		"mon", "allow profile bootstrap-osd",
	}, call.Args)

	content, err := os.ReadFile(key.Path)
	require.NoError(t, err)
	assert.Equal(t, material, string(content))

	info, err := os.Stat(key.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	requireNoStagingResidue(t, filepath.Dir(key.Path), "ceph.keyring")
}

func TestEnsureAdminReusesExistingKey(t *testing.T) {
	material := "[client.admin]\n\tkey = AQIDBAUGBwgJCgsM\n\tcaps mon = \"allow command foo\"\n"
	runner := &fakeRunner{steps: []authStep{
		{stdout: material},
	}}
	p := newTestProvisioner(t, runner)
	key := p.AdminKey()

	require.NoError(t, p.Ensure(testRC(), key))

	require.Len(t, runner.calls, 1, "an existing admin key must not be recreated")
	assert.Equal(t, []string{
		"--connect-timeout=20",
		"--cluster=ceph",
		"--name=mon.",
		"--keyring=" + filepath.Join(p.DataDir, "mon", "ceph-a", "keyring"),
		"auth",
		"get",
		"client.admin",
	}, runner.calls[0].Args)

	content, err := os.ReadFile(key.Path)
	require.NoError(t, err)
	assert.Equal(t, material, string(content))
}

func TestEnsureAdminCreatesWhenAbsent(t *testing.T) {
	material := "[client.admin]\n\tkey = AQIDBAUGBwgJCgsM\n"
	runner := &fakeRunner{steps: []authStep{
		{stdout: "Error ENOENT: failed to find client.admin\n", exit: 2},
		{stdout: material},
	}}
	p := newTestProvisioner(t, runner)
	key := p.AdminKey()

	require.NoError(t, p.Ensure(testRC(), key))

	require.Len(t, runner.calls, 2, "get and get-or-create belong to the same attempt")
	assert.Contains(t, runner.calls[0].Args, "get")
	assert.Equal(t, []string{
		"--connect-timeout=20",
		"--cluster=ceph",
		"--name=mon.",
		"--keyring=" + filepath.Join(p.DataDir, "mon", "ceph-a", "keyring"),
		"auth",
		"get-or-create",
		"client.admin",
		"mon", "allow *",
		"osd", "allow *",
		"mds", "allow *",
	}, runner.calls[1].Args)

	// The failed get's output must not leak into the installed keyring.
	content, err := os.ReadFile(key.Path)
	require.NoError(t, err)
	assert.Equal(t, material, string(content))
}

func TestEnsurePermissionDenied(t *testing.T) {
	tests := []struct {
		name string
		exit int
	}{
		{name: "eacces", exit: 13},
		{name: "eperm", exit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{steps: []authStep{
				{stdout: "Error EACCES: access denied\n", exit: tt.exit},
			}}
			p := newTestProvisioner(t, runner)
			key := p.BootstrapKey("rgw")

			err := p.Ensure(testRC(), key)
			require.Error(t, err)
			assert.True(t, cerr.Is(err, ErrPermissionDenied))
			assert.Len(t, runner.calls, 1, "a denial must not be retried")

			_, statErr := os.Stat(key.Path)
			assert.True(t, os.IsNotExist(statErr))
			requireNoStagingResidue(t, filepath.Dir(key.Path))
		})
	}
}

func TestEnsureExhaustsAttemptBudget(t *testing.T) {
	runner := &fakeRunner{steps: []authStep{
		{stdout: "Error EBUSY: mon busy\n", exit: 16},
	}}
	p := newTestProvisioner(t, runner)
	key := p.BootstrapKey("mds")

	err := p.Ensure(testRC(), key)
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrKeyTimeout))
	assert.Len(t, runner.calls, p.MaxAttempts)

	_, statErr := os.Stat(key.Path)
	assert.True(t, os.IsNotExist(statErr))
	requireNoStagingResidue(t, filepath.Dir(key.Path))
}

func TestEnsureRecoversFromTransientFailures(t *testing.T) {
	material := "[client.bootstrap-osd]\n\tkey = AQIDBAUGBwgJCgsM\n"
	runner := &fakeRunner{steps: []authStep{
		{err: cerr.New("exec: ceph: executable file not found")},
		{stdout: "monclient: hunting for new mon\n", exit: 110},
		{stdout: material},
	}}
	p := newTestProvisioner(t, runner)
	key := p.BootstrapKey("osd")

	require.NoError(t, p.Ensure(testRC(), key))
	assert.Len(t, runner.calls, 3)

	content, err := os.ReadFile(key.Path)
	require.NoError(t, err)
	assert.Equal(t, material, string(content))
}

func TestEnsureBootstrapNotFoundIsRetried(t *testing.T) {
	material := "[client.bootstrap-rgw]\n\tkey = AQIDBAUGBwgJCgsM\n"
	runner := &fakeRunner{steps: []authStep{
		{stdout: "", exit: 2},
		{stdout: material},
	}}
	p := newTestProvisioner(t, runner)
	key := p.BootstrapKey("rgw")

	require.NoError(t, p.Ensure(testRC(), key))
	assert.Len(t, runner.calls, 2, "ENOENT from get-or-create is transient, not a second verb")
}

func TestNewProvisionerDefaults(t *testing.T) {
	p := NewProvisioner(&fakeRunner{}, "ceph", "a")
	assert.Equal(t, 600, p.MaxAttempts)
	assert.Equal(t, time.Second, p.Interval)
	assert.Equal(t, 20*time.Second, p.ConnectTimeout)
	assert.Equal(t, "/etc/ceph", p.ConfDir)
	assert.Equal(t, "/var/lib/ceph", p.DataDir)
	assert.Equal(t, UnresolvedOwner, p.Owner)
}
