// pkg/keyring/provision.go

package keyring

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_io"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/shared"
)

// Sentinel errors for the identity-scoped fatal exits of Ensure.
var (
	// ErrPermissionDenied: the monitor refused the credential request.
	// Fatal for this identity; the caller decides whether the run goes on.
	ErrPermissionDenied = cerr.New("credential request was denied")

	// ErrKeyTimeout: the attempt budget ran out before the credential was
	// obtained.
	ErrKeyTimeout = cerr.New("credential was not obtained in time")
)

// errNotReady marks a transient attempt failure that stays inside the retry
// loop and never surfaces to callers.
var errNotReady = cerr.New("credential request not satisfied yet")

// Provisioner obtains credentials from a monitor and installs them as
// keyring files. Every call to Ensure is self-contained and idempotent;
// the Provisioner itself holds only configuration.
type Provisioner struct {
	Runner execute.Runner

	Cluster string
	MonID   string

	MaxAttempts    int
	Interval       time.Duration
	ConnectTimeout time.Duration

	ConfDir string
	DataDir string

	// Owner is applied to every directory, staging file, and therefore
	// installed keyring.
	Owner Owner
}

// NewProvisioner returns a Provisioner with the production ceilings and
// default filesystem layout.
func NewProvisioner(runner execute.Runner, cluster, monID string) *Provisioner {
	return &Provisioner{
		Runner:         runner,
		Cluster:        cluster,
		MonID:          monID,
		MaxAttempts:    shared.MaxAttempts,
		Interval:       shared.RetryInterval,
		ConnectTimeout: shared.ConnectTimeout,
		ConfDir:        shared.DefaultConfDir,
		DataDir:        shared.DefaultDataDir,
		Owner:          UnresolvedOwner,
	}
}

// AdminKey returns the administrator credential under this Provisioner's
// configuration directory.
func (p *Provisioner) AdminKey() Key {
	return AdminKey(p.ConfDir, p.Cluster)
}

// BootstrapKey returns one service role's credential under this
// Provisioner's data directory.
func (p *Provisioner) BootstrapKey(role string) Key {
	return BootstrapKey(p.DataDir, p.Cluster, role)
}

// Ensure makes the keyring file for key exist. If the target path already
// exists it returns immediately without talking to the monitor; otherwise
// it requests the credential with a bounded retry loop and installs the
// result atomically. Returns nil, ErrPermissionDenied, ErrKeyTimeout, or a
// filesystem error.
func (p *Provisioner) Ensure(rc *cephkeys_io.RuntimeContext, key Key) error {
	logger := otelzap.Ctx(rc.Ctx)

	if _, err := os.Stat(key.Path); err == nil {
		logger.Info("Keyring already exists, leaving it untouched",
			zap.String("name", key.Name),
			zap.String("path", key.Path))
		return nil
	}

	dir := filepath.Dir(key.Path)
	if err := os.MkdirAll(dir, shared.KeyringDirPerm); err != nil {
		return cerr.Wrapf(err, "create keyring directory %s", dir)
	}
	p.Owner.Chown(logger, dir)

	logger.Info("Provisioning keyring",
		zap.String("name", key.Name),
		zap.String("path", key.Path),
		zap.Int("max_attempts", p.MaxAttempts))

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := p.attempt(rc, key)
		switch {
		case err == nil:
			logger.Info("Keyring installed",
				zap.String("name", key.Name),
				zap.String("path", key.Path),
				zap.Int("attempts", attempt))
			return nil
		case cerr.Is(err, errNotReady):
			logger.Debug("Credential request not satisfied yet",
				zap.String("name", key.Name),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < p.MaxAttempts {
				if serr := shared.Sleep(rc.Ctx, p.Interval); serr != nil {
					return serr
				}
			}
		default:
			return err
		}
	}

	return cerr.Mark(
		cerr.Newf("could not obtain %s key after %d attempts", key.Name, p.MaxAttempts),
		ErrKeyTimeout)
}

// attempt performs one full provisioning attempt: staging file creation,
// credential request, classification, and atomic install. The staging file
// is removed on every exit path; only "already absent" is swallowed.
func (p *Provisioner) attempt(rc *cephkeys_io.RuntimeContext, key Key) (err error) {
	logger := otelzap.Ctx(rc.Ctx)

	staging := StagingPath(key.Path, os.Getpid())
	f, ferr := os.OpenFile(staging, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, shared.KeyringFilePerm)
	if ferr != nil {
		return cerr.Wrapf(ferr, "create staging file %s", staging)
	}

	closed := false
	defer func() {
		if !closed {
			_ = f.Close()
		}
		if rmErr := os.Remove(staging); rmErr != nil && !cerr.Is(rmErr, fs.ErrNotExist) {
			err = multierror.Append(err,
				cerr.Wrapf(rmErr, "remove staging file %s", staging)).ErrorOrNil()
		}
	}()

	// Ownership and mode are in place before the monitor writes a single
	// byte of key material.
	p.Owner.ChownFile(logger, f)

	outcome, rerr := p.request(rc, key, f)

	closed = true
	if clErr := f.Close(); clErr != nil {
		return cerr.Wrapf(clErr, "close staging file %s", staging)
	}

	if rerr != nil {
		// The ceph CLI could not be run at all; treated the same as a
		// transient request failure.
		return cerr.Mark(rerr, errNotReady)
	}

	switch outcome {
	case execute.OutcomeSuccess:
		if mvErr := os.Rename(staging, key.Path); mvErr != nil {
			return cerr.Wrapf(mvErr, "install keyring %s", key.Path)
		}
		return nil
	case execute.OutcomePermissionDenied:
		return cerr.Mark(
			cerr.Newf("cannot get or create %s key: permission denied", key.Name),
			ErrPermissionDenied)
	default:
		return cerr.Mark(
			cerr.Newf("credential request for %s came back %s", key.Name, outcome),
			errNotReady)
	}
}

// request issues the credential request(s) for one attempt, streaming the
// monitor's stdout into the staging file. The admin identity first asks for
// the existing key and only synthesizes a new one when none exists, so an
// admin key with hand-edited capabilities is never overwritten.
func (p *Provisioner) request(rc *cephkeys_io.RuntimeContext, key Key, f *os.File) (execute.Outcome, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if key.IsAdmin() {
		logger.Debug("Requesting existing admin key from monitor")
		res, err := p.Runner.Run(rc.Ctx, execute.Options{
			Command: "ceph",
			Args:    p.authArgs("get", key, false),
			Timeout: p.cliTimeout(),
			Stdout:  f,
		})
		if err != nil {
			return execute.OutcomeTransient, err
		}
		outcome := execute.Classify(res.ExitCode)
		if outcome != execute.OutcomeNotFound {
			return outcome, nil
		}
		if err := rewind(f); err != nil {
			return execute.OutcomeTransient, err
		}
		logger.Debug("Admin key does not exist yet, creating it")
	}

	res, err := p.Runner.Run(rc.Ctx, execute.Options{
		Command: "ceph",
		Args:    p.authArgs("get-or-create", key, true),
		Timeout: p.cliTimeout(),
		Stdout:  f,
	})
	if err != nil {
		return execute.OutcomeTransient, err
	}
	outcome := execute.Classify(res.ExitCode)
	if outcome == execute.OutcomeNotFound {
		// ENOENT from get-or-create is not part of the contract; retry it
		// like any other failure.
		outcome = execute.OutcomeTransient
	}
	return outcome, nil
}

// authArgs builds the ceph auth command line, authenticating as the
// monitor itself.
func (p *Provisioner) authArgs(verb string, key Key, withCaps bool) []string {
	args := []string{
		"--connect-timeout=" + strconv.Itoa(int(p.ConnectTimeout.Seconds())),
		"--cluster=" + p.Cluster,
		"--name=mon.",
		"--keyring=" + MonKeyringPath(p.DataDir, p.Cluster, p.MonID),
		"auth",
		verb,
		key.Name,
	}
	if withCaps {
		args = append(args, key.Caps...)
	}
	return args
}

// cliTimeout bounds the subprocess a little beyond the CLI's own connect
// timeout so a hung binary cannot stall the attempt loop.
func (p *Provisioner) cliTimeout() time.Duration {
	return p.ConnectTimeout + 10*time.Second
}

func rewind(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return cerr.Wrap(err, "truncate staging file")
	}
	if _, err := f.Seek(0, 0); err != nil {
		return cerr.Wrap(err, "rewind staging file")
	}
	return nil
}
