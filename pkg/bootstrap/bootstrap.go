// pkg/bootstrap/bootstrap.go

package bootstrap

import (
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_io"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/keyring"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/quorum"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/shared"
)

// Config is the full configuration surface of one provisioning run.
type Config struct {
	// Cluster namespaces every monitor query and keyring path.
	Cluster string `validate:"required"`

	// MonID is the monitor instance being waited on and queried.
	MonID string `validate:"required"`

	// WaitAttempts bounds the quorum wait; KeyAttempts bounds each
	// credential request loop.
	WaitAttempts int `validate:"gt=0"`
	KeyAttempts  int `validate:"gt=0"`

	Interval       time.Duration `validate:"gt=0"`
	ConnectTimeout time.Duration `validate:"gt=0"`

	RunDir  string `validate:"required"`
	ConfDir string `validate:"required"`
	DataDir string `validate:"required"`

	// OwnerName is the service user/group that owns every keyring.
	OwnerName string

	Runner execute.Runner `validate:"required"`
}

// ApplyDefaults fills every zero field with the production value. MonID has
// no default; it must come from the caller.
func (c *Config) ApplyDefaults() {
	if c.Cluster == "" {
		c.Cluster = shared.DefaultClusterName
	}
	if c.WaitAttempts == 0 {
		c.WaitAttempts = shared.MaxAttempts
	}
	if c.KeyAttempts == 0 {
		c.KeyAttempts = shared.MaxAttempts
	}
	if c.Interval == 0 {
		c.Interval = shared.RetryInterval
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = shared.ConnectTimeout
	}
	if c.RunDir == "" {
		c.RunDir = shared.DefaultRunDir
	}
	if c.ConfDir == "" {
		c.ConfDir = shared.DefaultConfDir
	}
	if c.DataDir == "" {
		c.DataDir = shared.DefaultDataDir
	}
	if c.OwnerName == "" {
		c.OwnerName = shared.ServiceUser
	}
	if c.Runner == nil {
		c.Runner = execute.Exec{}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Run is the whole first-run sequence: wait for the monitor to join
// quorum, install the admin keyring, then install each bootstrap role's
// keyring in fixed order. A role denied by the monitor is logged and
// skipped; every other failure aborts the run.
func Run(rc *cephkeys_io.RuntimeContext, cfg Config) error {
	logger := otelzap.Ctx(rc.Ctx)

	cfg.ApplyDefaults()
	if err := validate.Struct(&cfg); err != nil {
		return cerr.WithHint(
			cerr.Wrap(err, "invalid bootstrap configuration"),
			"pass --id/-i or set CEPHKEYS_ID to the monitor id")
	}

	logger.Info("Starting key provisioning run",
		zap.String("cluster", cfg.Cluster),
		zap.String("mon_id", cfg.MonID))

	waiter := &quorum.Waiter{
		Runner:      cfg.Runner,
		MaxAttempts: cfg.WaitAttempts,
		Interval:    cfg.Interval,
		RunDir:      cfg.RunDir,
	}
	if err := waiter.Wait(rc, cfg.Cluster, cfg.MonID); err != nil {
		return err
	}

	prov := &keyring.Provisioner{
		Runner:         cfg.Runner,
		Cluster:        cfg.Cluster,
		MonID:          cfg.MonID,
		MaxAttempts:    cfg.KeyAttempts,
		Interval:       cfg.Interval,
		ConnectTimeout: cfg.ConnectTimeout,
		ConfDir:        cfg.ConfDir,
		DataDir:        cfg.DataDir,
		Owner:          keyring.LookupOwner(rc, cfg.OwnerName),
	}

	// Without an admin key the bootstrap keys are of no use, so any admin
	// failure aborts the run.
	if err := prov.Ensure(rc, prov.AdminKey()); err != nil {
		return cerr.Wrap(err, "provision admin keyring")
	}

	var skipped []string
	for _, role := range keyring.BootstrapRoles {
		err := prov.Ensure(rc, prov.BootstrapKey(role))
		if cerr.Is(err, keyring.ErrPermissionDenied) {
			logger.Warn("Skipping bootstrap keyring, monitor denied the request",
				zap.String("role", role),
				zap.Error(err))
			skipped = append(skipped, role)
			continue
		}
		if err != nil {
			return cerr.Wrapf(err, "provision bootstrap-%s keyring", role)
		}
	}

	if len(skipped) > 0 {
		logger.Warn("Provisioning finished with skipped roles",
			zap.Strings("skipped", skipped))
	} else {
		logger.Info("Provisioning finished, all keyrings in place")
	}
	return nil
}
