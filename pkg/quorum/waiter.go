// pkg/quorum/waiter.go

package quorum

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_io"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/shared"
)

// Sentinel errors for the two fatal exits of the wait loop.
var (
	// ErrMalformedStatus: mon_status output that is not valid JSON means a
	// protocol mismatch with the monitor; retrying cannot help.
	ErrMalformedStatus = cerr.New("mon status output is not parseable")

	// ErrQuorumTimeout: the attempt budget ran out before the monitor
	// joined quorum.
	ErrQuorumTimeout = cerr.New("monitor did not reach quorum in time")
)

// State is the monitor state reported by mon_status.
type State string

const (
	StateLeader State = "leader"
	StatePeon   State = "peon"
)

// InQuorum reports whether the monitor is a quorum participant.
func (s State) InQuorum() bool {
	return s == StateLeader || s == StatePeon
}

// monStatus is the subset of the mon_status record we care about.
type monStatus struct {
	State State `json:"state"`
}

// Waiter polls a monitor's admin socket until it reports a quorum role.
type Waiter struct {
	Runner      execute.Runner
	MaxAttempts int
	Interval    time.Duration
	RunDir      string
}

// NewWaiter returns a Waiter with the production ceilings: 600 attempts one
// second apart, roughly ten minutes.
func NewWaiter(runner execute.Runner) *Waiter {
	return &Waiter{
		Runner:      runner,
		MaxAttempts: shared.MaxAttempts,
		Interval:    shared.RetryInterval,
		RunDir:      shared.DefaultRunDir,
	}
}

// SocketPath returns the monitor's admin socket path for a cluster and id.
func SocketPath(runDir, cluster, monID string) string {
	return filepath.Join(runDir, fmt.Sprintf("%s-mon.%s.asok", cluster, monID))
}

// Wait blocks until the monitor reports leader or peon, the attempt budget
// runs out, or the status record stops parsing.
func (w *Waiter) Wait(rc *cephkeys_io.RuntimeContext, cluster, monID string) error {
	logger := otelzap.Ctx(rc.Ctx)
	sock := SocketPath(w.RunDir, cluster, monID)

	logger.Info("Waiting for monitor to join quorum",
		zap.String("cluster", cluster),
		zap.String("mon_id", monID),
		zap.String("socket", sock),
		zap.Int("max_attempts", w.MaxAttempts))

	for attempt := 1; attempt <= w.MaxAttempts; attempt++ {
		res, err := w.Runner.Run(rc.Ctx, execute.Options{
			Command: "ceph",
			Args: []string{
				"--cluster=" + cluster,
				"--admin-daemon=" + sock,
				"mon_status",
			},
		})
		if err != nil || res.ExitCode != 0 {
			logger.Debug("Monitor status query failed, not ready yet",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if err := w.sleep(rc, attempt); err != nil {
				return err
			}
			continue
		}

		out := strings.TrimSpace(res.Output)
		if out == "" {
			logger.Debug("Monitor status query returned no output, not ready yet",
				zap.Int("attempt", attempt))
			if err := w.sleep(rc, attempt); err != nil {
				return err
			}
			continue
		}

		var status monStatus
		if err := json.Unmarshal([]byte(out), &status); err != nil {
			return cerr.Mark(
				cerr.Wrapf(err, "unable to parse mon_status output %q", out),
				ErrMalformedStatus)
		}

		if status.State.InQuorum() {
			logger.Info("Monitor is in quorum",
				zap.String("state", string(status.State)),
				zap.Int("attempts", attempt))
			return nil
		}

		logger.Debug("Monitor not yet in quorum",
			zap.String("state", string(status.State)),
			zap.Int("attempt", attempt))
		if err := w.sleep(rc, attempt); err != nil {
			return err
		}
	}

	return cerr.Mark(
		cerr.Newf("cluster %s monitor %s did not reach quorum after %d attempts",
			cluster, monID, w.MaxAttempts),
		ErrQuorumTimeout)
}

// sleep pauses between attempts; the final attempt gets no trailing sleep.
func (w *Waiter) sleep(rc *cephkeys_io.RuntimeContext, attempt int) error {
	if attempt >= w.MaxAttempts {
		return nil
	}
	return shared.Sleep(rc.Ctx, w.Interval)
}
