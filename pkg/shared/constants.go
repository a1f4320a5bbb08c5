// pkg/shared/constants.go

package shared

import "time"

// Version is stamped by the build; the default marks dev builds.
var Version = "dev"

const (
	// AppID is the short product identifier used for log and state paths.
	AppID = "cephkeys"

	// DefaultClusterName namespaces every monitor query and keyring path.
	DefaultClusterName = "ceph"

	// ServiceUser owns every keyring file and parent directory we create.
	ServiceUser = "ceph"

	// DefaultConfDir holds the admin keyring, namespaced by cluster name.
	DefaultConfDir = "/etc/ceph"

	// DefaultDataDir holds the per-role bootstrap keyrings and the mon keyring.
	DefaultDataDir = "/var/lib/ceph"

	// DefaultRunDir holds the monitor admin sockets.
	DefaultRunDir = "/var/run/ceph"

	// MaxAttempts bounds both the quorum wait and each key request loop.
	// At one attempt per second this is roughly ten minutes.
	MaxAttempts = 600

	// RetryInterval is the sleep between attempts.
	RetryInterval = time.Second

	// ConnectTimeout is passed to the ceph CLI so a dead monitor cannot
	// block a single attempt forever.
	ConnectTimeout = 20 * time.Second

	// KeyringDirPerm restricts keyring directories to owner and group.
	KeyringDirPerm = 0o770

	// KeyringFilePerm restricts keyring files to the owner.
	KeyringFilePerm = 0o600
)

// Preferred log locations, probed in order by the logger package.
const (
	LogDir     = "/var/log/cephkeys"
	LogFile    = "/var/log/cephkeys/cephkeys.log"
	LogFilePWD = "./cephkeys.log"
)
