// pkg/keyring/owner.go

package keyring

import (
	"os"
	"os/user"
	"strconv"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_io"
)

// Owner is the uid/gid keyrings are chowned to. -1 leaves the respective
// id unchanged, matching chown(2).
type Owner struct {
	UID int
	GID int
}

// UnresolvedOwner keeps current ownership on every path it is applied to.
var UnresolvedOwner = Owner{UID: -1, GID: -1}

// LookupOwner resolves the service user and group by name. Resolution
// failure degrades to UnresolvedOwner with a warning: on systems without a
// dedicated ceph user the keyrings simply stay owned by the invoking user.
func LookupOwner(rc *cephkeys_io.RuntimeContext, name string) Owner {
	logger := otelzap.Ctx(rc.Ctx)
	owner := UnresolvedOwner

	u, err := user.Lookup(name)
	if err != nil {
		logger.Warn("Service user not found, keeping current ownership",
			zap.String("user", name),
			zap.Error(err))
		return owner
	}
	if uid, err := strconv.Atoi(u.Uid); err == nil {
		owner.UID = uid
	}

	g, err := user.LookupGroup(name)
	if err != nil {
		logger.Warn("Service group not found, keeping current group",
			zap.String("group", name),
			zap.Error(err))
		return owner
	}
	if gid, err := strconv.Atoi(g.Gid); err == nil {
		owner.GID = gid
	}

	return owner
}

// Resolved reports whether at least one of uid/gid was resolved.
func (o Owner) Resolved() bool {
	return o.UID >= 0 || o.GID >= 0
}

// Chown applies the owner to a path; failure is logged and tolerated, the
// same as the monitor bootstrap path fixes.
func (o Owner) Chown(logger otelzap.LoggerWithCtx, path string) {
	if !o.Resolved() {
		return
	}
	if err := os.Chown(path, o.UID, o.GID); err != nil {
		logger.Warn("Failed to chown (continuing)",
			zap.String("path", path),
			zap.Error(err))
	}
}

// ChownFile applies the owner to an open file before any data is written
// to it.
func (o Owner) ChownFile(logger otelzap.LoggerWithCtx, f *os.File) {
	if !o.Resolved() {
		return
	}
	if err := f.Chown(o.UID, o.GID); err != nil {
		logger.Warn("Failed to chown staging file (continuing)",
			zap.String("path", f.Name()),
			zap.Error(err))
	}
}
