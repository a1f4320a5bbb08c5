// pkg/keyring/keys.go

package keyring

import (
	"fmt"
	"path/filepath"
)

// AdminPrincipal is the cluster administrator credential identity.
const AdminPrincipal = "client.admin"

// BootstrapRoles are the service roles that get a provisioning-time key,
// in the fixed order they are provisioned: object storage gateway,
// metadata server, object storage daemon.
var BootstrapRoles = []string{"rgw", "mds", "osd"}

// Key identifies one credential to provision: the principal name, the
// keyring path it lands at, and the capability profile requested if the
// credential has to be created.
type Key struct {
	Name string
	Path string
	Caps []string
}

// IsAdmin reports whether this is the administrator credential, which gets
// the two-step get-then-create request flow.
func (k Key) IsAdmin() bool {
	return k.Name == AdminPrincipal
}

// AdminKey returns the administrator credential for a cluster. The creation
// profile grants unrestricted access to the monitor, object storage, and
// metadata subsystems.
func AdminKey(confDir, cluster string) Key {
	return Key{
		Name: AdminPrincipal,
		Path: filepath.Join(confDir, cluster+".client.admin.keyring"),
		Caps: []string{
			"mon", "allow *",
			"osd", "allow *",
			"mds", "allow *",
		},
	}
}

// BootstrapKey returns the provisioning credential for one service role,
// limited to the matching bootstrap profile on the monitor.
func BootstrapKey(dataDir, cluster, role string) Key {
	return Key{
		Name: "client.bootstrap-" + role,
		Path: filepath.Join(dataDir, "bootstrap-"+role, cluster+".keyring"),
		Caps: []string{"mon", "allow profile bootstrap-" + role},
	}
}

// MonKeyringPath returns the monitor's own keyring, used as the
// authentication identity for every credential request.
func MonKeyringPath(dataDir, cluster, monID string) string {
	return filepath.Join(dataDir, "mon", fmt.Sprintf("%s-%s", cluster, monID), "keyring")
}

// StagingPath derives the process-unique scratch path a keyring is built at
// before the atomic rename into place.
func StagingPath(target string, pid int) string {
	return fmt.Sprintf("%s.%d.tmp", target, pid)
}
