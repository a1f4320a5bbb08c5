// cmd/root.go

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/bootstrap"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_cli"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_err"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_io"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/telemetry"
)

var (
	clusterName string
	monID       string
	verbose     bool
)

// RootCmd is the single-purpose entrypoint: wait for the monitor, then
// provision the admin and bootstrap keyrings.
var RootCmd = &cobra.Command{
	Use:   "cephkeys",
	Short: "Provision Ceph admin and bootstrap keyrings once a monitor joins quorum",
	Long: `cephkeys runs once after a Ceph monitor first starts. It polls the
monitor's admin socket until the monitor reports a quorum role (leader or
peon), then asks the monitor for the cluster admin key and one bootstrap key
per service role (rgw, mds, osd), installing each keyring atomically at its
well-known path with service ownership and restrictive permissions.

Re-running is always safe: keyrings that already exist are never touched.

EXAMPLES:
  # Provision keys for the monitor named after this host
  cephkeys --id $(hostname -s)

  # Non-default cluster name
  cephkeys --cluster backup --id mon-a

Flags can also come from the environment (CEPHKEYS_CLUSTER, CEPHKEYS_ID);
CEPHKEYS_WAIT_ATTEMPTS and CEPHKEYS_KEY_ATTEMPTS override the retry
ceilings.`,
	SilenceUsage: true,
	Version:      shared.Version,

	RunE: cephkeys_cli.Wrap(runCreateKeys),
}

func init() {
	RootCmd.Flags().StringVar(&clusterName, "cluster", shared.DefaultClusterName, "cluster name used for queries and keyring paths")
	RootCmd.Flags().StringVarP(&monID, "id", "i", "", "id of the monitor to wait on (required)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	viper.SetEnvPrefix("CEPHKEYS")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("cluster", RootCmd.Flags().Lookup("cluster"))
	_ = viper.BindPFlag("id", RootCmd.Flags().Lookup("id"))
	viper.SetDefault("wait_attempts", shared.MaxAttempts)
	viper.SetDefault("key_attempts", shared.MaxAttempts)
}

func runCreateKeys(rc *cephkeys_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	logger.SetVerbose(verbose)

	cfg := bootstrap.Config{
		Cluster:      viper.GetString("cluster"),
		MonID:        viper.GetString("id"),
		WaitAttempts: viper.GetInt("wait_attempts"),
		KeyAttempts:  viper.GetInt("key_attempts"),
		Runner:       execute.Exec{},
	}

	return bootstrap.Run(rc, cfg)
}

// Execute runs the CLI and maps the outcome onto the process exit status.
func Execute() {
	defer func() { _ = logger.Sync() }()

	if err := telemetry.Init(shared.AppID); err != nil {
		logger.GetLogger().Warn("Telemetry init failed", zap.Error(err))
	}

	if err := RootCmd.Execute(); err != nil {
		if cephkeys_err.IsExpectedUserError(err) {
			logger.GetLogger().Warn("Completed with user error", zap.Error(err))
		} else {
			logger.GetLogger().Error("Key provisioning failed", zap.Error(err))
		}
		os.Exit(cephkeys_err.ExitCode(err))
	}
}
