// pkg/cephkeys_cli/wrap.go

package cephkeys_cli

import (
	"context"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_err"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_io"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/logger"
)

// Wrap adapts a RuntimeContext-based handler to cobra's RunE, adding panic
// recovery, span/logger lifecycle, and stack capture for unexpected errors.
func Wrap(fn func(rc *cephkeys_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if logger.L() == nil {
			logger.InitializeWithFallback()
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		rc := cephkeys_io.NewContext(ctx, cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		err = fn(rc, cmd, args)
		if err != nil && !cephkeys_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
