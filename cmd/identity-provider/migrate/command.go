package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/identity-provider/internal/business"
	"github.com/openkcm/identity-provider/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Identity Provider migrations",
		"Identity Provider migrations apply the database schema with goose.",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
