package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/identity-provider/internal/business"
	"github.com/openkcm/identity-provider/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Identity Provider Housekeeping job",
		"Identity Provider Housekeeping job prunes passkey records left behind by deleted accounts.",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
