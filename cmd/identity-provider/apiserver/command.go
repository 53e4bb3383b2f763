package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/identity-provider/internal/business"
	"github.com/openkcm/identity-provider/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Identity Provider API server",
		"Identity Provider API server hosts the public OIDC and passkey HTTP API",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
