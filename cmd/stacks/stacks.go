// Package stackscmder
package stackscmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/stacks/cmd/stacks/ask"
	configcmder "github.com/papercomputeco/stacks/cmd/stacks/config"
	ingestcmder "github.com/papercomputeco/stacks/cmd/stacks/ingest"
	servecmder "github.com/papercomputeco/stacks/cmd/stacks/serve"
	watchcmder "github.com/papercomputeco/stacks/cmd/stacks/watch"
	versioncmder "github.com/papercomputeco/stacks/cmd/version"
)

const stacksLongDesc string = `Stacks is a document question-answering service.

Upload PDFs, then ask questions against them:
  stacks serve             Run the API server
  stacks ingest <file>     Ingest a document from the command line
  stacks ask <id> <query>  Ask a question against an ingested document
  stacks watch <dir>       Watch a directory and ingest dropped files`

const stacksShortDesc string = "Stacks - Document Q&A"

func NewStacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stacks",
		Short: stacksShortDesc,
		Long:  stacksLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .stacks/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
