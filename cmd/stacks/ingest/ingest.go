// Package ingestcmder provides the ingest command for loading a document
// into the store from the command line.
package ingestcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/stacks/pkg/embeddings/utils"
	"github.com/papercomputeco/stacks/pkg/eventstream/nop"
	"github.com/papercomputeco/stacks/pkg/extract"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/logger"
	"github.com/papercomputeco/stacks/pkg/store/sqlitevec"
)

type ingestCommander struct {
	filePath string

	configDir string
	debug     bool
	v         *viper.Viper
	logger    *zap.Logger
}

const ingestLongDesc string = `Ingest a document into the local store.

Extracts text from the given file, splits it into overlapping chunks, embeds
every chunk, and stores the document atomically. Prints the new document id
on success.

Examples:
  stacks ingest report.pdf
  stacks ingest notes.txt`

const ingestShortDesc string = "Ingest a document"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.filePath = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run()
		},
	}

	return cmd
}

func (c *ingestCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()

	data, err := os.ReadFile(c.filePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.filePath, err)
	}

	var text string
	err = cliui.Step(os.Stdout, "Extracting text", func() error {
		var extractErr error
		text, extractErr = c.extractor().Extract(ctx, data)
		return extractErr
	})
	if err != nil {
		return err
	}

	sqlitePath := c.v.GetString("storage.sqlite_path")
	if sqlitePath == "" {
		target, err := dotdir.NewManager().Target(c.configDir)
		if err != nil {
			return fmt.Errorf("resolving sqlite path: %w", err)
		}
		sqlitePath = filepath.Join(target, "stacks.db")
	}

	storer, err := sqlitevec.NewDriver(sqlitevec.Config{
		DBPath:     sqlitePath,
		Dimensions: c.v.GetUint("embedding.dimensions"),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating sqlite store: %w", err)
	}
	defer storer.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.v.GetString("embedding.provider"),
		TargetURL:    c.v.GetString("embedding.target"),
		Model:        c.v.GetString("embedding.model"),
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}
	defer embedder.Close()

	coordinator := ingest.NewCoordinator(embedder, storer, nop.NewPublisher(), c.logger)

	var result *ingest.Result
	err = cliui.Step(os.Stdout, "Chunking, embedding, and storing", func() error {
		var ingestErr error
		result, ingestErr = coordinator.Ingest(ctx, text, filepath.Base(c.filePath))
		return ingestErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Ingested %s as document %s (%d chunks)\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(result.Filename),
		cliui.KeyStyle.Render(fmt.Sprintf("%d", result.DocumentID)),
		result.ChunksStored,
	)
	return nil
}

// extractor picks a text extractor from the file extension.
func (c *ingestCommander) extractor() extract.Extractor {
	if strings.EqualFold(filepath.Ext(c.filePath), ".pdf") {
		return extract.NewPDF()
	}
	return extract.NewPlainText()
}
