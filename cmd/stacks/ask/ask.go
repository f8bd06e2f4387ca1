// Package askcmder provides the ask command for querying ingested documents
// through the stacks API.
package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/api"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/logger"
)

var (
	rankStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	chunkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type askCommander struct {
	documentID int64
	question   string
	quiet      bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const askLongDesc string = `Ask a question against an ingested document via the stacks API.

The question is embedded and the most relevant chunks of the document are
returned, ranked by semantic similarity, together with a synthesized answer.
Requires a running stacks API server.

Use --quiet to output only the answer text, one line per call. This is
useful for piping into other commands.

Example:
  stacks ask 1 "what are the payment terms?"
  stacks ask 1 "termination clauses" --api-target http://localhost:8080
  stacks ask 3 "summary of section 2" --quiet`

const askShortDesc string = "Ask a question against a document"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <document-id> <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("document id must be an integer: %q", args[0])
			}
			cmder.documentID = id
			cmder.question = args[1]

			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only the answer text (for piping)")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Stacks API server URL")

	return cmd
}

func (c *askCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	data, err := QueryAPI(c.apiTarget, c.documentID, c.question)
	if err != nil {
		return err
	}

	if c.quiet {
		fmt.Println(data.Answer)
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Answer for:"),
		answerStyle.Render(fmt.Sprintf("%q", c.question)),
	)
	fmt.Printf("%s\n\n", answerStyle.Render(data.Answer))

	if len(data.RelevantChunks) > 0 {
		fmt.Printf("%s\n", headerStyle.Render("Relevant chunks:"))
		for i, chunk := range data.RelevantChunks {
			text := strings.ReplaceAll(chunk.ChunkText, "\n", " ")
			if len(text) > 80 {
				text = text[:77] + "..."
			}
			fmt.Printf("  %s  %s  %s\n",
				rankStyle.Render(fmt.Sprintf("#%d", i+1)),
				scoreStyle.Render(fmt.Sprintf("distance: %.4f", chunk.Score)),
				chunkStyle.Render(text),
			)
		}
		fmt.Printf("  %s\n\n", dimStyle.Render(fmt.Sprintf("%d chunks", len(data.RelevantChunks))))
	}

	return nil
}

// QueryAPI calls the stacks query API and returns the parsed payload.
// Exported so other commands can reuse it.
func QueryAPI(apiTarget string, documentID int64, question string) (*api.QueryData, error) {
	queryURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	queryURL.Path = fmt.Sprintf("/api/pdfs/query/%d", documentID)

	body, err := json.Marshal(api.QueryRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("encoding query request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, queryURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stacks API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query request failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var envelope api.QueryResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	return &envelope.Data, nil
}
