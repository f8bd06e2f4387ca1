// Package watchcmder provides the watch command for auto-ingesting files
// dropped into a directory.
package watchcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/api"
	"github.com/papercomputeco/stacks/pkg/cliui"
	"github.com/papercomputeco/stacks/pkg/config"
	"github.com/papercomputeco/stacks/pkg/logger"
)

// settleDelay is how long to wait after the last write event before a file
// is considered fully copied into the drop directory.
const settleDelay = 500 * time.Millisecond

type watchCommander struct {
	dir string

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const watchLongDesc string = `Watch a directory and ingest every document dropped into it.

New .pdf and .txt files are uploaded to the running stacks API server as they
appear. Files are uploaded once they stop changing for half a second, so
partially copied files are not picked up.

Example:
  stacks watch ./inbox
  stacks watch /srv/drop --api-target http://localhost:8080`

const watchShortDesc string = "Watch a directory and ingest dropped files"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
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
			cmder.dir = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Stacks API server URL")

	return cmd
}

func (c *watchCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	info, err := os.Stat(c.dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", c.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("watching %s: %w", c.dir, err)
	}

	fmt.Printf("\n  %s Watching %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(c.dir),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// pending tracks files whose last write is still settling.
	pending := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !c.ingestable(event.Name) {
				continue
			}

			path := event.Name
			if timer, ok := pending[path]; ok {
				timer.Reset(settleDelay)
				continue
			}
			pending[path] = time.AfterFunc(settleDelay, func() {
				c.upload(path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watch error", zap.Error(err))

		case sig := <-sigChan:
			c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			return nil
		}
	}
}

// ingestable reports whether the file extension is one we upload.
func (c *watchCommander) ingestable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt":
		return true
	default:
		return false
	}
}

// upload posts the file to the API and prints the outcome.
func (c *watchCommander) upload(path string) {
	result, err := UploadAPI(c.apiTarget, path)
	if err != nil {
		fmt.Printf("  %s %s: %v\n", cliui.FailMark, filepath.Base(path), err)
		return
	}

	fmt.Printf("  %s %s ingested as document %s (%d chunks)\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(result.Data.Filename),
		cliui.KeyStyle.Render(fmt.Sprintf("%d", result.Data.DocumentID)),
		result.Data.ChunksStored,
	)
}

// UploadAPI posts a file to the stacks upload endpoint and returns the
// ingestion result. Exported so other commands can reuse it.
func UploadAPI(apiTarget, path string) (*api.UploadResponse, error) {
	uploadURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	uploadURL.Path = "/api/pdfs/upload"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("pdfFile", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, uploadURL.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stacks API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upload failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var envelope api.UploadResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}

	return &envelope, nil
}
