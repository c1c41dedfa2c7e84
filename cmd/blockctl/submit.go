package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "ai-speech-blockifier/internal/http"
)

var mimeByExt = map[string]string{
	".mp3":  "audio/mp3",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
}

type submitOptions struct {
	server   string
	mimeType string
	interval time.Duration
	timeout  time.Duration
	compact  bool
}

func newSubmitCmd() *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit <audio-file>",
		Short: "Submit audio to a running blockifier and wait for the document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			audio, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if opts.mimeType == "" {
				opts.mimeType = mimeByExt[strings.ToLower(filepath.Ext(args[0]))]
			}
			if opts.mimeType == "" {
				return fmt.Errorf("cannot infer mime type of %s, pass --mime", args[0])
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, opts.timeout)
			defer cancel()

			c := &apiClient{base: strings.TrimRight(opts.server, "/"), http: http.DefaultClient}
			out, err := c.submitAndWait(ctx, opts.mimeType, audio, opts.interval)
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), out.Document, opts.compact)
		},
	}

	cmd.Flags().StringVarP(&opts.server, "server", "s", "http://localhost:8080", "blockifier base URL")
	cmd.Flags().StringVarP(&opts.mimeType, "mime", "m", "", "audio mime type (default: from the file extension)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 2*time.Second, "status check interval")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "give up after this long")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "print the document on one line")
	return cmd
}

type apiClient struct {
	base string
	http *http.Client
}

// submitAndWait starts the job and checks its status every interval until
// the server returns a terminal outcome.
func (c *apiClient) submitAndWait(ctx context.Context, mimeType string, audio []byte, interval time.Duration) (*httpapi.OutcomeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/blockify", bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mimeType)

	out, done, err := c.do(req)
	if err != nil {
		return nil, err
	}
	log.Info().Str("transcriptionId", out.TranscriptionID).Str("provider", out.Provider).Msg("Transcription submitted")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/blockify/"+out.TranscriptionID, nil)
		if err != nil {
			return nil, err
		}
		if out, done, err = c.do(req); err != nil {
			return nil, err
		}
		log.Debug().Str("status", out.Status).Msg("Transcription status")
	}
	return out, nil
}

// do sends req and decodes the outcome. done is false while the job runs.
func (c *apiClient) do(req *http.Request) (*httpapi.OutcomeResponse, bool, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		var out httpapi.OutcomeResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, false, fmt.Errorf("decode outcome: %w", err)
		}
		return &out, resp.StatusCode == http.StatusOK, nil
	default:
		var out httpapi.OutcomeResponse
		if err := json.Unmarshal(body, &out); err == nil && out.State != "" {
			return nil, false, fmt.Errorf("transcription %s %s: %s", out.TranscriptionID, out.State, out.Message)
		}
		var e httpapi.ErrorResponse
		if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
			return nil, false, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return nil, false, fmt.Errorf("server returned %d", resp.StatusCode)
	}
}
