package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ai-speech-blockifier/internal/models"
	"ai-speech-blockifier/internal/schema"
	"ai-speech-blockifier/internal/service/job"
	"ai-speech-blockifier/internal/service/normalize"
)

const (
	shapePolling = "polling"
	shapeSync    = "sync"
)

type normalizeOptions struct {
	shape    string
	features normalize.Features
	compact  bool
}

func newNormalizeCmd() *cobra.Command {
	var opts normalizeOptions

	cmd := &cobra.Command{
		Use:   "normalize <response.json>",
		Short: "Normalize a saved provider response into a block document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return runNormalize(f, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.shape, "provider", "p", shapePolling, "response shape: polling or sync")
	cmd.Flags().BoolVar(&opts.features.SpeakerDetection, "speakers", false, "require the speaker section")
	cmd.Flags().BoolVar(&opts.features.AudioIntelligence, "intelligence", false, "require the audio intelligence sections")
	cmd.Flags().BoolVar(&opts.features.Summarize, "summarize", false, "require the summary section")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "print the document on one line")
	return cmd
}

func runNormalize(r io.Reader, w io.Writer, opts normalizeOptions) error {
	doc, err := decodeAndNormalize(r, opts)
	if err != nil {
		return err
	}
	if err := schema.New().Validate(doc); err != nil {
		return err
	}
	return writeDocument(w, doc, opts.compact)
}

func decodeAndNormalize(r io.Reader, opts normalizeOptions) (*models.Document, error) {
	dec := json.NewDecoder(r)

	switch opts.shape {
	case shapePolling:
		var resp normalize.PollingResponse
		if err := dec.Decode(&resp); err != nil {
			return nil, fmt.Errorf("decode polling response: %w", err)
		}
		out, err := normalize.ResolvePolling(&resp, opts.features)
		if err != nil {
			return nil, err
		}
		switch out.State {
		case job.StateSucceeded:
			return out.Document, nil
		case job.StateFailed:
			return nil, fmt.Errorf("transcription %s failed: %s", resp.ID, out.Reason)
		default:
			return nil, fmt.Errorf("transcription %s is still %s", resp.ID, out.Status)
		}

	case shapeSync:
		var resp normalize.SyncResponse
		if err := dec.Decode(&resp); err != nil {
			return nil, fmt.Errorf("decode sync response: %w", err)
		}
		return normalize.NormalizeSync(&resp, opts.features)

	default:
		return nil, fmt.Errorf("unknown provider shape %q (want %s or %s)", opts.shape, shapePolling, shapeSync)
	}
}

func writeDocument(w io.Writer, doc *models.Document, compact bool) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}
