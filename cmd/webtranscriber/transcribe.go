package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leonardotrapani/webtranscriber/internal/client"
	"github.com/leonardotrapani/webtranscriber/internal/session"
	"github.com/leonardotrapani/webtranscriber/internal/subtitle"
	"github.com/leonardotrapani/webtranscriber/internal/tui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type transcribeOptions struct {
	plain    bool
	model    string
	download []string
	save     []string
	outDir   string
	summary  bool
}

func transcribeCmd() *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe [audio-file]",
		Short: "Upload an audio file and stream its transcript",
		Long: `Upload an audio file to the transcription service and print the
transcript as it streams back.

On a terminal the transcript is shown live (c clears, q quits). Without a
file argument a file picker opens. With --plain, or when output is piped,
lines are printed as plain text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print plain lines instead of the live view")
	cmd.Flags().StringVar(&opts.model, "model", "", "model name (overrides client.model_name)")
	cmd.Flags().StringSliceVar(&opts.download, "download", nil, "artifacts to download from the service: srt, vtt, txt")
	cmd.Flags().StringSliceVar(&opts.save, "save", nil, "artifacts to render locally from the streamed lines: srt, vtt, txt")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "directory for downloaded and saved artifacts")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print a summary table when done")

	return cmd
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runTranscribe(ctx context.Context, out io.Writer, args []string, opts transcribeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	downloads, err := subtitle.ParseFormats(opts.download)
	if err != nil {
		return err
	}
	saves, err := subtitle.ParseFormats(opts.save)
	if err != nil {
		return err
	}

	interactive := !opts.plain && isTerminal(os.Stdin) && isTerminal(os.Stdout)

	var path string
	switch {
	case len(args) == 1:
		path = args[0]
	case interactive:
		path, err = tui.PickFile("")
		if errors.Is(err, tui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to pick file: %w", err)
		}
	default:
		return fmt.Errorf("audio file required when not running in a terminal")
	}

	cc := clientConfig(cfg)
	if opts.model != "" {
		cc.ModelName = opts.model
	}
	// the service only keeps the artifacts asked for at upload time
	cc.Options = subtitle.Enable(cc.Options, downloads...)

	c := client.New(cc, nil)
	sess := session.New(c)
	sess.Select(path)

	var res client.Result
	if interactive {
		res, err = tui.RunLive(ctx, sess)
	} else {
		p := tui.NewPrinter(out)
		sess.Observe(p.Update)
		res, err = sess.Start(ctx)
	}
	if err != nil {
		return err
	}

	snap := sess.Snapshot()
	if snap.State != session.Complete {
		// cleared from the live view
		return nil
	}

	notifier := cfg.ToNotifier()
	if !res.OK() {
		notifier.TranscriptionFailed(path, res.Err)
		return fmt.Errorf("transcription failed (%s): %w", res.Status, res.Err)
	}
	notifier.TranscriptionComplete(path, res.Lines, res.JobID)

	written, err := writeArtifacts(ctx, c, snap, opts.outDir, downloads, saves)
	if len(written) > 0 {
		notifier.Downloaded(written)
		for _, p := range written {
			fmt.Fprintf(os.Stderr, "wrote %s\n", p)
		}
	}
	if err != nil {
		notifier.Error(err.Error())
		return err
	}

	if opts.summary {
		urls := make(map[subtitle.Format]string)
		for _, f := range subtitle.Requested(cc.Options) {
			if u, err := sess.DownloadURL(string(f)); err == nil {
				urls[f] = u
			}
		}
		tui.WriteSummary(out, snap, urls)
	}
	return nil
}

// writeArtifacts downloads the service artifacts and renders the local ones
// into dir, named after the audio file.
func writeArtifacts(ctx context.Context, c *client.Client, snap session.Snapshot, dir string, downloads, saves []subtitle.Format) ([]string, error) {
	if len(downloads) == 0 && len(saves) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(snap.File), filepath.Ext(snap.File))

	var written []string
	for _, f := range downloads {
		if snap.JobID == "" {
			return written, fmt.Errorf("no job id received, cannot download %s", f)
		}
		dest := filepath.Join(dir, base+"."+string(f))
		if err := writeFile(dest, func(w io.Writer) error {
			_, err := c.Download(ctx, snap.JobID, string(f), w)
			return err
		}); err != nil {
			return written, fmt.Errorf("failed to download %s: %w", f, err)
		}
		written = append(written, dest)
	}

	if len(saves) > 0 {
		segs, skipped := subtitle.FromLines(snap.Lines)
		if skipped > 0 {
			fmt.Fprintf(os.Stderr, "skipped %d lines without a usable timestamp\n", skipped)
		}
		for _, f := range saves {
			dest := filepath.Join(dir, base+".local."+string(f))
			if err := writeFile(dest, func(w io.Writer) error {
				return subtitle.Render(w, f, segs)
			}); err != nil {
				return written, fmt.Errorf("failed to save %s: %w", f, err)
			}
			written = append(written, dest)
		}
	}
	return written, nil
}

// writeFile fills path through fill, removing it again when fill fails.
func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func downloadCmd() *cobra.Command {
	var urlOnly bool
	var out string

	cmd := &cobra.Command{
		Use:   "download <job-id> <format>",
		Short: "Download an artifact of a finished job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c := client.New(clientConfig(cfg), nil)
			id, format := args[0], args[1]

			if urlOnly {
				u, err := c.DownloadURL(id, format)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			}

			if out == "" || out == "-" {
				_, err := c.Download(cmd.Context(), id, format, cmd.OutOrStdout())
				return err
			}
			if err := writeFile(out, func(w io.Writer) error {
				_, err := c.Download(cmd.Context(), id, format, w)
				return err
			}); err != nil {
				return fmt.Errorf("failed to download: %w", err)
			}
			cfg.ToNotifier().Downloaded([]string{out})
			return nil
		},
	}

	cmd.Flags().BoolVar(&urlOnly, "url-only", false, "print the download URL instead of fetching it")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")

	return cmd
}
