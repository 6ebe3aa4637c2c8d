package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/leonardotrapani/webtranscriber/internal/models/whisper"
	"github.com/spf13/cobra"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage local whisper.cpp models used by serve",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())

	return cmd
}

// modelStore opens the models directory from the config, or the default one.
func modelStore() (*whisper.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dir := cfg.Server.WhisperCpp.ModelsDir
	if dir == "" {
		dir, err = whisper.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve models directory: %w", err)
		}
	}
	return whisper.NewStore(dir), nil
}

func modelListCmd() *cobra.Command {
	var installedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List whisper models and whether they are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := modelStore()
			if err != nil {
				return err
			}
			printModels(cmd.OutOrStdout(), store, installedOnly)
			return nil
		},
	}

	cmd.Flags().BoolVar(&installedOnly, "installed", false, "only show downloaded models")

	return cmd
}

func printModels(w io.Writer, store *whisper.Store, installedOnly bool) {
	fmt.Fprintf(w, "\n%s:\n", store.Dir())
	for _, m := range whisper.Catalog() {
		installed := store.IsInstalled(m.ID)
		if installedOnly && !installed {
			continue
		}
		fmt.Fprintln(w, modelLine(m, installed))
	}
	fmt.Fprintln(w)
}

func modelLine(m whisper.Model, installed bool) string {
	prefix := "  [ ]"
	if installed {
		prefix = "  [x]"
	}

	var parts []string
	if m.Multilingual {
		parts = append(parts, "multilingual")
	} else {
		parts = append(parts, "english")
	}
	if m.Size != "" {
		parts = append(parts, m.Size)
	}

	return fmt.Sprintf("%s %s [%s]", prefix, m.ID, strings.Join(parts, ", "))
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-name>",
		Short: "Download a whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := modelStore()
			if err != nil {
				return err
			}
			return runModelDownload(cmd.Context(), cmd.OutOrStdout(), store, args[0])
		},
	}
}

func runModelDownload(ctx context.Context, w io.Writer, store *whisper.Store, modelName string) error {
	model, err := whisper.Lookup(modelName)
	if err != nil {
		return err
	}

	if store.IsInstalled(modelName) {
		path, _ := store.Path(modelName)
		fmt.Fprintf(w, "model '%s' is already installed at %s\n", modelName, path)
		return nil
	}

	fmt.Fprintf(w, "downloading %s (%s)...\n", modelName, model.Size)

	var lastPercent int
	err = store.Download(ctx, modelName, func(downloaded, total int64) {
		if total > 0 {
			percent := int(downloaded * 100 / total)
			if percent >= lastPercent+10 {
				fmt.Fprintf(w, "%d%% ", percent)
				lastPercent = percent
			}
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	path, _ := store.Path(modelName)
	fmt.Fprintf(w, "\ndownload complete: %s\n", path)
	return nil
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-name>",
		Short: "Remove a downloaded whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := modelStore()
			if err != nil {
				return err
			}
			if _, err := whisper.Lookup(args[0]); err != nil {
				return err
			}
			if !store.IsInstalled(args[0]) {
				return fmt.Errorf("model '%s' is not installed", args[0])
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model '%s' removed successfully\n", args[0])
			return nil
		},
	}
}
