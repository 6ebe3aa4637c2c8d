package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/leonardotrapani/webtranscriber/internal/backend"
	"github.com/leonardotrapani/webtranscriber/internal/client"
	"github.com/leonardotrapani/webtranscriber/internal/config"
	"github.com/leonardotrapani/webtranscriber/internal/deps"
	"github.com/leonardotrapani/webtranscriber/internal/models/whisper"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const healthTimeout = 5 * time.Second

// check is one row of the doctor report.
type check struct {
	name   string
	ok     bool
	detail string
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the service endpoint and local engine requirements",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			checks := runChecks(cmd.Context(), cfg)
			writeChecks(cmd.OutOrStdout(), checks)
			for _, c := range checks {
				if !c.ok {
					return fmt.Errorf("%s check failed", c.name)
				}
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context, cfg *config.Config) []check {
	var checks []check

	cc := clientConfig(cfg)
	hctx, cancel := context.WithTimeout(ctx, healthTimeout)
	h, err := client.New(cc, nil).Health(hctx)
	cancel()
	if err != nil {
		checks = append(checks, check{"endpoint", false, fmt.Sprintf("%s: %v", cc.Endpoint, err)})
	} else {
		checks = append(checks, check{"endpoint", true, fmt.Sprintf("%s (%s, engine %s, %d jobs)", cc.Endpoint, h.Status, h.Engine, h.Jobs)})
	}

	switch cfg.Server.Engine {
	case backend.EngineWhisperCpp:
		wc := cfg.Server.WhisperCpp
		checks = append(checks, toolCheck(deps.CheckWhisperCli(wc.Binary)), toolCheck(deps.CheckFFmpeg(wc.FFmpeg)))

		dir := wc.ModelsDir
		if dir == "" {
			dir, _ = whisper.DefaultDir()
		}
		store := whisper.NewStore(dir)
		model := cfg.Server.DefaultModel
		if store.IsInstalled(model) {
			path, _ := store.Path(model)
			checks = append(checks, check{"model " + model, true, path})
		} else {
			checks = append(checks, check{"model " + model, false, "not installed: run webtranscriber model download " + model})
		}
		if installed := store.Installed(); len(installed) > 0 {
			checks = append(checks, check{"installed models", true, strings.Join(installed, ", ")})
		}

	case backend.EngineOpenAI:
		if cfg.ToServerSettings().OpenAI.APIKey == "" {
			checks = append(checks, check{"openai key", false, "set server.openai.api_key or " + config.EnvOpenAIKey})
		} else {
			checks = append(checks, check{"openai key", true, "configured"})
		}
	}
	return checks
}

func toolCheck(s deps.Status) check {
	if !s.Installed {
		return check{s.Name, false, "not found in PATH"}
	}
	detail := s.Path
	if s.Version != "" {
		detail += " (" + s.Version + ")"
	}
	return check{s.Name, true, detail}
}

func writeChecks(w io.Writer, checks []check) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Check", "OK", "Detail"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, c := range checks {
		mark := "yes"
		if !c.ok {
			mark = "NO"
		}
		table.Append([]string{c.name, mark, c.detail})
	}
	table.Render()
}
