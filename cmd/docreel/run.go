package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docreel/docreel-go/config"
	"github.com/docreel/docreel-go/graph"
	"github.com/docreel/docreel-go/graph/emit"
	"github.com/docreel/docreel-go/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run [document file]",
	Short: "Convert one document into a video",
	Long: `Runs the full pipeline on a document read from the given file or from
stdin. Interrupted runs keep their checkpoints; rerun with --run-id to
pick up where they stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		resumeID, _ := cmd.Flags().GetString("run-id")
		language, _ := cmd.Flags().GetString("language")
		if language == "" {
			language = cfg.Speech.Language
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		emitter := emit.NewLogEmitter(os.Stderr, cfg.LogJSON)
		deps, cleanup, err := buildDeps(ctx, cfg, emitter, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		engine, err := pipeline.New(deps)
		if err != nil {
			return err
		}

		var final graph.State
		if resumeID != "" {
			final, err = engine.Resume(ctx, resumeID)
		} else {
			var doc string
			doc, err = readDocument(args)
			if err != nil {
				return err
			}
			runID := uuid.NewString()
			fmt.Fprintf(os.Stderr, "run id: %s\n", runID)
			final, err = engine.Run(ctx, runID, graph.State{
				pipeline.KeyRawText:  doc,
				pipeline.KeyLanguage: language,
			})
		}
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("run interrupted; resume with --run-id: %w", err)
			}
			return err
		}

		return printExport(final)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("run-id", "", "Resume the interrupted run with this ID")
	runCmd.Flags().String("language", "", "Output language code, e.g. en, es")
}

func readDocument(args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

func printExport(final graph.State) error {
	meta, ok := final[pipeline.KeyExportMetadata]
	if !ok {
		return fmt.Errorf("run finished without export metadata")
	}
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
