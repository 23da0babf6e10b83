package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/bug-warden/internal/chunker"
	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/logger"
)

var outputJSON bool

var chunksCmd = &cobra.Command{
	Use:   "chunks [source-root]",
	Short: "Lists the chunks a source tree is cut into",
	Long: `Lists the chunks a source tree is cut into, honouring the chunker settings and
the tree's own .bug-warden.yml. No model is contacted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		log := logger.NewLogger(cfg.Logging, nil)

		root := absPath(args[0])
		tree, err := config.LoadTreeConfig(root)
		if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
			return err
		}
		if tree == nil {
			tree = core.DefaultTreeConfig()
		}
		ch, err := chunker.New(cfg.Chunker.ApplyTree(tree), log)
		if err != nil {
			return err
		}
		res, err := ch.Chunk(cmd.Context(), root)
		if err != nil {
			return fmt.Errorf("failed to chunk source tree: %w", err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(res.Chunks)
		}

		for _, w := range res.Warnings {
			warnColor.Fprintf(os.Stderr, "skipped: %v\n", w)
		}
		if len(res.Chunks) == 0 {
			warnColor.Println("No chunks: no file matched the configured extensions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "FILE\tSTART\tEND\tLINES")
		for _, c := range res.Chunks {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", c.FilePath, c.StartLine, c.EndLine, c.Lines())
		}
		if err := w.Flush(); err != nil {
			return err
		}
		dimColor.Printf("\n%d chunks in %d files (%d decoded lossily)\n", len(res.Chunks), res.Files, len(res.LossyFiles))
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	chunksCmd.Flags().BoolVar(&outputJSON, "json", false, "Output chunks as JSON")
	rootCmd.AddCommand(chunksCmd)
}

