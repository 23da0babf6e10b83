package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/bug-warden/internal/chunker"
	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/knowledge"
	"github.com/sevigo/bug-warden/internal/logger"
)

var knowledgeScripts string

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge [knowledge-file]",
	Short: "Shows how a knowledge file (and optional script directory) is parsed",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		log := logger.NewLogger(cfg.Logging, nil)
		dec, err := chunker.NewDecoder(cfg.Chunker.Encodings)
		if err != nil {
			return err
		}

		store, skipped, err := knowledge.Load(args[0], dec, log)
		if err != nil {
			return err
		}
		scripts, err := knowledge.LoadScripts(knowledgeScripts, dec, log)
		if err != nil {
			return err
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(struct {
				Entries []core.KnowledgeEntry `json:"entries"`
				Scripts []core.ScriptEntry    `json:"scripts,omitempty"`
				Skipped []string              `json:"skipped,omitempty"`
			}{store.All(), scripts.Entries(), skipped})
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tTERM\tDESCRIPTION")
		for _, cat := range core.Categories {
			for _, e := range store.Entries(cat) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", cat, e.Term, e.Description)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if scripts.Len() > 0 {
			fmt.Println()
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "SCRIPT\tKIND\tSECTION\tKEY\tVALUE")
			for _, e := range scripts.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.File, e.Kind, e.Section, e.Key, e.Value)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		dimColor.Printf("\n%d knowledge entries, %d script entries\n", store.Len(), scripts.Len())
		for _, s := range skipped {
			warnColor.Printf("skipped: %s\n", s)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	knowledgeCmd.Flags().StringVar(&knowledgeScripts, "scripts", "", "Game script directory")
	knowledgeCmd.Flags().BoolVar(&outputJSON, "json", false, "Output entries as JSON")
	rootCmd.AddCommand(knowledgeCmd)
}
