package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/extractproof/internal/pipeline"
	"github.com/dgallion1/extractproof/internal/report"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Extract a document and optionally render its highlighted proof",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		src := args[0]

		highlight := cfg.HighlightDefault
		if cmd.Flags().Changed("highlight") {
			highlight, _ = cmd.Flags().GetBool("highlight")
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = strings.TrimSuffix(src, filepath.Ext(src)) + "-highlighted.pdf"
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		reportPath, _ := cmd.Flags().GetString("report")

		log := newLogger()
		analyzer, release := pipeline.NewAnalyzerFromConfig(cfg, log)
		defer release()

		outcome, err := analyzer.Run(cmd.Context(), pipeline.Request{
			SourcePath: src,
			OutputPath: out,
			Highlight:  highlight,
			Observe: func(s pipeline.Stage) {
				log.Info("stage", "stage", s)
			},
		})
		if err != nil {
			return err
		}

		name := filepath.Base(src)
		if reportPath != "" {
			if err := writeReport(reportPath, outcome, name); err != nil {
				return err
			}
		}

		w := cmd.OutOrStdout()
		if asJSON {
			display, err := outcome.Display()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Artifact string `json:"artifact"`
				*pipeline.Display
			}{Artifact: outcome.ArtifactPath, Display: display})
		}
		fmt.Fprintln(w, outcome.ExtractionTiming())
		fmt.Fprintln(w, outcome.HighlightTiming())
		fmt.Fprintf(w, "artifact: %s\n", outcome.ArtifactPath)
		fmt.Fprintf(w, "text elements: %d, tables: %d, images: %d\n",
			outcome.Counts.Text, outcome.Counts.Tables, outcome.Counts.Images)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("highlight", true, "render the highlighted proof PDF (default from HIGHLIGHT_DEFAULT)")
	analyzeCmd.Flags().StringP("out", "o", "", "output PDF path (default <file>-highlighted.pdf)")
	analyzeCmd.Flags().Bool("json", false, "print the outcome as JSON")
	analyzeCmd.Flags().String("report", "", "also write a report; format follows the extension (.md, .html, .docx)")
}

func writeReport(path string, o *pipeline.Outcome, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return report.WriteDOCX(f, o, name)
	case ".html", ".htm":
		page, err := report.HTML(name, report.Markdown(o, name))
		if err != nil {
			return err
		}
		_, err = f.WriteString(page)
		return err
	default:
		_, err = f.WriteString(report.Markdown(o, name))
		return err
	}
}
