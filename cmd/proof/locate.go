package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgallion1/extractproof/internal/locate"
	"github.com/spf13/cobra"
)

var locateCmd = &cobra.Command{
	Use:   "locate <file.pdf>",
	Short: "Print the boxes where each line of a text block appears",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		textFile, _ := cmd.Flags().GetString("text-file")
		if (text == "") == (textFile == "") {
			return fmt.Errorf("exactly one of --text or --text-file is required")
		}
		if textFile != "" {
			data, err := os.ReadFile(textFile)
			if err != nil {
				return fmt.Errorf("read text file: %w", err)
			}
			text = string(data)
		}
		workers, _ := cmd.Flags().GetInt("workers")

		boxes, err := locate.NewLocator(workers, newLogger()).LocateFile(cmd.Context(), args[0], text)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(boxes)
	},
}

func init() {
	locateCmd.Flags().String("text", "", "text to find, one search per line")
	locateCmd.Flags().String("text-file", "", "read the text to find from a file")
	locateCmd.Flags().Int("workers", 4, "pages searched concurrently")
}
