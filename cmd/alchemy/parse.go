package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/alchemy/metadata"
)

func parseCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse saved model output into metadata",
		Long: `Parse a vision model answer and print the resulting metadata as JSON.

Reads stdin when no file or "-" is given.

Examples:
  alchemy parse answer.txt
  cat answer.json | alchemy parse --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			var p metadata.Parser = metadata.Markers{}
			if asJSON {
				p = metadata.JSON{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p.Parse(string(raw)))
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "input is a JSON object instead of TITLE:/BOARD: markers")
	return cmd
}
