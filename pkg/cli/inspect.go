package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"aptcheck/pkg/debian"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <deb-file>",
	Short: "Print the control stanza of a local .deb",
	Long: `Print the control stanza of a local .deb file, e.g. to compare it
against what the repository index claims.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, err := debian.ParagraphFromDebFile(args[0])
		if err != nil {
			return err
		}
		if graph == nil {
			return fmt.Errorf("%s contains no control data", args[0])
		}
		return debian.WriteControlFile(cmd.OutOrStdout(), *graph)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
