package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := struct {
			Version string `json:"version" yaml:"version"`
			Go      string `json:"go" yaml:"go"`
		}{Version: version, Go: runtime.Version()}

		return render(cmd.OutOrStdout(), info, func(w io.Writer) {
			fmt.Fprintf(w, "docqa version %s\n", version)
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
