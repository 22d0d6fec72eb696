// Package cli 实现 refine-cli 的子命令
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var formatFlag string

// RootCmd 顶层命令
var RootCmd = &cobra.Command{
	Use:   "refine-cli",
	Short: "Offline checker for selective script refinement",
	Long: "Runs the refinement validator against a saved script and a saved upstream response, " +
		"without the API server or any upstream service.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json, yaml or text")
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
