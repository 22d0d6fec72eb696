package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Merge a saved refinement response into a script",
		Long: "Reads the current script and the raw upstream refinement response, " +
			"reverts every change outside the selection and prints the merged script with its validation metadata.",
		Run: runValidate,
	}

	cmd.Flags().StringP("script", "s", "", "Script file: array of lines or {\"script\": [...]} (required)")
	cmd.Flags().String("selection", "", "Selected sentence indices, comma separated")
	cmd.Flags().StringP("response", "r", "", "Raw upstream refinement response JSON (required)")

	cmd.MarkFlagRequired("script")
	cmd.MarkFlagRequired("response")

	RootCmd.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	scriptPath, _ := cmd.Flags().GetString("script")
	selectionFlag, _ := cmd.Flags().GetString("selection")
	responsePath, _ := cmd.Flags().GetString("response")

	rawScript, err := os.ReadFile(scriptPath)
	if err != nil {
		exitErr("read script", err)
	}
	original, err := loadScript(rawScript)
	if err != nil {
		exitErr("parse script", err)
	}

	selection, err := parseSelection(selectionFlag)
	if err != nil {
		exitErr("parse selection", err)
	}

	body, err := os.ReadFile(responsePath)
	if err != nil {
		exitErr("read response", err)
	}

	report, err := Check(original, selection, body)
	if err != nil {
		exitErr("validate", err)
	}
	if err := Write(cmd.OutOrStdout(), formatFlag, report); err != nil {
		exitErr("write report", err)
	}
}
