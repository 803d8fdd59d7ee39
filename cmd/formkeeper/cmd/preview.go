package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/formkeeper/internal/logging"
	"github.com/solatis/formkeeper/internal/preview"
	"github.com/solatis/formkeeper/internal/types"
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Render one page of a form payload as HTML",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().String("answers", "", "JSON file with answers keyed by field name")
	previewCmd.Flags().Int("page", 0, "zero-based index into the visible steps")
}

func runPreview(cmd *cobra.Command, args []string) error {
	form, _, err := loadForm(cmd, args[0])
	if err != nil {
		return err
	}

	answers := types.Answers{}
	if path, _ := cmd.Flags().GetString("answers"); path != "" {
		data, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &answers); err != nil {
			return fmt.Errorf("%s: answers must be a JSON object: %w", path, err)
		}
	}
	page, _ := cmd.Flags().GetInt("page")

	p := preview.Render(form, answers)
	if len(p.HiddenSteps) > 0 {
		logging.Default().Info("steps hidden by answers", "steps", p.HiddenSteps)
	}
	return preview.WriteHTML(cmd.OutOrStdout(), p, page)
}
