package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/formkeeper/internal/logging"
	"github.com/solatis/formkeeper/internal/normalize"
	"github.com/solatis/formkeeper/internal/types"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Print the canonical form of a backend payload (\"-\" reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().Bool("strict", false, "fail when the payload needed repairs")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// loadForm normalizes the payload at path, logging every repair.
func loadForm(cmd *cobra.Command, path string) (*types.Form, normalize.Diagnostics, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, nil, err
	}
	form, diags := normalize.Normalize(data)
	logger := logging.Default()
	for _, d := range diags {
		logger.Warn("payload repaired", "path", d.Path, "detail", d.Message)
	}
	if form == nil {
		return nil, diags, fmt.Errorf("%s: payload has no usable fields", path)
	}
	logger.Debug("payload normalized", "file", path, "form", normalize.Describe(form))
	return form, diags, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}

func runNormalize(cmd *cobra.Command, args []string) error {
	form, diags, err := loadForm(cmd, args[0])
	if err != nil {
		return err
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict && len(diags) > 0 {
		return fmt.Errorf("%s: %d repair(s) needed", args[0], len(diags))
	}
	return writeJSON(cmd.OutOrStdout(), normalize.Serialize(form))
}
