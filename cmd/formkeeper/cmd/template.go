package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/formkeeper/internal/builder"
	"github.com/solatis/formkeeper/internal/templates"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Start forms from the step template catalog",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the step templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := templates.Load()
		if err != nil {
			return err
		}
		for _, name := range catalog.Names() {
			t, _ := catalog.Template(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s (%d fields)\n", name, t.Title, len(t.Fields))
		}
		return nil
	},
}

var templateNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Print a new form payload seeded with static template steps",
	Args:  cobra.NoArgs,
	RunE:  runTemplateNew,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateListCmd, templateNewCmd)
	templateNewCmd.Flags().StringSlice("with", nil, "templates to prepend, e.g. guardian,participant")
	templateNewCmd.Flags().String("title", "", "form title")
	templateNewCmd.Flags().String("program", "", "program ID")
	templateNewCmd.Flags().Int("columns", 0, "form column count (default from config)")
}

func runTemplateNew(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := templates.Load()
	if err != nil {
		return err
	}

	names, _ := cmd.Flags().GetStringSlice("with")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	steps, err := catalog.Steps(names...)
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(catalog.Names(), ", "))
	}

	s := builder.New(builder.WithStaticSteps(steps...), builder.WithStaticProtection())

	columns := cfg.DefaultColumns
	if cmd.Flags().Changed("columns") {
		columns, _ = cmd.Flags().GetInt("columns")
	}
	s.UpdateLayoutConfig(float64(columns))
	if title, _ := cmd.Flags().GetString("title"); title != "" {
		s.UpdateBasic(builder.AttrName, title)
	}
	if program, _ := cmd.Flags().GetString("program"); program != "" {
		s.UpdateBasic(builder.AttrProgramID, program)
	}
	return writeJSON(cmd.OutOrStdout(), s.Payload())
}
