package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/internal/personality"
)

var personalitiesCmd = &cobra.Command{
	Use:   "personalities",
	Short: "List available personalities",
	Long: `List built-in personalities plus descriptors loaded from the
personalities directory and the "personalities" config patterns.`,
	RunE: runPersonalities,
}

func runPersonalities(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reg := personality.NewRegistry()
	patterns := append([]string{filepath.Join(config.GetPaths().PersonalitiesDir(), "*.yaml")}, cfg.Personalities...)
	if _, err := reg.LoadFiles(patterns); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSOURCE\tDESCRIPTION")
	for _, d := range reg.List() {
		source := "file"
		if d.BuiltIn {
			source = "built-in"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Name, source, d.Description)
	}
	return w.Flush()
}
