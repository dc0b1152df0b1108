package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/companion/internal/config"
	"github.com/opencode-ai/companion/internal/provider"
)

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List models of the configured providers",
	Long: `List the known models of every provider that has credentials.

The model "serve" would use is marked with *.

Examples:
  companion models              # all configured providers
  companion models anthropic    # only Anthropic`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	providers, err := provider.InitializeProviders(cmd.Context(), cfg, config.Resolve(cfg).MaxTokens)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}

	var selected string
	if p, err := providers.Select(); err == nil {
		selected = p.ID() + "/" + p.Model()
	}

	var filter string
	if len(args) > 0 {
		filter = args[0]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tPROVIDER\tMODEL\tCONTEXT\tTOOLS")
	found := 0
	for _, p := range providers.List() {
		if filter != "" && p.ID() != filter {
			continue
		}
		for _, m := range p.Models() {
			mark := ""
			if p.ID()+"/"+m.ID == selected {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", mark, p.Name(), m.ID, m.ContextLength, m.SupportsTools)
			found++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if found == 0 {
		fmt.Fprintln(os.Stderr, "No models found. Set ANTHROPIC_API_KEY, OPENAI_API_KEY or ARK_API_KEY.")
	}
	return nil
}
