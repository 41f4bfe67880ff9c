package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	modelsSearch  string
	modelsPage    int
	modelsLimit   int
	modelsVerbose bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available model deployments",
	Long: `List the model deployments available for chatting.

Examples:
  multichat models                 # List all deployments
  multichat models --search llama  # Filter by name
  multichat models --verbose       # Show pricing information`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().StringVar(&modelsSearch, "search", "", "Filter deployments by name")
	modelsCmd.Flags().IntVar(&modelsPage, "page", 1, "Page to fetch")
	modelsCmd.Flags().IntVar(&modelsLimit, "limit", 50, "Page size")
	modelsCmd.Flags().BoolVarP(&modelsVerbose, "verbose", "v", false, "Include context length and costs")
}

func runModels(cmd *cobra.Command, args []string) error {
	app := buildApp()

	deployments := app.deployments.List(cmd.Context(), modelsPage, modelsLimit, modelsSearch)
	if len(deployments) == 0 {
		fmt.Println("No deployments available.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if modelsVerbose {
		fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tCONTEXT\tINPUT $/1M\tOUTPUT $/1M\t")
		for _, d := range deployments {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t\n",
				d.ID, d.Name, d.Provider, d.ContextLength, d.InputCost, d.OutputCost)
		}
		return nil
	}

	fmt.Fprintln(w, "ID\tNAME\tPROVIDER\t")
	for _, d := range deployments {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", d.ID, d.Name, d.Provider)
	}
	return nil
}
