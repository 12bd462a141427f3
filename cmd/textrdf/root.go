// Package textrdf implements the command-line interface.
package textrdf

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "textrdf",
	Short: "Extract schema.org knowledge graphs from natural language text",
	Long: `textrdf converts unstructured text into JSON-LD knowledge graphs using an LLM.

Long documents are split into overlapping windows, pronouns are resolved to
their antecedents before extraction, and entities discovered in earlier
windows are carried forward so later windows reuse the same names. Extracted
entities can additionally be linked to a local knowledge base or to DBpedia
Spotlight.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
