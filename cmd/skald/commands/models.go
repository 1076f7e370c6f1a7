package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skald-ai/skald/internal/provider"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models by provider",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range []string{"anthropic", "openai", "gemini"} {
			p, err := provider.New(name, provider.Options{})
			if err != nil {
				continue
			}
			fmt.Printf("%s:\n", name)
			for _, model := range p.Models() {
				fmt.Printf("  %s\n", model)
			}
		}
	},
}
