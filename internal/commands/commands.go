package commands

import (
	"github.com/spf13/cobra"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/output"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Actions     []string `json:"actions,omitempty"`
}

// CommandCategory groups commands by category.
type CommandCategory struct {
	Name     string        `json:"name"`
	Commands []CommandInfo `json:"commands"`
}

// commandCategories returns all command categories for the catalog.
func commandCategories() []CommandCategory {
	return []CommandCategory{
		{
			Name: "Site Data",
			Commands: []CommandInfo{
				{Name: "get", Category: "data", Description: "Fetch a resource in the active locale"},
				{Name: "search", Category: "data", Description: "Search a resource"},
				{Name: "browse", Category: "data", Description: "Browse a resource interactively"},
				{Name: "locales", Category: "data", Description: "List supported locales"},
			},
		},
		{
			Name: "Configuration",
			Commands: []CommandInfo{
				{Name: "config", Category: "config", Description: "Manage configuration", Actions: []string{"show", "init", "set", "unset"}},
			},
		},
		{
			Name: "Additional Commands",
			Commands: []CommandInfo{
				{Name: "commands", Category: "additional", Description: "List all commands"},
				{Name: "help", Category: "additional", Description: "Show help"},
				{Name: "version", Category: "additional", Description: "Show version"},
			},
		},
	}
}

// CatalogCommandNames returns all command names from the catalog.
// Used by tests to verify catalog matches registered commands.
func CatalogCommandNames() []string {
	categories := commandCategories()
	total := 0
	for _, cat := range categories {
		total += len(cat.Commands)
	}
	names := make([]string, 0, total)
	for _, cat := range categories {
		for _, cmd := range cat.Commands {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// NewCommandsCmd creates the commands listing command.
func NewCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "commands",
		Aliases: []string{"cmds"},
		Short:   "List all available commands",
		Long:    "List all available sitedata commands organized by category.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			return app.OK(commandCategories(),
				output.WithSummary("All available sitedata commands"),
			)
		},
	}
}
