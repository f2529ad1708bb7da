package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/internal/skillset"
)

func newListCmd() *cobra.Command {
	var skillsDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := skillset.Discover(skillsDir)
			if err != nil {
				return fmt.Errorf("failed to discover skills: %w", err)
			}

			skills := registry.Skills()
			if len(skills) == 0 {
				fmt.Println("No skills found.")
				return nil
			}

			fmt.Printf("Discovered skills:\n\n")
			for _, s := range skills {
				fmt.Printf("  - %s\n", s.Slug)
				fmt.Printf("    Description: %s\n", s.Description)
				fmt.Printf("    Severity: %s\n", s.Severity)
				fmt.Printf("    Tests: %d\n\n", len(s.Tests))
			}

			for _, w := range registry.Warnings() {
				fmt.Printf("  ! skipped %s: %s\n", w.Slug, w.Reason)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&skillsDir, "skills-dir", "skills", "Directory containing skill directories")

	return cmd
}
