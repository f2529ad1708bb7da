package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillbench/skillbench/internal/report"
)

func newReportCmd() *cobra.Command {
	var (
		resultsDir    string
		runID         string
		githubComment bool
		list          bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the report for a past benchmark run",
		Long: `Render a stored benchmark run as markdown, either for the console or as a
GitHub pull request comment body. Without --run the most recent run is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := report.NewStore(resultsDir)

			if list {
				ids, err := store.List()
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					fmt.Println("No runs found.")
					return nil
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			}

			var run *report.Run
			var err error
			if runID != "" {
				run, err = store.Load(runID)
			} else {
				run, err = store.Latest()
			}
			if err != nil {
				return err
			}

			if githubComment {
				fmt.Println(report.RenderGitHubComment(run))
			} else {
				fmt.Println(report.Render(run))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results-dir", "results", "Directory for benchmark results")
	cmd.Flags().StringVar(&runID, "run", "", "Run ID to report on (default: latest)")
	cmd.Flags().BoolVar(&githubComment, "github-comment", false, "Render as a GitHub PR comment body")
	cmd.Flags().BoolVar(&list, "list", false, "List stored run IDs instead of rendering")

	return cmd
}
