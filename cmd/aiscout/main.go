package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aiscout",
		Short:         "Aggregate, reconcile and rank AI products from news, launches and curated lists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(collectCmd())
	root.AddCommand(reconcileCmd())
	root.AddCommand(darkHorsesCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(reviewCmd())
	root.AddCommand(usageCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func collectCmd() *cobra.Command {
	var sources []string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect new records from every enabled source and merge them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), sources)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific sources to collect (e.g., hn,rss,seeds)")
	return cmd
}

func reconcileCmd() *cobra.Command {
	var (
		dryRun     bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rescore, deduplicate and resolve regions across the whole collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.Context(), dryRun, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and report without writing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the report as JSON")
	return cmd
}

func darkHorsesCmd() *cobra.Command {
	var (
		jsonOutput bool
		minIndex   int
		limit      int
	)

	cmd := &cobra.Command{
		Use:     "darkhorses",
		Aliases: []string{"dark-horses"},
		Short:   "Show this week's dark horses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDarkHorses(cmd.Context(), jsonOutput, minIndex, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&minIndex, "min-index", -1, "minimum dark horse index (default: from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max products to show (default: from config)")
	return cmd
}

func searchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search products by keyword, category and type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.keyword = args[0]
			}
			return runSearch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.categories, "categories", "", "comma separated categories")
	cmd.Flags().StringVar(&opts.typ, "type", "all", "all, hardware or software")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "trending", "trending, recency, composite or funding")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "page size")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report products whose region disagrees with their own text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context())
		},
	}
}

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "List products waiting for manual categorization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview()
		},
	}
}

func usageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show LLM API usage per day, provider and script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsage()
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
