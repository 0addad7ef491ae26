package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meditatva/pharmacy-service/internal/ranking"
)

var (
	searchSort        string
	searchLat         float64
	searchLng         float64
	searchMaxDistance float64
	searchRequireAll  bool
	searchLimit       int
)

var searchCmd = &cobra.Command{
	Use:   "search <medicines>",
	Short: "Rank stores that carry the requested medicines",
	Long: `Search the catalog for a comma-separated list of medicine names and rank
the stores that carry at least one of them. Names match case-insensitively on
any part of the offer name.`,
	Example: `  pharmacy search "paracetamol, cetirizine"
  pharmacy search insulin --sort price --limit 3
  pharmacy search amoxicillin --lat 19.07 --lng 72.87 --max-distance 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var planCmd = &cobra.Command{
	Use:   "plan <medicines>",
	Short: "Plan a split order across as few stores as possible",
	Example: `  pharmacy plan "paracetamol, insulin, cetirizine"
  pharmacy plan "paracetamol, insulin" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

var scoreCmd = &cobra.Command{
	Use:     "score <distanceKm> <totalPrice> <rating>",
	Short:   "Compute the priority score for a store",
	Example: `  pharmacy score 1.2 250 4.5`,
	Args:    cobra.ExactArgs(3),
	RunE:    runScore,
}

func init() {
	rootCmd.AddCommand(searchCmd, planCmd, scoreCmd)

	for _, cmd := range []*cobra.Command{searchCmd, planCmd} {
		cmd.Flags().Float64Var(&searchLat, "lat", 0, "requester latitude")
		cmd.Flags().Float64Var(&searchLng, "lng", 0, "requester longitude")
		cmd.Flags().Float64Var(&searchMaxDistance, "max-distance", 0, "only consider stores within this many km (0 = no limit)")
		cmd.MarkFlagsRequiredTogether("lat", "lng")
	}
	searchCmd.Flags().StringVar(&searchSort, "sort", "priority", "sort by priority, distance, price or rating")
	searchCmd.Flags().BoolVar(&searchRequireAll, "require-all", false, "only list stores that carry every medicine")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of stores (0 = configured default)")
}

func buildQuery(cmd *cobra.Command, args []string) (*ranking.SearchQuery, error) {
	sort, err := ranking.ParseSortMode(searchSort)
	if err != nil {
		return nil, err
	}

	q := &ranking.SearchQuery{
		Items:         ranking.ParseSearchTerms(strings.Join(args, ",")),
		Sort:          sort,
		MaxDistanceKm: searchMaxDistance,
		RequireAll:    searchRequireAll,
		Limit:         searchLimit,
	}
	if cmd.Flags().Changed("lat") {
		q.Location = &ranking.Location{Latitude: searchLat, Longitude: searchLng}
	}
	return q, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	q, err := buildQuery(cmd, args)
	if err != nil {
		return err
	}

	cache, service, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cache.Close()

	results, err := service.Search(ctx, q)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, results)
	}
	if len(results) == 0 {
		fmt.Println("No stores carry the requested medicines")
		return nil
	}
	printResults(os.Stdout, results)
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	q, err := buildQuery(cmd, args)
	if err != nil {
		return err
	}

	cache, service, err := openCatalog(ctx)
	if err != nil {
		return err
	}
	defer cache.Close()

	plan, err := service.PlanSplit(ctx, q)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, plan)
	}
	printPlan(os.Stdout, plan)
	if !plan.Feasible() {
		return fmt.Errorf("%d medicine(s) unavailable", len(plan.Unavailable))
	}
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	values := make([]float64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", arg)
		}
		values[i] = v
	}

	score := rankingConfig().Scoring.PriorityScore(values[0], values[1], values[2])
	if jsonOutput {
		return writeJSON(os.Stdout, map[string]float64{"score": score})
	}
	fmt.Printf("%.2f\n", score)
	return nil
}

func printResults(out io.Writer, results []*ranking.StoreMatchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STORE\tSCORE\tDISTANCE\tTOTAL\tRATING\tFOUND\tMISSING")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.1f\t%.1f km\t%.2f\t%.1f\t%d\t%s\n",
			r.Store.Name,
			r.PriorityScore,
			r.DistanceKm,
			r.TotalPrice,
			r.Store.Rating,
			len(r.Matches),
			strings.Join(r.Missing, ", "),
		)
	}
	w.Flush()
}

func printPlan(out io.Writer, plan *ranking.SplitOrderPlan) {
	if !plan.Feasible() {
		fmt.Fprintf(out, "No plan: unavailable everywhere: %s\n", strings.Join(plan.Unavailable, ", "))
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STORE\tMEDICINE\tPRICE")
	for _, entry := range plan.Entries {
		for _, item := range entry.Items {
			fmt.Fprintf(w, "%s\t%s\t%.2f\n", entry.Store.Name, item.Offer.Name, item.Offer.Price)
		}
		fmt.Fprintf(w, "\tsubtotal\t%.2f\n", entry.Subtotal)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d store(s), total %.2f\n", plan.StoreCount(), plan.Total())
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
