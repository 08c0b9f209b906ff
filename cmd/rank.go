package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/filtering"
	"github.com/spigell/matchmaker/internal/ranking"
	"github.com/spigell/matchmaker/internal/vehicle"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank the inventory against the configured preferences",
	Run: func(cmd *cobra.Command, _ []string) {
		runRank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().IntP("limit", "n", 0, "show only the top N vehicles (0 shows all)")
	rankCmd.Flags().Bool("ai", false, "score with the configured AI provider even if ai.enabled is false")
	rankCmd.Flags().Bool("report", false, "print the ranked vehicles grouped by body style")
	rankCmd.Flags().Bool("dump", false, "dump the ranked vehicles to a temporary json file")
}

func runRank(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := mustSetup()

	if useAI, _ := cmd.Flags().GetBool("ai"); useAI {
		config.AI.Enabled = true
	}

	inv := loadInventory(config, logger)
	ranker, _ := newRanker(ctx, config, logger)

	candidates, _, err := filtering.Run(ctx, config.Filters, filtering.Deps{
		Logger:      logger,
		Preferences: config.Preferences,
	}, filtering.Default(), inv.Clone())
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	if candidates.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no vehicles left after filters"))
		return
	}

	res, err := ranker.Rank(ctx, ranking.Input{
		Preferences: config.Preferences,
		Inventory:   inv,
		Candidates:  candidates,
	})
	if err != nil {
		logger.Fatal("ranking failed", zap.Error(err))
	}

	if res.Report.Notice != "" {
		logger.Warn(res.Report.Notice)
	}

	ranked := res.Vehicles
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && limit < ranked.Len() {
		ranked = &vehicle.Vehicles{Items: ranked.Items[:limit]}
	}

	if report, _ := cmd.Flags().GetBool("report"); report {
		// do not bother error since the report is plain maps of strings
		pretty, _ := json.MarshalIndent(ranked.ReportByBodyStyle(), "", "  ")
		logger.Info(string(pretty), zap.Int("vehicles count", ranked.Len()))
		return
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		filename, err := ranked.DumpToTmpFile()
		if err != nil {
			logger.Fatal("dump results to file", zap.Error(err))
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return
	}

	if err := printRanked(os.Stdout, ranked, res); err != nil {
		logger.Fatal("printing results", zap.Error(err))
	}
}

func printRanked(w io.Writer, ranked *vehicle.Vehicles, res *ranking.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tSOURCE\tID\tVEHICLE\tPRICE\tCOLOR")
	for _, v := range ranked.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.0f\t%s\n",
			v.MatchScore, res.Report.Sources[v.ID], v.ID, v.DisplayName(), v.Price, v.ExtColor)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, v := range ranked.Items {
		if reason := res.Reasoning[v.ID]; reason != "" {
			fmt.Fprintf(w, "%s: %s\n", v.ID, reason)
		}
	}
	return nil
}
