package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/scoring"
	"github.com/spigell/matchmaker/internal/vehicle"
)

var scoreCmd = &cobra.Command{
	Use:   "score <vehicle-id>",
	Short: "Print the match score of one vehicle",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger, config := mustSetup()
		inv := loadInventory(config, logger)

		v := inv.FindByID(args[0])
		if v == nil {
			logger.Fatal("there is no such vehicle", zap.String("vehicle_id", args[0]), zap.Strings("known ids", inv.IDs()))
		}

		b := scoring.Evaluate(v, config.Preferences)
		if explain, _ := cmd.Flags().GetBool("explain"); !explain {
			fmt.Println(b.Total)
			return
		}

		if err := printBreakdown(os.Stdout, v, b); err != nil {
			logger.Fatal("printing breakdown", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().BoolP("explain", "x", false, "show the points for every criterion")
}

func printBreakdown(w io.Writer, v *vehicle.Vehicle, b scoring.Breakdown) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", v.ID, v.DisplayName())
	fmt.Fprintf(tw, "body style\t%.2f / %d\n", b.BodyStyle, scoring.BodyStylePoints)
	fmt.Fprintf(tw, "price\t%.2f / %d\n", b.Price, scoring.PricePoints)
	fmt.Fprintf(tw, "powertrain\t%.2f / %d\n", b.Powertrain, scoring.PowertrainPoints)
	fmt.Fprintf(tw, "drivetrain\t%.2f / %d\n", b.Drivetrain, scoring.DrivetrainPoints)
	fmt.Fprintf(tw, "exterior color (%s)\t%.2f / %d\n", b.Color, b.ExteriorColor, scoring.ExteriorColorPoints)
	fmt.Fprintf(tw, "model bonus\t%.2f / %d\n", b.ModelBonus, scoring.ModelBonusPoints)
	fmt.Fprintf(tw, "raw\t%.2f\n", b.Raw)
	fmt.Fprintf(tw, "total\t%d\n", b.Total)
	return tw.Flush()
}
