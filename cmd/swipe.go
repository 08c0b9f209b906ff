package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/filtering"
	"github.com/spigell/matchmaker/internal/session"
	"github.com/spigell/matchmaker/internal/vehicle"
)

const (
	PromptLike                = "Like"
	PromptPass                = "Pass"
	PromptUndo                = "Undo"
	PromptFavorites           = "Show favorites"
	PromptRemoveFavorite      = "Remove a favorite"
	PromptRestorePass         = "Restore a pass"
	PromptQuit                = "Quit"
	PromptAppendToExcludeFile = "Append passes to exclude file"
)

var errExit = errors.New("exit requested")

var swipeCmd = &cobra.Command{
	Use:   "swipe",
	Short: "Swipe through the ranked deck in the terminal",
	Run: func(_ *cobra.Command, _ []string) {
		runSwipe()
	},
}

func init() {
	rootCmd.AddCommand(swipeCmd)
}

func runSwipe() {
	ctx := context.Background()
	logger, config := mustSetup()

	inv := loadInventory(config, logger)
	ranker, _ := newRanker(ctx, config, logger)

	c := session.New(inv, ranker, logger)
	report, err := c.SetPreferences(ctx, config.Preferences)
	if err != nil {
		logger.Fatal("ranking failed", zap.Error(err))
	}
	if report.Notice != "" {
		logger.Warn(report.Notice)
	}

	logger.Info("starting the swipe session", zap.String("session_id", c.ID()), zap.Int("vehicles", inv.Len()))

	for {
		deck, err := visibleDeck(ctx, c, config, logger)
		if err != nil {
			logger.Fatal("filtering failed", zap.Error(err))
		}

		if deck.Len() == 0 {
			logger.Info("deck is empty")
			printFavorites(c, inv)
			return
		}

		err = handleSwipe(ctx, c, config, logger, deck.Items[0])
		if errors.Is(err, errExit) {
			printFavorites(c, inv)
			return
		}
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// visibleDeck is the unswiped part of the ranking after the configured filters.
func visibleDeck(ctx context.Context, c *session.Controller, config *Config, logger *zap.Logger) (*vehicle.Vehicles, error) {
	deck, _, err := filtering.Run(ctx, config.Filters, filtering.Deps{
		Logger:      logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel)),
		Preferences: c.Preferences(),
		History:     c.History(),
	}, filtering.Default(), c.Deck())
	return deck, err
}

func handleSwipe(ctx context.Context, c *session.Controller, config *Config, logger *zap.Logger, top *vehicle.Vehicle) error {
	items := []string{PromptLike, PromptPass, PromptUndo, PromptFavorites, PromptRemoveFavorite, PromptRestorePass}
	excludeFile := strings.TrimSpace(config.Filters.ExcludeFile)
	if excludeFile != "" {
		items = append(items, PromptAppendToExcludeFile)
	}

	label := fmt.Sprintf("%d%% %s / $%.0f / %s / %s", top.MatchScore, top.DisplayName(), top.Price, top.ExtColor, top.Powertrain)
	if reason := c.Reasoning(top.ID); reason != "" {
		label += " / " + reason
	}

	prompt := promptui.Select{
		Label: label,
		Items: append(items, PromptQuit),
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptLike:
		err = c.Favorite(top.ID)
	case PromptPass:
		err = c.Pass(top.ID)
	case PromptUndo:
		last, undoErr := c.Undo()
		if errors.Is(undoErr, session.ErrNothingToUndo) {
			logger.Info("nothing to undo")
			return nil
		}
		if undoErr != nil {
			return undoErr
		}
		logger.Info("swipe undone", zap.String("vehicle_id", last.VehicleID), zap.Bool("liked", last.Liked))
	case PromptFavorites:
		printFavorites(c, c.Ranked())
		return nil
	case PromptRemoveFavorite:
		id, ok, pickErr := pickSwiped("Favorite to remove", c.Favorites(), c.Ranked())
		if pickErr != nil || !ok {
			return pickErr
		}
		err = c.RemoveFavorite(id)
	case PromptRestorePass:
		id, ok, pickErr := pickSwiped("Pass to restore", c.Passes(), c.Ranked())
		if pickErr != nil || !ok {
			return pickErr
		}
		err = c.RestorePass(id)
	case PromptAppendToExcludeFile:
		passed := c.Passes()
		passes := c.Ranked()
		passes.RemoveFunc(func(v *vehicle.Vehicle) bool { return !slices.Contains(passed, v.ID) })

		added, err := filtering.AppendExcluded(excludeFile, passes.Items...)
		if err != nil {
			return err
		}
		logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("added", added))
		return nil
	case PromptQuit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
	if err != nil {
		return err
	}

	// Color counts changed, so the deck order may change too.
	if config.Scoring.ColorLearning {
		if _, err := c.Rerank(ctx); err != nil {
			return err
		}
	}
	return nil
}

// pickSwiped lets the user choose one of ids. ok is false when ids is empty.
func pickSwiped(label string, ids []string, inv *vehicle.Vehicles) (string, bool, error) {
	if len(ids) == 0 {
		fmt.Println("Nothing to choose from.")
		return "", false, nil
	}

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id
		if v := inv.FindByID(id); v != nil {
			names[i] = fmt.Sprintf("%s (%s)", v.DisplayName(), v.ID)
		}
	}

	prompt := promptui.Select{Label: label, Items: names}
	i, _, err := prompt.Run()
	if err != nil {
		return "", false, err
	}
	return ids[i], true, nil
}

func printFavorites(c *session.Controller, inv *vehicle.Vehicles) {
	favorites := c.Favorites()
	if len(favorites) == 0 {
		fmt.Println("No favorites yet.")
		return
	}

	fmt.Println("Favorites:")
	for _, id := range favorites {
		name := id
		if v := inv.FindByID(id); v != nil {
			name = fmt.Sprintf("%s (%s, $%.0f)", v.DisplayName(), v.ID, v.Price)
		}
		fmt.Println("  " + name)
	}
}
