package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/spf13/cobra"
)

// EnrollCmd returns the command that creates cards for items.
func EnrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll ITEM...",
		Short: "Create cards for one or more items",
		Long: `Create a card for every item ID given. The items are enrolled together:
if any of them already has a card for the owner, none are created.`,
		Args: cobra.MinimumNArgs(1),
	}
	owner := addOwnerFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.cleanup()

		cards, err := app.cards.BulkCreate(ctx, owner.id, args)
		if errors.Is(err, service.ErrDuplicateCard) {
			if existing := enrolledItems(ctx, app.cards, owner.id, args); len(existing) > 0 {
				return fmt.Errorf("failed to enroll items: already enrolled: %s: %w",
					strings.Join(existing, ", "), err)
			}
		}
		if err != nil {
			return fmt.Errorf("failed to enroll items: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, c := range cards {
			fmt.Fprintf(out, "%s %s %s\n", color.New(color.FgGreen).Sprint("+"), c.ID, c.ItemID)
		}
		fmt.Fprintf(out, "Enrolled %d item(s)\n", len(cards))
		return nil
	}
	return cmd
}

// enrolledItems returns the items of itemIDs the owner already has cards for.
func enrolledItems(ctx context.Context, cards service.CardRepository, ownerID uuid.UUID, itemIDs []string) []string {
	var existing []string
	seen := make(map[string]bool, len(itemIDs))
	for _, itemID := range itemIDs {
		if seen[itemID] {
			continue
		}
		seen[itemID] = true
		if _, err := cards.GetByItem(ctx, ownerID, itemID); err == nil {
			existing = append(existing, itemID)
		}
	}
	return existing
}

// DueCmd returns the command that lists due cards.
func DueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List cards due for review",
		Args:  cobra.NoArgs,
	}
	owner := addOwnerFlag(cmd)
	cmd.Flags().Int("limit", 20, "maximum number of cards to list")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}

		ctx := cmd.Context()
		app, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.cleanup()

		cards, err := app.cards.FetchDue(ctx, owner.id, app.now(), limit)
		if err != nil {
			return fmt.Errorf("failed to fetch due cards: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(cards) == 0 {
			fmt.Fprintln(out, "No cards due")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tITEM\tDUE\tINTERVAL\tEASE\tMASTERY")
		for _, c := range cards {
			fmt.Fprintf(w, "%s\t%s\t%s\t%dd\t%.2f\t%s\n",
				c.ID, c.ItemID, c.NextReviewAt.Local().Format("2006-01-02 15:04"),
				c.IntervalDays, c.EaseFactor, masteryLabel(domain.ClassifyMastery(c)))
		}
		return w.Flush()
	}
	return cmd
}

func masteryLabel(level domain.MasteryLevel) string {
	switch level {
	case domain.MasteryMastered:
		return color.New(color.FgGreen).Sprint(level)
	case domain.MasteryReviewing:
		return color.New(color.FgCyan).Sprint(level)
	default:
		return color.New(color.FgYellow).Sprint(level)
	}
}
