package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/domain"
	"github.com/phrazzld/scry-engine/internal/service"
	"github.com/phrazzld/scry-engine/internal/service/review_session"
	"github.com/spf13/cobra"
)

const reviewPrompt = "quality 0-5, s to skip, q to quit> "

// ReviewCmd returns the interactive review command.
func ReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review due cards interactively",
		Long: `Start a review session over the owner's due cards. For each card enter
a recall quality from 0 (blackout) to 5 (perfect), "s" to skip the card or
"q" to end the session early. Grades already given are kept.`,
		Args: cobra.NoArgs,
	}
	owner := addOwnerFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.cleanup()

		return runReview(ctx, app.sessions, owner.id, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return cmd
}

// runReview drives one session from line-oriented input until the queue
// empties, the user quits or the input ends.
func runReview(ctx context.Context, sessions review_session.Manager, ownerID uuid.UUID, in io.Reader, out io.Writer) error {
	snap, err := sessions.Start(ctx, ownerID)
	if errors.Is(err, review_session.ErrNoCardsDue) {
		fmt.Fprintln(out, "No cards due")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	fmt.Fprintf(out, "Session %s: %d card(s) to review\n", snap.SessionID, snap.Remaining)

	bold := color.New(color.Bold)
	scanner := bufio.NewScanner(in)
	for snap.Current != nil {
		card := snap.Current
		fmt.Fprintf(out, "\n[%d left] %s\n", snap.Remaining, bold.Sprint(itemLabel(snap)))
		shown := time.Now()

		fmt.Fprint(out, reviewPrompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return quitReview(ctx, sessions, ownerID, out)
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "":
			continue
		case "q", "quit":
			return quitReview(ctx, sessions, ownerID, out)
		case "s", "skip":
			snap, err = sessions.Skip(ctx, ownerID, card.ID)
			if err != nil {
				return fmt.Errorf("failed to skip card: %w", err)
			}
			fmt.Fprintln(out, color.New(color.FgYellow).Sprint("skipped"))
			continue
		}

		quality, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(out, "%s enter a number from %d to %d\n",
				color.New(color.FgRed).Sprint("?"), domain.MinQuality, domain.MaxQuality)
			continue
		}
		spent := time.Since(shown)
		res, err := sessions.Answer(ctx, ownerID, card.ID, domain.Grade{Quality: quality, TimeSpent: &spent})
		switch {
		case errors.Is(err, domain.ErrInvalidQuality):
			fmt.Fprintf(out, "%s enter a number from %d to %d\n",
				color.New(color.FgRed).Sprint("?"), domain.MinQuality, domain.MaxQuality)
			continue
		case errors.Is(err, service.ErrCardInactive), errors.Is(err, service.ErrCardNotFound):
			// The card changed under the session; move past it.
			fmt.Fprintln(out, color.New(color.FgYellow).Sprint("card is no longer active, skipping"))
			if snap, err = sessions.Skip(ctx, ownerID, card.ID); err != nil {
				return fmt.Errorf("failed to skip card: %w", err)
			}
			continue
		case err != nil:
			return fmt.Errorf("failed to grade card: %w", err)
		}

		printGraded(out, res)
		if res.Summary != nil {
			printSummary(out, res.Summary)
			return nil
		}
		snap = res.Next
	}

	summary, err := sessions.Complete(ctx, ownerID, false)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	printSummary(out, summary)
	return nil
}

func quitReview(ctx context.Context, sessions review_session.Manager, ownerID uuid.UUID, out io.Writer) error {
	summary, err := sessions.Abandon(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	printSummary(out, summary)
	return nil
}

func itemLabel(snap *review_session.Snapshot) string {
	if snap.Item != nil && snap.Item.Text != "" {
		return snap.Item.Text
	}
	return snap.Current.ItemID
}

func printGraded(out io.Writer, res *review_session.AnswerResult) {
	mark := color.New(color.FgGreen).Sprint("correct")
	if !res.Result.IsSuccess {
		mark = color.New(color.FgRed).Sprint("again")
	}
	next := fmt.Sprintf("next in %dd", res.Card.IntervalDays)
	if !res.Card.Active {
		next = color.New(color.FgGreen).Sprint("mastered")
	}
	fmt.Fprintf(out, "%s, %s\n", mark, next)
}

func printSummary(out io.Writer, s *review_session.Summary) {
	fmt.Fprintf(out, "\nSession complete: %s correct, %s incorrect, %d skipped",
		color.New(color.FgGreen).Sprint(s.Correct),
		color.New(color.FgRed).Sprint(s.Incorrect),
		s.Skipped)
	if s.Discarded > 0 {
		fmt.Fprintf(out, ", %d left unreviewed", s.Discarded)
	}
	fmt.Fprintln(out)
}
