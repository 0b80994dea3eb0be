package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/blescan/internal/config"
	"github.com/muurk/blescan/internal/history"
	"github.com/muurk/blescan/internal/ui"
)

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to list")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scan sessions",
	Long: `List scan sessions recorded with --history (or 'history: true' in the
configuration file), newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit <= 0 {
			return errors.New("--limit must be positive")
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.RecentSessions(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(sessions))
		for _, s := range sessions {
			duration := "-"
			if d := s.Duration(); d > 0 {
				duration = formatDuration(d)
			}
			outcome := s.Outcome
			if s.Reason != "" {
				outcome = fmt.Sprintf("%s (%s)", s.Outcome, s.Reason)
			}
			rows = append(rows, []string{
				s.ID,
				s.Backend,
				formatSeen(s.StartedAt),
				duration,
				strconv.Itoa(s.Devices),
				outcome,
			})
		}

		ui.NewPrinter(os.Stdout).PrintTable(
			[]string{"Session", "Backend", "Started", "Duration", "Devices", "Outcome"},
			rows,
			"No sessions recorded. Scan with --history to record one.",
		)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "List the devices seen in one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		sightings, err := store.Sightings(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(sightings))
		for _, sg := range sightings {
			label := sg.Label
			if sg.Highlighted {
				label = ui.HighlightMarker + " " + label
			}
			rows = append(rows, []string{
				formatSeen(sg.SeenAt),
				sg.Identity,
				label,
				fmt.Sprintf("%d dBm", sg.RSSI),
				sg.Address,
			})
		}

		ui.NewPrinter(os.Stdout).PrintTable(
			[]string{"Seen", "Identity", "Label", "RSSI", "Address"},
			rows,
			fmt.Sprintf("No devices recorded for session %s.", args[0]),
		)
		return nil
	},
}

func openHistory() (*history.Store, error) {
	path, err := config.GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}
