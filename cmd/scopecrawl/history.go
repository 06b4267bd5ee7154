package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/scopecrawl/internal/config"
	"github.com/nao1215/scopecrawl/internal/database"
)

// NewHistoryCmd creates the history command.
// This command inspects crawl sessions stored in the local database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "Inspect stored crawl sessions",
		Long: `History lists crawl sessions recorded in the local database.

Every crawl is stored with its seed URL, timing, page counts, and the
full page records, unless --no-save was used. This command lists those
sessions and can dump a single session's records as JSON.

Examples:
  # List all stored sessions
  scopecrawl history

  # List sessions for one seed URL
  scopecrawl history https://example.com/

  # List the distinct seed URLs in the database
  scopecrawl history --list-seeds

  # Dump the page records of session 5 as JSON
  scopecrawl history --id 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-seeds", "l", false,
		"List the distinct seed URLs in the database")
	cmd.Flags().Int64P("id", "i", 0,
		"Dump the page records of the session with this ID as JSON")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSeeds, err := cmd.Flags().GetBool("list-seeds")
	if err != nil {
		return err
	}

	sessionID, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	switch {
	case listSeeds:
		return printSeeds(cmd, db)
	case sessionID > 0:
		return printSessionRecords(cmd, db, sessionID)
	default:
		seed := ""
		if len(args) > 0 {
			seed = args[0]
		}
		sessions, err := db.ListSessions(ctx, seed)
		if err != nil {
			return err
		}
		return printSessions(cmd, sessions)
	}
}

// printSeeds lists the distinct seed URLs.
func printSeeds(cmd *cobra.Command, db *database.CrawlDB) error {
	seeds, err := db.ListSeeds(cmd.Context())
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawls recorded yet.")
		return nil
	}
	for _, seed := range seeds {
		fmt.Fprintln(cmd.OutOrStdout(), seed)
	}
	return nil
}

// printSessions lists session metadata in a fixed-width table.
func printSessions(cmd *cobra.Command, sessions []database.SessionMetadata) error {
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawls recorded yet.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-6s %-20s %-10s %-8s %s\n", "ID", "STARTED", "ATTEMPTED", "FAILED", "SEED")
	for _, s := range sessions {
		fmt.Fprintf(out, "%-6d %-20s %-10d %-8d %s\n",
			s.ID,
			s.StartedAt.Format("2006-01-02 15:04:05"),
			s.PagesAttempted,
			s.PagesFailed,
			s.Seed,
		)
	}
	return nil
}

// printSessionRecords dumps one session's page records as pretty JSON.
func printSessionRecords(cmd *cobra.Command, db *database.CrawlDB, sessionID int64) error {
	session, err := db.GetSession(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %d not found (use 'scopecrawl history' to list sessions)", sessionID)
	}

	records, err := db.GetSessionRecords(cmd.Context(), sessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize records: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
