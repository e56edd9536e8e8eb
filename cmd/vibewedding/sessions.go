package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/config"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chat sessions that can be resumed",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessions()
		if err != nil {
			return err
		}
		defer store.Close()
		return listSessions(os.Stdout, store)
	},
}

var sessionsForgetCmd = &cobra.Command{
	Use:   "forget <session-id>",
	Short: "Delete a saved chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessions()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := forgetSession(store, args[0]); err != nil {
			return err
		}
		printSuccess("Forgot session %s", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsForgetCmd)
}

func openSessions() (*session.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return session.Open(cfg.Storage.DataDir)
}

func listSessions(w io.Writer, store *session.Store) error {
	recs, err := store.List()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No saved sessions.")
		return nil
	}
	for _, rec := range recs {
		title := "-"
		if p := rec.State.Project; p != nil && p.HasContent() {
			title = p.Title()
		}
		fmt.Fprintf(w, "%-28s  %s  %3d msgs  %s\n",
			rec.State.SessionID, rec.SavedAt.Local().Format("2006-01-02 15:04"), len(rec.State.Messages), truncate(title, 50))
	}
	return nil
}

func forgetSession(store *session.Store, sessionID string) error {
	if _, err := store.Load(sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("no saved session %q", sessionID)
		}
		return err
	}
	return store.Delete(sessionID)
}
