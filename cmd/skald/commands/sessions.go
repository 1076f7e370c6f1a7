package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skald-ai/skald/internal/config"
	"github.com/skald-ai/skald/internal/history"
	"github.com/skald-ai/skald/internal/storage"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved chat sessions",
	Run: func(cmd *cobra.Command, args []string) {
		if err := listSavedSessions(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func listSavedSessions() error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	store := storage.New(config.GetPaths().StoragePath())
	hist, err := history.Load(store)
	if err != nil {
		return err
	}

	sessions := hist.Recent(0)
	if len(sessions) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}
	for i, s := range sessions {
		fmt.Printf("#%d %s (%d messages, updated %s)\n",
			i+1, s.Name, len(s.Messages), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
