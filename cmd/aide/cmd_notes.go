package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aide/internal/notes"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage the agent's long-term and contextual notes",
}

func openNotes() (*notes.Store, error) {
	return notes.Open(filepath.Join(stateDir(), "notes.db"))
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List note keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openNotes()
		if err != nil {
			return err
		}
		defer store.Close()

		keys, err := store.Keys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No notes stored.")
			return nil
		}
		for _, key := range keys {
			if key == notes.GlobalKey {
				fmt.Println(key, "(long-term note)")
				continue
			}
			fmt.Println(key)
		}
		return nil
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Print a note (default: the long-term note)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openNotes()
		if err != nil {
			return err
		}
		defer store.Close()

		key := notes.GlobalKey
		if len(args) == 1 {
			key = args[0]
		}
		content, err := store.Read(key)
		if err != nil {
			return err
		}
		if content == "" {
			fmt.Printf("No note for %s\n", key)
			return nil
		}
		fmt.Println(content)
		return nil
	},
}

var notesSetCmd = &cobra.Command{
	Use:   "set <key> [content]",
	Short: "Set a note from the argument or stdin; empty content deletes it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openNotes()
		if err != nil {
			return err
		}
		defer store.Close()

		var content string
		if len(args) == 2 {
			content = args[1]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			content = string(data)
		}
		return store.Write(args[0], content)
	},
}

func init() {
	notesCmd.AddCommand(notesListCmd, notesShowCmd, notesSetCmd)
	rootCmd.AddCommand(notesCmd)
}
