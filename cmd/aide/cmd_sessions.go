package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aide/internal/conversation"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := conversation.NewManager(cfg.Paths.HistoryDir)
		names, err := mgr.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No saved conversations.")
			return nil
		}
		last := mgr.LastSession()
		for _, name := range names {
			marker := "  "
			if name == last {
				marker = "* "
			}
			fmt.Println(marker + name)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := conversation.NewManager(cfg.Paths.HistoryDir)
		h, err := mgr.Load(args[0])
		if err != nil {
			return err
		}
		if h.PastConversationSummary != "" {
			fmt.Printf("[summary]\n%s\n\n", h.PastConversationSummary)
		}
		for _, msg := range h.Messages {
			for _, part := range msg.Parts {
				switch part.Kind {
				case conversation.PartUserPrompt:
					fmt.Printf("[user] %s\n", part.Text)
				case conversation.PartText:
					fmt.Printf("[assistant] %s\n", part.Text)
				case conversation.PartToolCall:
					fmt.Printf("[tool call] %s %s\n", part.ToolName, part.ArgsText())
				case conversation.PartToolReturn:
					fmt.Printf("[tool return] %s: %s\n", part.ToolName, part.ContentText())
				}
			}
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a conversation and its sub-agent histories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := conversation.NewManager(cfg.Paths.HistoryDir)
		if err := mgr.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
