package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aide/internal/hooks"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Inspect and test lifecycle hooks",
}

var hooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hook definitions from the watched directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		found := 0
		for _, dir := range hookDirs() {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				name := entry.Name()
				if entry.IsDir() || (filepath.Ext(name) != ".yaml" && filepath.Ext(name) != ".yml") {
					continue
				}
				fmt.Println(filepath.Join(dir, name))
				found++
			}
		}
		if found == 0 {
			fmt.Println("No hook files found. Drop YAML files into", hookDirs()[0])
		}
		return nil
	},
}

var hooksFireCmd = &cobra.Command{
	Use:   "fire <event> [payload-json]",
	Short: "Fire an event against the loaded hooks and print results",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		event := hooks.Event(args[0])
		if !hooks.ValidEvent(event) {
			return fmt.Errorf("unknown event %q (valid: %v)", args[0], hooks.AllEvents)
		}

		payload := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
				return fmt.Errorf("invalid payload JSON: %w", err)
			}
		}

		dispatcher := hooks.NewDispatcher(cfg.Hooks.MaxWorkers, cfg.GetHookTimeout())
		loader := hooks.NewLoader(dispatcher, nil, nil, hookDirs())
		if err := loader.Load(); err != nil {
			return err
		}
		defer hooks.ShutdownGlobal()

		results := dispatcher.Execute(context.Background(), event, payload)
		if len(results) == 0 {
			fmt.Println("No hooks registered for", event)
			return nil
		}
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func hookDirs() []string {
	dirs := []string{filepath.Join(stateDir(), "hooks")}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".aide", "hooks"))
	}
	return dirs
}

func init() {
	hooksCmd.AddCommand(hooksListCmd, hooksFireCmd)
	rootCmd.AddCommand(hooksCmd)
}
