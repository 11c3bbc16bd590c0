package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aide/internal/agent"
	"aide/internal/conversation"
	"aide/internal/hooks"
	"aide/internal/llm"
	"aide/internal/notes"
	"aide/internal/prompt"
	"aide/internal/ratelimit"
	"aide/internal/summarize"
	"aide/internal/task"
	"aide/internal/toolcall"
	"aide/internal/tools"
	toolscore "aide/internal/tools/core"
	"aide/internal/tools/shell"
	"aide/internal/tools/web"
	"aide/internal/ux"
)

var (
	sessionName string
	resumeLast  bool
	yoloFlag    bool
	retries     int
)

const defaultLongMessageWarning = "[System] This conversation has grown long. " +
	"Consolidate what matters by calling update_conversation_memory with a summary " +
	"of the conversation so far and a transcript of the recent turns, then continue " +
	"with the user's request."

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Start or continue a conversation",
	Long: `Start an interactive conversation, or run a single turn when a message
is given as an argument. Use --session to name the conversation and
--resume to continue the most recent one.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&sessionName, "session", "s", "", "conversation name (default: a new dated session)")
	chatCmd.Flags().BoolVarP(&resumeLast, "resume", "r", false, "continue the most recent conversation")
	chatCmd.Flags().BoolVar(&yoloFlag, "yolo", false, "approve tool calls without asking")
	chatCmd.Flags().IntVar(&retries, "retries", 1, "extra attempts after a failed turn")
	rootCmd.AddCommand(chatCmd)
}

// buildTask wires the full agent stack from the loaded config.
func buildTask(ctx context.Context, ui ux.UI) (*task.LLMTask, *hooks.Dispatcher, *notes.Store, func(), error) {
	client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}

	limiter := ratelimit.Global(ratelimit.Config{
		MaxTokensPerRequest:  cfg.Limits.MaxTokensPerRequest,
		MaxTokensPerMinute:   cfg.Limits.MaxTokensPerMinute,
		MaxRequestsPerMinute: cfg.Limits.MaxRequestsPerMinute,
	})

	noteStore, err := notes.Open(filepath.Join(stateDir(), "notes.db"))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	registry := tools.NewRegistry()
	toolscore.RegisterAll(registry)
	shell.RegisterAll(registry)
	web.RegisterAll(registry)
	notes.RegisterAll(registry, noteStore)

	summarizer := summarize.New(client, limiter, summarize.Config{
		ConversationalTokenThreshold: cfg.Summarizer.ConversationalTokenThreshold,
		SummaryWindow:                cfg.Summarizer.SummaryWindow,
		ToolResultMessageThreshold:   cfg.Summarizer.ToolResultMessageThreshold,
		ToolResultInsanityThreshold:  cfg.Summarizer.ToolResultInsanityThreshold,
	})

	dispatcher := hooks.NewDispatcher(cfg.Hooks.MaxWorkers, cfg.GetHookTimeout())

	handler := &toolcall.Handler{
		Formatters: []toolcall.ArgumentFormatter{
			toolcall.DiffPreviewFormatter,
			toolcall.TreePreviewFormatter,
		},
		Policies: []toolcall.Policy{
			toolcall.EditValidationPolicy(),
			toolcall.AllowToolPolicy("read_long_term_note", nil),
			toolcall.AllowToolPolicy("read_contextual_note", nil),
			toolcall.AllowToolPolicy("update_conversation_memory", nil),
			toolcall.SafePathPolicy(workspace, cfg.Paths.JournalDir),
		},
		Responses: []toolcall.ResponseHandler{
			toolcall.EditResponseHandler(cfg.Approval.DiffEditCommandTpl),
		},
		Yolo: yoloFlag || cfg.Approval.YoloMode,
	}

	warning := cfg.Summarizer.LongMessageWarningPrompt
	if warning == "" {
		warning = defaultLongMessageWarning
	}

	runner := &agent.Runner{
		Limiter:                   limiter,
		Handler:                   handler,
		Summarizer:                summarizer,
		Hooks:                     dispatcher,
		LongMessageTokenThreshold: cfg.Summarizer.LongMessageTokenThreshold,
		LongMessageWarningPrompt:  warning,
	}

	subAgents := agent.NewSubAgentRegistry()
	if err := subAgents.LoadDefinitions(filepath.Join(stateDir(), "agents")); err != nil {
		logger.Warn("failed to load sub-agent definitions", zap.Error(err))
	}

	composer := &prompt.Composer{
		OverrideDir: cfg.Paths.PromptDir,
		SkillDirs:   []string{filepath.Join(stateDir(), "skills")},
		Notes:       noteStore,
		WorkDir:     workspace,
	}

	agentHookRunner := func(ctx context.Context, systemPrompt string, toolNames []string, hookTask string) (string, error) {
		nested := &agent.Agent{
			Name:         "hook",
			SystemPrompt: systemPrompt,
			Client:       client,
			Registry:     registry.Subset(toolNames),
		}
		output, _, err := runner.Run(ctx, nested, hookTask, nil, ux.NewIndentedUI(ui))
		return output, err
	}

	hookDirs := []string{filepath.Join(stateDir(), "hooks")}
	if home, err := os.UserHomeDir(); err == nil {
		hookDirs = append(hookDirs, filepath.Join(home, ".aide", "hooks"))
	}
	loader := hooks.NewLoader(dispatcher, client, agentHookRunner, hookDirs)
	if err := loader.Load(); err != nil {
		logger.Warn("failed to load hooks", zap.Error(err))
	}
	if cfg.Hooks.WatchDirs {
		go func() {
			if err := loader.Watch(ctx); err != nil {
				logger.Warn("hook watcher stopped", zap.Error(err))
			}
		}()
	}

	t := &task.LLMTask{
		Manager:    conversation.NewManager(cfg.Paths.HistoryDir),
		Notes:      noteStore,
		Client:     client,
		Runner:     runner,
		Registry:   registry,
		SubAgents:  subAgents,
		Composer:   composer,
		Summarizer: summarizer,
		Hooks:      dispatcher,
		UI:         ui,
		AgentName:  cfg.Name,
		Retries:    retries,
	}

	cleanup := func() {
		hooks.ShutdownGlobal()
		noteStore.Close()
	}
	return t, dispatcher, noteStore, cleanup, nil
}

func stateDir() string {
	return filepath.Join(workspace, ".aide")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui := ux.NewConsole(nil, nil)
	t, dispatcher, _, cleanup, err := buildTask(ctx, ui)
	if err != nil {
		return err
	}
	defer cleanup()

	name := sessionName
	if resumeLast && name == "" {
		name = t.Manager.LastSession()
		if name == "" {
			ui.Print(ux.Info("No previous session to resume, starting a new one"))
		}
	}
	if name == "" {
		name = conversation.NewSessionName()
	}

	dispatcher.Execute(ctx, hooks.EventSessionStart, map[string]any{"conversation": name})
	defer dispatcher.Execute(context.Background(), hooks.EventSessionEnd, map[string]any{"conversation": name})

	if len(args) > 0 {
		output, err := t.Execute(ctx, name, strings.Join(args, " "))
		if err != nil {
			return err
		}
		ui.Print(output)
		return nil
	}

	ui.Print(ux.Info(fmt.Sprintf("Session %s, model %s. Empty line or Ctrl-D to exit.", name, cfg.LLM.Model)))
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		output, err := t.Execute(ctx, name, line)
		if err != nil {
			if ctx.Err() != nil {
				ui.Print(ux.Info("Interrupted"))
				break
			}
			ui.Print(ux.Error(err.Error()))
			continue
		}
		ui.Print(output)
	}
	return nil
}
