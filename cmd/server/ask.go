package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"phoneadvisor/internal/app"
	"phoneadvisor/internal/model"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the response envelope as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	a, err := app.New(cmd.Context(), cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	history := []model.ChatMessage{{Role: model.RoleUser, Content: strings.Join(args, " ")}}
	result := a.Chat.Turn(cmd.Context(), history)

	if err := printJSON(cmd, result.Response); err != nil {
		return err
	}
	if result.Err != nil {
		return fmt.Errorf("turn failed: %s", result.Err.Code)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
