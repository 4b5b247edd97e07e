package commands

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/petal-labs/iris-messages/cli/config"
	"github.com/petal-labs/iris-messages/core"
	"github.com/petal-labs/iris-messages/messages"
)

func (a *App) newStreamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Send a streaming Messages request",
		Long: `Send a streaming request and print the reply as it arrives.

The API key is taken from ANTHROPIC_API_KEY (the environment or the env
file), then the keystore, then the profile's api_key.

Examples:
  iris-messages stream --model claude-sonnet-4-5 --prompt "Hello"
  iris-messages stream --prompt "Hello" --profile staging --verbose
  iris-messages stream --prompt "Hello" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStream(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&a.streamPrompt, "prompt", "", "User message (required)")
	cmd.Flags().StringVar(&a.streamSystem, "system", "", "System prompt")
	cmd.Flags().IntVar(&a.streamMaxTokens, "max-tokens", 0, "Max output tokens (0 = profile or default)")
	cmd.Flags().Float64Var(&a.streamTemp, "temperature", -1, "Temperature in [0, 1] (negative = API default)")

	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func (a *App) buildParams() (messages.MessageNewParams, error) {
	p := a.activeProfile()

	model := firstNonEmpty(a.model, p.Model)
	if model == "" {
		return messages.MessageNewParams{}, exitWithCode(ExitValidation,
			fmt.Errorf("model required: use --model flag or set model in the config profile"))
	}

	maxTokens := a.streamMaxTokens
	if maxTokens <= 0 {
		maxTokens = p.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}

	params := messages.MessageNewParams{
		Model:     core.ModelID(model),
		MaxTokens: maxTokens,
		Messages:  []messages.MessageParam{messages.UserText(a.streamPrompt)},
	}
	if a.streamSystem != "" {
		params = params.WithSystem(a.streamSystem)
	}
	if a.streamTemp >= 0 {
		t := a.streamTemp
		params.Temperature = &t
	}
	return params, params.Validate()
}

func (a *App) runStream(ctx context.Context) error {
	params, err := a.buildParams()
	if err != nil {
		return err
	}
	client, err := a.newClient()
	if err != nil {
		return err
	}

	s, err := client.NewStreaming(ctx, params)
	if err != nil {
		return err
	}
	defer s.Close()

	var acc messages.Accumulator
	for ev, err := range s.All() {
		if err != nil {
			return err
		}
		if err := acc.Add(ev); err != nil {
			return err
		}
		if a.jsonOutput {
			continue
		}
		if e, ok := ev.(messages.ContentBlockDeltaEvent); ok {
			if d, ok := e.Delta.Value.(messages.TextDelta); ok {
				fmt.Fprint(a.stdout, d.Text)
			}
		}
	}

	msg, err := acc.Message()
	if err != nil {
		return err
	}

	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(msg)
	}

	fmt.Fprintln(a.stdout)
	for _, tu := range msg.ToolUses() {
		fmt.Fprintf(a.stdout, "[tool_use %s %s]\n", tu.Name, tu.Input)
	}
	if a.verbose {
		fmt.Fprintf(a.stderr, "Usage: %d input + %d output = %d total tokens (stop_reason=%s)\n",
			msg.Usage.InputTokens, msg.Usage.OutputTokens, msg.Usage.Total(), msg.StopReason)
	}
	return nil
}
