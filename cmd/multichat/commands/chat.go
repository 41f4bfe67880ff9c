package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/multichat-ai/multichat/internal/event"
	"github.com/multichat-ai/multichat/internal/settings"
	"github.com/multichat-ai/multichat/pkg/types"
)

var (
	chatModel       string
	chatTemperature float64
	chatMaxTokens   int
	chatStop        []string
	chatVerbose     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Send a message and stream the reply",
	Long: `Send one message to a model deployment and stream the reply to stdout.

Examples:
  multichat chat "Explain generics in Go"
  multichat chat --model dep-42 "Summarize this"
  multichat chat --temperature 0.2 --max-tokens 256 "Short answer only"`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "Deployment id or name (default: first listed)")
	chatCmd.Flags().Float64VarP(&chatTemperature, "temperature", "t", 0, "Sampling temperature")
	chatCmd.Flags().IntVar(&chatMaxTokens, "max-tokens", 0, "Limit the response length")
	chatCmd.Flags().StringArrayVar(&chatStop, "stop", nil, "Stop string (repeatable)")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Print usage metrics after the reply")
}

func runChat(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	if message == "" {
		return fmt.Errorf("message required. Usage: multichat chat \"your message\"")
	}

	app := buildApp()
	ctx := cmd.Context()

	dep, err := pickDeployment(ctx, app, chatModel)
	if err != nil {
		return err
	}

	cs := app.registry.Create(ctx)
	cs.SelectDeployment(dep)

	if cmd.Flags().Changed("temperature") {
		if err := cs.UpdateSetting(ctx, app.synchronizer, settings.FieldTemperature, chatTemperature); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("max-tokens") {
		if err := cs.UpdateSetting(ctx, app.synchronizer, settings.FieldLimitResponseLength, true); err != nil {
			return err
		}
		if err := cs.UpdateSetting(ctx, app.synchronizer, settings.FieldSequenceLength, chatMaxTokens); err != nil {
			return err
		}
	}
	if len(chatStop) > 0 {
		if err := cs.UpdateSetting(ctx, app.synchronizer, settings.FieldStopStrings, chatStop); err != nil {
			return err
		}
	}

	done := make(chan error, 1)

	unsubDelta := event.Subscribe(event.StreamDelta, func(e event.Event) {
		if data, ok := e.Data.(event.StreamDeltaData); ok && data.SessionID == cs.ID() {
			fmt.Print(data.Delta)
		}
	})
	defer unsubDelta()

	unsubFinish := event.Subscribe(event.StreamFinished, func(e event.Event) {
		if data, ok := e.Data.(event.StreamFinishedData); ok && data.SessionID == cs.ID() {
			if chatVerbose {
				u := data.Completion.Usage
				fmt.Fprintf(os.Stderr, "\n[%s] %d in / %d out tokens, %.1f tok/s, ttft %.2fs\n",
					data.Completion.FinishReason, u.InputTokens, u.OutputTokens, u.TokenPerSec, u.TTFT)
			}
			done <- nil
		}
	})
	defer unsubFinish()

	unsubErr := event.Subscribe(event.StreamError, func(e event.Event) {
		if data, ok := e.Data.(event.StreamErrorData); ok && data.SessionID == cs.ID() {
			msg := data.Message
			if data.Retryable {
				msg += " (retryable)"
			}
			done <- errors.New(msg)
		}
	})
	defer unsubErr()

	if err := cs.Submit(ctx, message); err != nil {
		return err
	}

	select {
	case err := <-done:
		fmt.Println()
		return err
	case <-ctx.Done():
		cs.Stop()
		fmt.Println()
		return nil
	}
}

// pickDeployment resolves the --model flag against the deployment listing,
// defaulting to the first listed deployment.
func pickDeployment(ctx context.Context, app *app, selector string) (*types.Deployment, error) {
	deployments := app.deployments.List(ctx, 1, 100, "")
	if len(deployments) == 0 {
		return nil, errors.New("no deployments available")
	}

	if selector == "" {
		d := deployments[0]
		return &d, nil
	}

	for _, d := range deployments {
		if d.ID == selector || d.Name == selector {
			found := d
			return &found, nil
		}
	}

	return nil, fmt.Errorf("unknown deployment %q", selector)
}
