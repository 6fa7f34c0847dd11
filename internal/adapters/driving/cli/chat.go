package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage conversations",
	Long: `Inspect and reset conversation memory, or chat interactively.

Conversation IDs are the values passed to "docqa ask --conversation".`,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history <conversation>",
	Short: "Show the turns of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatHistory,
}

var chatResetCmd = &cobra.Command{
	Use:   "reset <conversation>",
	Short: "Forget a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatReset,
}

var chatTUICmd = &cobra.Command{
	Use:   "tui",
	Short: "Chat with your documents in the terminal UI",
	Long: `Launch the interactive terminal interface.

Pick a document from the list and press enter to start a conversation.
Press ? for the key bindings.`,
	RunE: runChatTUI,
}

func init() {
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatResetCmd)
	chatCmd.AddCommand(chatTUICmd)
	rootCmd.AddCommand(chatCmd)
}

// chatContext loads the chat service and the identity that owns the
// conversations.
func chatContext(ctx context.Context) (driving.ChatService, domain.Identity, error) {
	svc, err := core(ctx)
	if err != nil {
		return nil, domain.Identity{}, err
	}
	if svc.Chat == nil {
		return nil, domain.Identity{}, errors.New("chat service not configured")
	}
	who, err := owner()
	if err != nil {
		return nil, domain.Identity{}, err
	}
	return svc.Chat, who, nil
}

func runChatHistory(cmd *cobra.Command, args []string) error {
	chat, who, err := chatContext(cmd.Context())
	if err != nil {
		return err
	}

	turns, err := chat.History(cmd.Context(), who, args[0])
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	views := make([]turnView, 0, len(turns))
	for _, t := range turns {
		views = append(views, turnView{Role: string(t.Role), Content: t.Content})
	}

	return render(cmd.OutOrStdout(), views, func(w io.Writer) {
		if len(turns) == 0 {
			fmt.Fprintf(w, "No history for %s\n", args[0])
			return
		}
		for _, t := range turns {
			fmt.Fprintf(w, "%s: %s\n", t.Role, t.Content)
		}
	})
}

func runChatReset(cmd *cobra.Command, args []string) error {
	chat, who, err := chatContext(cmd.Context())
	if err != nil {
		return err
	}

	if err := chat.Reset(cmd.Context(), who, args[0]); err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}
	cmd.Printf("Conversation %s cleared\n", args[0])
	return nil
}

func runChatTUI(cmd *cobra.Command, _ []string) error {
	svc, who, err := documentsContext(cmd.Context())
	if err != nil {
		return err
	}
	settings, err := currentSettings()
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{
		Answers:   svc.Answers,
		Documents: svc.Documents,
		Chat:      svc.Chat,
		Summaries: svc.Summaries,
		Owner:     who,
		Mode:      settings.Retrieval.Mode,
	})
	if err != nil {
		return fmt.Errorf("start tui: %w", err)
	}

	return app.WithContext(cmd.Context()).Run()
}
