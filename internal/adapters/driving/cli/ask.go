package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask <document> <question>...",
	Short: "Ask a question about a document",
	Long: `Answer a question using only the passages retrieved from one document.

Each answer is labelled:
  DOCUMENT          - supported by the document (sources shown)
  MIXED             - partly supported by the document
  GENERAL_KNOWLEDGE - not supported by the document

Modes:
  strict - answer from the document only (default)
  hybrid - prefer the document but allow general knowledge

Use --conversation to keep follow-up questions in the same chat.

Examples:
  docqa ask handbook.pdf "Who approves annual leave?"
  docqa ask 3f2a9c "What is the notice period?" --mode hybrid
  docqa ask handbook.pdf "And for contractors?" --conversation hr-1
  docqa ask handbook.pdf "Summarise chapter 2" --stream`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("mode", "m", "", "answer mode: strict or hybrid (default from config)")
	askCmd.Flags().StringP("conversation", "c", "", "conversation ID for follow-up questions")
	askCmd.Flags().Bool("stream", false, "print the answer as it is generated")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	modeFlag, _ := cmd.Flags().GetString("mode")
	conversation, _ := cmd.Flags().GetString("conversation")
	stream, _ := cmd.Flags().GetBool("stream")

	if stream && outputFormat != formatText {
		return fmt.Errorf("%w: --stream only supports text output", domain.ErrInvalidInput)
	}

	mode := domain.AnswerMode(modeFlag)
	if modeFlag != "" && !mode.IsValid() {
		return fmt.Errorf("%w: unknown mode %q (use strict or hybrid)", domain.ErrInvalidInput, modeFlag)
	}

	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	svc, who, err := documentsContext(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Answers == nil {
		return errors.New("answer service not configured")
	}

	rec, err := resolveDocument(cmd.Context(), svc, who, args[0])
	if err != nil {
		return err
	}

	q := domain.Question{
		Owner:          who,
		DocumentID:     rec.ID,
		ConversationID: conversation,
		Text:           text,
		Mode:           mode,
	}

	if stream {
		return streamAnswer(cmd, svc, q)
	}

	answer, err := svc.Answers.Ask(cmd.Context(), q)
	if err != nil {
		return err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	view := answerView{
		Answer:         answer.Text,
		Type:           string(answer.Type),
		Confidence:     answer.Confidence,
		Sources:        sources,
		ConversationID: answer.ConversationID,
	}

	return render(cmd.OutOrStdout(), view, func(w io.Writer) {
		fmt.Fprintln(w, answer.Text)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "[%s] confidence %.1f\n", answer.Type, answer.Confidence)
		if len(answer.Sources) > 0 {
			fmt.Fprintf(w, "Sources: %s\n", strings.Join(answer.Sources, ", "))
		}
	})
}

// streamAnswer prints tokens as they arrive. Streamed answers are not
// verified, so no label is printed.
func streamAnswer(cmd *cobra.Command, svc *Services, q domain.Question) error {
	events, err := svc.Answers.AskStream(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for ev := range events {
		switch {
		case ev.Err != nil:
			fmt.Fprintln(out)
			return ev.Err
		case ev.Done:
			fmt.Fprintln(out)
			return nil
		default:
			fmt.Fprint(out, ev.Token)
		}
	}

	fmt.Fprintln(out)
	return cmd.Context().Err()
}
