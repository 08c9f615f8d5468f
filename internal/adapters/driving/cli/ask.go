package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
	"github.com/adiirockstar/trial-matthew-schramm/internal/logger"
)

var (
	askMode string
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about Matthew",
	Long: `Answers a question from the indexed documents and lists the sources used.
Without arguments the question is read from standard input.

Modes: interview (default), story, tldr, humblebrag, selfreflection.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askMode, "mode", "m", string(domain.DefaultMode), "answer style")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if question == "" {
		q, err := readQuestion(cmd.InOrStdin())
		if err != nil {
			return err
		}
		question = q
	}
	if strings.TrimSpace(question) == "" {
		return errors.New("a question is required")
	}

	mode := domain.ParseMode(askMode)
	if !mode.IsValid() {
		logger.Warn("Unknown mode %q, answering without a style preamble", askMode)
	}

	svc, _, err := openServices(cmd, domain.NeedEmbedding|domain.NeedLLM|domain.NeedIndex)
	if err != nil {
		return err
	}
	defer svc.close()

	if svc.Answer == nil {
		return errors.New("answer service not configured")
	}

	answer, err := svc.Answer.Answer(cmd.Context(), question, mode)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Printf("Retrieved from: %s\n", strings.Join(answer.Sources, ", "))
	}
	return nil
}

// readQuestion reads the question from piped input. An interactive
// terminal yields an empty question.
func readQuestion(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read question: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
