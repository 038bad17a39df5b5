package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <company name or id>",
	Short: "Run an interactive question-and-answer session",
	Long: `Ask starts a guided elicitation session. The agent picks the most
urgent open topic (unanswered first, then stale, then conflicting),
asks one question at a time, and follows up when an answer seems
incomplete. Answers that contradict earlier ones are flagged.

Type "skip" to move to the next topic, "quit" to end the session.
Everything recorded so far is kept when you quit.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	account, err := resolveAccount(p, args[0])
	if err != nil {
		return err
	}
	sess, err := p.StartSession(account.ID)
	if err != nil {
		return err
	}
	defer func() {
		if endErr := sess.End(); endErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save session summary: %v\n", endErr)
		}
	}()

	fmt.Printf("Elicitation session for %s. Type \"skip\" to change topic, \"quit\" to stop.\n\n", account.CompanyName)
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		question, ok, err := sess.NextQuestion()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("All topics are covered. Well done.")
			return nil
		}
		fmt.Printf("[%s]\n", sess.CurrentCategory())

		for {
			fmt.Printf("Q: %s\n> ", question)
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			answer := strings.TrimSpace(scanner.Text())
			if lower := strings.ToLower(answer); lower == "quit" || lower == "exit" {
				fmt.Println("Session saved.")
				return nil
			} else if lower == "skip" || lower == "" {
				if err := sess.Skip(); err != nil {
					return err
				}
				break
			}

			result, err := sess.SubmitAnswer(ctx, answer)
			if err != nil {
				if result == nil {
					fmt.Fprintf(os.Stderr, "Error: %v\nYour answer was not recorded; try again.\n", err)
					continue
				}
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			if result != nil && result.Turn.ChangeNote != "" {
				fmt.Printf("Noted a change from earlier answers: %s\n", result.Turn.ChangeNote)
			}
			if result != nil && result.FollowUp != "" {
				question = result.FollowUp
				continue
			}
			break
		}
		fmt.Println()
	}
}
