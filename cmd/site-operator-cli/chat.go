package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/site-operator/go-sdk/pkg/a2ui"
	"github.com/site-operator/go-sdk/pkg/chat"
	"github.com/site-operator/go-sdk/pkg/messages"
)

func chatCmd() *cobra.Command {
	var (
		newThread bool
		message   string
	)

	cmd := &cobra.Command{
		Use:   "chat [conversation-id]",
		Short: "Interactive chat with the agent",
		Long: `Start an interactive chat session.
Provide a conversation ID to continue a stored conversation. Otherwise the
thread persisted in the thread store is resumed, unless --new is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			sess, err := newSession(ctx, cfg, logger, out)
			if err != nil {
				return err
			}
			defer sess.Close()
			svc := sess.svc

			switch {
			case len(args) > 0:
				if err := svc.LoadConversation(ctx, args[0]); err != nil {
					return err
				}
			case newThread:
				if err := svc.StartNewThread(ctx); err != nil {
					return err
				}
			}

			p := newPrinter(out, svc)
			unsubscribe := svc.Subscribe(p.onChange)
			defer unsubscribe()
			p.history()

			if message != "" {
				err := svc.SendMessage(ctx, message, messages.RoleUser)
				p.endTurn()
				svc.Wait()
				return err
			}
			return repl(ctx, cmd.InOrStdin(), out, svc, p)
		},
	}

	cmd.Flags().BoolVarP(&newThread, "new", "n", false, "start a new thread")
	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message and exit")
	return cmd
}

const replHelp = `Commands:
  /new            start a new thread
  /load <id>      load a stored conversation
  /list           list stored conversations
  /reload         rerun the agent from the last user message
  /prompts        show suggested prompts
  /prompt <n>     send suggested prompt n
  /state          show the agent state
  /quit           exit`

func repl(ctx context.Context, in io.Reader, out io.Writer, svc *chat.Service, p *printer) error {
	fmt.Fprintf(out, "Thread %s. Type /help for commands.\n", svc.ThreadID())
	printPrompts(out, svc.SuggestedPrompts())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "/quit", "/exit":
			svc.Wait()
			return nil
		case "/help":
			fmt.Fprintln(out, replHelp)
			continue
		case "/new":
			err = svc.StartNewThread(ctx)
			if err == nil {
				p.reset()
				fmt.Fprintf(out, "Started thread %s\n", svc.ThreadID())
			}
		case "/load":
			err = svc.LoadConversation(ctx, strings.TrimSpace(arg))
			if err == nil {
				p.reset()
				p.history()
			}
		case "/list":
			printSummaries(out, svc)
		case "/reload":
			err = svc.Reload(ctx)
			p.endTurn()
		case "/prompts":
			printPrompts(out, svc.SuggestedPrompts())
		case "/prompt":
			err = sendPrompt(ctx, svc, arg)
			p.endTurn()
		case "/state":
			data, _ := json.MarshalIndent(svc.AgentState(), "", "  ")
			fmt.Fprintln(out, string(data))
		default:
			err = svc.SendMessage(ctx, line, messages.RoleUser)
			p.endTurn()
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func sendPrompt(ctx context.Context, svc *chat.Service, arg string) error {
	prompts := svc.SuggestedPrompts()
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(prompts) {
		return fmt.Errorf("no suggested prompt %q", arg)
	}
	return svc.SendMessage(ctx, prompts[n-1].Prompt, messages.RoleUser)
}

func printPrompts(out io.Writer, prompts []chat.Prompt) {
	if len(prompts) == 0 {
		return
	}
	fmt.Fprintln(out, "Suggested prompts:")
	for i, p := range prompts {
		fmt.Fprintf(out, "  %d. %s\n", i+1, p.Caption)
	}
}

func printSummaries(out io.Writer, svc *chat.Service) {
	summaries := svc.Conversations()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No conversations.")
		return
	}
	for _, s := range summaries {
		marker := " "
		if s.ID == svc.ThreadID() {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s  %s\n", marker, s.ID, s.Title)
	}
}

// printer writes visible messages to the terminal as they stream in.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	svc     *chat.Service
	printed map[string]int
	current string
}

func newPrinter(out io.Writer, svc *chat.Service) *printer {
	return &printer{out: out, svc: svc, printed: make(map[string]int)}
}

func (p *printer) onChange(c chat.Change) {
	if c != chat.ChangeMessages {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, msg := range p.svc.VisibleMessages() {
		p.write(msg)
	}
}

// history prints the messages already in the thread.
func (p *printer) history() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, msg := range p.svc.VisibleMessages() {
		p.write(msg)
	}
	p.current = ""
}

func (p *printer) write(msg messages.Message) {
	if msg.IsThinking {
		return
	}
	done, seen := p.printed[msg.ID]

	if a2ui.IsA2UIMessage(msg) {
		if !seen {
			p.printed[msg.ID] = 1
			p.current = ""
			fmt.Fprintf(p.out, "\n[ui] %s\n", surfaceSummary(p.svc.A2UI().Payloads(msg)))
		}
		return
	}
	if done >= len(msg.Content) && (seen || msg.Content == "") {
		return
	}
	if p.current != msg.ID {
		fmt.Fprintf(p.out, "\n%s: ", speaker(msg.Role))
		p.current = msg.ID
	}
	fmt.Fprint(p.out, msg.Content[done:])
	p.printed[msg.ID] = len(msg.Content)
}

// endTurn terminates the streamed line after a run.
func (p *printer) endTurn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != "" {
		fmt.Fprintln(p.out)
	}
	p.current = ""
}

func (p *printer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printed = make(map[string]int)
	p.current = ""
}

func speaker(role messages.MessageRole) string {
	if role == messages.RoleUser {
		return "You"
	}
	return "Agent"
}

func surfaceSummary(payloads []a2ui.Message) string {
	ids := []string{}
	seen := map[string]bool{}
	for _, m := range payloads {
		id := m.SurfaceID()
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "generated interface"
	}
	return "surface " + strings.Join(ids, ", ")
}
