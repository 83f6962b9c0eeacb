package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/sylva/internal/agent"
	"github.com/harunnryd/sylva/internal/model/contract"
	"github.com/harunnryd/sylva/internal/tool"
	"github.com/harunnryd/sylva/internal/tool/formatter"

	"github.com/google/shlex"
)

var errExit = errors.New("exit requested")

// Runner answers one user turn.
type Runner interface {
	Run(ctx context.Context, history []contract.Message, identity string) agent.Result
}

// REPL keeps the conversation history in process and replays it on every
// turn. Lines starting with "/" are commands.
type REPL struct {
	ctx      context.Context
	runner   Runner
	catalog  *tool.Catalog
	reader   *bufio.Reader
	out      io.Writer
	identity string
	history  []contract.Message
}

func NewREPL(ctx context.Context, runner Runner, catalog *tool.Catalog, in io.Reader, out io.Writer, identity string) *REPL {
	return &REPL{
		ctx:      ctx,
		runner:   runner,
		catalog:  catalog,
		reader:   bufio.NewReader(in),
		out:      out,
		identity: identity,
	}
}

func (r *REPL) Start() error {
	fmt.Fprintln(r.out, TitleStyle.Render("Sylva, assistant naturaliste GeoNature"))
	fmt.Fprintln(r.out, HintStyle.Render("Tapez /help pour la liste des commandes, /exit pour quitter."))

	for {
		select {
		case <-r.ctx.Done():
			return nil
		default:
		}

		err := r.readLine()
		if errors.Is(err, io.EOF) || errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(r.out, ErrorStyle.Render(err.Error()))
		}
	}
}

func (r *REPL) readLine() error {
	fmt.Fprint(r.out, PromptStyle.Render("> "))
	text, err := r.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(text) == "") {
		return err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		return r.command(text)
	}
	return r.turn(text)
}

func (r *REPL) turn(text string) error {
	r.history = append(r.history, contract.Message{Role: contract.RoleUser, Content: text})

	res := r.runner.Run(r.ctx, r.history, r.identity)
	r.history = append(r.history, contract.Message{Role: contract.RoleAssistant, Content: res.Answer})

	fmt.Fprintln(r.out, RenderResult(res))
	return nil
}

func (r *REPL) command(input string) error {
	parts, err := shlex.Split(input)
	if err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	switch name {
	case "exit", "quit":
		return errExit
	case "help":
		fmt.Fprintln(r.out, HintStyle.Render("/tools  /history  /reset  /token <jeton>  /exit"))
	case "reset":
		r.history = nil
		fmt.Fprintln(r.out, HintStyle.Render("Historique effacé."))
	case "history":
		if len(r.history) == 0 {
			fmt.Fprintln(r.out, HintStyle.Render("Historique vide."))
			return nil
		}
		for _, msg := range r.history {
			fmt.Fprintf(r.out, "%s %s\n", RoleStyle.Render(string(msg.Role)+":"), msg.Content)
		}
	case "tools":
		out, err := formatter.NewTableFormatter().FormatTools(r.catalog.Descriptors())
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, out)
	case "token":
		if len(args) == 0 {
			r.identity = ""
			fmt.Fprintln(r.out, HintStyle.Render("Jeton utilisateur retiré."))
			return nil
		}
		r.identity = args[0]
		fmt.Fprintln(r.out, HintStyle.Render("Jeton utilisateur défini."))
	default:
		return fmt.Errorf("unknown command /%s", name)
	}
	return nil
}

// History returns the turns accumulated so far.
func (r *REPL) History() []contract.Message {
	return r.history
}
