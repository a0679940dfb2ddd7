package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
)

const replHelp = `Commands:
  s|search TEXT        search (debounced; an empty TEXT clears it)
  f|filter KEY=VALUE   set a filter (debounced; an empty VALUE drops it)
  clear                drop every filter
  sort FIELD[:dir]     sort by FIELD (debounced)
  size N               rows per page (debounced)
  p|page N             go to page N
  n|next, prev         next or previous page
  r|refresh            fetch now
  reset                back to the defaults
  actions [ID]         actions of the screen, or those offered on row ID
  do ACTION [ID] [FIELD=VALUE]...
  save NAME            save the current query
  load NAME            load a saved query
  ok                   dismiss the notice
  q|quit`

// lineReader is satisfied by *term.Terminal and by lineScanner.
type lineReader interface {
	ReadLine() (string, error)
}

type lineScanner struct{ *bufio.Scanner }

func (ls lineScanner) ReadLine() (string, error) {
	if ls.Scan() {
		return ls.Text(), nil
	}
	if err := ls.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// repl is an interactive session on one screen. The list is printed every time a fetch completes,
// including the debounced ones.
type repl struct {
	cli *commandLine
	s   screen

	mu  sync.Mutex
	out io.Writer
}

func newREPL(cli *commandLine, s screen) *repl {
	return &repl{cli: cli, s: s, out: cli.out}
}

func (r *repl) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) onSnapshot(meta listview.Meta) {
	if meta.Status != listview.StatusReady && meta.Status != listview.StatusError {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	render(r.out, r.s)
}

func (r *repl) run(ctx context.Context, qf *queryFlags) error {
	lines, restore, err := r.input()
	if err != nil {
		return err
	}
	defer restore()

	unsubscribe := r.s.Watch(r.onSnapshot)
	defer unsubscribe()

	if err = r.quiet(r.cli.load(ctx, r.s, qf)); err != nil {
		r.printf("error: %s\n", core.DisplayMessage(err))
	}

	for {
		line, err := lines.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := r.exec(ctx, strings.TrimSpace(line))
		if err != nil {
			r.printf("error: %s\n", core.DisplayMessage(err))
		}
		if quit {
			return nil
		}
	}
}

// input reads from a raw-mode terminal when stdin is one.
func (r *repl) input() (lineReader, func(), error) {
	f, ok := r.cli.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return lineScanner{bufio.NewScanner(r.cli.in)}, func() {}, nil
	}
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return nil, nil, errors.Wrap(err, "entering raw mode")
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, r.cli.out}, r.s.Name()+"> ")
	r.out = t
	return t, func() { _ = term.Restore(int(f.Fd()), state) }, nil
}

func (r *repl) exec(ctx context.Context, line string) (quit bool, err error) {
	if line == "" {
		return false, nil
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help", "?":
		r.printf("%s\n", replHelp)
	case "s", "search":
		r.s.SetSearchText(rest)
	case "f", "filter":
		k, v, ok := strings.Cut(rest, "=")
		if !ok {
			return false, errors.Errorf("expected KEY=VALUE (got %q)", rest)
		}
		return false, r.s.SetFilter(strings.TrimSpace(k), v)
	case "clear":
		r.s.ClearFilters()
	case "sort":
		srt, err := listview.ParseSort(rest)
		if err != nil {
			return false, err
		}
		return false, r.s.SetSort(srt.Field, srt.Direction)
	case "size":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return false, errors.Errorf("size must be a number (got %q)", rest)
		}
		return false, r.s.SetPageSize(n)
	case "p", "page":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return false, errors.Errorf("page must be a number (got %q)", rest)
		}
		_, err = r.s.GoToPage(ctx, n-1)
		return false, r.quiet(err)
	case "n", "next":
		_, err := r.s.GoToPage(ctx, r.s.Meta().CurrentPage+1)
		return false, r.quiet(err)
	case "prev":
		_, err := r.s.GoToPage(ctx, r.s.Meta().CurrentPage-1)
		return false, r.quiet(err)
	case "r", "refresh":
		return false, r.quiet(r.s.Refresh(ctx))
	case "reset":
		r.s.Reset()
	case "actions":
		r.actions(rest)
	case "do":
		return false, r.do(ctx, rest)
	case "save":
		v, err := r.cli.views.Save(ctx, r.s.Name(), rest, r.s.Query(), "")
		if err != nil {
			return false, err
		}
		r.printf("view %q saved: %s\n", v.Name, describeQuery(v.Query))
	case "load":
		v, err := r.cli.views.Get(ctx, r.s.Name(), rest)
		if err != nil {
			return false, err
		}
		return false, r.quiet(r.s.Load(ctx, v.Query))
	case "ok":
		r.s.DismissNotice()
	default:
		if guess := suggest(cmd, replCommands); guess != "" {
			return false, errors.Errorf("unknown command %q, did you mean %q?", cmd, guess)
		}
		return false, errors.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

var replCommands = []string{"search", "filter", "clear", "sort", "size", "page", "next", "prev", "refresh", "reset", "actions", "do", "save", "load", "ok", "quit", "help"}

// quiet drops fetch errors, which the list already displays.
func (r *repl) quiet(err error) error {
	if err == nil || r.s.Meta().Status == listview.StatusError {
		return nil
	}
	return err
}

func (r *repl) actions(rest string) {
	if rest == "" {
		r.printf("actions: %s\n", strings.Join(r.s.Names(), ", "))
		return
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		r.printf("error: id must be a number (got %q)\n", rest)
		return
	}
	offered := r.s.Offered(id)
	if len(offered) == 0 {
		r.printf("no action available on #%d\n", id)
		return
	}
	r.printf("#%d: %s\n", id, strings.Join(offered, ", "))
}

// do runs `ACTION [ID] [FIELD=VALUE]...`. Create actions take no id.
func (r *repl) do(ctx context.Context, rest string) error {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return errors.New("usage: do ACTION [ID] [FIELD=VALUE]...")
	}
	action, fields := strings.ToLower(fields[0]), fields[1:]
	var id int64
	if len(fields) > 0 && !strings.Contains(fields[0], "=") {
		n, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return errors.Errorf("id must be a number (got %q)", fields[0])
		}
		id, fields = n, fields[1:]
	}
	inputs, err := parseInputs(joinValues(fields))
	if err != nil {
		return err
	}
	return r.s.Act(ctx, action, id, inputs)
}

// joinValues glues words without "=" to the previous pair, so that `reason=duplicate entry` is one value.
func joinValues(fields []string) []string {
	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := len(pairs); n > 0 && !strings.Contains(f, "=") {
			pairs[n-1] += " " + f
			continue
		}
		pairs = append(pairs, f)
	}
	return pairs
}
