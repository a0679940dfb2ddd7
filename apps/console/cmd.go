package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/storage/database"
)

var (
	errHelp          = errors.New("help provided")
	errUnknownScreen = errors.New("unknown screen")

	commands = []string{"list", "act", "views", "browse", "migrate"}
)

type commandLine struct {
	screens screens
	views   *database.ViewRepository
	db      *sql.DB
	engine  string
	in      io.Reader
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  list SCREEN [-search TEXT] [-filter KEY=VALUE]... [-sort FIELD[:asc|desc]] [-page N] [-size N] [-view NAME]")
	fmt.Fprintln(cli.out, "  act SCREEN ACTION [-id ID] [list flags] [FIELD=VALUE]... - run an action on a row of the listed page")
	fmt.Fprintln(cli.out, "  views save SCREEN NAME [list flags] [-note TEXT] - save a named query")
	fmt.Fprintln(cli.out, "  views ls [SCREEN] - list saved queries")
	fmt.Fprintln(cli.out, "  views rm SCREEN NAME - delete a saved query")
	fmt.Fprintln(cli.out, "  browse SCREEN [list flags] - interactive session")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, up-to, down, down-to, redo, reset, status, version)")
	fmt.Fprintf(cli.out, "Screens: %s\n", strings.Join(cli.screens.names(), ", "))
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()
	switch args[1] {
	case "list":
		return cli.list(ctx, args[2:])
	case "act":
		return cli.act(ctx, args[2:])
	case "views":
		return cli.savedViews(ctx, args[2:])
	case "browse":
		return cli.browse(ctx, args[2:])
	case "migrate":
		return cli.migrate(ctx, args[2:])
	default:
		cli.printUsage()
		if guess := suggest(args[1], commands); guess != "" {
			fmt.Fprintf(cli.out, "\nunknown command %q, did you mean %q?\n", args[1], guess)
		}
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) screen(name string) (screen, error) {
	if s, ok := cli.screens[core.CleanString(name, true /* lower */)]; ok {
		return s, nil
	}
	if guess := suggest(name, cli.screens.names()); guess != "" {
		return nil, errors.Wrapf(errUnknownScreen, "%q (did you mean %q?)", name, guess)
	}
	return nil, errors.Wrapf(errUnknownScreen, "%q", name)
}

func (cli *commandLine) list(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	s, err := cli.screen(args[0])
	if err != nil {
		return err
	}
	fs := cli.flagSet("list")
	qf := newQueryFlags(fs)
	if err = parse(fs, args[1:]); err != nil {
		return err
	}
	if err = cli.load(ctx, s, qf); err != nil {
		return err
	}
	render(cli.out, s)
	return nil
}

func (cli *commandLine) act(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	s, err := cli.screen(args[0])
	if err != nil {
		return err
	}
	action := core.CleanString(args[1], true /* lower */)
	if !contains(s.Names(), action) {
		if guess := suggest(action, s.Names()); guess != "" {
			return errors.Wrapf(listview.ErrUnknownAction, "%q (did you mean %q?)", action, guess)
		}
		return errors.Wrapf(listview.ErrUnknownAction, "%q", action)
	}

	fs := cli.flagSet("act")
	qf := newQueryFlags(fs)
	id := fs.Int64("id", 0, "id of the row to act on; it must be on the listed page")
	if err = parse(fs, args[2:]); err != nil {
		return err
	}
	inputs, err := parseInputs(fs.Args())
	if err != nil {
		return err
	}

	if err = cli.load(ctx, s, qf); err != nil {
		return err
	}
	if err = s.Act(ctx, action, *id, inputs); err != nil {
		return err
	}
	render(cli.out, s)
	return nil
}

func (cli *commandLine) savedViews(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}

	switch args[0] {
	case "save":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		s, err := cli.screen(args[1])
		if err != nil {
			return err
		}
		fs := cli.flagSet("views save")
		qf := newQueryFlags(fs)
		note := fs.String("note", "", "free text shown by views ls")
		if err = parse(fs, args[3:]); err != nil {
			return err
		}
		q, err := cli.query(ctx, s, qf)
		if err != nil {
			return err
		}
		v, err := cli.views.Save(ctx, s.Name(), args[2], q, *note)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "view %q saved: %s\n", v.Name, describeQuery(v.Query))
		return nil
	case "ls":
		screenName := ""
		if len(args) > 1 {
			s, err := cli.screen(args[1])
			if err != nil {
				return err
			}
			screenName = s.Name()
		}
		views, err := cli.views.List(ctx, screenName)
		if err != nil {
			return err
		}
		renderViews(cli.out, views)
		return nil
	case "rm":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		s, err := cli.screen(args[1])
		if err != nil {
			return err
		}
		if err = cli.views.Delete(ctx, s.Name(), args[2]); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "view %q deleted\n", core.CleanString(args[2]))
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) browse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	s, err := cli.screen(args[0])
	if err != nil {
		return err
	}
	fs := cli.flagSet("browse")
	qf := newQueryFlags(fs)
	if err = parse(fs, args[1:]); err != nil {
		return err
	}
	return newREPL(cli, s).run(ctx, qf)
}

// queryFlags are the list flags shared by every command showing a list.
type queryFlags struct {
	search  string
	filters filterFlag
	sort    string
	page    int // 1-based
	size    int
	view    string
}

func newQueryFlags(fs *flag.FlagSet) *queryFlags {
	qf := &queryFlags{filters: make(filterFlag)}
	fs.StringVar(&qf.search, "search", "", "search text")
	fs.Var(qf.filters, "filter", "filter as KEY=VALUE; repeatable, an empty VALUE drops the filter")
	fs.StringVar(&qf.sort, "sort", "", "sort as FIELD, -FIELD or FIELD:desc")
	fs.IntVar(&qf.page, "page", 1, "page number, from 1")
	fs.IntVar(&qf.size, "size", 0, "rows per page")
	fs.StringVar(&qf.view, "view", "", "start from this saved view")
	return qf
}

// query builds the query described by qf on top of the screen defaults (or of a saved view).
func (cli *commandLine) query(ctx context.Context, s screen, qf *queryFlags) (listview.QueryState, error) {
	q := s.DefaultQuery()
	if qf.view != "" {
		v, err := cli.views.Get(ctx, s.Name(), qf.view)
		if err != nil {
			return q, err
		}
		q = v.Query.Clone()
	}

	if qf.search != "" {
		q.SearchText = core.CleanString(qf.search)
	}
	known := s.FilterKeys()
	for k, v := range qf.filters {
		if !contains(known, k) {
			return q, errors.Wrapf(listview.ErrUnknownFilter, "%q (filters: %s)", k, strings.Join(known, ", "))
		}
		if v == "" {
			delete(q.Filters, k)
		} else {
			q.Filters[k] = v
		}
	}
	if qf.sort != "" {
		srt, err := listview.ParseSort(qf.sort)
		if err != nil {
			return q, err
		}
		if !contains(s.SortFields(), srt.Field) {
			return q, errors.Wrapf(listview.ErrUnknownSortField, "%q (sort fields: %s)", srt.Field, strings.Join(s.SortFields(), ", "))
		}
		q.Sort = srt
	}
	if qf.size < 0 {
		return q, errors.Wrapf(listview.ErrInvalidPageSize, "got %d", qf.size)
	}
	if qf.size > 0 {
		q.PageSize = qf.size
	}
	return q, nil
}

// load fetches the page described by qf.
func (cli *commandLine) load(ctx context.Context, s screen, qf *queryFlags) error {
	q, err := cli.query(ctx, s, qf)
	if err != nil {
		return err
	}
	if err = s.Load(ctx, q); err != nil {
		return err
	}
	if qf.page > 1 {
		if _, err = s.GoToPage(ctx, qf.page-1); err != nil {
			return err
		}
	}
	return nil
}

type filterFlag map[string]string

func (f filterFlag) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (f filterFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return errors.Errorf("filter must be KEY=VALUE (got %q)", s)
	}
	f[strings.TrimSpace(k)] = core.CleanString(v)
	return nil
}

// parseInputs reads FIELD=VALUE pairs.
func parseInputs(pairs []string) (listview.Args, error) {
	args := make(listview.Args, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.Errorf("expected FIELD=VALUE (got %q)", p)
		}
		args[strings.TrimSpace(k)] = v
	}
	return args, nil
}

// suggest returns the option closest to word, if any is close enough.
func suggest(word string, options []string) string {
	word = strings.ToLower(word)
	best, bestRatio := "", 0.6
	for _, opt := range options {
		m := difflib.NewMatcher(strings.Split(word, ""), strings.Split(opt, ""))
		if r := m.Ratio(); r >= bestRatio {
			best, bestRatio = opt, r
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
