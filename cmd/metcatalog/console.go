package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"metcatalog/internal/cache"
	"metcatalog/internal/errors"
	"metcatalog/internal/model"
	"metcatalog/internal/nationality"
	"metcatalog/internal/service"
)

const rule = "------------------------------------------------------------"

// console drives the interactive menu. Input lines are read on their own
// goroutine so a signal can interrupt a pending prompt.
type console struct {
	lines  <-chan string
	out    io.Writer
	store  *cache.Store
	works  *service.Works
	search *service.Search
	nats   *nationality.Registry
	logger *slog.Logger
}

func newConsole(in io.Reader, out io.Writer, store *cache.Store, works *service.Works,
	search *service.Search, nats *nationality.Registry, logger *slog.Logger,
) *console {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &console{
		lines:  lines,
		out:    out,
		store:  store,
		works:  works,
		search: search,
		nats:   nats,
		logger: logger,
	}
}

// run shows the menu until the user exits, input ends or ctx is done.
func (c *console) run(ctx context.Context) error {
	for {
		c.menu()
		choice, ok, err := c.prompt(ctx, "Choose an option: ")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			c.report(c.listDepartments(ctx))
		case "2":
			c.report(c.byDepartment(ctx))
		case "3":
			c.report(c.byNationality(ctx))
		case "4":
			c.report(c.byArtist(ctx))
		case "5":
			c.report(c.workDetails(ctx))
		case "6":
			c.printStats()
		case "7":
			r := c.store.Cleanup()
			c.printf("Removed %d expired entries (works %d, searches %d, department ids %d, departments %d).\n",
				r.Total(), r.Works, r.Searches, r.DepartmentIDs, r.Departments)
		case "8":
			c.store.InvalidateAll()
			c.printf("Cache cleared.\n")
		case "9":
			c.report(c.cachedByClassification(ctx))
		case "0":
			c.printf("Goodbye.\n")
			return nil
		default:
			c.printf("Invalid option %q, enter a number between 0 and 9.\n", choice)
		}
	}
}

func (c *console) menu() {
	c.printf("\n%s\n  METROPOLITAN MUSEUM OF ART CATALOG\n%s\n", rule, rule)
	c.printf("1. List departments\n")
	c.printf("2. Search works by department\n")
	c.printf("3. Search works by artist nationality\n")
	c.printf("4. Search works by artist name\n")
	c.printf("5. Show work details\n")
	c.printf("6. Cache statistics\n")
	c.printf("7. Remove expired cache entries\n")
	c.printf("8. Clear cache\n")
	c.printf("9. Cached works by classification\n")
	c.printf("0. Exit\n%s\n", rule)
}

// prompt returns the next trimmed input line. ok is false at end of input.
func (c *console) prompt(ctx context.Context, label string) (line string, ok bool, err error) {
	c.printf("%s", label)
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, ok = <-c.lines:
		return strings.TrimSpace(line), ok, nil
	}
}

// promptInt reads a positive integer.
func (c *console) promptInt(ctx context.Context, label string) (int, error) {
	line, ok, err := c.prompt(ctx, label)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, io.EOF
	}
	n, err := strconv.Atoi(line)
	if err != nil || n <= 0 {
		return 0, errors.WrapInvalid(errors.ErrInvalidArgument, "console", "promptInt",
			fmt.Sprintf("%q is not a positive number", line))
	}
	return n, nil
}

// report prints a failed action. Input problems are shown plainly; other
// failures are logged too.
func (c *console) report(err error) {
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
	case errors.IsInvalid(err):
		c.printf("Invalid input: %v\n", err)
	default:
		c.logger.Error("request failed", "error", err)
		c.printf("Request failed: %v\n", err)
	}
}

func (c *console) listDepartments(ctx context.Context) error {
	depts, err := c.search.Departments(ctx)
	if err != nil {
		return err
	}
	c.printDepartments(depts)
	return nil
}

func (c *console) printDepartments(depts []model.Department) {
	c.printf("\n%s\n  DEPARTMENTS (%d)\n%s\n", rule, len(depts), rule)
	for _, d := range depts {
		c.printf("%3d. %s\n", d.ID, d.Name)
	}
}

func (c *console) byDepartment(ctx context.Context) error {
	if err := c.listDepartments(ctx); err != nil {
		return err
	}
	id, err := c.promptInt(ctx, "Department id: ")
	if err != nil {
		return err
	}
	works, err := c.search.ByDepartment(ctx, id)
	if err != nil {
		return err
	}
	c.printWorks(works)
	return nil
}

func (c *console) byNationality(ctx context.Context) error {
	var choices []string
	if c.nats != nil {
		choices = c.nats.All()
		c.printf("\n%s\n  NATIONALITIES\n%s\n", rule, rule)
		for i, n := range choices {
			c.printf("%3d. %s\n", i+1, n)
		}
	}

	line, ok, err := c.prompt(ctx, "Nationality (number or name): ")
	if err != nil || !ok {
		return err
	}
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(choices) {
		line = choices[n-1]
	}

	works, err := c.search.ByNationality(ctx, line)
	if err != nil {
		return err
	}
	c.printWorks(works)
	return nil
}

func (c *console) byArtist(ctx context.Context) error {
	c.printf("Full or partial artist name, e.g. 'Van Gogh', 'Rembrandt'.\n")
	name, ok, err := c.prompt(ctx, "Artist: ")
	if err != nil || !ok {
		return err
	}
	works, err := c.search.ByArtist(ctx, name)
	if err != nil {
		return err
	}
	c.printWorks(works)
	return nil
}

func (c *console) workDetails(ctx context.Context) error {
	id, err := c.promptInt(ctx, "Work id (e.g. 436535): ")
	if err != nil {
		return err
	}
	w, err := c.works.Work(ctx, id)
	if err != nil {
		return err
	}
	c.printf("\n%s", service.FormatDetails(w))
	return nil
}

func (c *console) cachedByClassification(ctx context.Context) error {
	line, ok, err := c.prompt(ctx, "Classification (e.g. Paintings): ")
	if err != nil || !ok {
		return err
	}
	if line == "" {
		return errors.WrapInvalid(errors.ErrInvalidArgument, "console", "cachedByClassification", "classification cannot be empty")
	}
	c.printWorks(c.works.CachedByClassification(line))
	return nil
}

func (c *console) printWorks(works []*model.Work) {
	c.printf("\n%s\n  RESULTS (%d)\n%s\n", rule, len(works), rule)
	if len(works) == 0 {
		c.printf("No works found.\n")
		return
	}
	for _, w := range works {
		c.printf("%s\n", w.Summary())
	}
}

func (c *console) printStats() {
	st := c.store.Stats()

	c.printf("\n%s\n  CACHE STATISTICS\n%s\n", rule, rule)
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "REGION\tENTRIES\tHITS\tMISSES\tEXPIRED\tHIT RATIO")
	for _, r := range cache.Regions {
		rs := st.Region(r)
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.1f%%\n",
			r, rs.Entries, rs.Hits, rs.Misses, rs.Expired, rs.HitRatio*100)
	}
	_ = tw.Flush()
	c.printf("Total entries: %d\n", st.TotalEntries())
	c.printf("Auto cleanups: %d\n", st.AutoCleanups)
	c.printf("Estimated memory: %.1f KB\n", st.EstimatedMemoryKB)
}

func (c *console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
