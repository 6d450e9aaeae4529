package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smartbin/portal/internal/client"
	"smartbin/portal/internal/model"
	"smartbin/portal/pkg/authz"
	"smartbin/portal/pkg/fetch"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	alertStyle  = cellStyle.Foreground(lipgloss.Color("9")).Bold(true)
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fleet statistics, optionally polling until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var binsCmd = &cobra.Command{
	Use:   "bins",
	Short: "List bins page by page",
	Args:  cobra.NoArgs,
	RunE:  runBins,
}

var fillCmd = &cobra.Command{
	Use:   "fill <bin-id> <level>",
	Short: "Report a bin's fill level (0-100)",
	Args:  cobra.ExactArgs(2),
	RunE:  runFill,
}

var emptyCmd = &cobra.Command{
	Use:   "empty <bin-id>",
	Short: "Mark a bin as emptied",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmpty,
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show the HQ overview for the signed-in executive",
	Args:  cobra.NoArgs,
	RunE:  runOverview,
}

func init() {
	statsCmd.Flags().Duration("interval", 0, "Refresh period; 0 prints once")

	binsCmd.Flags().Int("page", 1, "First page to load")
	binsCmd.Flags().Int("page-size", fetch.DefaultPageSize, "Bins per page")
	binsCmd.Flags().Bool("all", false, "Walk every remaining page")
	binsCmd.Flags().Int("threshold", 80, "Highlight bins at or above this fill level")
}

func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, stop := interruptible(cmd)
	defer stop()

	c, sess, err := signIn(ctx)
	if err != nil {
		return err
	}
	defer signOut(sess)

	interval, _ := cmd.Flags().GetDuration("interval")
	out := cmd.OutOrStdout()

	var (
		mu   sync.Mutex
		last time.Time
	)
	q := c.StatsQuery(fetch.Options[*model.FleetStats]{
		Manual:  true,
		Timeout: flags.GetDuration("timeout"),
		Logger:  logger,
		OnSuccess: func(s *model.FleetStats) {
			mu.Lock()
			defer mu.Unlock()
			if s.GeneratedAt.Equal(last) {
				return
			}
			last = s.GeneratedAt
			printStats(out, s)
		},
		OnError: func(msg string) {
			logger.Warn("stats refresh failed", zap.String("error", msg))
		},
	})
	defer q.Close()

	q.Refetch(ctx)
	if state := q.State(); !state.HasData {
		return errors.New(state.Error)
	}
	if interval <= 0 {
		return nil
	}

	q.SetRefetchInterval(interval)
	<-ctx.Done()
	return nil
}

func printStats(w io.Writer, s *model.FleetStats) {
	fmt.Fprintf(w, "%s  fleet stats\n", headerStyle.Render(s.GeneratedAt.Local().Format(time.TimeOnly)))
	fmt.Fprintf(w, "  bins:            %d\n", s.TotalBins)
	fmt.Fprintf(w, "  average fill:    %.1f%%\n", s.AverageFill)
	fmt.Fprintf(w, "  needs pickup:    %d\n", s.NeedsPickup)
	fmt.Fprintf(w, "  new submissions: %d\n", s.NewSubmissions)

	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(w, "  %-16s %d\n", st+":", s.ByStatus[model.BinStatus(st)])
	}
	if len(s.Fullest) > 0 {
		fmt.Fprintln(w, binTable(s.Fullest, 0))
	}
}

func runBins(cmd *cobra.Command, args []string) error {
	ctx, stop := interruptible(cmd)
	defer stop()

	c, sess, err := signIn(ctx)
	if err != nil {
		return err
	}
	defer signOut(sess)

	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("page-size")
	all, _ := cmd.Flags().GetBool("all")
	threshold, _ := cmd.Flags().GetInt("threshold")
	out := cmd.OutOrStdout()

	p := c.BinsPaged(fetch.PagedOptions[fetch.Page[model.Bin]]{
		Options: fetch.Options[fetch.Page[model.Bin]]{
			Manual:  true,
			Timeout: flags.GetDuration("timeout"),
			Logger:  logger,
		},
		InitialPage: page,
		PageSize:    size,
	})
	defer p.Close()

	for {
		p.Refetch(ctx)
		state := p.State()
		if state.Failed() {
			return errors.New(state.Error)
		}

		total, _ := state.Data.TotalCount()
		fmt.Fprintf(out, "page %d (%d bins total)\n", p.Page(), total)
		fmt.Fprintln(out, binTable(state.Data.Items, threshold))

		if !all || !p.HasMore() || ctx.Err() != nil {
			return nil
		}
		p.NextPage()
	}
}

// binTable renders bins; a positive threshold highlights fill levels at or
// above it.
func binTable(bins []model.Bin, threshold int) string {
	rows := make([][]string, 0, len(bins))
	for _, b := range bins {
		emptied := "never"
		if b.LastEmptiedAt != nil {
			emptied = humanize.Time(*b.LastEmptiedAt)
		}
		rows = append(rows, []string{
			b.ID.String(), b.Code, b.Location, string(b.WasteType), string(b.Status),
			strconv.Itoa(b.FillLevel) + "%", emptied,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "CODE", "LOCATION", "TYPE", "STATUS", "FILL", "EMPTIED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle.Padding(0, 1)
			case col == 5 && threshold > 0 && row < len(bins) && bins[row].NeedsPickup(threshold):
				return alertStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func parseBinID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid bin id %q", s)
	}
	return id, nil
}

func runFill(cmd *cobra.Command, args []string) error {
	id, err := parseBinID(args[0])
	if err != nil {
		return err
	}
	level, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid level %q", args[1])
	}

	ctx, stop := interruptible(cmd)
	defer stop()
	c, sess, err := signIn(ctx)
	if err != nil {
		return err
	}
	defer signOut(sess)

	m := c.FillMutation(fetch.MutationOptions[*model.Bin]{Timeout: flags.GetDuration("timeout"), Logger: logger})
	bin, ok := m.Mutate(ctx, client.FillVars{ID: id, Level: level})
	if !ok {
		return errors.New(m.State().Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %d%% full\n", bin.Code, bin.FillLevel)
	return nil
}

func runEmpty(cmd *cobra.Command, args []string) error {
	id, err := parseBinID(args[0])
	if err != nil {
		return err
	}

	ctx, stop := interruptible(cmd)
	defer stop()
	c, sess, err := signIn(ctx)
	if err != nil {
		return err
	}
	defer signOut(sess)

	m := c.EmptyMutation(fetch.MutationOptions[*model.Bin]{Timeout: flags.GetDuration("timeout"), Logger: logger})
	bin, ok := m.Mutate(ctx, id)
	if !ok {
		return errors.New(m.State().Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s emptied\n", bin.Code)
	return nil
}

func runOverview(cmd *cobra.Command, args []string) error {
	ctx, stop := interruptible(cmd)
	defer stop()

	c, sess, err := signIn(ctx)
	if err != nil {
		return err
	}
	defer signOut(sess)

	q := c.OverviewQuery(fetch.Options[*model.Overview]{Manual: true, Logger: logger})
	defer q.Close()

	var me *client.Me
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		me, err = c.Me(gctx)
		return err
	})
	g.Go(func() error {
		q.Refetch(gctx)
		if state := q.State(); state.Failed() {
			return errors.New(state.Error)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	ov, _ := q.Data()
	out := cmd.OutOrStdout()
	if me.User != nil {
		fmt.Fprintf(out, "%s (%s)\n", headerStyle.Render(me.User.Name), me.Role)
	}
	fmt.Fprintf(out, "  users:        %d\n", ov.TotalUsers)
	for _, role := range authz.Roles() {
		if n, ok := ov.UsersByRole[role]; ok {
			fmt.Fprintf(out, "    %-10s %d\n", role, n)
		}
	}
	printStats(out, &ov.Fleet)
	return nil
}
