package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/knittrack/internal/config"
	"github.com/mamadbah2/knittrack/internal/scheduler"
	"github.com/mamadbah2/knittrack/internal/service/editing"
	"github.com/mamadbah2/knittrack/internal/service/editwindow"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow an entry's edit window until it closes",
		Long: `Print the remaining edit time of an entry every second until the
60 minute window expires or the command is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.runWatch(ctx, id)
		},
	}
}

func (c *CLI) runWatch(ctx context.Context, id int) error {
	sched := scheduler.NewScheduler(config.SchedulerConfig{}, scheduler.Jobs{}, c.cfg.Backend.Location(), c.logger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop(context.Background())

	sessions := editing.NewManager(c.backend(), sched, editing.Options{}, c.logger.Named("svc.editing"))
	defer sessions.CloseAll()

	openCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	session, err := sessions.Open(openCtx, id)
	cancel()
	if err != nil {
		return fmt.Errorf("watch entry %d: %w", id, err)
	}

	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	last := session.Snapshot()
	if done := c.printSnapshot(last); done {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			c.printf("stopped\n")
			return nil
		case snap, open := <-updates:
			if !open {
				return nil
			}
			if snap == last {
				continue
			}
			last = snap
			if done := c.printSnapshot(snap); done {
				return nil
			}
		}
	}
}

// printSnapshot writes one countdown line and reports whether watching is over.
func (c *CLI) printSnapshot(snap editing.Snapshot) bool {
	if c.jsonOutput {
		_ = c.outputJSON(snap)
	} else {
		line := fmt.Sprintf("entry %d  %s  %s", snap.EntryID, snap.Status, snap.TimeRemaining)
		if snap.Backend != nil && !snap.Backend.CanEdit {
			line += "  (backend: editing closed)"
		}
		if snap.Message != "" && !snap.SubmitEnabled {
			line += "  " + snap.Message
		}
		c.printf("%s\n", line)
	}
	return snap.Closed || snap.Status == editwindow.StateExpired.String() || !snap.SubmitEnabled
}
