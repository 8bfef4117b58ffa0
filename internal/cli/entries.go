package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/metrics"
	"github.com/mamadbah2/knittrack/internal/service/production"
)

func (c *CLI) newEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Production entry listing and detail",
	}

	cmd.AddCommand(c.newEntriesListCmd())
	cmd.AddCommand(c.newEntriesShowCmd())

	return cmd
}

func (c *CLI) newEntriesListCmd() *cobra.Command {
	var filter models.EntryFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries with their edit status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEntriesList(cmd, filter)
		},
	}

	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filter.PageSize, "size", 10, "page size")
	cmd.Flags().StringVar(&filter.MachineNo, "machine", "", "machine number")
	cmd.Flags().IntVar(&filter.Shift, "shift", 0, "shift")
	cmd.Flags().StringVar(&filter.StartDate, "from", "", "first production date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filter.EndDate, "to", "", "last production date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&filter.ID, "id", 0, "only the entry with this id")

	return cmd
}

func (c *CLI) runEntriesList(cmd *cobra.Command, filter models.EntryFilter) error {
	svc, err := c.production(c.backend())
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(cmd)
	defer cancel()

	page, err := svc.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	if c.jsonOutput {
		return c.outputJSON(page)
	}

	if len(page.Items) == 0 {
		c.printf("No entries found\n")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tMACHINE\tSHIFT\tSIZE\tDEFECTS\tGENERAL RATE\tEDIT STATUS\tREMAINING")
	for _, e := range page.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\t%s\t%s\t%s\n",
			e.ID,
			e.Date.String(),
			e.MachineNo,
			e.Shift,
			e.SizeNo,
			e.TotalDefects,
			metrics.RateFromPercent(e.GeneralErrorRate),
			e.EditStatus,
			e.TimeRemainingForEdit,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	c.printf("\nPage %d of %d (%d entries)\n", page.Page, page.TotalPages, page.TotalCount)
	return nil
}

func (c *CLI) newEntriesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an entry with its defect metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return c.runEntriesShow(cmd, id)
		},
	}
}

func (c *CLI) runEntriesShow(cmd *cobra.Command, id int) error {
	svc, err := c.production(c.backend())
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(cmd)
	defer cancel()

	preview, err := svc.GetForView(ctx, id)
	if err != nil {
		return fmt.Errorf("show entry %d: %w", id, err)
	}

	if c.jsonOutput {
		return c.outputJSON(preview)
	}

	e := preview.Entry
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Entry\t%d\n", e.ID)
	fmt.Fprintf(w, "Date\t%s\n", e.Date.String())
	fmt.Fprintf(w, "Machine\t%s\n", e.MachineNo)
	fmt.Fprintf(w, "Shift\t%d\n", e.Shift)
	fmt.Fprintf(w, "Model / size\t%d / %s\n", e.ModelNo, e.SizeNo)
	fmt.Fprintf(w, "Taken from table\t%d\n", e.CountTakenFromTable)
	fmt.Fprintf(w, "Created\t%s\n", e.CreatedAt.Format(models.TimestampLayout))
	fmt.Fprintf(w, "Edit window\t%s (%s)\n", preview.Editability.EditStatus, preview.Editability.TimeRemainingForEdit)
	if preview.PhotoURL != "" {
		fmt.Fprintf(w, "Photo\t%s\n", preview.PhotoURL)
	}
	if e.Note != "" {
		fmt.Fprintf(w, "Note\t%s\n", e.Note)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	c.printf("\n")
	return c.printBreakdowns(preview)
}

func (c *CLI) printBreakdowns(p *production.Preview) error {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "METRIC\tBACKEND\tLOCAL (÷%d %s)\n", p.Denominator, p.DenominatorSource)
	fmt.Fprintf(w, "Total defects\t%d\t%d\n", p.Backend.TotalDefects, p.Local.TotalDefects)
	fmt.Fprintf(w, "Measurement error\t%s\t%s\n", p.Backend.MeasurementErrorRate, p.Local.MeasurementErrorRate)
	fmt.Fprintf(w, "Knitting error\t%s\t%s\n", p.Backend.KnittingErrorRate, p.Local.KnittingErrorRate)
	fmt.Fprintf(w, "Toe defect\t%s\t%s\n", p.Backend.ToeDefectRate, p.Local.ToeDefectRate)
	fmt.Fprintf(w, "Other defect\t%s\t%s\n", p.Backend.OtherDefectRate, p.Local.OtherDefectRate)
	fmt.Fprintf(w, "General error\t%s\t%s\n", p.Backend.GeneralErrorRate, p.Local.GeneralErrorRate)
	if err := w.Flush(); err != nil {
		return err
	}
	if len(p.Discrepancies) > 0 {
		c.printf("\n%d metric(s) differ from the backend\n", len(p.Discrepancies))
	}
	return nil
}

func (c *CLI) newEditabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "editability <id>",
		Short: "Report whether an entry can still be edited",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			return c.runEditability(cmd, id)
		},
	}
}

func (c *CLI) runEditability(cmd *cobra.Command, id int) error {
	svc, err := c.production(c.backend())
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(cmd)
	defer cancel()

	report, err := svc.Editability(ctx, id)
	if err != nil {
		return fmt.Errorf("editability of entry %d: %w", id, err)
	}

	if c.jsonOutput {
		return c.outputJSON(report)
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Entry\t%d\n", report.EntryID)
	fmt.Fprintf(w, "Can edit\t%t\n", report.CanEdit)
	if report.Backend != nil {
		fmt.Fprintf(w, "Backend\t%s (%s)\n", report.Backend.EditStatus, report.Backend.TimeRemainingForEdit)
	} else {
		fmt.Fprintf(w, "Backend\tunavailable: %s\n", report.BackendError)
	}
	fmt.Fprintf(w, "Client estimate\t%s (%s)\n", report.ClientEstimate.EditStatus, report.ClientEstimate.TimeRemainingForEdit)
	return w.Flush()
}

func parseEntryID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("entry id must be a positive integer, got %q", raw)
	}
	return id, nil
}
