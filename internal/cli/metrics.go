package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/metrics"
)

type metricsFlags struct {
	denominator  string
	table        int
	machine      int
	totalPackage int
	measurement  int
	knitting     int
	toe          int
	other        int
}

func (c *CLI) newMetricsCmd() *cobra.Command {
	var f metricsFlags
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute defect totals and rates from counters",
		Long: `Compute the total defects and the per-category defect rates the way
the entry form previews them, without contacting the backend.

Example:
  prodctl metrics --table 95 --measurement 2 --knitting 1 --toe 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMetrics(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.denominator, "denominator", "", "countTakenFromTable, countTakenFromMachine or tableTotalPackage (default from RATE_DENOMINATOR)")
	cmd.Flags().IntVar(&f.table, "table", 0, "count taken from table")
	cmd.Flags().IntVar(&f.machine, "machine", -1, "count taken from machine (unset when negative)")
	cmd.Flags().IntVar(&f.totalPackage, "total-package", 0, "table total package")
	cmd.Flags().IntVar(&f.measurement, "measurement", 0, "measurement errors")
	cmd.Flags().IntVar(&f.knitting, "knitting", 0, "knitting errors")
	cmd.Flags().IntVar(&f.toe, "toe", 0, "toe defects")
	cmd.Flags().IntVar(&f.other, "other", 0, "other defects")

	return cmd
}

func (c *CLI) runMetrics(cmd *cobra.Command, f metricsFlags) error {
	raw := f.denominator
	if raw == "" {
		raw = c.cfg.Metrics.DenominatorSource
	}
	src, err := metrics.ParseDenominatorSource(raw)
	if err != nil {
		return err
	}
	for name, v := range map[string]int{"table": f.table, "total-package": f.totalPackage, "measurement": f.measurement, "knitting": f.knitting, "toe": f.toe, "other": f.other} {
		if v < 0 {
			return fmt.Errorf("--%s must not be negative", name)
		}
	}

	in := models.EntryInput{
		CountTakenFromTable: f.table,
		TableTotalPackage:   f.totalPackage,
		MeasurementError:    f.measurement,
		KnittingError:       f.knitting,
		ToeDefect:           f.toe,
		OtherDefect:         f.other,
	}
	if f.machine >= 0 {
		machine := f.machine
		in.CountTakenFromMachine = &machine
	}

	denominator := metrics.DenominatorOfInput(in, src)
	b := metrics.Compute(metrics.CountersOfInput(in), denominator)

	if c.jsonOutput {
		return c.outputJSON(map[string]interface{}{
			"denominator":       denominator,
			"denominatorSource": src,
			"metrics":           b,
		})
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Denominator\t%d (%s)\n", denominator, src)
	fmt.Fprintf(w, "Total defects\t%d\n", b.TotalDefects)
	fmt.Fprintf(w, "Measurement error\t%s\n", b.MeasurementErrorRate)
	fmt.Fprintf(w, "Knitting error\t%s\n", b.KnittingErrorRate)
	fmt.Fprintf(w, "Toe defect\t%s\n", b.ToeDefectRate)
	fmt.Fprintf(w, "Other defect\t%s\n", b.OtherDefectRate)
	fmt.Fprintf(w, "General error\t%s\n", b.GeneralErrorRate)
	return w.Flush()
}
