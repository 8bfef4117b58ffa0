package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/knittrack/internal/service/export"
)

func (c *CLI) newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export production data",
	}

	cmd.AddCommand(c.newExportExcelCmd())

	return cmd
}

func (c *CLI) newExportExcelCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "excel",
		Short: "Download the backend's Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := export.NewService(c.backend(), nil, c.logger.Named("svc.export"))
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			wb, err := svc.DownloadExcel(ctx)
			if err != nil {
				return fmt.Errorf("download workbook: %w", err)
			}

			path := out
			if path == "" {
				path = wb.Filename
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", dir, err)
				}
			}
			if err := os.WriteFile(path, wb.Content, 0o644); err != nil {
				return fmt.Errorf("write workbook: %w", err)
			}

			if c.jsonOutput {
				return c.outputJSON(map[string]interface{}{"path": path, "bytes": len(wb.Content)})
			}
			c.printf("Saved %s (%d bytes)\n", path, len(wb.Content))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default ProductionEntries.xlsx)")

	return cmd
}
