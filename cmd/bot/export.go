package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Spok95/estimate-bot/internal/report"
	"github.com/spf13/cobra"
)

var (
	exportFrom string
	exportTo   string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Выгрузить сметы за период в xlsx",
	Example: "  estimate-bot export --from 2026-10-01 --to 2026-10-19\n" +
		"  estimate-bot export --out /tmp/october.xlsx",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		from, to, err := report.Period(exportFrom, exportTo, time.Now())
		if err != nil {
			return fmt.Errorf("export period: %w", err)
		}

		ctx := context.Background()
		st, err := openStorage(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer st.close()

		data, n, err := report.Export(ctx, st.estimates, from, to)
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = report.FileName(from, to.AddDate(0, 0, -1))
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d estimates\n", out, n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first day, YYYY-MM-DD (default: 30 days up to --to)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last day inclusive, YYYY-MM-DD (default: today)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file")
}
