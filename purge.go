package main

import (
	"fmt"
	"strconv"
	"strings"

	mediaservice "snowtricks-server/internal/modules/media/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newPurgeCommand(configDir *string) *cobra.Command {
	var dryRun bool
	var skipTemp bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "清理上传目录中没有数据库记录的孤儿文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(*configDir)
			if err != nil {
				return err
			}
			defer rt.Close()

			media := rt.app.Modules.Media.Service
			reports, err := media.Purger().PurgeDirs(cmd.Context(), media.Dirs().All(), dryRun)
			if err != nil {
				return fmt.Errorf("清理失败: %w", err)
			}
			if !skipTemp && !dryRun {
				report, err := media.SweepTemporary(cmd.Context())
				if err != nil {
					return fmt.Errorf("清理暂存目录失败: %w", err)
				}
				reports = append(reports, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPurgeTable(reports, dryRun))
			if verbose {
				for _, r := range reports {
					for _, name := range r.Deleted {
						fmt.Fprintf(out, "%s/%s\n", strings.TrimSuffix(r.Dir, "/"), name)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只列出孤儿文件，不删除")
	cmd.Flags().BoolVar(&skipTemp, "skip-temp", false, "不清理过期的暂存图片")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "逐个输出被删除（或将被删除）的文件")
	return cmd
}

func renderPurgeTable(reports []mediaservice.PurgeReport, dryRun bool) string {
	deletedHeader := "Deleted"
	if dryRun {
		deletedHeader = "Orphans"
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Directory", "Scanned", deletedHeader, "Failed", "Skipped"})
	for _, r := range reports {
		tw.AppendRow(table.Row{
			r.Dir,
			strconv.Itoa(r.Scanned),
			strconv.Itoa(len(r.Deleted)),
			strconv.Itoa(len(r.Failed)),
			strconv.Itoa(len(r.Skipped)),
		})
	}

	columnConfigs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i := 2; i <= 5; i++ {
		columnConfigs = append(columnConfigs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(columnConfigs)
	return tw.Render()
}
