package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [botan@version]",
	Short: "Show a built package",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, err := newBuilder(cmd.Context(), args, nil)
		if err != nil {
			return err
		}
		res, ok, err := builder.Cached()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not built for %s", builder.Module(), builder.Matrix())
		}

		rows := [][]string{
			{"module", res.Module.String()},
			{"matrix", res.Matrix},
			{"dir", res.Dir},
			{"built", res.BuildTime.Format(time.RFC3339)},
		}
		if info := res.Info; info != nil {
			rows = append(rows,
				[]string{"include", strings.Join(info.IncludeDirs, " ")},
				[]string{"libdirs", strings.Join(info.LibDirs, " ")},
				[]string{"libs", strings.Join(info.Libs, " ")},
				[]string{"system_libs", strings.Join(info.SystemLibs, " ")},
			)
		}
		rows = append(rows, []string{"metadata", res.Metadata})
		printTable(cmd.OutOrStdout(), []string{"field", "value"}, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
