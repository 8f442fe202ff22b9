package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/botanpkg/formula"
)

var matrixCount bool

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "List the build keys of every option combination",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := config()
		if err != nil {
			return err
		}
		m := formula.FullMatrix(s)
		if matrixCount {
			fmt.Fprintln(cmd.OutOrStdout(), m.CombinationCount())
			return nil
		}
		for _, key := range m.Combinations() {
			fmt.Fprintln(cmd.OutOrStdout(), key)
		}
		return nil
	},
}

func init() {
	matrixCmd.Flags().BoolVar(&matrixCount, "count", false, "Print only the number of combinations")
	rootCmd.AddCommand(matrixCmd)
}
