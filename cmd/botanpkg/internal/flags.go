package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/botanpkg/internal/botan"
)

var flagsCmd = &cobra.Command{
	Use:   "flags [botan@version]",
	Short: "Print the configure command of a build without running it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, err := newBuilder(cmd.Context(), args, nil)
		if err != nil {
			return err
		}
		c, err := builder.ConfigureCmd()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, c.String())

		s, o, err := config()
		if err != nil {
			return err
		}
		for k, v := range botan.BuildEnv(s) {
			fmt.Fprintf(out, "# build env: %s=%s\n", k, v)
		}
		if makeArgs := botan.MakeArgs(s, o, 0); len(makeArgs) > 0 {
			fmt.Fprintf(out, "# build args: %s\n", strings.Join(makeArgs, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flagsCmd)
}
