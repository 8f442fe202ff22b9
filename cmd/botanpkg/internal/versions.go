package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/botanpkg/internal/botan"
	"github.com/goplus/botanpkg/internal/upstream"
)

var tagLister upstream.TagLister = upstream.NewGit()

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the upstream releases, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := tagLister.Tags(cmd.Context(), upstream.Remote)
		if err != nil {
			return err
		}
		for _, v := range upstream.Releases(tags) {
			if v == botan.DefaultVersion {
				fmt.Fprintln(cmd.OutOrStdout(), v, "(default)")
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}
