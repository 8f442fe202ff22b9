package internal

import (
	"github.com/spf13/cobra"

	"github.com/goplus/botanpkg/internal/botan"
	"github.com/goplus/botanpkg/pkgs/mod/versions"
)

var requirementsDeps string

var requirementsCmd = &cobra.Command{
	Use:   "requirements",
	Short: "List the dependencies the options need",
	Long: `Requirements lists the libraries required by the selected options. With
--deps, each one is checked against the dependency lock.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, o, err := config()
		if err != nil {
			return err
		}
		var deps *versions.Versions
		if requirementsDeps != "" {
			if deps, err = versions.Parse(requirementsDeps, nil); err != nil {
				return err
			}
		}

		header := []string{"name", "constraint", "provided", "status"}
		var rows [][]string
		for _, req := range botan.Requirements(o) {
			row := []string{req.Name, req.Constraint, "-", "missing"}
			if dep, ok := deps.Lookup(req.Name); ok {
				row[2] = dep.Version
				switch ok, err := botan.Satisfies(req.Constraint, dep.Version); {
				case err != nil:
					row[3] = err.Error()
				case ok:
					row[3] = "ok"
				default:
					row[3] = "mismatch"
				}
			}
			rows = append(rows, row)
		}
		printTable(cmd.OutOrStdout(), header, rows)
		return nil
	},
}

func init() {
	requirementsCmd.Flags().StringVar(&requirementsDeps, "deps", "", "Dependency lock to check the requirements against")
	rootCmd.AddCommand(requirementsCmd)
}
