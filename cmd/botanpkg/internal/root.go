package internal

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	"github.com/goplus/botanpkg/formula"
	"github.com/goplus/botanpkg/internal/env"
	"github.com/goplus/botanpkg/internal/profile"
)

var rootFlags struct {
	workdir  string
	profile  string
	settings keyValues
	options  keyValues
	verbose  bool
}

var rootCmd = &cobra.Command{
	Use:   "botanpkg",
	Short: "botanpkg builds and packages the Botan cryptography library",
	Long: `botanpkg downloads a Botan release, configures and compiles it for the
requested settings and options, and stages the result as a package.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SetContext(logr.NewContext(cmd.Context(), newLogger(cmd.ErrOrStderr(), rootFlags.verbose)))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.workdir, "workdir", "", "Workspace directory (default $BOTANPKG_HOME or the user cache dir)")
	pf.StringVar(&rootFlags.profile, "profile", "", "YAML profile with settings and options")
	pf.VarP(&rootFlags.settings, "setting", "s", "Setting override, e.g. -s compiler=clang (repeatable)")
	pf.VarP(&rootFlags.options, "option", "o", "Option override, e.g. -o shared=false (repeatable)")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable verbose build output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		log.Fatal(err)
	}
}

func newLogger(w io.Writer, verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintln(w, prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

// workDir returns the workspace directory.
func workDir() (string, error) {
	if rootFlags.workdir != "" {
		return rootFlags.workdir, nil
	}
	return env.WorkDir()
}

// config returns the settings and options of the build: host defaults,
// overridden by the profile, overridden by -s and -o.
func config() (formula.Settings, formula.Options, error) {
	s := env.HostSettings()
	o := formula.DefaultOptions()
	if rootFlags.profile != "" {
		p, err := profile.Load(rootFlags.profile)
		if err != nil {
			return s, o, err
		}
		if s, o, err = p.Apply(s, o); err != nil {
			return s, o, fmt.Errorf("%s: %w", rootFlags.profile, err)
		}
	}
	var err error
	for _, kv := range rootFlags.settings {
		if s, err = s.Set(kv.Key, kv.Value); err != nil {
			return s, o, err
		}
	}
	for _, kv := range rootFlags.options {
		v, err := formula.ParseBool(kv.Value)
		if err != nil {
			return s, o, fmt.Errorf("option %s: %w", kv.Key, err)
		}
		if o, err = o.Set(kv.Key, v); err != nil {
			return s, o, err
		}
	}
	return s, o, nil
}
