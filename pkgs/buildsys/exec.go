package buildsys

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/go-logr/logr"
)

// Cmd is one external tool invocation. Args are passed to the tool as separate
// tokens and never go through a shell.
type Cmd struct {
	Path string
	Args []string
	Dir  string
	Env  map[string]string // added to, or replacing, the process environment
}

// String renders the command line for logs and dry runs.
func (c Cmd) String() string {
	parts := make([]string, 0, 1+len(c.Args))
	parts = append(parts, quote(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) error
}

// ToolError reports an external tool that could not be started or exited
// with a non-zero status. Output holds what the tool printed when it was captured.
type ToolError struct {
	Cmd    Cmd
	Output []byte
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Cmd.String(), e.Err)
	if out := bytes.TrimSpace(e.Output); len(out) > 0 {
		msg += "\n" + string(out)
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec. When Stdout is nil the tool's combined
// output is captured and returned inside the ToolError on failure; otherwise it
// is streamed to Stdout and Stderr unmodified.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) error {
	logr.FromContextOrDiscard(ctx).V(1).Info("exec", "cmd", c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}

	var captured bytes.Buffer
	if r.Stdout == nil {
		cmd.Stdout = &captured
		cmd.Stderr = &captured
	} else {
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
		if cmd.Stderr == nil {
			cmd.Stderr = r.Stdout
		}
	}

	if err := cmd.Run(); err != nil {
		return &ToolError{Cmd: c, Output: captured.Bytes(), Err: err}
	}
	return nil
}

// MergeEnv overlays override on a KEY=VALUE environment and returns it sorted by key.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
