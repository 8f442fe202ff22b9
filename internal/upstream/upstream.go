// Package upstream queries the upstream repository for published releases.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"
)

// Remote is the upstream Botan repository.
const Remote = "https://github.com/randombit/botan.git"

// Latest is the version query resolved to the newest release.
const Latest = "latest"

// TagLister lists the tags of a remote repository.
type TagLister interface {
	Tags(ctx context.Context, remote string) ([]string, error)
}

// Git implements TagLister with the git command.
type Git struct {
	git string
}

// GitOption configures Git.
type GitOption func(*Git)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *Git) {
		g.git = path
	}
}

// NewGit returns a Git using the git found in PATH unless configured otherwise.
func NewGit(opts ...GitOption) *Git {
	g := &Git{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Tags returns all tags of the remote repository.
func (g *Git) Tags(ctx context.Context, remote string) ([]string, error) {
	logr.FromContextOrDiscard(ctx).V(1).Info("listing tags", "remote", remote)

	cmd := exec.CommandContext(ctx, g.git, "ls-remote", "--tags", "--refs", remote)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("list remote tags: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseLsRemote(stdout.String()), nil
}

func parseLsRemote(output string) []string {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}
	var tags []string
	for _, line := range strings.Split(output, "\n") {
		// format: <hash>\trefs/tags/<tag>
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) == 2 {
			tags = append(tags, strings.TrimPrefix(parts[1], "refs/tags/"))
		}
	}
	return tags
}

// Releases returns the tags naming stable releases, newest first. Tags that are
// not versions, and pre-releases, are left out.
func Releases(tags []string) []string {
	vs := make([]*semver.Version, 0, len(tags))
	orig := make(map[*semver.Version]string, len(tags))
	for _, tag := range tags {
		v, err := semver.StrictNewVersion(tag)
		if err != nil || v.Prerelease() != "" {
			continue
		}
		vs = append(vs, v)
		orig[v] = tag
	}
	sort.Sort(sort.Reverse(semver.Collection(vs)))
	releases := make([]string, len(vs))
	for i, v := range vs {
		releases[i] = orig[v]
	}
	return releases
}

// Resolve turns a version query into a release version. Latest resolves to the
// newest release of remote; other queries are returned as they are.
func Resolve(ctx context.Context, l TagLister, remote, query string) (string, error) {
	if query != Latest {
		return query, nil
	}
	tags, err := l.Tags(ctx, remote)
	if err != nil {
		return "", err
	}
	releases := Releases(tags)
	if len(releases) == 0 {
		return "", fmt.Errorf("no releases found in %s", remote)
	}
	return releases[0], nil
}
