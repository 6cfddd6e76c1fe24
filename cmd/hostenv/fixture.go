package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ancients-collective/hostenv/internal/shell"
)

// fixtureFile is a recorded host transcript: the canned results for every
// command the classifier may issue. Fixtures replay a host that is no
// longer reachable, and back the CLI's own tests.
type fixtureFile struct {
	// Posix reports whether the recorded host had a POSIX shell.
	// Defaults to true.
	Posix *bool `yaml:"posix"`

	// Commands maps each command line to its recorded result. Commands
	// not listed behave like an absent binary (exit 127).
	Commands []fixtureCommand `yaml:"commands"`

	// Files maps remote paths to contents for copy-back operations.
	Files map[string]string `yaml:"files"`
}

type fixtureCommand struct {
	Cmd    string `yaml:"cmd"`
	Stdout string `yaml:"stdout"`
	Stderr string `yaml:"stderr"`
	Exit   int    `yaml:"exit"`
}

// loadFixture reads a transcript file and builds a replay runner from it.
func loadFixture(path string) (*shell.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %q: %w", path, err)
	}

	var fx fixtureFile
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %q: %w", path, err)
	}
	if len(fx.Commands) == 0 {
		return nil, fmt.Errorf("fixture %q records no commands", path)
	}

	responses := make(map[string]shell.Result, len(fx.Commands))
	for i, c := range fx.Commands {
		if c.Cmd == "" {
			return nil, fmt.Errorf("fixture %q: command %d has no cmd", path, i+1)
		}
		if _, dup := responses[c.Cmd]; dup {
			return nil, fmt.Errorf("fixture %q: duplicate cmd %q", path, c.Cmd)
		}
		responses[c.Cmd] = shell.Result{Stdout: c.Stdout, Stderr: c.Stderr, ExitCode: c.Exit}
	}

	runner := shell.NewScript(responses)
	runner.Files = fx.Files
	if fx.Posix != nil {
		runner.Posix = *fx.Posix
	}
	return runner, nil
}
