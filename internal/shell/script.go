package shell

import (
	"os"
	"sync"
)

// Script is a Runner that replays canned results. It backs the test suites
// and the CLI's --fixture mode, which classifies a recorded host transcript
// instead of a live machine.
//
// Commands are matched by their exact command string, before any sudo
// prefixing. Unmatched commands get the Default result, whose zero value
// (exit 127) behaves like an absent command.
type Script struct {
	// Posix is returned by IsPosix.
	Posix bool

	// Responses maps a command string to its canned result.
	Responses map[string]Result

	// Default is returned for commands with no canned response.
	Default Result

	// Files maps remote paths to contents for CopyBack.
	Files map[string]string

	mu    sync.Mutex
	calls []string
}

// NewScript returns a POSIX Script with the given canned responses.
func NewScript(responses map[string]Result) *Script {
	return &Script{Posix: true, Responses: responses, Default: Result{ExitCode: 127}}
}

// IsPosix reports the scripted shell flavor.
func (s *Script) IsPosix() bool {
	return s.Posix
}

// Execute records the call and returns the canned result.
func (s *Script) Execute(cmd string, opts ...Option) (Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, cmd)
	s.mu.Unlock()

	if r, ok := s.Responses[cmd]; ok {
		r.Cmd = cmd
		return r, nil
	}
	r := s.Default
	r.Cmd = cmd
	return r, nil
}

// CopyBack writes the canned file content to localPath. The Files map stands
// in for the remote filesystem.
func (s *Script) CopyBack(remotePath, localPath string) error {
	content, ok := s.Files[remotePath]
	if !ok {
		return &ExitError{Cmd: "copy " + remotePath, ExitCode: 1, Message: "no such file"}
	}
	return os.WriteFile(localPath, []byte(content), 0o644)
}

// Calls returns the commands executed so far, in order.
func (s *Script) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many times cmd was executed.
func (s *Script) CallCount(cmd string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == cmd {
			n++
		}
	}
	return n
}
