// Package probe runs the ordered set of detection commands that produce
// candidate identity strings for OS classification.
package probe

import (
	"iter"
	"regexp"
	"strings"

	"github.com/ancients-collective/hostenv/internal/osver"
	"github.com/ancients-collective/hostenv/internal/shell"
)

// One pattern per detection source. Empty extraction means "this source had
// nothing to say", which is normal: most targets only answer a few probes.
var (
	lsbReleasePattern = regexp.MustCompile(`(?m)^Description:[ \t]+(\w+)[ ]+$`)

	// NAME="Oracle Linux Server"
	osReleaseNamePattern   = regexp.MustCompile(`(?m)^NAME="?([^" \r\n]+).*?"?\r?$`)
	osReleaseIDPattern     = regexp.MustCompile(`(?m)^ID="?([^" \r\n]+).*?"?\r?$`)
	osReleaseIDLikePattern = regexp.MustCompile(`(?m)^ID_LIKE="?([^" \r\n]+).*?"?\r?$`)

	redhatReleaseHeaderPattern = regexp.MustCompile(`^([^ ]*) .*$`)
	// Red Hat Enterprise Linux Server 7.8 (Maipo) => Maipo
	redhatReleaseBracketPattern = regexp.MustCompile(`^.*\(([^ ]*).*\)$`)

	debianIssuePattern = regexp.MustCompile(`^([^ ]+) ?.*$`)
	releasePattern     = regexp.MustCompile(`(?m)^DISTRIB_ID='?([^ \n']+).*$`)
	suseReleasePattern = regexp.MustCompile(`(?m)^(SUSE).*$`)
)

// Candidates returns the lazy, restartable sequence of candidate identity
// strings for the target behind r, in fixed priority order. The order is
// significant and not safe to parallelize: classification stops at the first
// candidate that matches a registered variant, not at the first non-empty
// candidate.
//
// Failures of individual probes (missing file, absent command) yield ""
// rather than aborting: an image without /etc/redhat-release is expected,
// not an error.
func Candidates(r shell.Runner) iter.Seq[string] {
	return func(yield func(string) bool) {
		run := func(cmd string) string {
			result, err := r.Execute(cmd, shell.WithNoErrorLog())
			if err != nil || result.ExitCode != 0 {
				return ""
			}
			return result.Stdout
		}

		if !yield(osver.ExtractFirstMatch(run("lsb_release -d"), lsbReleasePattern)) {
			return
		}

		// /etc/os-release answers three probes: NAME and ID up front,
		// ID_LIKE as the last resort for derived distros (AlmaLinux says
		// ID=almalinux but ID_LIKE="rhel centos fedora").
		osRelease := run("cat /etc/os-release")
		if !yield(osver.ExtractFirstMatch(osRelease, osReleaseNamePattern)) {
			return
		}
		if !yield(osver.ExtractFirstMatch(osRelease, osReleaseIDPattern)) {
			return
		}

		// RedHat and CentOS 6.x
		redhatRelease := strings.TrimSpace(run("cat /etc/redhat-release"))
		if !yield(osver.ExtractFirstMatch(redhatRelease, redhatReleaseHeaderPattern)) {
			return
		}
		if !yield(osver.ExtractFirstMatch(redhatRelease, redhatReleaseBracketPattern)) {
			return
		}

		// FreeBSD and friends identify through uname alone.
		if !yield(strings.TrimSpace(run("uname"))) {
			return
		}

		// Debian
		if !yield(osver.ExtractFirstMatch(strings.TrimSpace(run("cat /etc/issue")), debianIssuePattern)) {
			return
		}

		// `cat /etc/*release` doesn't work on every image, so each file is
		// tried on its own.
		if !yield(osver.ExtractFirstMatch(run("cat /etc/release"), releasePattern)) {
			return
		}
		if !yield(osver.ExtractFirstMatch(run("cat /etc/lsb-release"), releasePattern)) {
			return
		}
		if !yield(osver.ExtractFirstMatch(run("cat /etc/SuSE-release"), suseReleasePattern)) {
			return
		}

		yield(osver.ExtractFirstMatch(osRelease, osReleaseIDLikePattern))
	}
}
