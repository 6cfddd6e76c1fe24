// Package osver parses best-effort version information out of the loosely
// structured strings that distributions and package managers emit.
package osver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// versionPattern tolerates the shapes seen in the wild:
//
//	1:2.25.1-1ubuntu3.2     (epoch prefix, dpkg build suffix)
//	20.11-3.el8             (no patch component, rpm build suffix)
//	4.18.0-305.40.1.el8_4.x86_64
//	9.8                     (bare major.minor)
//	8                       (major only, CentOS 8 VERSION_ID)
//
// The epoch prefix is discarded; missing minor and patch default to 0.
var versionPattern = regexp.MustCompile(
	`(?:\d+:)?(?P<major>\d+)(?:\.(?P<minor>\d+))?(?:\.(?P<patch>\d+))?(?:[-+~](?P<build>\S+))?`,
)

// ansiEscapePattern matches ANSI terminal escape sequences.
var ansiEscapePattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// Version is a lenient semantic version. The Build component keeps whatever
// trailed the numeric part (for example "1ubuntu3.2" or "3.el8"); it is not
// constrained to strict semver build-metadata characters.
type Version struct {
	Major int
	Minor int
	Patch int
	Build string
}

// ParseError reports input that no version could be located in.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no version found in %q", e.Input)
}

// Parse extracts the first version-looking token from text.
// A numeric major is required; everything else is optional.
func Parse(text string) (Version, error) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Version{}, &ParseError{Input: text}
	}

	var v Version
	v.Major, _ = strconv.Atoi(m[versionPattern.SubexpIndex("major")])
	if minor := m[versionPattern.SubexpIndex("minor")]; minor != "" {
		v.Minor, _ = strconv.Atoi(minor)
	}
	if patch := m[versionPattern.SubexpIndex("patch")]; patch != "" {
		v.Patch, _ = strconv.Atoi(patch)
	}
	v.Build = m[versionPattern.SubexpIndex("build")]
	return v, nil
}

// String renders the version as major.minor.patch with an optional -build.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Build != "" {
		s += "-" + v.Build
	}
	return s
}

// Compare orders two versions by their numeric components only.
// Build suffixes carry distro-specific semantics and are compared by the
// family-aware comparers in the distro package instead.
func (v Version) Compare(other Version) int {
	pairs := [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	}
	for _, p := range pairs {
		if p[0] != p[1] {
			if p[0] < p[1] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ExtractFirstMatch returns the first capture group of the first match of
// pattern in text, or "" when there is no match. Callers in the detection
// path treat "" as "this probe found nothing", which is deliberately not an
// error.
func ExtractFirstMatch(text string, pattern *regexp.Regexp) string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}

// FindNamedGroups matches pattern against text and returns the named capture
// groups as a map. Groups that did not participate map to "".
func FindNamedGroups(text string, pattern *regexp.Regexp) (map[string]string, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	groups := make(map[string]string)
	for i, name := range pattern.SubexpNames() {
		if name == "" || i >= len(m) {
			continue
		}
		groups[name] = m[i]
	}
	return groups, true
}

// FromNamedGroups builds a Version from a named-group match produced by a
// per-family package version pattern. The groups major and minor are
// required; patch defaults to 0 when empty.
func FromNamedGroups(groups map[string]string) (Version, error) {
	major, okMajor := groups["major"]
	minor, okMinor := groups["minor"]
	if !okMajor || !okMinor || major == "" || minor == "" {
		return Version{}, &ParseError{Input: fmt.Sprintf("%v", groups)}
	}

	patch := groups["patch"]
	if patch == "" {
		patch = "0"
	}

	var v Version
	var err error
	if v.Major, err = strconv.Atoi(major); err != nil {
		return Version{}, &ParseError{Input: major}
	}
	if v.Minor, err = strconv.Atoi(minor); err != nil {
		return Version{}, &ParseError{Input: minor}
	}
	if v.Patch, err = strconv.Atoi(patch); err != nil {
		return Version{}, &ParseError{Input: patch}
	}
	v.Build = strings.TrimPrefix(groups["build"], "-")
	return v, nil
}

// FilterANSIEscape strips terminal escape sequences from command output.
// zypper in particular colors its table output even when not on a tty.
func FilterANSIEscape(text string) string {
	return ansiEscapePattern.ReplaceAllString(text, "")
}
