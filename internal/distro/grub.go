package distro

import (
	"regexp"
	"strings"
)

var (
	grubMenuEntryPattern = regexp.MustCompile(
		`^.*?menuentry '(?P<title>[^']*)' .*?\$menuentry_id_option .*?'(?P<menu_id>[^']*)'.*$`,
	)

	// gnulinux-5.11.0-1011-azure-advanced-3fdd2548-1430-450b-b16d-9191404598fb
	// prefix: gnulinux
	// postfix: advanced-3fdd2548-1430-450b-b16d-9191404598fb
	grubMenuIDPartsPattern = regexp.MustCompile(
		`^(?P<prefix>.*?)-.*-(?P<postfix>.*?-.*?-.*?-.*?-.*?-.*?)$`,
	)
)

// findGrubMenuEntry returns the menu id of the first non-recovery menuentry
// whose title names the given kernel version, or "".
func findGrubMenuEntry(grubConfig, kernelVersion string) string {
	for _, line := range strings.Split(grubConfig, "\n") {
		m := grubMenuEntryPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := m[grubMenuEntryPattern.SubexpIndex("title")]
		if !strings.Contains(title, kernelVersion) || strings.Contains(title, "(recovery mode)") {
			continue
		}
		return m[grubMenuEntryPattern.SubexpIndex("menu_id")]
	}
	return ""
}

// grubTopLevelMenuID rebuilds the first-level boot menu id from a kernel
// submenu id by dropping the kernel-specific middle segment.
func grubTopLevelMenuID(submenuID string) string {
	m := grubMenuIDPartsPattern.FindStringSubmatch(submenuID)
	if m == nil {
		return ""
	}
	prefix := m[grubMenuIDPartsPattern.SubexpIndex("prefix")]
	postfix := m[grubMenuIDPartsPattern.SubexpIndex("postfix")]
	if prefix == "" || postfix == "" {
		return ""
	}
	return prefix + "-" + postfix
}
