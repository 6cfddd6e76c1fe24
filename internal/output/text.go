package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ancients-collective/hostenv/internal/types"
)

// Layout constants. Detail lines under a package status start at colDetail
// and use labelWidth-padded labels so every value begins at the same column.
const (
	colMargin  = 4   // left margin (spaces) for package/repository lines
	colDetail  = 6   // column where package detail lines start
	labelWidth = 9   // fixed label field: "Version: " / "Detail:  "
	maxLine    = 110 // hard wrap cap, even on ultra-wide terminals
	ruleWidth  = 64  // width of horizontal divider rules
)

// TextFormatter writes a colored, human-readable host report.
type TextFormatter struct {
	Width int  // terminal width for text wrapping; 0 = unknown
	Dumb  bool // TERM=dumb: use single-char ASCII fallback icons
}

// Color helpers, each returns a sprint function.
var (
	cBold   = color.New(color.Bold).SprintFunc()
	cGreen  = color.New(color.FgGreen).SprintFunc()
	cRed    = color.New(color.FgRed).SprintFunc()
	cYellow = color.New(color.FgYellow).SprintFunc()
	cDim    = color.New(color.Faint).SprintFunc()

	cRedBold   = color.New(color.FgRed, color.Bold).SprintFunc()
	cGreenBold = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// wrapWidth returns the effective line width: min(terminal, maxLine).
func (f *TextFormatter) wrapWidth() int {
	if f.Width > 0 && f.Width < maxLine {
		return f.Width
	}
	return maxLine
}

// Write renders the full text report.
func (f *TextFormatter) Write(w io.Writer, report *types.HostReport) error {
	f.writeHeader(w, report)
	f.writeController(w, report)
	f.writeTarget(w, report)
	f.writeRepositories(w, report)
	f.writePackages(w, report)
	f.writeWarnings(w, report)
	fmt.Fprintln(w)
	return nil
}

func (f *TextFormatter) writeHeader(w io.Writer, r *types.HostReport) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   _               _\n")
	fmt.Fprintf(w, "  | |__   ___  ___| |_ ___ _ ____   __\n")
	fmt.Fprintf(w, "  | '_ \\ / _ \\/ __| __/ _ \\ '_ \\ \\ / /\n")
	fmt.Fprintf(w, "  | | | | (_) \\__ \\ ||  __/ | | \\ V /\n")
	fmt.Fprintf(w, "  |_| |_|\\___/|___/\\__\\___|_| |_|\\_/   v%s\n", r.Version)
	fmt.Fprintf(w, "  %s %s\n", cDim("Classified:"), r.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintln(w)
}

func (f *TextFormatter) writeController(w io.Writer, r *types.HostReport) {
	c := r.Controller
	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" Controller"))
	fmt.Fprintf(w, "    Host:    %s\n", c.Hostname)
	fmt.Fprintf(w, "    OS:      %s (%s)\n", c.OS, c.Arch)
	if c.Kernel != "" {
		fmt.Fprintf(w, "    Kernel:  %s\n", c.Kernel)
	}
	if c.Virt != "" {
		fmt.Fprintf(w, "    Virt:    %s\n", c.Virt)
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) writeTarget(w io.Writer, r *types.HostReport) {
	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" Target"))
	fmt.Fprintf(w, "    Variant: %s\n", cBold(r.Variant))
	if os := r.OS; os != nil {
		fmt.Fprintf(w, "    Vendor:  %s\n", os.Vendor)
		release := os.Release
		if os.Codename != "" {
			release += fmt.Sprintf(" (%s)", os.Codename)
		}
		fmt.Fprintf(w, "    Release: %s\n", release)
		if os.FullVersion != "" && os.FullVersion != "Unknown" {
			fmt.Fprintf(w, "    Full:    %s\n", os.FullVersion)
		}
	}
	if k := r.Kernel; k != nil {
		fmt.Fprintf(w, "    Kernel:  %s\n", k.RawVersion)
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) writeRepositories(w io.Writer, r *types.HostReport) {
	if len(r.Repositories) == 0 {
		return
	}

	fmt.Fprintf(w, "  %s\n", cBold(fmt.Sprintf("%s Repositories (%d)", f.icon("section"), len(r.Repositories))))
	for _, repo := range r.Repositories {
		fmt.Fprintf(w, "%s%s\n", colPad(colMargin), f.repositoryLine(repo))
	}
	fmt.Fprintln(w)
}

// repositoryLine renders one repository with whatever extra fields its
// family's listing format exposed.
func (f *TextFormatter) repositoryLine(repo types.Repository) string {
	switch r := repo.(type) {
	case types.DebianRepositoryInfo:
		return fmt.Sprintf("%s  %s", r.Name, cDim(r.URI))
	case types.RPMRepositoryInfo:
		return fmt.Sprintf("%s  %s", r.ID, cDim(r.Name))
	case types.SuseRepositoryInfo:
		state := cGreen("enabled")
		if !r.Enabled {
			state = cDim("disabled")
		}
		return fmt.Sprintf("%s  %s", r.Alias, state)
	default:
		return repo.RepositoryName()
	}
}

func (f *TextFormatter) writePackages(w io.Writer, r *types.HostReport) {
	if len(r.Packages) == 0 {
		return
	}

	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" Packages"))
	unsatisfied := 0
	for _, pkg := range r.Packages {
		f.writePackageLine(w, pkg)
		if !pkg.Satisfied {
			unsatisfied++
		}
	}
	fmt.Fprintln(w)

	rule := cDim(strings.Repeat("─", ruleWidth))
	fmt.Fprintf(w, "  %s\n", rule)
	if unsatisfied == 0 {
		fmt.Fprintf(w, "  %s %s\n", cGreenBold(f.icon("pass")),
			cGreenBold(fmt.Sprintf("Compliant — %d requirement(s) satisfied", len(r.Packages))))
	} else {
		fmt.Fprintf(w, "  %s %s\n", cRedBold(f.icon("fail")),
			cRedBold(fmt.Sprintf("%d of %d requirement(s) unsatisfied", unsatisfied, len(r.Packages))))
	}
	fmt.Fprintf(w, "  %s\n", rule)
}

func (f *TextFormatter) writePackageLine(w io.Writer, pkg types.PackageStatus) {
	icon := cGreen(f.icon("pass"))
	if !pkg.Satisfied {
		icon = cRed(f.icon("fail"))
	}

	line := pkg.Name
	if pkg.Version != "" {
		line += " " + cDim(pkg.Version)
	}
	if pkg.MinVersion != "" {
		line += cDim(fmt.Sprintf(" (>= %s)", pkg.MinVersion))
	}
	fmt.Fprintf(w, "%s%s %s\n", colPad(colMargin), icon, line)

	if pkg.Detail != "" {
		label := cRed(fmt.Sprintf("%-*s", labelWidth, "Detail:"))
		fmt.Fprintf(w, "%s%s%s\n", colPad(colDetail), label,
			f.wrap(pkg.Detail, colDetail+labelWidth, colDetail+labelWidth))
	}
}

func (f *TextFormatter) writeWarnings(w io.Writer, r *types.HostReport) {
	if len(r.Warnings) == 0 {
		return
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  %s %s\n", cYellow(f.icon("warn")), f.wrap(warning, 4, 4))
	}
}

// wrap word-wraps text starting at startCol, indenting continuation lines
// to wrapCol.
func (f *TextFormatter) wrap(text string, startCol, wrapCol int) string {
	w := f.wrapWidth()
	if startCol+len(text) <= w {
		return text
	}

	avail := w - startCol
	if avail < 20 {
		return text
	}

	wrapPad := strings.Repeat(" ", wrapCol)
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0

	for i, word := range words {
		if i == 0 {
			b.WriteString(word)
			lineLen = len(word)
			continue
		}
		if lineLen+1+len(word) > avail {
			b.WriteByte('\n')
			b.WriteString(wrapPad)
			b.WriteString(word)
			lineLen = len(word)
			avail = w - wrapCol
		} else {
			b.WriteByte(' ')
			b.WriteString(word)
			lineLen += 1 + len(word)
		}
	}

	return b.String()
}

func (f *TextFormatter) icon(name string) string {
	if f.Dumb {
		switch name {
		case "pass":
			return "+"
		case "fail":
			return "x"
		case "warn":
			return "!"
		case "section":
			return ">"
		default:
			return "?"
		}
	}
	switch name {
	case "pass":
		return "✓"
	case "fail":
		return "✗"
	case "warn":
		return "⚠"
	case "section":
		return "▸"
	default:
		return "?"
	}
}

func colPad(n int) string {
	return strings.Repeat(" ", n)
}
