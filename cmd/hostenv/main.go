// Package main is the entry point for hostenv — know what you ssh into.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ancients-collective/hostenv/internal/comply"
	"github.com/ancients-collective/hostenv/internal/config"
	"github.com/ancients-collective/hostenv/internal/distro"
	"github.com/ancients-collective/hostenv/internal/hostinfo"
	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/output"
	"github.com/ancients-collective/hostenv/internal/shell"
	"github.com/ancients-collective/hostenv/internal/types"
)

// version is set at build time via -ldflags. The default is a dev fallback
// for plain `go install` or `go run` usage.
var version = "1.0.0"

// Config holds all parsed CLI flag values.
type Config struct {
	ConfigFile   string
	Fixture      string
	Variant      string
	Format       string
	NoColor      bool
	OutputFile   string
	Quiet        bool
	Debug        bool
	SkipRepos    bool
	Capture      string
	Validate     string
	ListVariants bool
}

// parseFlags parses command-line arguments into a Config using a dedicated FlagSet,
// keeping the global flag.CommandLine clean for testability.
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("hostenv", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.ConfigFile, "config", "", "Path to a YAML scan configuration")
	fs.StringVar(&cfg.ConfigFile, "c", "", "Path to a YAML scan configuration (shorthand)")
	fs.StringVar(&cfg.Fixture, "fixture", "", "Classify a recorded host transcript instead of the local machine")
	fs.StringVar(&cfg.Variant, "variant", "", "Skip probing and force a variant by name")
	fs.StringVar(&cfg.Format, "format", "text", "Output format: text, json, jsonl")
	fs.StringVar(&cfg.Format, "f", "text", "Output format (shorthand)")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&cfg.OutputFile, "output", "", "Write output to file (default: stdout)")
	fs.StringVar(&cfg.OutputFile, "o", "", "Write output to file (shorthand)")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "Suppress output, exit code only (0 = compliant, 1 = findings, 2 = errors)")
	fs.BoolVar(&cfg.Quiet, "q", false, "Suppress output (shorthand)")
	fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug diagnostic output")
	fs.BoolVar(&cfg.SkipRepos, "skip-repos", false, "Skip repository enumeration")
	fs.StringVar(&cfg.Capture, "capture", "", "Capture a diagnostic snapshot of the target into a directory")
	fs.StringVar(&cfg.Validate, "validate", "", "Validate a YAML scan configuration without running")
	fs.BoolVar(&cfg.ListVariants, "list-variants", false, "List recognizable variants in priority order and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "   _               _\n")
		fmt.Fprintf(os.Stderr, "  | |__   ___  ___| |_ ___ _ ____   __\n")
		fmt.Fprintf(os.Stderr, "  | '_ \\ / _ \\/ __| __/ _ \\ '_ \\ \\ / /\n")
		fmt.Fprintf(os.Stderr, "  | | | | (_) \\__ \\ ||  __/ | | \\ V /\n")
		fmt.Fprintf(os.Stderr, "  |_| |_|\\___/|___/\\__\\___|_| |_|\\_/\n")
		fmt.Fprintf(os.Stderr, "  Know what you ssh into\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "  Usage: hostenv [options]\n\n")
		fmt.Fprintf(os.Stderr, "  Options:\n")
		fmt.Fprintf(os.Stderr, "    -c,  --config <file>      YAML scan configuration (targets, package requirements)\n")
		fmt.Fprintf(os.Stderr, "         --fixture <file>     Classify a recorded host transcript\n")
		fmt.Fprintf(os.Stderr, "         --variant <name>     Skip probing and force a variant by name\n")
		fmt.Fprintf(os.Stderr, "    -f,  --format <type>      Output format: text, json, jsonl (default: text)\n")
		fmt.Fprintf(os.Stderr, "         --no-color           Disable colored output\n")
		fmt.Fprintf(os.Stderr, "    -o,  --output <file>      Write output to file (default: stdout)\n")
		fmt.Fprintf(os.Stderr, "    -q,  --quiet              Suppress output, exit code only (0/1/2)\n")
		fmt.Fprintf(os.Stderr, "         --skip-repos         Skip repository enumeration\n")
		fmt.Fprintf(os.Stderr, "         --capture <dir>      Capture a diagnostic snapshot into a directory\n")
		fmt.Fprintf(os.Stderr, "         --debug              Enable debug diagnostic output\n")
		fmt.Fprintf(os.Stderr, "         --validate <file>    Validate a YAML scan configuration without running\n")
		fmt.Fprintf(os.Stderr, "         --list-variants      List recognizable variants in priority order\n")
		fmt.Fprintf(os.Stderr, "\n  Examples:\n")
		fmt.Fprintf(os.Stderr, "    hostenv                               Classify the local machine\n")
		fmt.Fprintf(os.Stderr, "    hostenv -c hostenv.yaml               Verify package requirements too\n")
		fmt.Fprintf(os.Stderr, "    hostenv --fixture rhel8.yaml          Replay a recorded host\n")
		fmt.Fprintf(os.Stderr, "    hostenv --format json -o host.json    JSON report to a file\n")
		fmt.Fprintf(os.Stderr, "    hostenv -c hostenv.yaml -q && ssh …   Scripting with exit code\n")
		fmt.Fprintf(os.Stderr, "    hostenv --validate hostenv.yaml       Validate config YAML only\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	os.Exit(run(cfg))
}

// run executes the classification with the given configuration and returns
// an exit code.
func run(cfg *Config) int {
	if cfg.Debug {
		logx.SetLevel(log.DebugLevel)
	}

	if cfg.Validate != "" {
		return handleValidate(cfg.Validate)
	}

	if cfg.ListVariants {
		printVariantList()
		return 0
	}

	if code := validateFlags(cfg); code >= 0 {
		return code
	}

	isDumb := output.IsDumbTerm()
	if cfg.NoColor || cfg.Format != "text" || cfg.OutputFile != "" || isDumb {
		color.NoColor = true
	}

	scanCfg, code := loadScanConfig(cfg)
	if code >= 0 {
		return code
	}

	runner, code := buildRunner(cfg, scanCfg)
	if code >= 0 {
		return code
	}

	host, code := classifyTarget(cfg, runner)
	if code >= 0 {
		return code
	}

	report := buildHostReport(cfg, host, scanCfg)

	if cfg.Capture != "" {
		if err := host.CaptureSystemInformation(cfg.Capture); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("capture failed: %v", err))
		}
	}

	if cfg.Quiet {
		return exitCode(report)
	}

	if code := writeReport(cfg, report, isDumb); code >= 0 {
		return code
	}

	return exitCode(report)
}

// validateFlags checks --format and flag combinations.
// Returns -1 if valid, or an exit code (2) if invalid.
func validateFlags(cfg *Config) int {
	switch cfg.Format {
	case "text", "json", "jsonl":
	default:
		fmt.Fprintf(os.Stderr, "  ✗ Invalid --format value %q (must be text, json, or jsonl)\n", cfg.Format)
		return 2
	}
	if cfg.Fixture != "" && cfg.Capture != "" {
		fmt.Fprintf(os.Stderr, "  ✗ --capture needs a live target, not a fixture\n")
		return 2
	}
	return -1
}

// loadScanConfig loads the optional --config file.
// Returns -1 as code on success, or an exit code on failure.
func loadScanConfig(cfg *Config) (config.Config, int) {
	if cfg.ConfigFile == "" {
		return config.Config{}, -1
	}
	scanCfg, err := config.New().Load(cfg.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ %v\n", err)
		return config.Config{}, 2
	}
	return scanCfg, -1
}

// buildRunner picks the command runner: a replayed fixture transcript, or
// the local machine shaped by the config's first target entry.
func buildRunner(cfg *Config, scanCfg config.Config) (shell.Runner, int) {
	if cfg.Fixture != "" {
		runner, err := loadFixture(cfg.Fixture)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ %v\n", err)
			return nil, 2
		}
		return runner, -1
	}

	local := shell.NewLocal()
	if len(scanCfg.Targets) > 0 {
		target := scanCfg.Targets[0]
		local.NoSudo = !target.Sudo
		local.Timeout = target.TimeoutDuration()
	}
	return local, -1
}

// classifyTarget resolves the target's variant, either by probing or from
// the forced --variant name.
func classifyTarget(cfg *Config, runner shell.Runner) (distro.OperatingSystem, int) {
	if cfg.Variant != "" {
		return forceVariant(cfg.Variant, runner)
	}

	host, err := distro.Classify(runner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ Classification failed: %v\n", err)
		return nil, 2
	}
	return host, -1
}

// forceVariant resolves a variant by name, case-insensitively, suggesting
// close names on a miss.
func forceVariant(name string, runner shell.Runner) (distro.OperatingSystem, int) {
	reg := distro.Default()
	for _, known := range reg.Names() {
		if strings.EqualFold(known, name) {
			v, _ := reg.Lookup(known)
			return v.New(runner, nil), -1
		}
	}

	fmt.Fprintf(os.Stderr, "  ✗ Unknown variant %q\n", name)
	if suggestions := suggestVariants(name, reg.Names()); len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Did you mean:\n")
		for _, s := range suggestions {
			fmt.Fprintf(os.Stderr, "    • %s\n", s)
		}
	}
	fmt.Fprintf(os.Stderr, "\n  Use --list-variants to see all recognizable variants.\n")
	return nil, 2
}

// buildHostReport fills the report from the classified host. Identity and
// kernel failures degrade to warnings; only classification itself is fatal.
func buildHostReport(cfg *Config, host distro.OperatingSystem, scanCfg config.Config) *types.HostReport {
	report := &types.HostReport{
		Version:    version,
		Timestamp:  time.Now(),
		Controller: hostinfo.Collect(),
		Variant:    host.Name(),
	}

	if info, err := host.Information(); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("identity resolution failed: %v", err))
	} else {
		report.OS = &info
	}

	if host.IsPosix() {
		if kernel, err := host.KernelInformation(); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("kernel probe failed: %v", err))
		} else {
			report.Kernel = &kernel
		}
	}

	if !cfg.SkipRepos && host.Capabilities().Has(distro.CapRepositories) {
		if repos, err := host.Repositories(); err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("repository enumeration failed: %v", err))
		} else {
			report.Repositories = repos
		}
	}

	if len(scanCfg.Packages) > 0 {
		report.Packages = comply.Verify(host, scanCfg.Packages)
	}

	return report
}

// writeReport formats and writes the host report to stdout or a file.
// Returns -1 on success so the caller computes the real exit code.
func writeReport(cfg *Config, report *types.HostReport, isDumb bool) int {
	termWidth := 0
	if cfg.OutputFile == "" && cfg.Format == "text" {
		if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
			if tw, _, err := term.GetSize(fd); err == nil && tw > 0 {
				termWidth = tw
			}
		}
	}

	var formatter output.Formatter
	switch cfg.Format {
	case "json":
		formatter = &output.JSONFormatter{}
	case "jsonl":
		formatter = &output.JSONLFormatter{}
	default:
		formatter = &output.TextFormatter{Width: termWidth, Dumb: isDumb}
	}

	w := os.Stdout
	if cfg.OutputFile != "" {
		if err := validateOutputPath(cfg.OutputFile); err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Unsafe output path: %v\n", err)
			return 2
		}
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Failed to create output file: %v\n", err)
			return 2
		}
		defer f.Close()
		w = f
	}

	if err := formatter.Write(w, report); err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ Failed to write output: %v\n", err)
		return 2
	}

	if cfg.OutputFile != "" {
		fmt.Fprintf(os.Stderr, "  ✓ Classified %s — written to %s\n", report.Variant, cfg.OutputFile)
	}

	return -1
}

// exitCode returns the hostenv exit code: 0 = clean, 1 = unsatisfied
// package requirements, 2 is reserved for hard failures on the way here.
func exitCode(report *types.HostReport) int {
	if !comply.Satisfied(report.Packages) {
		return 1
	}
	return 0
}

// handleValidate validates a YAML scan configuration without running.
// Returns an exit code (0 = valid, 2 = invalid).
func handleValidate(path string) int {
	if _, err := config.New().Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ %v\n", err)
		return 2
	}
	fmt.Fprintf(os.Stdout, "  ✓ %s is valid\n", path)
	return 0
}

// printVariantList prints the registry's variant names in priority order.
func printVariantList() {
	names := distro.Default().Names()
	fmt.Fprintf(os.Stdout, "\n  Recognizable variants (%d, priority order):\n\n", len(names))
	for _, name := range names {
		fmt.Fprintf(os.Stdout, "    %s\n", name)
	}
	fmt.Fprintln(os.Stdout)
}

// unsafeOutputPrefixes are path prefixes where writing output files is rejected.
// Prevents accidental overwrite of system files when running as root.
var unsafeOutputPrefixes = []string{"/etc/", "/proc/", "/sys/", "/dev/", "/boot/", "/sbin/", "/bin/", "/usr/"}

// validateOutputPath checks that the output file path is safe to write to.
func validateOutputPath(path string) error {
	cleaned := filepath.Clean(path)
	if filepath.IsAbs(cleaned) {
		for _, prefix := range unsafeOutputPrefixes {
			if strings.HasPrefix(cleaned, prefix) {
				return fmt.Errorf("refusing to write to system path %q", cleaned)
			}
		}
	}
	return nil
}
