package distro

import (
	"fmt"
	"regexp"
	"sync"
)

// Variant binds a name-matching pattern to a constructor. Patterns target
// the identity strings the probes surface, so most anchor a vendor prefix
// and an os-release ID alternative, e.g. `^Ubuntu|ubuntu$`.
type Variant struct {
	Name    string
	Pattern *regexp.Regexp
	New     Factory
}

// Registry is the ordered set of classifiable variants. Order is an explicit
// priority list, declared child-before-parent so that "CentOS Linux" never
// falls through to the Red Hat entry. The registry is assembled once and
// never mutated afterwards.
type Registry struct {
	variants []Variant
}

// Register appends variants at the end of the priority order.
func (reg *Registry) Register(variants ...Variant) {
	reg.variants = append(reg.variants, variants...)
}

// Match returns the first variant in priority order whose pattern matches
// the candidate.
func (reg *Registry) Match(candidate string) (Variant, bool) {
	for _, v := range reg.variants {
		if v.Pattern.MatchString(candidate) {
			return v, true
		}
	}
	return Variant{}, false
}

// Lookup returns the variant with the given name.
func (reg *Registry) Lookup(name string) (Variant, bool) {
	for _, v := range reg.variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Names returns the variant names in priority order.
func (reg *Registry) Names() []string {
	names := make([]string, len(reg.variants))
	for i, v := range reg.variants {
		names[i] = v.Name
	}
	return names
}

// Validate checks the registry against a corpus of identity strings mapped
// to their expected variant names. Two patterns claiming the same corpus
// string is a configuration error, not a tie to be broken silently.
func (reg *Registry) Validate(corpus map[string]string) error {
	for candidate, want := range corpus {
		var matched []string
		for _, v := range reg.variants {
			if v.Pattern.MatchString(candidate) {
				matched = append(matched, v.Name)
			}
		}
		switch {
		case len(matched) == 0 && want != "":
			return fmt.Errorf("registry: %q matches no variant, expected %s", candidate, want)
		case len(matched) > 1:
			return fmt.Errorf("registry: %q matches %v, patterns must not overlap", candidate, matched)
		case len(matched) == 1 && matched[0] != want:
			return fmt.Errorf("registry: %q matches %s, expected %s", candidate, matched[0], want)
		}
	}
	return nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry, built once on first use. The
// order is deliberate: specific derivatives come before the families they
// would otherwise shadow, and bare Linux closes the list as the last resort
// for a uname-only match.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		reg := &Registry{}
		reg.Register(
			Variant{"Ubuntu", regexp.MustCompile(`^Ubuntu|ubuntu$`), NewUbuntu},
			Variant{"Debian", regexp.MustCompile(`^debian|Forcepoint|Kali$`), NewDebian},
			Variant{"CentOs", regexp.MustCompile(`^CentOS|Centos|centos|clear-linux-os$`), NewCentOs},
			Variant{"Oracle", regexp.MustCompile(`^Oracle`), NewOracle},
			Variant{"Redhat", regexp.MustCompile(`^rhel|Red|AlmaLinux|Rocky|Scientific|acronis|Actifio$`), NewRedhat},
			Variant{"Fedora", regexp.MustCompile(`^Fedora|fedora$`), NewFedora},
			Variant{"CBLMariner", regexp.MustCompile(`^Common Base Linux Mariner|mariner$`), NewCBLMariner},
			Variant{"SLES", regexp.MustCompile(`^SLES|^SUSE Linux Enterprise|sles|sle-hpc|sle_hpc$`), NewSLES},
			Variant{"Suse", regexp.MustCompile(`^openSUSE|^SUSE Linux$|^SUSE$|opensuse-leap$`), NewSuse},
			Variant{"CoreOs", regexp.MustCompile(`^coreos|Flatcar|flatcar$`), NewCoreOs},
			Variant{"NixOS", regexp.MustCompile(`^NixOS|nixos$`), NewNixOS},
			Variant{"FreeBSD", regexp.MustCompile(`^FreeBSD$`), NewFreeBSD},
			Variant{"OpenBSD", regexp.MustCompile(`^OpenBSD$`), NewOpenBSD},
			Variant{"MacOS", regexp.MustCompile(`^Darwin$`), NewMacOS},
			Variant{"OtherLinux", regexp.MustCompile(`^Sapphire|Buildroot|OpenWrt|BloombaseOS|FMOS|idms|RecoveryOS|sinefa$`), NewOtherLinux},
			Variant{"Linux", regexp.MustCompile(`^Linux$`), NewLinux},
			Variant{"BSD", regexp.MustCompile(`^BSD$`), NewBSD},
		)
		defaultRegistry = reg
	})
	return defaultRegistry
}
