package distro

import (
	"github.com/ancients-collective/hostenv/internal/logx"
	"github.com/ancients-collective/hostenv/internal/probe"
	"github.com/ancients-collective/hostenv/internal/shell"
)

// ClassifyOptions adjust classification.
type ClassifyOptions struct {
	Registry *Registry
	Policy   *Policy
}

// ClassifyOption mutates ClassifyOptions.
type ClassifyOption func(*ClassifyOptions)

// WithRegistry classifies against a custom registry instead of Default.
func WithRegistry(reg *Registry) ClassifyOption {
	return func(o *ClassifyOptions) { o.Registry = reg }
}

// WithPolicy passes a retry and lock-wait policy to the built variant.
func WithPolicy(pol *Policy) ClassifyOption {
	return func(o *ClassifyOptions) { o.Policy = pol }
}

// Classify identifies the operating system behind r and builds the matching
// variant bound to it. Non-POSIX runners are Windows by definition. POSIX
// targets are probed source by source, in priority order, until one candidate
// string matches a registered variant; probing stops at the first match, not
// the first non-empty candidate.
//
// It returns ErrUndetectable when no probe yields any identity string at
// all, and UnknownDistributionError when candidates exist but none matches a
// registered variant.
func Classify(r shell.Runner, opts ...ClassifyOption) (OperatingSystem, error) {
	o := ClassifyOptions{Registry: Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if !r.IsPosix() {
		logx.Debug("non-posix runner, classifying as Windows")
		return NewWindows(r), nil
	}

	var candidates []string
	for candidate := range probe.Candidates(r) {
		if candidate == "" {
			continue
		}
		candidates = append(candidates, candidate)
		if v, ok := o.Registry.Match(candidate); ok {
			logx.Debug("classified os", "candidate", candidate, "variant", v.Name)
			return v.New(r, o.Policy), nil
		}
	}

	if len(candidates) == 0 {
		return nil, ErrUndetectable
	}
	return nil, &UnknownDistributionError{Candidates: candidates}
}
