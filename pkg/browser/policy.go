package browser

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// NavigationPolicy decides which URLs goto may load.
// A nil policy allows everything.
type NavigationPolicy struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
}

// NewNavigationPolicy compiles allow and deny glob patterns such as
// "https://*.example.com/*". Deny patterns take precedence; an empty allow
// list allows every URL that is not denied.
func NewNavigationPolicy(allowed, denied []string) (*NavigationPolicy, error) {
	p := &NavigationPolicy{}

	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed url pattern '%s': %w", pattern, err)
		}
		p.allowedPatterns = append(p.allowedPatterns, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied url pattern '%s': %w", pattern, err)
		}
		p.deniedPatterns = append(p.deniedPatterns, g)
	}

	return p, nil
}

// IsAllowed returns true if url may be loaded.
func (p *NavigationPolicy) IsAllowed(url string) bool {
	if p == nil {
		return true
	}
	url = strings.TrimSpace(url)

	for _, pattern := range p.deniedPatterns {
		if pattern.Match(url) {
			return false
		}
	}

	if len(p.allowedPatterns) == 0 {
		return true
	}

	for _, pattern := range p.allowedPatterns {
		if pattern.Match(url) {
			return true
		}
	}

	return false
}

func (p *NavigationPolicy) check(url string) error {
	if !p.IsAllowed(url) {
		return fmt.Errorf("%w: navigation to %q is not allowed", ErrInvalidRequest, url)
	}
	return nil
}
