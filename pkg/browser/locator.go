package browser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LocatorKind tags the two locator shapes.
type LocatorKind int

const (
	// LocatorRawSelector is a selector in the engine's native query language
	LocatorRawSelector LocatorKind = iota + 1

	// LocatorRoleName is an accessibility role plus accessible name
	LocatorRoleName
)

// Locator references zero or more elements on the current page.
// Locators are never stored; they are resolved fresh on every action.
type Locator struct {
	kind     LocatorKind
	selector string
	role     string
	name     string
}

// RawSelector builds a native selector locator such as "#login" or "xpath=//a".
func RawSelector(selector string) Locator {
	return Locator{kind: LocatorRawSelector, selector: selector}
}

// RoleName builds a structured role/name locator.
func RoleName(role, name string) Locator {
	return Locator{kind: LocatorRoleName, role: role, name: name}
}

// Validate reports ErrInvalidLocator for an empty selector or a role/name
// pair missing either half.
func (l Locator) Validate() error {
	switch l.kind {
	case LocatorRawSelector:
		if l.selector == "" {
			return fmt.Errorf("%w: selector is empty", ErrInvalidLocator)
		}
	case LocatorRoleName:
		if l.role == "" || l.name == "" {
			return fmt.Errorf("%w: structured locator requires both role and name, got role=%q name=%q", ErrInvalidLocator, l.role, l.name)
		}
	default:
		return fmt.Errorf("%w: empty locator", ErrInvalidLocator)
	}
	return nil
}

func (l Locator) String() string {
	switch l.kind {
	case LocatorRawSelector:
		return l.selector
	case LocatorRoleName:
		return fmt.Sprintf("role=%s[name=%q]", l.role, l.name)
	default:
		return "<empty>"
	}
}

// UnmarshalJSON accepts either a selector string or a {"role","name"} object.
// Missing role or name is kept as empty and rejected later by Validate.
func (l *Locator) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty locator", ErrInvalidLocator)
	}

	switch data[0] {
	case '"':
		var selector string
		if err := json.Unmarshal(data, &selector); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLocator, err)
		}
		*l = RawSelector(selector)
		return nil
	case '{':
		var structured struct {
			Role string `json:"role"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &structured); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLocator, err)
		}
		*l = RoleName(structured.Role, structured.Name)
		return nil
	default:
		return fmt.Errorf("%w: locator must be a string or an object with role and name", ErrInvalidLocator)
	}
}

// MarshalJSON writes the locator back in the shape it was read from.
func (l Locator) MarshalJSON() ([]byte, error) {
	if l.kind == LocatorRoleName {
		return json.Marshal(map[string]string{"role": l.role, "name": l.name})
	}
	return json.Marshal(l.selector)
}

// Resolution is the outcome of resolving a locator against a page.
type Resolution struct {
	Element  Element
	Count    int
	Strategy string
}

type roleNameStrategy struct {
	name  string
	query func(page Page, role, name string) Element
}

// Tried in order; the first with at least one match wins.
var roleNameStrategies = []roleNameStrategy{
	{"role", func(p Page, role, name string) Element {
		return p.GetByRole(role, name)
	}},
	{"text", func(p Page, role, name string) Element {
		return p.Locator(textSelector(name))
	}},
	{"aria-label", func(p Page, role, name string) Element {
		return p.Locator("[aria-label=" + quoteSelectorString(name) + "]")
	}},
	{"has-text", func(p Page, role, name string) Element {
		return p.Locator(role + ":has-text(" + quoteSelectorString(name) + ")")
	}},
}

// textSelector builds a text= query. Plain names stay unquoted, which matches
// case-insensitively anywhere in the text. Names the selector parser would
// otherwise read as syntax (a leading quote or slash, or a ">>" chain) are
// quoted, which makes them a whole-text match.
func textSelector(name string) string {
	if strings.Contains(name, ">>") || strings.ContainsAny(name[:1], `"'/`) {
		return "text=" + quoteSelectorString(name)
	}
	return "text=" + name
}

// quoteSelectorString wraps s in double quotes for a selector, escaping only
// backslash and double quote. Other characters pass through literally.
func quoteSelectorString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		if r == '\\' || r == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// Resolve turns a locator into an element on page. A count error is treated
// as zero matches so the next strategy gets its turn. When nothing matches,
// the last candidate is returned with Count 0.
func Resolve(page Page, loc Locator) (Resolution, error) {
	if err := loc.Validate(); err != nil {
		return Resolution{}, err
	}

	if loc.kind == LocatorRawSelector {
		el := page.Locator(loc.selector)
		return Resolution{Element: el, Count: countOf(el), Strategy: "selector"}, nil
	}

	var last Resolution
	for _, s := range roleNameStrategies {
		el := s.query(page, loc.role, loc.name)
		last = Resolution{Element: el, Count: countOf(el), Strategy: s.name}
		if last.Count > 0 {
			return last, nil
		}
	}
	return last, nil
}

func countOf(el Element) int {
	if el == nil {
		return 0
	}
	n, err := el.Count()
	if err != nil {
		return 0
	}
	return n
}
