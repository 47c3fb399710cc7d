package browser_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/actionapi/internal/testing/browsertest"
	"github.com/entrhq/actionapi/pkg/browser"
)

func TestLocatorUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    browser.Locator
		wantErr error
	}{
		{name: "raw selector", input: `"#login"`, want: browser.RawSelector("#login")},
		{name: "xpath selector", input: `"xpath=//a[1]"`, want: browser.RawSelector("xpath=//a[1]")},
		{name: "role and name", input: `{"role":"button","name":"Submit"}`, want: browser.RoleName("button", "Submit")},
		{name: "missing name is kept for validation", input: `{"role":"button"}`, want: browser.RoleName("button", "")},
		{name: "number", input: `42`, wantErr: browser.ErrInvalidLocator},
		{name: "array", input: `["#a"]`, wantErr: browser.ErrInvalidLocator},
		{name: "wrong field type", input: `{"role":1,"name":"x"}`, wantErr: browser.ErrInvalidLocator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loc browser.Locator
			err := json.Unmarshal([]byte(tt.input), &loc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc)
		})
	}
}

func TestLocatorMarshalJSON(t *testing.T) {
	raw, err := json.Marshal(browser.RawSelector("#a"))
	require.NoError(t, err)
	assert.JSONEq(t, `"#a"`, string(raw))

	structured, err := json.Marshal(browser.RoleName("link", "Home"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"link","name":"Home"}`, string(structured))
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "#a", browser.RawSelector("#a").String())
	assert.Equal(t, `role=button[name="Go"]`, browser.RoleName("button", "Go").String())
	assert.Equal(t, "<empty>", browser.Locator{}.String())
}

func TestResolveRawSelector(t *testing.T) {
	page := browsertest.NewPage()
	page.SetMatches("css=.item", 3)

	res, err := browser.Resolve(page, browser.RawSelector("css=.item"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "selector", res.Strategy)
	assert.Equal(t, []string{"css=.item"}, page.Queries())
}

func TestResolveRoleNameOrder(t *testing.T) {
	roleQuery := browsertest.RoleQuery("button", "Save")
	textQuery := "text=Save"
	ariaQuery := `[aria-label="Save"]`
	hasTextQuery := `button:has-text("Save")`

	tests := []struct {
		name         string
		matches      map[string]int
		wantStrategy string
		wantCount    int
		wantQueries  []string
	}{
		{
			name:         "role match wins",
			matches:      map[string]int{roleQuery: 2, textQuery: 1},
			wantStrategy: "role",
			wantCount:    2,
			wantQueries:  []string{roleQuery},
		},
		{
			name:         "text fallback",
			matches:      map[string]int{textQuery: 1},
			wantStrategy: "text",
			wantCount:    1,
			wantQueries:  []string{roleQuery, textQuery},
		},
		{
			name:         "aria-label fallback",
			matches:      map[string]int{ariaQuery: 1, hasTextQuery: 1},
			wantStrategy: "aria-label",
			wantCount:    1,
			wantQueries:  []string{roleQuery, textQuery, ariaQuery},
		},
		{
			name:         "has-text fallback",
			matches:      map[string]int{hasTextQuery: 4},
			wantStrategy: "has-text",
			wantCount:    4,
			wantQueries:  []string{roleQuery, textQuery, ariaQuery, hasTextQuery},
		},
		{
			name:         "nothing matches",
			matches:      map[string]int{},
			wantStrategy: "has-text",
			wantCount:    0,
			wantQueries:  []string{roleQuery, textQuery, ariaQuery, hasTextQuery},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			for q, n := range tt.matches {
				page.SetMatches(q, n)
			}

			res, err := browser.Resolve(page, browser.RoleName("button", "Save"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStrategy, res.Strategy)
			assert.Equal(t, tt.wantCount, res.Count)
			assert.Equal(t, tt.wantQueries, page.Queries())
		})
	}
}

func TestResolveTreatsCountErrorAsZero(t *testing.T) {
	page := browsertest.NewPage()
	page.CountErrs[browsertest.RoleQuery("button", "Save")] = errors.New("unknown role")
	page.SetMatches("text=Save", 1)

	res, err := browser.Resolve(page, browser.RoleName("button", "Save"))
	require.NoError(t, err)
	assert.Equal(t, "text", res.Strategy)
	assert.Equal(t, 1, res.Count)
}

func TestResolveQuotesNames(t *testing.T) {
	page := browsertest.NewPage()
	name := `Say "hi"`
	page.SetMatches(`[aria-label="Say \"hi\""]`, 1)

	res, err := browser.Resolve(page, browser.RoleName("button", name))
	require.NoError(t, err)
	assert.Equal(t, "aria-label", res.Strategy)
}

func TestResolveSelectorEscaping(t *testing.T) {
	tests := []struct {
		desc      string
		name      string
		text      string
		ariaLabel string
		hasText   string
	}{
		{
			desc:      "tab passes through literally",
			name:      "A\tB",
			text:      "text=A\tB",
			ariaLabel: "[aria-label=\"A\tB\"]",
			hasText:   "button:has-text(\"A\tB\")",
		},
		{
			desc:      "backslash",
			name:      `C:\dir`,
			text:      `text=C:\dir`,
			ariaLabel: `[aria-label="C:\\dir"]`,
			hasText:   `button:has-text("C:\\dir")`,
		},
		{
			desc:      "already quoted",
			name:      `"Go"`,
			text:      `text="\"Go\""`,
			ariaLabel: `[aria-label="\"Go\""]`,
			hasText:   `button:has-text("\"Go\"")`,
		},
		{
			desc:      "chain separator",
			name:      "Next >> Last",
			text:      `text="Next >> Last"`,
			ariaLabel: `[aria-label="Next >> Last"]`,
			hasText:   `button:has-text("Next >> Last")`,
		},
		{
			desc:      "leading slash",
			name:      "/home",
			text:      `text="/home"`,
			ariaLabel: `[aria-label="/home"]`,
			hasText:   `button:has-text("/home")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			page := browsertest.NewPage()

			res, err := browser.Resolve(page, browser.RoleName("button", tt.name))
			require.NoError(t, err)
			assert.Zero(t, res.Count)
			assert.Equal(t, []string{
				browsertest.RoleQuery("button", tt.name),
				tt.text,
				tt.ariaLabel,
				tt.hasText,
			}, page.Queries())
		})
	}
}

func TestResolveInvalidLocator(t *testing.T) {
	page := browsertest.NewPage()

	_, err := browser.Resolve(page, browser.RoleName("button", ""))
	assert.ErrorIs(t, err, browser.ErrInvalidLocator)
	assert.Empty(t, page.Queries())
}
