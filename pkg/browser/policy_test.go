package browser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/actionapi/pkg/browser"
)

func TestNavigationPolicyIsAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		denied  []string
		url     string
		want    bool
	}{
		{name: "empty policy allows all", url: "https://anything.test/", want: true},
		{name: "allow list match", allowed: []string{"https://example.com/*"}, url: "https://example.com/a", want: true},
		{name: "allow list miss", allowed: []string{"https://example.com/*"}, url: "https://other.com/a", want: false},
		{name: "deny only", denied: []string{"file://*"}, url: "file:///etc/passwd", want: false},
		{name: "deny only passes others", denied: []string{"file://*"}, url: "https://example.com", want: true},
		{
			name:    "deny beats allow",
			allowed: []string{"https://*"},
			denied:  []string{"https://internal.*"},
			url:     "https://internal.corp/x",
			want:    false,
		},
		{name: "alternatives", allowed: []string{"https://{a,b}.example.com/*"}, url: "https://b.example.com/x", want: true},
		{name: "surrounding whitespace ignored", allowed: []string{"https://example.com/*"}, url: "  https://example.com/a ", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := browser.NewNavigationPolicy(tt.allowed, tt.denied)
			require.NoError(t, err)
			assert.Equal(t, tt.want, policy.IsAllowed(tt.url))
		})
	}
}

func TestNavigationPolicyNil(t *testing.T) {
	var policy *browser.NavigationPolicy
	assert.True(t, policy.IsAllowed("https://example.com"))
}

func TestNavigationPolicyInvalidPattern(t *testing.T) {
	_, err := browser.NewNavigationPolicy([]string{"https://[a-"}, nil)
	assert.Error(t, err)

	_, err = browser.NewNavigationPolicy(nil, []string{"https://[a-"})
	assert.Error(t, err)
}
