package mockapi

import (
	"net/http"
	"strings"

	"shallwe-gate/internal/model"
)

// DefaultRules returns the canned backend answers used for offline runs.
// Patterns start with "*" so they match whatever base URL the caller uses.
func DefaultRules() []model.MockRule {
	return []model.MockRule{
		{
			Name:        "login-google",
			Method:      http.MethodPost,
			PathPattern: "*" + model.LoginGooglePath,
			Status:      http.StatusOK,
			Body:        []byte(`{"key":"mock-key"}`),
		},
		{
			Name:        "test-api-unprotected",
			Method:      http.MethodGet,
			PathPattern: "*" + model.TestUnprotectedPath,
			Status:      http.StatusOK,
			Body:        []byte(`{"message":"Hello! Make yourself at home!"}`),
		},
		{
			Name:        "profile-status",
			Method:      http.MethodGet,
			PathPattern: "*" + model.ProfileStatusPath,
			Status:      http.StatusOK,
		},
	}
}

func ruleMatches(rule model.MockRule, method, path string) bool {
	if rule.Method != "" && rule.Method != "*" && rule.Method != method {
		return false
	}
	return matchPattern(rule.PathPattern, path)
}

// matchPattern supports a single "*" wildcard at either end of pattern.
func matchPattern(pattern, path string) bool {
	switch {
	case pattern == "*":
		return true
	case len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*':
		return strings.Contains(path, pattern[1:len(pattern)-1])
	case pattern != "" && pattern[0] == '*':
		return strings.HasSuffix(path, pattern[1:])
	case pattern != "" && pattern[len(pattern)-1] == '*':
		return strings.HasPrefix(path, pattern[:len(pattern)-1])
	default:
		return path == pattern
	}
}
