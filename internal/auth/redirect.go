package auth

import "strings"

// DefaultRedirect is where users land after login without a valid target.
const DefaultRedirect = "/"

// IsLocalPath reports whether target is a path on this site. Scheme-relative
// ("//host") and backslash variants are rejected.
func IsLocalPath(target string) bool {
	if target == "" || target[0] != '/' {
		return false
	}

	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return false
	}

	return !strings.ContainsAny(target, "\r\n")
}

// SafeRedirect returns target when it is local, DefaultRedirect otherwise.
func SafeRedirect(target string) string {
	if IsLocalPath(target) {
		return target
	}

	return DefaultRedirect
}
