// Package pathutil canonicalizes namespace paths under a user's root,
// the way upspin's path package cleans a path under a user name.
package pathutil

import (
	"path"
	"strings"

	"github.com/hrcamilo11/godfs/internal/errs"
)

// Root returns the canonical root directory for a user.
func Root(user string) string {
	return "/user/" + user
}

// Canon joins raw under the user's root and cleans it with the standard
// library's path.Clean, the same technique upspin's path.Clean uses after
// splitting off the user-name prefix. A raw path that already starts with
// the user's root is cleaned as is, so Canon is idempotent. It rejects any
// input that, after cleaning, would climb above the user's own root via "..".
func Canon(user, raw string) (string, error) {
	if user == "" {
		return "", errs.E("pathutil.Canon", errs.InvalidArgument)
	}
	root := Root(user)

	var full string
	switch {
	case raw == root || strings.HasPrefix(raw, root+"/"):
		full = raw
	case strings.HasPrefix(raw, "/"):
		full = root + raw
	default:
		full = root + "/" + raw
	}
	clean := path.Clean(full)

	if clean != root && !strings.HasPrefix(clean, root+"/") {
		return "", errs.E("pathutil.Canon", raw, errs.InvalidArgument)
	}
	return clean, nil
}

// Split returns the parent directory and base name of a canonical path.
// The root directory itself has no parent; Split returns ("", root).
func Split(p string) (parent, name string) {
	if p == "/" {
		return "", "/"
	}
	dir, base := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		dir = "/"
	}
	return dir, base
}
