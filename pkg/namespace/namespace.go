// Package namespace implements the per-user canonical-path tree: the
// Namespace mapping of (user, canonical_path) -> entry described by the
// data model. It holds no lock of its own — the coordinator serializes all
// access under its single mutex, per the concurrency discipline.
package namespace

import (
	"sort"
	"strings"

	"github.com/hrcamilo11/godfs/internal/errs"
	"github.com/hrcamilo11/godfs/internal/pathutil"
	"github.com/hrcamilo11/godfs/pkg/types"
)

// Namespace holds every user's entry tree. The per-user root is implicit:
// it is never stored as a map entry, but every lookup treats it as an
// always-present, always-empty-unless-populated directory.
type Namespace struct {
	entries map[string]map[string]*types.Entry // user -> canonical path -> entry
}

// New creates an empty Namespace.
func New() *Namespace {
	return &Namespace{entries: make(map[string]map[string]*types.Entry)}
}

func (ns *Namespace) userMap(user string) map[string]*types.Entry {
	m, ok := ns.entries[user]
	if !ok {
		m = make(map[string]*types.Entry)
		ns.entries[user] = m
	}
	return m
}

func (ns *Namespace) lookup(user, path string) (*types.Entry, bool) {
	if path == pathutil.Root(user) {
		return &types.Entry{Kind: types.KindDirectory}, true
	}
	e, ok := ns.entries[user][path]
	return e, ok
}

// Exists reports whether a canonical path names any entry (including the
// implicit root).
func (ns *Namespace) Exists(user, path string) bool {
	_, ok := ns.lookup(user, path)
	return ok
}

// Mkdir creates an empty directory entry at path.
func (ns *Namespace) Mkdir(user, path string) error {
	if _, ok := ns.lookup(user, path); ok {
		return errs.E("Mkdir", path, errs.AlreadyExists)
	}
	parent, _ := pathutil.Split(path)
	if e, ok := ns.lookup(user, parent); !ok || !e.IsDir() {
		return errs.E("Mkdir", path, errs.NotADirectory)
	}
	ns.userMap(user)[path] = &types.Entry{Kind: types.KindDirectory}
	return nil
}

// Rmdir removes an empty directory entry.
func (ns *Namespace) Rmdir(user, path string) error {
	if path == pathutil.Root(user) {
		return errs.E("Rmdir", path, errs.InvalidArgument)
	}
	e, ok := ns.entries[user][path]
	if !ok {
		return errs.E("Rmdir", path, errs.NotFound)
	}
	if !e.IsDir() {
		return errs.E("Rmdir", path, errs.NotADirectory)
	}
	if len(ns.children(user, path)) > 0 {
		return errs.E("Rmdir", path, errs.NotEmpty)
	}
	delete(ns.entries[user], path)
	return nil
}

// children returns the canonical paths of path's immediate children.
func (ns *Namespace) children(user, path string) []string {
	prefix := path + "/"
	var out []string
	for p := range ns.entries[user] {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := p[len(prefix):]
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Ls lists the base names of path's immediate children. A missing or empty
// directory, or a path naming a file, yields an empty list rather than an
// error.
func (ns *Namespace) Ls(user, path string) []types.FileInfo {
	var out []types.FileInfo
	for _, child := range ns.children(user, path) {
		e := ns.entries[user][child]
		_, name := pathutil.Split(child)
		out = append(out, types.FileInfo{Name: name, IsDir: e.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddFile creates (or overwrites) a file entry bound to the given ordered
// block IDs.
func (ns *Namespace) AddFile(user, path string, blockIDs []string) error {
	if e, ok := ns.lookup(user, path); ok && e.IsDir() {
		return errs.E("AddFile", path, errs.AlreadyExists)
	}
	parent, _ := pathutil.Split(path)
	if e, ok := ns.lookup(user, parent); !ok || !e.IsDir() {
		return errs.E("AddFile", path, errs.NotADirectory)
	}
	ns.userMap(user)[path] = &types.Entry{Kind: types.KindFile, BlockIDs: append([]string(nil), blockIDs...)}
	return nil
}

// GetFileBlocks returns the ordered block IDs of the file at path.
func (ns *Namespace) GetFileBlocks(user, path string) ([]string, error) {
	e, ok := ns.lookup(user, path)
	if !ok {
		return nil, errs.E("GetFileBlocks", path, errs.NotFound)
	}
	if e.IsDir() {
		return nil, errs.E("GetFileBlocks", path, errs.IsDirectory)
	}
	return append([]string(nil), e.BlockIDs...), nil
}

// RemoveFile deletes a file entry and returns the block IDs it exclusively
// owned, for the caller to reclaim from BlockLocationMap and worker
// held_blocks sets (invariant I5).
func (ns *Namespace) RemoveFile(user, path string) ([]string, error) {
	e, ok := ns.entries[user][path]
	if !ok {
		return nil, errs.E("RemoveFile", path, errs.NotFound)
	}
	if e.IsDir() {
		return nil, errs.E("RemoveFile", path, errs.IsDirectory)
	}
	delete(ns.entries[user], path)
	return e.BlockIDs, nil
}

// Move relocates a file or directory subtree from src to dst and returns
// the final canonical path it now lives at.
func (ns *Namespace) Move(user, src, dst string) (string, error) {
	root := pathutil.Root(user)
	if src == root {
		return "", errs.E("Move", src, errs.InvalidArgument)
	}
	srcEntry, ok := ns.lookup(user, src)
	if !ok {
		return "", errs.E("Move", src, errs.NotFound)
	}

	target := dst
	if e, ok := ns.lookup(user, dst); ok && e.IsDir() {
		_, base := pathutil.Split(src)
		if dst == root {
			target = root + "/" + base
		} else {
			target = dst + "/" + base
		}
	}

	if target != src {
		if _, ok := ns.lookup(user, target); ok {
			return "", errs.E("Move", target, errs.AlreadyExists)
		}
	}

	if srcEntry.IsDir() && (target == src || strings.HasPrefix(target, src+"/")) {
		return "", errs.E("Move", src, errs.InvalidArgument)
	}

	if target == src {
		return target, nil
	}

	um := ns.userMap(user)
	if srcEntry.IsDir() {
		prefix := src + "/"
		for p, e := range um {
			if p == src || strings.HasPrefix(p, prefix) {
				newPath := target + p[len(src):]
				delete(um, p)
				um[newPath] = e
			}
		}
	} else {
		delete(um, src)
		um[target] = srcEntry
	}
	return target, nil
}
