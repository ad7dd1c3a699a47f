package fat

import "strings"

// splitPath breaks a slash-separated path into its non-empty components.
// Leading and trailing slashes are ignored; "." components are dropped.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// resolved is what the path walker returns once it has located (or failed
// to locate) the final component of a path.
type resolved struct {
	parentCluster uint32 // 0 means the root directory
	entry         DirEntry
	found         bool
}

// resolve walks path component by component starting at the root,
// comparing each component case-insensitively against both the long and
// short name of every live entry (§4.5). It does not itself open or
// create anything; callers build Stat/OpenFile/Mkdir on top of it.
func (v *Volume) resolve(path string) (resolved, FSError) {
	parts := splitPath(path)
	var parentCluster uint32 // 0 == root
	var current DirEntry
	haveCurrent := false

	for i, name := range parts {
		d, fe := v.OpenDir(parentCluster)
		if fe != ErrOK {
			return resolved{}, fe
		}
		var match DirEntry
		found := false
		for {
			ent, fe := d.ReadDir()
			if fe == ErrEOF {
				break
			}
			if fe != ErrOK {
				d.CloseDir()
				return resolved{}, fe
			}
			if strings.EqualFold(ent.Name, name) || strings.EqualFold(ent.ShortName, name) {
				match = ent
				found = true
				break
			}
		}
		d.CloseDir()

		if !found {
			if i == len(parts)-1 {
				return resolved{parentCluster: parentCluster, found: false}, ErrOK
			}
			return resolved{}, ErrNotFound
		}
		if i < len(parts)-1 && !match.IsDir {
			return resolved{}, ErrNotADirectory
		}
		current = match
		haveCurrent = true
		if i < len(parts)-1 {
			parentCluster = match.Cluster
		}
	}

	if len(parts) == 0 {
		// Root directory itself.
		return resolved{parentCluster: 0, entry: DirEntry{Name: "/", IsDir: true}, found: true}, ErrOK
	}
	if !haveCurrent {
		return resolved{parentCluster: parentCluster, found: false}, ErrOK
	}
	return resolved{parentCluster: parentCluster, entry: current, found: true}, ErrOK
}

// Stat resolves path and returns its directory entry, per §6.3.
func (v *Volume) Stat(path string) (DirEntry, FSError) {
	r, fe := v.resolve(path)
	if fe != ErrOK {
		return DirEntry{}, fe
	}
	if !r.found {
		return DirEntry{}, ErrNotFound
	}
	return r.entry, ErrOK
}
