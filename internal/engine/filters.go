package engine

import (
	"path"
	"strings"
)

// Directories never worth descending into when default excludes are on.
var skipDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"target":       {},
	"dist":         {},
	"build":        {},
	".venv":        {},
	"venv":         {},
	"__pycache__":  {},
	".tox":         {},
	"coverage":     {},
}

// Generated, compressed or media artifacts.
var skipSuffixes = []string{
	".min.js", ".min.css", ".map",
	".png", ".jpg", ".jpeg", ".gif", ".ico", ".webp", ".svg",
	".pdf", ".zip", ".gz", ".tgz", ".tar", ".xz", ".7z",
	".jar", ".class", ".exe", ".dll", ".so", ".dylib", ".wasm", ".pyc",
	".pb.go", ".lock",
}

var skipNames = map[string]struct{}{
	"package-lock.json": {},
	"pnpm-lock.yaml":    {},
	"go.sum":            {},
	".DS_Store":         {},
}

func isDefaultDirExcluded(name string) bool {
	if _, ok := skipDirs[name]; ok {
		return true
	}
	return name == ".git" || name == ".hg" || name == ".svn"
}

// isDefaultFileExcluded expects a lower-cased slash path.
func isDefaultFileExcluded(lowerRel string) bool {
	for _, s := range skipSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	if strings.Contains(lowerRel, ".gen.") {
		return true
	}
	_, ok := skipNames[path.Base(lowerRel)]
	return ok
}
