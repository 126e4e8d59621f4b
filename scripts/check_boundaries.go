package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "sealedgov"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerPolicy lists what one layer of a service may import. Local entries
// are relative to the service root; libraries are full import paths.
type layerPolicy struct {
	forbidden []forbiddenImport
	local     []string
	libraries []string
}

type forbiddenImport struct {
	match func(importPath string) bool
	rule  string
}

var (
	importsAdapters = func(p string) bool { return strings.Contains(p, "/adapters/") }
	importsRuntime  = func(p string) bool {
		return strings.HasPrefix(p, modulePath+"/internal/platform/") ||
			strings.HasPrefix(p, modulePath+"/internal/app/")
	}
	importsInternal = func(p string) bool { return strings.HasPrefix(p, modulePath+"/internal/") }
)

var policies = map[string]layerPolicy{
	"domain": {
		forbidden: []forbiddenImport{
			{importsAdapters, "domain must not import adapters"},
			{importsInternal, "domain must not import runtime infrastructure"},
		},
		local: []string{"domain"},
		libraries: []string{
			"github.com/decred/dcrd/crypto/blake256",
			"golang.org/x/crypto/sha3",
		},
	},
	"ports": {
		forbidden: []forbiddenImport{
			{importsAdapters, "ports must not import adapters"},
			{importsRuntime, "ports must not import runtime infrastructure"},
		},
		local:     []string{"domain"},
		libraries: []string{modulePath + "/internal/shared"},
	},
	"application": {
		forbidden: []forbiddenImport{
			{importsAdapters, "application must not import adapters"},
			{importsRuntime, "application must not import runtime infrastructure"},
		},
		local: []string{"application", "domain", "ports"},
		libraries: []string{
			modulePath + "/internal/shared",
			"github.com/google/uuid",
			"github.com/decred/dcrd/container/lru",
		},
	},
	"transport": {
		forbidden: []forbiddenImport{
			{importsInternal, "transport DTOs must not import runtime infrastructure"},
		},
		local: []string{"transport"},
	},
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations walks root as if it were the contexts directory; paths
// in the report are always rooted at "contexts/".
func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		normalized := filepath.ToSlash(filepath.Join("contexts", rel))
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 {
			return nil
		}
		serviceRoot := strings.Join(append([]string{modulePath}, parts[:3]...), "/")
		violations = append(violations, checkFile(path, normalized, parts[3], serviceRoot)...)
		return nil
	})

	return violations
}

func checkFile(path string, normalized string, layer string, serviceRoot string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalized, Line: 1, Rule: "file must parse"}}
	}

	var out []violation
	report := func(line int, importPath string, rule string) {
		out = append(out, violation{File: normalized, Line: line, Import: importPath, Rule: rule})
	}

	policy, governed := policies[layer]
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		line := fset.Position(imp.Pos()).Line

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !within(importPath, serviceRoot) {
			report(line, importPath, "cross-module imports are forbidden")
		}
		if !governed {
			continue
		}
		for _, f := range policy.forbidden {
			if f.match(importPath) {
				report(line, importPath, f.rule)
			}
		}
		if !isStdlib(importPath) && !policy.allows(importPath, serviceRoot) {
			report(line, importPath, layer+" import is outside explicit allowlist")
		}
	}
	return out
}

func (p layerPolicy) allows(importPath string, serviceRoot string) bool {
	for _, local := range p.local {
		if within(importPath, serviceRoot+"/"+local) {
			return true
		}
	}
	for _, lib := range p.libraries {
		if within(importPath, lib) {
			return true
		}
	}
	return false
}

func within(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, modulePath+"/") {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
