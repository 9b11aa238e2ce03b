/*
Copyright 2025 The iosched Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// verify-framework-imports checks that the scheduler framework packages only
// import each other, the shared request types and the event/logging utilities.
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

	"github.com/spf13/pflag"
)

const repoModule = "github.com/clookd/iosched"

// defaultAllowed are module paths, relative to repoModule, that framework files may import.
var defaultAllowed = []string{
	"pkg/iosched/framework",
	"pkg/iosched/types",
	"pkg/iosched/observability",
	"pkg/iosched/util/logging",
}

type violation struct {
	file       string
	importPath string
}

func (v violation) String() string {
	return fmt.Sprintf("%s: imports %s", v.file, v.importPath)
}

func main() {
	root := pflag.String("root", "./pkg/iosched/framework", "Directory tree to validate.")
	allow := pflag.StringSlice("allow", nil, "Additional allowed module-relative import paths.")
	pflag.Parse()

	violations, err := findViolations(*root, append(defaultAllowed, *allow...))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintln(os.Stderr, v)
		}
		fmt.Fprintf(os.Stderr, "%d disallowed import(s) under %s\n", len(violations), *root)
		os.Exit(1)
	}
	fmt.Printf("All imports under %s are allowed\n", *root)
}

// findViolations parses every Go file under root and reports imports of repoModule packages outside allowed.
func findViolations(root string, allowed []string) ([]violation, error) {
	var out []violation
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		file, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, imp := range file.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			rel, ok := strings.CutPrefix(importPath, repoModule+"/")
			if !ok || isAllowed(rel, allowed) {
				continue
			}
			out = append(out, violation{file: path, importPath: importPath})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func isAllowed(rel string, allowed []string) bool {
	for _, base := range allowed {
		if rel == base || strings.HasPrefix(rel, base+"/") {
			return true
		}
	}
	return false
}
