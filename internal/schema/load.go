package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"

	language "github.com/hanpama/querycost/internal/language"
)

// Extensions recognized as SDL files when walking a directory.
var sdlExtensions = map[string]bool{".graphql": true, ".graphqls": true, ".gql": true}

// Load merges the given SDL sources into a schema. The cost directive named
// costDirective is declared automatically unless a source already declares it.
func Load(costDirective string, sources ...*language.Source) (*language.Schema, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no schema sources")
	}
	if costDirective == "" {
		costDirective = DefaultCostDirective
	}
	declared := false
	for _, src := range sources {
		doc, err := language.ParseSchema(src.Name, src.Input)
		if err != nil {
			return nil, err
		}
		if doc.Directives.ForName(costDirective) != nil {
			declared = true
			break
		}
	}
	all := sources
	if !declared {
		all = append([]*language.Source{{Name: "cost.graphql", Input: CostDirectiveSDL(costDirective)}}, sources...)
	}
	s, err := gqlparser.LoadSchema(all...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadString is Load for a single inline SDL document.
func LoadString(costDirective, sdl string) (*language.Schema, error) {
	return Load(costDirective, &language.Source{Name: "schema.graphql", Input: sdl})
}

// DiscoverFiles returns the SDL files under each path, sorted. A path may be a
// file or a directory, which is walked recursively.
func DiscoverFiles(ctx context.Context, paths ...string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("schema path %q: %w", root, err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !sdlExtensions[filepath.Ext(d.Name())] {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk schema directory %q: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadFiles discovers SDL files under paths and loads them as one schema.
func LoadFiles(ctx context.Context, costDirective string, paths ...string) (*language.Schema, error) {
	files, err := DiscoverFiles(ctx, paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no schema files found in %s", strings.Join(paths, ", "))
	}
	sources := make([]*language.Source, 0, len(files))
	for _, fp := range files {
		content, err := os.ReadFile(fp)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %q: %w", fp, err)
		}
		sources = append(sources, &language.Source{Name: fp, Input: string(content)})
	}
	return Load(costDirective, sources...)
}
