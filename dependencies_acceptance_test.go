package webapp_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// requiredModules are the direct dependencies the server is built on.
var requiredModules = []string{
	"github.com/gin-gonic/gin",
	"github.com/glebarez/sqlite",
	"github.com/go-playground/validator/v10",
	"github.com/hashicorp/golang-lru/v2",
	"github.com/knadh/koanf/v2",
	"github.com/prometheus/client_golang",
	"github.com/simp-lee/logger",
	"github.com/spf13/cobra",
	"github.com/testcontainers/testcontainers-go",
	"golang.org/x/time",
	"gorm.io/driver/postgres",
	"gorm.io/gorm",
}

// retiredImports belong to the account and session features this server
// does not have.
var retiredImports = []string{
	"github.com/simp-lee/jwt",
	"github.com/simp-lee/rbac",
	"github.com/simp-lee/ginx",
	"github.com/simp-lee/pagination",
	"golang.org/x/crypto",
}

func TestModuleDependencies_Present(t *testing.T) {
	goMod, err := os.ReadFile("go.mod")
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}
	for _, module := range requiredModules {
		if !moduleRequired(string(goMod), module) {
			t.Errorf("expected module %q to be required in go.mod", module)
		}
	}
}

func TestModuleDependencies_FixtureWithoutModule(t *testing.T) {
	fixture := `module example.com/demo

go 1.25.0

require (
	github.com/gin-gonic/gin v1.11.0
)`
	if !moduleRequired(fixture, "github.com/gin-gonic/gin") {
		t.Fatal("expected gin to be detected in fixture")
	}
	if moduleRequired(fixture, "gorm.io/gorm") {
		t.Fatal("expected gorm to be absent from fixture")
	}
}

func TestNoRetiredImports(t *testing.T) {
	matches, err := findImports(".", retiredImports)
	if err != nil {
		t.Fatalf("scan repository: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("retired imports found in: %v", matches)
	}
}

func moduleRequired(goModContent, module string) bool {
	re := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(module) + `\s+v\S+`)
	return re.MatchString(goModContent)
}

func findImports(root string, imports []string) ([]string, error) {
	matches := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "vendor" || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || d.Name() == "dependencies_acceptance_test.go" {
			return nil
		}
		b, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		for _, imp := range imports {
			if strings.Contains(string(b), `"`+imp) {
				matches = append(matches, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
