//go:build mage

// Package main provides build targets for larder using Mage.
//
// Usage:
//
//	mage build         Compile the larder binary to bin/
//	mage test          Run all tests
//	mage testBackends  Run the backend contract tests against live servers
//	mage lint          Run golangci-lint
//	mage clean         Remove build artifacts
//	mage install       Install larder to GOPATH/bin
//	mage stats         Print Go line counts per package
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "larder"
	binaryDir  = "bin"
	cmdDir     = "./cmd/larder"
)

// Environment variables that enable the network backend tests.
var backendEnv = []string{
	"LARDER_TEST_REDIS_ADDR",
	"LARDER_TEST_MEMCACHE_ADDR",
	"LARDER_TEST_POSTGRES_DSN",
}

// Build compiles the larder binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs every package's tests. Network backends skip unless their
// LARDER_TEST_* variable is set.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestBackends runs the backend packages with local default servers unless
// the LARDER_TEST_* variables already point elsewhere.
func TestBackends() error {
	env := map[string]string{
		"LARDER_TEST_REDIS_ADDR":    "127.0.0.1:6379",
		"LARDER_TEST_MEMCACHE_ADDR": "127.0.0.1:11211",
		"LARDER_TEST_POSTGRES_DSN":  "host=127.0.0.1 user=postgres password=postgres dbname=postgres port=5432 sslmode=disable",
	}
	for _, k := range backendEnv {
		if v := os.Getenv(k); v != "" {
			env[k] = v
		}
	}
	return sh.RunWithV(env, "go", "test", "-count=1", "./internal/backend/...", "./pkg/backends/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}

type lineCount struct{ prod, test int }

// Stats prints production and test line counts for every Go package.
func Stats() error {
	counts := map[string]*lineCount{}
	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			switch path {
			case "vendor", ".git", binaryDir, "magefiles", "_examples":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		dir := filepath.Dir(path)
		if counts[dir] == nil {
			counts[dir] = &lineCount{}
		}
		if strings.HasSuffix(path, "_test.go") {
			counts[dir].test += n
		} else {
			counts[dir].prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(counts))
	for d := range counts {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)

	var total lineCount
	for _, d := range dirs {
		c := counts[d]
		fmt.Printf("%-32s %6d %6d\n", d, c.prod, c.test)
		total.prod += c.prod
		total.test += c.test
	}
	fmt.Printf("%-32s %6d %6d\n", "total (prod, test)", total.prod, total.test)
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
