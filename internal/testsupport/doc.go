// Package testsupport builds throwaway Git repositories for tests.
//
// Repositories are created with go-git so most tests run without a git
// binary. Helpers that need real clone or remote behaviour shell out to git
// and skip the test when it is not installed.
package testsupport
