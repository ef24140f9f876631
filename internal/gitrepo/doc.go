// Package gitrepo provides read-only access to local Git repositories.
//
// Repositories are discovered with go-git by walking upward from a path, and
// references are inspected without resolving symbolic chains so callers can
// tell symbolic references from direct ones.
package gitrepo
