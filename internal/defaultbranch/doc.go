// Package defaultbranch determines the default branch of a local clone.
//
// The remote-tracking HEAD of the selected remote is consulted first. When it
// is absent the service may ask git to refresh it from the remote, and as a
// last resort it looks for a local main or master branch.
package defaultbranch
