package gitrepo

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	remoteHeadReferenceTemplateConstant = "refs/remotes/%s/HEAD"
	remoteBranchPrefixTemplateConstant  = "refs/remotes/%s/"
	invalidRemoteNameErrorTemplate      = "invalid remote name %q: %w"
	remoteHeadProbeBranchNameConstant   = "HEAD"
)

// RemoteHeadReferenceName returns refs/remotes/<remote>/HEAD.
func RemoteHeadReferenceName(remoteName string) plumbing.ReferenceName {
	return plumbing.ReferenceName(fmt.Sprintf(remoteHeadReferenceTemplateConstant, remoteName))
}

// RemoteBranchPrefix returns the namespace that remote-tracking branches of remoteName live under.
func RemoteBranchPrefix(remoteName string) string {
	return fmt.Sprintf(remoteBranchPrefixTemplateConstant, remoteName)
}

// LocalBranchReferenceName returns refs/heads/<branch>.
func LocalBranchReferenceName(branchName string) plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(branchName)
}

// ValidateRemoteName checks that remoteName can be embedded in a remote-tracking reference name.
func ValidateRemoteName(remoteName string) error {
	if validationError := plumbing.NewRemoteReferenceName(remoteName, remoteHeadProbeBranchNameConstant).Validate(); validationError != nil {
		return fmt.Errorf(invalidRemoteNameErrorTemplate, remoteName, validationError)
	}
	return nil
}
