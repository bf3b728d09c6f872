// SPDX-License-Identifier: AGPL-3.0-or-later
package sdk

import (
	_ "embed"
)

//go:generate bash -c "bash ../../hack/git_commit.sh > commit.txt"
var (
	//go:embed commit.txt
	GitCommit string

	// Version of the daemon.
	Version = "0.1.0" //nolint:gochecknoglobals
)
