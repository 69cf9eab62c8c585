// Copyright 2023 The Tollgate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tollgate

var (
	version    = "0.8.0" // manually set semantic version number
	commitHash string    // automatically set git commit hash

	// Version is the reported version string, set at build time.
	Version = func() string {
		if commitHash != "" {
			return version + "-" + commitHash
		}
		return version + "-dev"
	}()
)
