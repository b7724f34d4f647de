// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"os"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/spf13/cobra"
	"gitlab.com/defios/repotoken/pkg/errors"
)

var cmdCID = &cobra.Command{
	Use:   "cid [file]",
	Short: "Print the CID of a metadata file, for use as an IPFS hash",
	Args:  cobra.ExactArgs(1),
	Run: run(func(cmd *cobra.Command, args []string) error {
		c, err := fileCID(args[0])
		if err != nil {
			return err
		}
		printField(cmd.OutOrStdout(), "CID", c.String())
		return nil
	}),
}

func init() {
	cmdMain.AddCommand(cmdCID)
}

// fileCID returns the CIDv1 of the raw bytes of a file, hashed with
// SHA2-256.
func fileCID(file string) (cid.Cid, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return cid.Undef, errors.NotFound.WithFormat("read %s: %w", file, err)
	}

	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, errors.UnknownError.WithFormat("hash %s: %w", file, err)
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}
