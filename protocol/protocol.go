// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package protocol defines the ledger data model of the repository token
// program: account layouts, instructions, derived addresses and the signed
// envelope that carries an instruction to the executor.
package protocol

import (
	"github.com/blocto/solana-go-sdk/common"
)

// PublicKey is a 32-byte ledger address.
type PublicKey = common.PublicKey

// Derivation labels of the program-controlled token accounts.
const (
	SeedRepoVault    = "repo-vault"
	SeedRepoTreasury = "repo-treasury"
)

// InitialVaultSupply is the number of repository tokens minted into the
// vault when a repository is initialized.
const InitialVaultSupply uint64 = 1_000_000

// RepoTokenDecimals is the precision of every repository token mint.
const RepoTokenDecimals uint8 = 9

// Account sizes, in bytes, that are reserved when an account is created.
// A mint holds the discriminator, two optional keys, the supply, the
// decimals and the initialized flag.
const (
	RepositoryAccountSize = 200
	MintAccountSize       = discriminatorSize + 2*(1+32) + 8 + 1 + 1
	TokenAccountSize      = 165
)

// MaxIpfsHashLength is the longest metadata reference that fits in a
// repository record: the reserved space minus the discriminator, the string
// length prefix, both keys and both salts.
const MaxIpfsHashLength = RepositoryAccountSize - discriminatorSize - 4 - 32 - 32 - 2

// Well-known program and sysvar addresses.
var (
	SystemProgramID  = common.PublicKeyFromString("11111111111111111111111111111111")
	TokenProgramID   = common.PublicKeyFromString("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	SysVarRentPubkey = common.PublicKeyFromString("SysvarRent111111111111111111111111111111111")
)

// DefaultProgramID is the address the repository token program is deployed
// at unless configured otherwise.
var DefaultProgramID = common.PublicKeyFromString("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")
