// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package protocol

import (
	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
	"gitlab.com/defios/repotoken/pkg/errors"
)

// ParsePublicKey parses a base58 address. Unlike
// [common.PublicKeyFromString], it rejects malformed input.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, errors.BadRequest.WithFormat("invalid address %q: %w", s, err)
	}
	if len(b) != common.PublicKeyLength {
		return PublicKey{}, errors.BadRequest.WithFormat("invalid address %q: want %d bytes, got %d", s, common.PublicKeyLength, len(b))
	}
	return common.PublicKeyFromBytes(b), nil
}

// DerivationSeeds returns the seeds of the program-controlled account with
// the given label for a repository, without the salt.
func DerivationSeeds(label string, repo PublicKey) [][]byte {
	return [][]byte{[]byte(label), repo.Bytes()}
}

// SaltedSeeds returns the seeds of a derived account including its salt.
// These are the seeds the program presents to sign on the account's behalf.
func SaltedSeeds(label string, repo PublicKey, salt uint8) [][]byte {
	return append(DerivationSeeds(label, repo), []byte{salt})
}

// DerivedAddress deterministically computes the address of the account with
// the given label for a repository. A salt whose candidate address lies on
// the ed25519 curve is not valid and fails with IdentityMismatch.
func DerivedAddress(program PublicKey, label string, repo PublicKey, salt uint8) (PublicKey, error) {
	addr, err := common.CreateProgramAddress(SaltedSeeds(label, repo, salt), program)
	if err != nil {
		return PublicKey{}, errors.IdentityMismatch.WithFormat("derive %s of %v with salt %d: %w", label, repo.ToBase58(), salt, err)
	}
	return addr, nil
}

// FindDerivedAddress searches for the highest salt that yields a valid
// derived address.
func FindDerivedAddress(program PublicKey, label string, repo PublicKey) (PublicKey, uint8, error) {
	addr, salt, err := common.FindProgramAddress(DerivationSeeds(label, repo), program)
	if err != nil {
		return PublicKey{}, 0, errors.InternalError.WithFormat("find %s of %v: %w", label, repo.ToBase58(), err)
	}
	return addr, salt, nil
}

// CheckDerivedAddress verifies that actual is the address derived from
// (label, repo, salt).
func CheckDerivedAddress(program PublicKey, label string, repo PublicKey, salt uint8, actual PublicKey) error {
	expect, err := DerivedAddress(program, label, repo, salt)
	if err != nil {
		return err
	}
	if expect != actual {
		return errors.IdentityMismatch.WithFormat("%s: want %v, got %v", label, expect.ToBase58(), actual.ToBase58())
	}
	return nil
}

func RepoVaultAddress(program, repo PublicKey, salt uint8) (PublicKey, error) {
	return DerivedAddress(program, SeedRepoVault, repo, salt)
}

func RepoTreasuryAddress(program, repo PublicKey, salt uint8) (PublicKey, error) {
	return DerivedAddress(program, SeedRepoTreasury, repo, salt)
}

func FindRepoVaultAddress(program, repo PublicKey) (PublicKey, uint8, error) {
	return FindDerivedAddress(program, SeedRepoVault, repo)
}

func FindRepoTreasuryAddress(program, repo PublicKey) (PublicKey, uint8, error) {
	return FindDerivedAddress(program, SeedRepoTreasury, repo)
}
