// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package protocol

import (
	"unicode/utf8"

	"gitlab.com/defios/repotoken/pkg/errors"
)

// RepositoryState is the state of a repository record. It is either
// [Uninitialized] or an active [*Repository].
type RepositoryState interface {
	repositoryState()
}

// Uninitialized is the state of a repository record that does not exist yet.
type Uninitialized struct{}

func (Uninitialized) repositoryState() {}

// RepoSalts are the derivation salts of a repository's vault and treasury.
// They are fixed when the repository is initialized.
type RepoSalts struct {
	vault    uint8
	treasury uint8
}

func (s RepoSalts) Vault() uint8    { return s.vault }
func (s RepoSalts) Treasury() uint8 { return s.treasury }

// Repository is an active repository record.
type Repository struct {
	ipfsHash          string
	exchangeTokenMint PublicKey
	authority         PublicKey
	salts             RepoSalts
}

func (*Repository) repositoryState() {}

// NewRepository returns an active repository record. This is the only way
// to set the exchange mint, the authority and the salts.
func NewRepository(ipfsHash string, exchangeTokenMint, authority PublicKey, vaultSalt, treasurySalt uint8) (*Repository, error) {
	err := ValidateIpfsHash(ipfsHash)
	if err != nil {
		return nil, err
	}
	return &Repository{
		ipfsHash:          ipfsHash,
		exchangeTokenMint: exchangeTokenMint,
		authority:         authority,
		salts:             RepoSalts{vaultSalt, treasurySalt},
	}, nil
}

func (r *Repository) IpfsHash() string             { return r.ipfsHash }
func (r *Repository) ExchangeTokenMint() PublicKey { return r.exchangeTokenMint }
func (r *Repository) Salts() RepoSalts             { return r.salts }

// Authority is the key that created the repository and may update it.
func (r *Repository) Authority() PublicKey { return r.authority }

// SetIpfsHash replaces the metadata reference. It is the only mutable field.
func (r *Repository) SetIpfsHash(s string) error {
	err := ValidateIpfsHash(s)
	if err != nil {
		return err
	}
	r.ipfsHash = s
	return nil
}

// ValidateIpfsHash checks that a metadata reference fits in a repository
// record. The content of the reference is opaque.
func ValidateIpfsHash(s string) error {
	if len(s) > MaxIpfsHashLength {
		return errors.BadRequest.WithFormat("ipfs hash is %d bytes, the limit is %d", len(s), MaxIpfsHashLength)
	}
	if !utf8.ValidString(s) {
		return errors.BadRequest.With("ipfs hash is not valid UTF-8")
	}
	return nil
}

type repositoryData struct {
	IpfsHash          string
	ExchangeTokenMint PublicKey
	Authority         PublicKey
	VaultSalt         uint8
	TreasurySalt      uint8
}

func (r *Repository) MarshalBinary() ([]byte, error) {
	return marshalAccount(repositoryDiscriminator, repositoryData{
		IpfsHash:          r.ipfsHash,
		ExchangeTokenMint: r.exchangeTokenMint,
		Authority:         r.authority,
		VaultSalt:         r.salts.vault,
		TreasurySalt:      r.salts.treasury,
	})
}

func (r *Repository) UnmarshalBinary(data []byte) error {
	var v repositoryData
	err := unmarshalAccount(repositoryDiscriminator, data, &v)
	if err != nil {
		return err
	}
	r.ipfsHash = v.IpfsHash
	r.exchangeTokenMint = v.ExchangeTokenMint
	r.authority = v.Authority
	r.salts = RepoSalts{v.VaultSalt, v.TreasurySalt}
	return nil
}

// UnmarshalRepositoryState decodes the data of a repository record. Empty
// data is an uninitialized record.
func UnmarshalRepositoryState(data []byte) (RepositoryState, error) {
	if len(data) == 0 {
		return Uninitialized{}, nil
	}
	r := new(Repository)
	err := r.UnmarshalBinary(data)
	if err != nil {
		return nil, err
	}
	return r, nil
}
