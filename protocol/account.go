// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package protocol

import (
	"bytes"
	"crypto/sha256"

	"github.com/near/borsh-go"
	"gitlab.com/defios/repotoken/pkg/errors"
)

// AccountInfo is the stored form of every ledger account. Data holds the
// encoded state of the account and never exceeds Space, the number of bytes
// reserved (and paid for) when the account was created.
type AccountInfo struct {
	Lamports uint64
	Owner    PublicKey
	Space    uint64
	Data     []byte
}

// Exists returns true if the account has been created.
func (a *AccountInfo) Exists() bool {
	return a != nil && (a.Lamports > 0 || a.Space > 0 || a.Owner != PublicKey{})
}

func (a *AccountInfo) MarshalBinary() ([]byte, error) {
	if uint64(len(a.Data)) > a.Space {
		return nil, errors.EncodingError.WithFormat("account data is %d bytes, exceeding its space of %d", len(a.Data), a.Space)
	}
	b, err := borsh.Serialize(*a)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("encode account: %w", err)
	}
	return b, nil
}

func (a *AccountInfo) UnmarshalBinary(data []byte) error {
	err := borsh.Deserialize(a, data)
	if err != nil {
		return errors.EncodingError.WithFormat("decode account: %w", err)
	}
	return nil
}

const discriminatorSize = 8

type discriminator [discriminatorSize]byte

func accountDiscriminator(name string) discriminator {
	var d discriminator
	h := sha256.Sum256([]byte("account:" + name))
	copy(d[:], h[:])
	return d
}

var (
	mintDiscriminator         = accountDiscriminator("Mint")
	tokenAccountDiscriminator = accountDiscriminator("TokenAccount")
	repositoryDiscriminator   = accountDiscriminator("Repository")
)

func marshalAccount(d discriminator, v any) ([]byte, error) {
	b, err := borsh.Serialize(v)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("encode %T: %w", v, err)
	}
	return append(d[:], b...), nil
}

func unmarshalAccount(d discriminator, data []byte, v any) error {
	if len(data) < discriminatorSize || !bytes.Equal(data[:discriminatorSize], d[:]) {
		return errors.WrongType.WithFormat("account data is not a %T", v)
	}
	err := borsh.Deserialize(v, data[discriminatorSize:])
	if err != nil {
		return errors.EncodingError.WithFormat("decode %T: %w", v, err)
	}
	return nil
}

// Mint is the state of a token mint.
type Mint struct {
	MintAuthority   *PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *PublicKey
}

func (m *Mint) MarshalBinary() ([]byte, error) { return marshalAccount(mintDiscriminator, *m) }

func (m *Mint) UnmarshalBinary(data []byte) error {
	return unmarshalAccount(mintDiscriminator, data, m)
}

type TokenAccountState uint8

const (
	TokenAccountUninitialized TokenAccountState = iota
	TokenAccountInitialized
	TokenAccountFrozen
)

// TokenAccount is a balance of a single mint held by an owner.
type TokenAccount struct {
	Mint   PublicKey
	Owner  PublicKey
	Amount uint64
	State  TokenAccountState
}

func (a *TokenAccount) MarshalBinary() ([]byte, error) {
	return marshalAccount(tokenAccountDiscriminator, *a)
}

func (a *TokenAccount) UnmarshalBinary(data []byte) error {
	return unmarshalAccount(tokenAccountDiscriminator, data, a)
}
