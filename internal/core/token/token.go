// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package token implements fungible token mints and the accounts that hold
// their balances.
package token

import (
	"gitlab.com/defios/repotoken/internal/core"
	"gitlab.com/defios/repotoken/internal/core/system"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

// LoadMint loads an initialized mint.
func LoadMint(batch *database.Batch, addr protocol.PublicKey) (*protocol.Mint, *protocol.AccountInfo, error) {
	mint := new(protocol.Mint)
	info, err := batch.Account(addr).GetStateAs(protocol.TokenProgramID, mint)
	if err != nil {
		return nil, nil, errors.UnknownError.WithFormat("load mint: %w", err)
	}
	if !mint.IsInitialized {
		return nil, nil, errors.NotReady.WithFormat("mint %v is not initialized", addr.ToBase58())
	}
	return mint, info, nil
}

// LoadAccount loads an initialized token account.
func LoadAccount(batch *database.Batch, addr protocol.PublicKey) (*protocol.TokenAccount, *protocol.AccountInfo, error) {
	account := new(protocol.TokenAccount)
	info, err := batch.Account(addr).GetStateAs(protocol.TokenProgramID, account)
	if err != nil {
		return nil, nil, errors.UnknownError.WithFormat("load token account: %w", err)
	}
	if account.State == protocol.TokenAccountUninitialized {
		return nil, nil, errors.NotReady.WithFormat("token account %v is not initialized", addr.ToBase58())
	}
	return account, info, nil
}

// Balance returns the balance of a token account.
func Balance(batch *database.Batch, addr protocol.PublicKey) (uint64, error) {
	account, _, err := LoadAccount(batch, addr)
	if err != nil {
		return 0, err
	}
	return account.Amount, nil
}

// loadUninitialized loads an allocated token-program account that has no
// state yet.
func loadUninitialized(batch *database.Batch, addr protocol.PublicKey, space uint64) (*protocol.AccountInfo, error) {
	info, err := batch.Account(addr).Get()
	if err != nil {
		return nil, errors.UnknownError.WithFormat("load %v: %w", addr.ToBase58(), err)
	}
	if info.Owner != protocol.TokenProgramID {
		return nil, errors.WrongType.WithFormat("%v is not owned by the token program", addr.ToBase58())
	}
	if len(info.Data) > 0 {
		return nil, errors.AlreadyInitialized.WithFormat("%v is already initialized", addr.ToBase58())
	}
	if info.Space < space {
		return nil, errors.AllocationFailure.WithFormat("%v has %d bytes, need %d", addr.ToBase58(), info.Space, space)
	}
	if info.Lamports < system.MinimumBalance(info.Space) {
		return nil, errors.InsufficientFunds.WithFormat("%v is not rent exempt", addr.ToBase58())
	}
	return info, nil
}

// InitializeMint sets up an allocated account as a mint.
type InitializeMint struct {
	Mint            protocol.PublicKey
	Decimals        uint8
	MintAuthority   protocol.PublicKey
	FreezeAuthority *protocol.PublicKey
}

func (x InitializeMint) Execute(batch *database.Batch) error {
	info, err := loadUninitialized(batch, x.Mint, protocol.MintAccountSize)
	if err != nil {
		return err
	}

	authority := x.MintAuthority
	return batch.Account(x.Mint).PutState(info, &protocol.Mint{
		MintAuthority:   &authority,
		Decimals:        x.Decimals,
		IsInitialized:   true,
		FreezeAuthority: x.FreezeAuthority,
	})
}

// InitializeAccount sets up an allocated account to hold a balance of Mint
// on behalf of Owner.
type InitializeAccount struct {
	Account protocol.PublicKey
	Mint    protocol.PublicKey
	Owner   protocol.PublicKey
}

func (x InitializeAccount) Execute(batch *database.Batch) error {
	info, err := loadUninitialized(batch, x.Account, protocol.TokenAccountSize)
	if err != nil {
		return err
	}
	_, _, err = LoadMint(batch, x.Mint)
	if err != nil {
		return err
	}

	return batch.Account(x.Account).PutState(info, &protocol.TokenAccount{
		Mint:  x.Mint,
		Owner: x.Owner,
		State: protocol.TokenAccountInitialized,
	})
}

// MintTo issues new tokens into an account. Authority must be the mint's
// authority and must be in the signer set.
type MintTo struct {
	Mint      protocol.PublicKey
	To        protocol.PublicKey
	Authority protocol.PublicKey
	Amount    uint64
}

func (x MintTo) Execute(batch *database.Batch, signers *core.SignerSet) error {
	mint, mintInfo, err := LoadMint(batch, x.Mint)
	if err != nil {
		return err
	}
	if mint.MintAuthority == nil {
		return errors.NotAllowed.WithFormat("mint %v has a fixed supply", x.Mint.ToBase58())
	}
	if *mint.MintAuthority != x.Authority {
		return errors.Unauthorized.WithFormat("%v is not the authority of mint %v", x.Authority.ToBase58(), x.Mint.ToBase58())
	}
	err = signers.Require(x.Authority, "mint authority")
	if err != nil {
		return err
	}

	to, toInfo, err := LoadAccount(batch, x.To)
	if err != nil {
		return err
	}
	if to.Mint != x.Mint {
		return errors.IdentityMismatch.WithFormat("%v holds %v, not %v", x.To.ToBase58(), to.Mint.ToBase58(), x.Mint.ToBase58())
	}
	if to.State == protocol.TokenAccountFrozen {
		return errors.NotAllowed.WithFormat("%v is frozen", x.To.ToBase58())
	}
	if mint.Supply+x.Amount < mint.Supply || to.Amount+x.Amount < to.Amount {
		return errors.BadRequest.WithFormat("minting %d overflows", x.Amount)
	}

	mint.Supply += x.Amount
	to.Amount += x.Amount
	err = batch.Account(x.Mint).PutState(mintInfo, mint)
	if err != nil {
		return err
	}
	return batch.Account(x.To).PutState(toInfo, to)
}

// Transfer moves tokens between two accounts of the same mint. Authority
// must own the source account and must be in the signer set.
type Transfer struct {
	From      protocol.PublicKey
	To        protocol.PublicKey
	Authority protocol.PublicKey
	Amount    uint64
}

func (x Transfer) Execute(batch *database.Batch, signers *core.SignerSet) error {
	from, fromInfo, err := LoadAccount(batch, x.From)
	if err != nil {
		return err
	}
	to, toInfo, err := LoadAccount(batch, x.To)
	if err != nil {
		return err
	}

	if from.Mint != to.Mint {
		return errors.IdentityMismatch.WithFormat("cannot transfer %v tokens to an account of %v", from.Mint.ToBase58(), to.Mint.ToBase58())
	}
	if from.Owner != x.Authority {
		return errors.Unauthorized.WithFormat("%v does not own %v", x.Authority.ToBase58(), x.From.ToBase58())
	}
	err = signers.Require(x.Authority, "owner")
	if err != nil {
		return err
	}
	if from.State == protocol.TokenAccountFrozen || to.State == protocol.TokenAccountFrozen {
		return errors.NotAllowed.With("account is frozen")
	}
	if from.Amount < x.Amount {
		return errors.InsufficientFunds.WithFormat("%v has %d, need %d", x.From.ToBase58(), from.Amount, x.Amount)
	}
	if x.From == x.To {
		return nil
	}
	if to.Amount+x.Amount < to.Amount {
		return errors.BadRequest.WithFormat("transferring %d overflows", x.Amount)
	}

	from.Amount -= x.Amount
	to.Amount += x.Amount
	err = batch.Account(x.From).PutState(fromInfo, from)
	if err != nil {
		return err
	}
	return batch.Account(x.To).PutState(toInfo, to)
}

// CreateMint allocates and initializes a mint in one step.
func CreateMint(batch *database.Batch, signers *core.SignerSet, payer protocol.PublicKey, mint InitializeMint) error {
	err := system.CreateAccount{
		Payer:      payer,
		NewAccount: mint.Mint,
		Owner:      protocol.TokenProgramID,
		Space:      protocol.MintAccountSize,
	}.Execute(batch, signers)
	if err != nil {
		return err
	}
	return mint.Execute(batch)
}

// CreateAccount allocates and initializes a token account in one step.
func CreateAccount(batch *database.Batch, signers *core.SignerSet, payer protocol.PublicKey, account InitializeAccount) error {
	err := system.CreateAccount{
		Payer:      payer,
		NewAccount: account.Account,
		Owner:      protocol.TokenProgramID,
		Space:      protocol.TokenAccountSize,
	}.Execute(batch, signers)
	if err != nil {
		return err
	}
	return account.Execute(batch)
}
