// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package system allocates ledger accounts and moves lamports between them.
package system

import (
	"gitlab.com/defios/repotoken/internal/core"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

// Rent parameters.
const (
	LamportsPerByteYear    = 3480
	ExemptionThreshold     = 2
	AccountStorageOverhead = 128
)

// MinimumBalance returns the balance an account of the given size must hold
// to be exempt from rent.
func MinimumBalance(space uint64) uint64 {
	return (AccountStorageOverhead + space) * LamportsPerByteYear * ExemptionThreshold
}

// CreateAccount allocates a new account of Space bytes owned by Owner,
// funded by Payer with enough lamports to be rent exempt.
type CreateAccount struct {
	Payer      protocol.PublicKey
	NewAccount protocol.PublicKey
	Owner      protocol.PublicKey
	Space      uint64
}

// Execute creates the account. Both the payer and the new account must be
// in the signer set.
func (c CreateAccount) Execute(batch *database.Batch, signers *core.SignerSet) error {
	err := signers.Require(c.Payer, "payer")
	if err != nil {
		return err
	}
	err = signers.Require(c.NewAccount, "new account")
	if err != nil {
		return err
	}

	record := batch.Account(c.NewAccount)
	account, err := record.GetOrEmpty()
	if err != nil {
		return err
	}
	if account.Exists() {
		return errors.AlreadyInitialized.WithFormat("account %v already exists", c.NewAccount.ToBase58())
	}

	lamports := MinimumBalance(c.Space)
	err = debit(batch, c.Payer, lamports)
	if err != nil {
		return errors.AllocationFailure.WithCauseAndFormat(err, "allocate %v", c.NewAccount.ToBase58())
	}

	account.Lamports = lamports
	account.Owner = c.Owner
	account.Space = c.Space
	account.Data = nil
	return record.Put(account)
}

// Airdrop credits lamports to an account, creating it as a plain wallet if
// it does not exist.
func Airdrop(batch *database.Batch, to protocol.PublicKey, lamports uint64) error {
	record := batch.Account(to)
	account, err := record.GetOrEmpty()
	if err != nil {
		return err
	}
	if !account.Exists() {
		account.Owner = protocol.SystemProgramID
	}
	if account.Lamports+lamports < account.Lamports {
		return errors.BadRequest.WithFormat("airdrop to %v overflows", to.ToBase58())
	}
	account.Lamports += lamports
	return record.Put(account)
}

// Transfer moves lamports from a wallet to any account.
func Transfer(batch *database.Batch, signers *core.SignerSet, from, to protocol.PublicKey, lamports uint64) error {
	err := signers.Require(from, "sender")
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	err = debit(batch, from, lamports)
	if err != nil {
		return err
	}
	return Airdrop(batch, to, lamports)
}

// Balance returns the lamports held by an account, or zero if it does not
// exist.
func Balance(batch *database.Batch, addr protocol.PublicKey) (uint64, error) {
	account, err := batch.Account(addr).GetOrEmpty()
	if err != nil {
		return 0, err
	}
	return account.Lamports, nil
}

func debit(batch *database.Batch, from protocol.PublicKey, lamports uint64) error {
	record := batch.Account(from)
	account, err := record.GetOrEmpty()
	if err != nil {
		return err
	}
	if account.Owner != protocol.SystemProgramID || len(account.Data) > 0 {
		return errors.WrongType.WithFormat("%v is not a wallet", from.ToBase58())
	}
	if account.Lamports < lamports {
		return errors.InsufficientFunds.WithFormat("%v has %d lamports, need %d", from.ToBase58(), account.Lamports, lamports)
	}
	account.Lamports -= lamports
	return record.Put(account)
}
