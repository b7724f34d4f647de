// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package execute

import (
	"gitlab.com/defios/repotoken/internal/core/token"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

type BuyTokens struct{}

const (
	buyBuyer = iota
	buyRepo
	buyExchangeMint
	buyVault
	buyTreasury
	buyFrom
	buyTo
)

var buyTokensAccounts = []accountSpec{
	buyBuyer:        signerAccount("buyer"),
	buyRepo:         readonlyAccount("repository"),
	buyExchangeMint: readonlyAccount("exchange mint"),
	buyVault:        writableAccount("vault"),
	buyTreasury:     writableAccount("treasury"),
	buyFrom:         writableAccount("buyer exchange account"),
	buyTo:           writableAccount("buyer repository token account"),
	fixedAccount("token program", protocol.TokenProgramID),
}

func (BuyTokens) Type() protocol.InstructionType { return protocol.InstructionTypeBuyTokens }

func (x BuyTokens) Validate(st *StateManager, ix protocol.Instruction) error {
	_, _, err := x.check(st, ix)
	return err
}

func (BuyTokens) check(st *StateManager, ix protocol.Instruction) (*protocol.BuyTokens, []protocol.PublicKey, error) {
	body, ok := ix.(*protocol.BuyTokens)
	if !ok {
		return nil, nil, errors.BadRequest.WithFormat("invalid payload: want %T, got %T", new(protocol.BuyTokens), ix)
	}
	if body.Amount == 0 {
		return nil, nil, errors.BadRequest.With("amount must be greater than zero")
	}

	keys, err := st.bind(buyTokensAccounts)
	if err != nil {
		return nil, nil, err
	}
	if keys[buyTo] == keys[buyVault] {
		return nil, nil, errors.BadRequest.With("the vault cannot receive its own tokens")
	}
	return body, keys, nil
}

func (x BuyTokens) Execute(st *StateManager, ix protocol.Instruction) error {
	body, keys, err := x.check(st, ix)
	if err != nil {
		return err
	}

	addr, buyer := keys[buyRepo], keys[buyBuyer]
	repo, _, err := loadActiveRepository(st.Batch, st.ProgramID, addr)
	if err != nil {
		return err
	}

	// The reference token must be the one recorded at initialization
	if keys[buyExchangeMint] != repo.ExchangeTokenMint() {
		return errors.IdentityMismatch.WithFormat("exchange mint: want %v, got %v", repo.ExchangeTokenMint().ToBase58(), keys[buyExchangeMint].ToBase58())
	}

	// The custody accounts are reconstructed from the recorded salts, never
	// from caller input
	salts := repo.Salts()
	err = protocol.CheckDerivedAddress(st.ProgramID, protocol.SeedRepoVault, addr, salts.Vault(), keys[buyVault])
	if err != nil {
		return err
	}
	err = protocol.CheckDerivedAddress(st.ProgramID, protocol.SeedRepoTreasury, addr, salts.Treasury(), keys[buyTreasury])
	if err != nil {
		return err
	}

	// The buyer pays with the reference token
	from, _, err := token.LoadAccount(st.Batch, keys[buyFrom])
	if err != nil {
		return errors.UnknownError.WithFormat("buyer exchange account: %w", err)
	}
	if from.Mint != repo.ExchangeTokenMint() {
		return errors.IdentityMismatch.WithFormat("buyer exchange account holds %v, not %v", from.Mint.ToBase58(), repo.ExchangeTokenMint().ToBase58())
	}

	// Vault to buyer, signed for by the program
	vaultSigners, err := st.Signers.WithProgramSigner(st.ProgramID, protocol.SeedRepoVault, addr, salts.Vault())
	if err != nil {
		return err
	}
	err = token.Transfer{
		From:      keys[buyVault],
		To:        keys[buyTo],
		Authority: keys[buyVault],
		Amount:    body.Amount,
	}.Execute(st.Batch, vaultSigners)
	if err != nil {
		return errors.UnknownError.WithFormat("pay out of vault: %w", err)
	}

	// Buyer to treasury, signed for by the buyer
	err = token.Transfer{
		From:      keys[buyFrom],
		To:        keys[buyTreasury],
		Authority: buyer,
		Amount:    body.Amount,
	}.Execute(st.Batch, st.Signers)
	if err != nil {
		return errors.UnknownError.WithFormat("pay into treasury: %w", err)
	}

	st.logger.Debug("Bought tokens", "repository", addr.ToBase58(), "buyer", buyer.ToBase58(), "amount", body.Amount)
	return nil
}
