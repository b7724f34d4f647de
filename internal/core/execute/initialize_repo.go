// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package execute

import (
	"gitlab.com/defios/repotoken/internal/core/system"
	"gitlab.com/defios/repotoken/internal/core/token"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

type InitializeRepo struct{}

const (
	initRepo = iota
	initCreator
	initExchangeMint
	initMint
	initVault
	initTreasury
)

var initializeRepoAccounts = []accountSpec{
	initRepo:         signerAccount("repository"),
	initCreator:      signerAccount("creator"),
	initExchangeMint: readonlyAccount("exchange mint"),
	initMint:         signerAccount("repository mint"),
	initVault:        writableAccount("vault"),
	initTreasury:     writableAccount("treasury"),
	fixedAccount("system program", protocol.SystemProgramID),
	fixedAccount("token program", protocol.TokenProgramID),
	fixedAccount("rent sysvar", protocol.SysVarRentPubkey),
}

func (InitializeRepo) Type() protocol.InstructionType {
	return protocol.InstructionTypeInitializeRepo
}

func (x InitializeRepo) Validate(st *StateManager, ix protocol.Instruction) error {
	_, _, err := x.check(st, ix)
	return err
}

func (InitializeRepo) check(st *StateManager, ix protocol.Instruction) (*protocol.InitializeRepo, []protocol.PublicKey, error) {
	body, ok := ix.(*protocol.InitializeRepo)
	if !ok {
		return nil, nil, errors.BadRequest.WithFormat("invalid payload: want %T, got %T", new(protocol.InitializeRepo), ix)
	}

	keys, err := st.bind(initializeRepoAccounts)
	if err != nil {
		return nil, nil, err
	}

	err = st.validateIpfsHash(body.IpfsHash)
	if err != nil {
		return nil, nil, err
	}

	// The custody accounts must be the ones derived from the salts
	repo := keys[initRepo]
	err = protocol.CheckDerivedAddress(st.ProgramID, protocol.SeedRepoVault, repo, body.VaultSalt, keys[initVault])
	if err != nil {
		return nil, nil, err
	}
	err = protocol.CheckDerivedAddress(st.ProgramID, protocol.SeedRepoTreasury, repo, body.TreasurySalt, keys[initTreasury])
	if err != nil {
		return nil, nil, err
	}

	return body, keys, nil
}

func (x InitializeRepo) Execute(st *StateManager, ix protocol.Instruction) error {
	body, keys, err := x.check(st, ix)
	if err != nil {
		return err
	}

	repo, creator := keys[initRepo], keys[initCreator]
	exchangeMint, mint := keys[initExchangeMint], keys[initMint]
	vault, treasury := keys[initVault], keys[initTreasury]

	// The reference token must be a real mint
	_, _, err = token.LoadMint(st.Batch, exchangeMint)
	if err != nil {
		return errors.UnknownError.WithFormat("exchange mint: %w", err)
	}

	// Allocate the record
	err = system.CreateAccount{
		Payer:      creator,
		NewAccount: repo,
		Owner:      st.ProgramID,
		Space:      protocol.RepositoryAccountSize,
	}.Execute(st.Batch, st.Signers)
	if err != nil {
		return errors.UnknownError.WithFormat("create repository: %w", err)
	}

	// Create the repository token
	err = token.CreateMint(st.Batch, st.Signers, creator, token.InitializeMint{
		Mint:            mint,
		Decimals:        protocol.RepoTokenDecimals,
		MintAuthority:   creator,
		FreezeAuthority: &creator,
	})
	if err != nil {
		return errors.UnknownError.WithFormat("create repository mint: %w", err)
	}

	// Create the vault and the treasury, each owned by its own derived
	// address
	err = x.createCustody(st, creator, protocol.SeedRepoVault, repo, body.VaultSalt, vault, mint)
	if err != nil {
		return err
	}
	err = x.createCustody(st, creator, protocol.SeedRepoTreasury, repo, body.TreasurySalt, treasury, exchangeMint)
	if err != nil {
		return err
	}

	// Issue the initial supply. The creator's mint authority is only ever
	// exercised here.
	err = token.MintTo{
		Mint:      mint,
		To:        vault,
		Authority: creator,
		Amount:    protocol.InitialVaultSupply,
	}.Execute(st.Batch, st.Signers)
	if err != nil {
		return errors.UnknownError.WithFormat("fund vault: %w", err)
	}

	// Record the repository
	record, err := protocol.NewRepository(body.IpfsHash, exchangeMint, creator, body.VaultSalt, body.TreasurySalt)
	if err != nil {
		return err
	}
	info, err := st.Batch.Account(repo).Get()
	if err != nil {
		return err
	}
	err = st.Batch.Account(repo).PutState(info, record)
	if err != nil {
		return errors.UnknownError.WithFormat("store repository: %w", err)
	}

	st.logger.Debug("Initialized repository", "repository", repo.ToBase58(), "mint", mint.ToBase58(), "exchange-mint", exchangeMint.ToBase58())
	return nil
}

func (InitializeRepo) createCustody(st *StateManager, payer protocol.PublicKey, label string, repo protocol.PublicKey, salt uint8, addr, mint protocol.PublicKey) error {
	signers, err := st.Signers.WithProgramSigner(st.ProgramID, label, repo, salt)
	if err != nil {
		return err
	}

	err = token.CreateAccount(st.Batch, signers, payer, token.InitializeAccount{
		Account: addr,
		Mint:    mint,
		Owner:   addr,
	})
	if err != nil {
		return errors.UnknownError.WithFormat("create %s: %w", label, err)
	}
	return nil
}
