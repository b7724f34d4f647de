// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package execute

import (
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

type UpdateRepo struct{}

const (
	updateRepo = iota
	updateSigner
)

var updateRepoAccounts = []accountSpec{
	updateRepo:   writableAccount("repository"),
	updateSigner: {name: "signer", signer: true},
	fixedAccount("system program", protocol.SystemProgramID),
}

func (UpdateRepo) Type() protocol.InstructionType { return protocol.InstructionTypeUpdateRepo }

func (x UpdateRepo) Validate(st *StateManager, ix protocol.Instruction) error {
	_, _, err := x.check(st, ix)
	return err
}

func (UpdateRepo) check(st *StateManager, ix protocol.Instruction) (*protocol.UpdateRepo, []protocol.PublicKey, error) {
	body, ok := ix.(*protocol.UpdateRepo)
	if !ok {
		return nil, nil, errors.BadRequest.WithFormat("invalid payload: want %T, got %T", new(protocol.UpdateRepo), ix)
	}

	keys, err := st.bind(updateRepoAccounts)
	if err != nil {
		return nil, nil, err
	}

	err = st.validateIpfsHash(body.IpfsHash)
	if err != nil {
		return nil, nil, err
	}
	return body, keys, nil
}

func (x UpdateRepo) Execute(st *StateManager, ix protocol.Instruction) error {
	body, keys, err := x.check(st, ix)
	if err != nil {
		return err
	}

	addr, signer := keys[updateRepo], keys[updateSigner]
	repo, info, err := loadActiveRepository(st.Batch, st.ProgramID, addr)
	if err != nil {
		return err
	}

	// Only the creator may change the metadata
	if repo.Authority() != signer {
		return errors.Unauthorized.WithFormat("%v is not the authority of repository %v", signer.ToBase58(), addr.ToBase58())
	}

	err = repo.SetIpfsHash(body.IpfsHash)
	if err != nil {
		return err
	}
	err = st.Batch.Account(addr).PutState(info, repo)
	if err != nil {
		return errors.UnknownError.WithFormat("store repository: %w", err)
	}

	st.logger.Debug("Updated repository", "repository", addr.ToBase58(), "ipfs-hash", body.IpfsHash)
	return nil
}
