// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package execute is the runtime of the repository token program. It
// verifies envelopes, binds the accounts an instruction names to the roles
// its handler expects, runs the handler and commits its effects atomically.
package execute

import (
	"github.com/ipfs/go-cid"
	"gitlab.com/defios/repotoken/internal/core"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
	"golang.org/x/exp/slog"
)

// InstructionExecutor executes a specific type of instruction.
type InstructionExecutor interface {
	// Type is the instruction type the executor can execute.
	Type() protocol.InstructionType

	// Validate checks the instruction's arguments and account layout without
	// loading any state.
	Validate(*StateManager, protocol.Instruction) error

	// Execute fully validates and executes the instruction.
	Execute(*StateManager, protocol.Instruction) error
}

var executors = map[protocol.InstructionType]InstructionExecutor{}

func register(x InstructionExecutor) {
	if _, ok := executors[x.Type()]; ok {
		panic(errors.Conflict.WithFormat("duplicate executor for %v", x.Type()))
	}
	executors[x.Type()] = x
}

func init() {
	register(InitializeRepo{})
	register(UpdateRepo{})
	register(BuyTokens{})
}

// StateManager is the state an instruction executes against.
type StateManager struct {
	Batch     *database.Batch
	ProgramID protocol.PublicKey
	Signers   *core.SignerSet
	Accounts  []protocol.AccountMeta

	logger     *slog.Logger
	requireCID bool
}

// accountSpec is the role an instruction expects an account to play.
type accountSpec struct {
	name     string
	signer   bool
	writable bool
	address  *protocol.PublicKey
}

func signerAccount(name string) accountSpec   { return accountSpec{name: name, signer: true, writable: true} }
func writableAccount(name string) accountSpec { return accountSpec{name: name, writable: true} }
func readonlyAccount(name string) accountSpec { return accountSpec{name: name} }

func fixedAccount(name string, addr protocol.PublicKey) accountSpec {
	return accountSpec{name: name, address: &addr}
}

// bind matches the instruction's accounts to the expected roles, by
// position.
func (st *StateManager) bind(specs []accountSpec) ([]protocol.PublicKey, error) {
	if len(st.Accounts) < len(specs) {
		return nil, errors.BadRequest.WithFormat("want %d accounts, got %d", len(specs), len(st.Accounts))
	}

	keys := make([]protocol.PublicKey, len(specs))
	for i, spec := range specs {
		meta := st.Accounts[i]
		keys[i] = meta.PubKey
		switch {
		case spec.signer && !meta.IsSigner:
			return nil, errors.Unauthenticated.WithFormat("%s %v must sign", spec.name, meta.PubKey.ToBase58())
		case spec.writable && !meta.IsWritable:
			return nil, errors.BadRequest.WithFormat("%s %v must be writable", spec.name, meta.PubKey.ToBase58())
		case spec.address != nil && *spec.address != meta.PubKey:
			return nil, errors.IdentityMismatch.WithFormat("%s: want %v, got %v", spec.name, spec.address.ToBase58(), meta.PubKey.ToBase58())
		}
	}
	return keys, nil
}

// writable returns true if the instruction marked the account writable.
func (st *StateManager) writable(addr protocol.PublicKey) bool {
	for _, meta := range st.Accounts {
		if meta.PubKey == addr && meta.IsWritable {
			return true
		}
	}
	return false
}

func (st *StateManager) validateIpfsHash(s string) error {
	err := protocol.ValidateIpfsHash(s)
	if err != nil {
		return err
	}
	if !st.requireCID {
		return nil
	}
	_, err = cid.Decode(s)
	if err != nil {
		return errors.BadRequest.WithFormat("ipfs hash %q is not a CID: %w", s, err)
	}
	return nil
}

// LoadRepository loads a repository record owned by program. A record that
// has never been created is [protocol.Uninitialized].
func LoadRepository(batch *database.Batch, program, addr protocol.PublicKey) (protocol.RepositoryState, error) {
	info, err := batch.Account(addr).GetOrEmpty()
	if err != nil {
		return nil, err
	}
	if !info.Exists() {
		return protocol.Uninitialized{}, nil
	}
	if info.Owner != program {
		return nil, errors.WrongType.WithFormat("%v is not owned by the program", addr.ToBase58())
	}
	state, err := protocol.UnmarshalRepositoryState(info.Data)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("load repository %v: %w", addr.ToBase58(), err)
	}
	return state, nil
}

// loadActiveRepository loads a repository record and fails with NotFound if
// it has not been initialized.
func loadActiveRepository(batch *database.Batch, program, addr protocol.PublicKey) (*protocol.Repository, *protocol.AccountInfo, error) {
	state, err := LoadRepository(batch, program, addr)
	if err != nil {
		return nil, nil, err
	}
	repo, ok := state.(*protocol.Repository)
	if !ok {
		return nil, nil, errors.NotFound.WithFormat("repository %v is not initialized", addr.ToBase58())
	}
	info, err := batch.Account(addr).Get()
	if err != nil {
		return nil, nil, err
	}
	return repo, info, nil
}
