// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package execute

import (
	"context"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/require"
	"gitlab.com/defios/repotoken/internal/core"
	"gitlab.com/defios/repotoken/internal/core/system"
	"gitlab.com/defios/repotoken/internal/core/token"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/internal/logging"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

type harness struct {
	t       testing.TB
	db      *database.Database
	x       *Executor
	program protocol.PublicKey
	faucet  types.Account
}

func newHarness(t testing.TB, opts ...func(*Options)) *harness {
	h := &harness{t: t, db: database.OpenInMemory(logging.NewTestLogger(t)), program: protocol.DefaultProgramID, faucet: types.NewAccount()}

	o := Options{ProgramID: h.program, Database: h.db, Logger: logging.NewTestLogger(t)}
	for _, opt := range opts {
		opt(&o)
	}
	x, err := New(o)
	require.NoError(t, err)
	h.x = x

	h.fund(h.faucet.PublicKey, 1_000_000_000_000)
	return h
}

func (h *harness) update(fn func(*database.Batch) error) {
	h.t.Helper()
	require.NoError(h.t, h.db.Update(fn))
}

func (h *harness) fund(addr protocol.PublicKey, lamports uint64) {
	h.t.Helper()
	h.update(func(batch *database.Batch) error {
		return system.Airdrop(batch, addr, lamports)
	})
}

// wallet returns a new keypair with enough lamports to create accounts.
func (h *harness) wallet() types.Account {
	h.t.Helper()
	w := types.NewAccount()
	h.fund(w.PublicKey, 100_000_000)
	return w
}

// createMint creates a mint whose authority is the faucet.
func (h *harness) createMint() protocol.PublicKey {
	h.t.Helper()
	mint := types.NewAccount().PublicKey
	h.update(func(batch *database.Batch) error {
		return token.CreateMint(batch, core.NewSignerSet(h.faucet.PublicKey, mint), h.faucet.PublicKey, token.InitializeMint{
			Mint:          mint,
			Decimals:      6,
			MintAuthority: h.faucet.PublicKey,
		})
	})
	return mint
}

func (h *harness) createTokenAccount(mint, owner protocol.PublicKey) protocol.PublicKey {
	h.t.Helper()
	account := types.NewAccount().PublicKey
	h.update(func(batch *database.Batch) error {
		return token.CreateAccount(batch, core.NewSignerSet(h.faucet.PublicKey, account), h.faucet.PublicKey, token.InitializeAccount{
			Account: account,
			Mint:    mint,
			Owner:   owner,
		})
	})
	return account
}

// issue mints tokens of a faucet-controlled mint.
func (h *harness) issue(mint, to protocol.PublicKey, amount uint64) {
	h.t.Helper()
	h.update(func(batch *database.Batch) error {
		return token.MintTo{Mint: mint, To: to, Authority: h.faucet.PublicKey, Amount: amount}.Execute(batch, core.NewSignerSet(h.faucet.PublicKey))
	})
}

func (h *harness) balance(account protocol.PublicKey) uint64 {
	h.t.Helper()
	var v uint64
	require.NoError(h.t, h.db.View(func(batch *database.Batch) error {
		var err error
		v, err = token.Balance(batch, account)
		return err
	}))
	return v
}

func (h *harness) exists(addr protocol.PublicKey) bool {
	h.t.Helper()
	var ok bool
	require.NoError(h.t, h.db.View(func(batch *database.Batch) error {
		info, err := batch.Account(addr).GetOrEmpty()
		ok = info != nil && info.Exists()
		return err
	}))
	return ok
}

func (h *harness) repository(addr protocol.PublicKey) protocol.RepositoryState {
	h.t.Helper()
	state, err := h.x.Repository(addr)
	require.NoError(h.t, err)
	return state
}

func (h *harness) active(addr protocol.PublicKey) *protocol.Repository {
	h.t.Helper()
	state := h.repository(addr)
	require.IsType(h.t, (*protocol.Repository)(nil), state)
	return state.(*protocol.Repository)
}

func (h *harness) submit(env *protocol.Envelope, err error) error {
	h.t.Helper()
	require.NoError(h.t, err)
	_, err = h.x.Execute(context.Background(), env)
	return err
}

func (h *harness) requireCode(code errors.Status, err error) {
	h.t.Helper()
	require.Error(h.t, err)
	require.Equal(h.t, code, errors.Code(err), "%+v", err)
}

// repoKeyWithSalts finds a repository keypair for which both salts produce
// valid derived addresses.
func repoKeyWithSalts(t testing.TB, program protocol.PublicKey, vault, treasury uint8) types.Account {
	for i := 0; i < 1000; i++ {
		key := types.NewAccount()
		if _, err := protocol.RepoVaultAddress(program, key.PublicKey, vault); err != nil {
			continue
		}
		if _, err := protocol.RepoTreasuryAddress(program, key.PublicKey, treasury); err != nil {
			continue
		}
		return key
	}
	t.Fatal("no repository key found")
	panic("unreachable")
}
