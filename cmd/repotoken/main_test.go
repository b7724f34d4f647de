// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/ipfs/go-cid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gitlab.com/defios/repotoken/config"
	"gitlab.com/defios/repotoken/internal/core/token"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

func setupNode(t *testing.T) (*node, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Storage.Type = database.MemoryStorage
	require.NoError(t, config.Store(dir, cfg))

	n, err := openNode(dir, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n, dir
}

func newKeyFile(t *testing.T, dir, name string) (string, types.Account) {
	t.Helper()
	file := filepath.Join(dir, name+".json")
	account := types.NewAccount()
	require.NoError(t, writeKeypair(file, account))
	return file, account
}

func tokenBalance(t *testing.T, n *node, addr protocol.PublicKey) uint64 {
	t.Helper()
	var v uint64
	require.NoError(t, n.db.View(func(batch *database.Batch) error {
		var err error
		v, err = token.Balance(batch, addr)
		return err
	}))
	return v
}

func TestInitCommand(t *testing.T) {
	flagMain.WorkDir = t.TempDir()
	flagInit.ProgramID = protocol.DefaultProgramID.ToBase58()
	require.NoError(t, flagInit.Storage.Set("Memory"))
	flagInit.LogLevel = "info"
	flagInit.LogFormat = "json"
	flagInit.RequireCID = true

	out := new(bytes.Buffer)
	cmdInit.SetOut(out)
	require.NoError(t, initConfig(cmdInit, nil))
	require.Contains(t, out.String(), flagMain.WorkDir)

	cfg, err := config.Load(flagMain.WorkDir)
	require.NoError(t, err)
	require.True(t, cfg.Metadata.RequireCID)
	require.Equal(t, "json", cfg.Logging.Format)

	require.Equal(t, errors.BadRequest, errors.Code(flagInit.Storage.Set("etcd")))
	require.Equal(t, storageFlag(database.MemoryStorage), flagInit.Storage)

	flagInit.LogLevel = "executor=loud"
	require.Equal(t, errors.BadRequest, errors.Code(initConfig(cmdInit, nil)))
}

func TestRepositoryLifecycle(t *testing.T) {
	n, dir := setupNode(t)
	ctx := context.Background()
	out := new(bytes.Buffer)

	creatorFile, creator := newKeyFile(t, dir, "creator")
	buyerFile, _ := newKeyFile(t, dir, "buyer")
	repoFile, repo := newKeyFile(t, dir, "repo")
	require.NoError(t, faucet(out, n, creatorFile, "1000000000"))
	require.NoError(t, faucet(out, n, buyerFile, "1000000000"))

	// The buyer holds 1,000 units of the reference token
	exchangeMint, err := createMint(out, n, creatorFile, 6)
	require.NoError(t, err)
	buyerExchange, err := createTokenAccount(out, n, buyerFile, exchangeMint.ToBase58())
	require.NoError(t, err)
	require.NoError(t, issue(out, n, creatorFile, exchangeMint.ToBase58(), buyerExchange.ToBase58(), "1000"))

	// Initialize
	require.NoError(t, initRepo(ctx, out, n, creatorFile, exchangeMint.ToBase58(), "QmInitial", repoFile))
	require.Contains(t, out.String(), "QmInitial")

	record, err := activeRepository(n, repo.PublicKey)
	require.NoError(t, err)
	require.Equal(t, creator.PublicKey, record.Authority())
	require.Equal(t, exchangeMint, record.ExchangeTokenMint())

	program := n.executor.ProgramID()
	vault, err := protocol.RepoVaultAddress(program, repo.PublicKey, record.Salts().Vault())
	require.NoError(t, err)
	treasury, err := protocol.RepoTreasuryAddress(program, repo.PublicKey, record.Salts().Treasury())
	require.NoError(t, err)
	require.Equal(t, protocol.InitialVaultSupply, tokenBalance(t, n, vault))

	var repoMint protocol.PublicKey
	require.NoError(t, n.db.View(func(batch *database.Batch) error {
		v, _, err := token.LoadAccount(batch, vault)
		if err != nil {
			return err
		}
		repoMint = v.Mint

		// The repository mint carries both authorities
		mint, _, err := token.LoadMint(batch, v.Mint)
		if err != nil {
			return err
		}
		require.NotNil(t, mint.FreezeAuthority)
		require.Equal(t, creator.PublicKey, *mint.FreezeAuthority)
		require.Equal(t, protocol.InitialVaultSupply, mint.Supply)
		return nil
	}))

	// Buy
	buyerTokens, err := createTokenAccount(out, n, buyerFile, repoMint.ToBase58())
	require.NoError(t, err)
	require.NoError(t, buyTokens(ctx, out, n, buyerFile, repo.PublicKey.ToBase58(), buyerExchange.ToBase58(), buyerTokens.ToBase58(), "400"))
	require.Equal(t, uint64(600), tokenBalance(t, n, buyerExchange))
	require.Equal(t, uint64(400), tokenBalance(t, n, buyerTokens))
	require.Equal(t, uint64(400), tokenBalance(t, n, treasury))
	require.Equal(t, protocol.InitialVaultSupply-400, tokenBalance(t, n, vault))

	err = buyTokens(ctx, out, n, buyerFile, repo.PublicKey.ToBase58(), buyerExchange.ToBase58(), buyerTokens.ToBase58(), "601")
	require.Equal(t, errors.InsufficientFunds, errors.Code(err))

	// Update
	require.NoError(t, updateRepo(ctx, out, n, creatorFile, repo.PublicKey.ToBase58(), "QmUpdated"))
	record, err = activeRepository(n, repo.PublicKey)
	require.NoError(t, err)
	require.Equal(t, "QmUpdated", record.IpfsHash())

	err = updateRepo(ctx, out, n, buyerFile, repo.PublicKey.ToBase58(), "QmHijacked")
	require.Equal(t, errors.Unauthorized, errors.Code(err))

	// Balance
	out.Reset()
	require.NoError(t, balance(out, n, buyerTokens.ToBase58()))
	require.Contains(t, out.String(), repoMint.ToBase58())
}

func TestShowUninitializedRepository(t *testing.T) {
	n, _ := setupNode(t)
	err := showRepo(new(bytes.Buffer), n, types.NewAccount().PublicKey.ToBase58())
	require.Equal(t, errors.NotFound, errors.Code(err))
}

func TestBadgerPersistence(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Type = database.BadgerStorage
	require.NoError(t, config.Store(dir, cfg))

	keyFile, key := newKeyFile(t, dir, "wallet")

	n, err := openNode(dir, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, faucet(new(bytes.Buffer), n, keyFile, "5000"))
	require.NoError(t, n.Close())

	n, err = openNode(dir, prometheus.NewRegistry())
	require.NoError(t, err)
	defer n.Close()

	out := new(bytes.Buffer)
	require.NoError(t, balance(out, n, key.PublicKey.ToBase58()))
	require.Contains(t, out.String(), "5,000")
}

func TestFileCID(t *testing.T) {
	file := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"name":"repo"}`), 0644))

	c, err := fileCID(file)
	require.NoError(t, err)
	require.Equal(t, uint64(cid.Raw), c.Prefix().Codec)

	// The CID is accepted by a ledger that requires CIDs
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Type = database.MemoryStorage
	cfg.Metadata.RequireCID = true
	require.NoError(t, config.Store(dir, cfg))
	n, err := openNode(dir, prometheus.NewRegistry())
	require.NoError(t, err)
	defer n.Close()

	out := new(bytes.Buffer)
	creatorFile, _ := newKeyFile(t, dir, "creator")
	require.NoError(t, faucet(out, n, creatorFile, "1000000000"))
	exchangeMint, err := createMint(out, n, creatorFile, 6)
	require.NoError(t, err)

	err = initRepo(context.Background(), out, n, creatorFile, exchangeMint.ToBase58(), "QmNotACID", "")
	require.Equal(t, errors.BadRequest, errors.Code(err))
	require.NoError(t, initRepo(context.Background(), out, n, creatorFile, exchangeMint.ToBase58(), c.String(), ""))

	_, err = fileCID(filepath.Join(dir, "missing"))
	require.Equal(t, errors.NotFound, errors.Code(err))
}
