// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"context"
	"io"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/spf13/cobra"
	"gitlab.com/defios/repotoken/internal/core/token"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/pkg/build"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

var cmdRepo = &cobra.Command{
	Use:   "repo",
	Short: "Create, update and inspect repositories",
}

var cmdRepoInit = &cobra.Command{
	Use:   "init [creator keypair] [exchange mint] [ipfs hash]",
	Short: "Create a repository, its token mint, vault and treasury",
	Args:  cobra.ExactArgs(3),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error {
			return initRepo(cmd.Context(), cmd.OutOrStdout(), n, args[0], args[1], args[2], flagRepo.RepoKey)
		})
	}),
}

var cmdRepoUpdate = &cobra.Command{
	Use:   "update [authority keypair] [repository] [ipfs hash]",
	Short: "Replace the metadata reference of a repository",
	Args:  cobra.ExactArgs(3),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error {
			return updateRepo(cmd.Context(), cmd.OutOrStdout(), n, args[0], args[1], args[2])
		})
	}),
}

var cmdRepoShow = &cobra.Command{
	Use:   "show [repository]",
	Short: "Print a repository record",
	Args:  cobra.ExactArgs(1),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error { return showRepo(cmd.OutOrStdout(), n, args[0]) })
	}),
}

var cmdBuy = &cobra.Command{
	Use:   "buy [buyer keypair] [repository] [from account] [to account] [amount]",
	Short: "Buy repository tokens with the repository's exchange token",
	Args:  cobra.ExactArgs(5),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error {
			return buyTokens(cmd.Context(), cmd.OutOrStdout(), n, args[0], args[1], args[2], args[3], args[4])
		})
	}),
}

var flagRepo struct {
	RepoKey string
}

func init() {
	cmdMain.AddCommand(cmdRepo, cmdBuy)
	cmdRepo.AddCommand(cmdRepoInit, cmdRepoUpdate, cmdRepoShow)

	cmdRepoInit.Flags().StringVar(&flagRepo.RepoKey, "repo-key", "", "Keypair file of the repository account (generated if unset)")
}

func initRepo(ctx context.Context, w io.Writer, n *node, creatorFile, exchangeMint, ipfsHash, repoKeyFile string) error {
	creator, err := readKeypair(creatorFile)
	if err != nil {
		return err
	}

	repo := types.NewAccount()
	if repoKeyFile != "" {
		repo, err = readKeypair(repoKeyFile)
		if err != nil {
			return err
		}
	}

	exchange, err := parseAddress(exchangeMint)
	if err != nil {
		return err
	}

	mint := types.NewAccount()
	env, err := build.InitializeRepo(n.executor.ProgramID()).
		Repository(repo).
		Creator(creator).
		ExchangeMint(exchange).
		Mint(mint).
		IpfsHash(ipfsHash).
		SignWith(repo, creator, mint)
	if err != nil {
		return err
	}

	_, err = n.executor.Execute(contextOrBackground(ctx), env)
	if err != nil {
		return err
	}

	printSuccess(w, "Initialized repository")
	return showRepo(w, n, repo.PublicKey.ToBase58())
}

func updateRepo(ctx context.Context, w io.Writer, n *node, signerFile, repoAddr, ipfsHash string) error {
	signer, err := readKeypair(signerFile)
	if err != nil {
		return err
	}
	repo, err := parseAddress(repoAddr)
	if err != nil {
		return err
	}

	env, err := build.UpdateRepo(n.executor.ProgramID()).
		Repository(repo).
		Signer(signer).
		IpfsHash(ipfsHash).
		SignWith(signer)
	if err != nil {
		return err
	}

	_, err = n.executor.Execute(contextOrBackground(ctx), env)
	if err != nil {
		return err
	}
	printSuccess(w, "Updated repository")
	return showRepo(w, n, repo.ToBase58())
}

func showRepo(w io.Writer, n *node, repoAddr string) error {
	addr, err := parseAddress(repoAddr)
	if err != nil {
		return err
	}
	record, err := activeRepository(n, addr)
	if err != nil {
		return err
	}

	program := n.executor.ProgramID()
	vault, err := protocol.RepoVaultAddress(program, addr, record.Salts().Vault())
	if err != nil {
		return err
	}
	treasury, err := protocol.RepoTreasuryAddress(program, addr, record.Salts().Treasury())
	if err != nil {
		return err
	}

	printField(w, "Repository", addr.ToBase58())
	printField(w, "IPFS hash", record.IpfsHash())
	printField(w, "Authority", record.Authority().ToBase58())
	printField(w, "Exchange mint", record.ExchangeTokenMint().ToBase58())
	printField(w, "Vault", vault.ToBase58())
	printField(w, "Treasury", treasury.ToBase58())

	return n.db.View(func(batch *database.Batch) error {
		v, _, err := token.LoadAccount(batch, vault)
		if err != nil {
			return err
		}
		mint, _, err := token.LoadMint(batch, v.Mint)
		if err != nil {
			return err
		}
		t, _, err := token.LoadAccount(batch, treasury)
		if err != nil {
			return err
		}
		exchange, _, err := token.LoadMint(batch, t.Mint)
		if err != nil {
			return err
		}
		printField(w, "Token mint", v.Mint.ToBase58())
		printField(w, "Vault balance", formatAmount(v.Amount, mint.Decimals))
		printField(w, "Treasury balance", formatAmount(t.Amount, exchange.Decimals))
		return nil
	})
}

func buyTokens(ctx context.Context, w io.Writer, n *node, buyerFile, repoAddr, from, to, amountStr string) error {
	buyer, err := readKeypair(buyerFile)
	if err != nil {
		return err
	}
	repo, err := parseAddress(repoAddr)
	if err != nil {
		return err
	}
	source, err := parseAddress(from)
	if err != nil {
		return err
	}
	dest, err := parseAddress(to)
	if err != nil {
		return err
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}
	record, err := activeRepository(n, repo)
	if err != nil {
		return err
	}

	env, err := build.BuyTokens(n.executor.ProgramID()).
		Buyer(buyer).
		Repository(repo, record).
		From(source).
		To(dest).
		Amount(amount).
		SignWith(buyer)
	if err != nil {
		return err
	}

	_, err = n.executor.Execute(contextOrBackground(ctx), env)
	if err != nil {
		return err
	}
	printSuccess(w, "Bought %d repository tokens", amount)
	return nil
}

func activeRepository(n *node, addr protocol.PublicKey) (*protocol.Repository, error) {
	state, err := n.executor.Repository(addr)
	if err != nil {
		return nil, err
	}
	record, ok := state.(*protocol.Repository)
	if !ok {
		return nil, errors.NotFound.WithFormat("repository %v is not initialized", addr.ToBase58())
	}
	return record, nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
