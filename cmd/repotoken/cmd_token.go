// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"io"
	"os"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/spf13/cobra"
	"gitlab.com/defios/repotoken/internal/core"
	"gitlab.com/defios/repotoken/internal/core/system"
	"gitlab.com/defios/repotoken/internal/core/token"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/protocol"
)

var cmdFaucet = &cobra.Command{
	Use:   "faucet [address] [lamports]",
	Short: "Credit lamports to an address",
	Args:  cobra.ExactArgs(2),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error { return faucet(cmd.OutOrStdout(), n, args[0], args[1]) })
	}),
}

var cmdToken = &cobra.Command{
	Use:   "token",
	Short: "Manage mints and token accounts",
}

var cmdTokenCreateMint = &cobra.Command{
	Use:   "create-mint [authority keypair]",
	Short: "Create a mint controlled by the authority",
	Args:  cobra.ExactArgs(1),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error {
			_, err := createMint(cmd.OutOrStdout(), n, args[0], flagToken.Decimals)
			return err
		})
	}),
}

var cmdTokenCreateAccount = &cobra.Command{
	Use:   "create-account [owner keypair] [mint]",
	Short: "Create a token account for the owner, paid by the owner",
	Args:  cobra.ExactArgs(2),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error {
			_, err := createTokenAccount(cmd.OutOrStdout(), n, args[0], args[1])
			return err
		})
	}),
}

var cmdTokenIssue = &cobra.Command{
	Use:   "issue [authority keypair] [mint] [account] [amount]",
	Short: "Mint tokens into an account",
	Args:  cobra.ExactArgs(4),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error { return issue(cmd.OutOrStdout(), n, args[0], args[1], args[2], args[3]) })
	}),
}

var cmdBalance = &cobra.Command{
	Use:   "balance [address]",
	Short: "Print the lamports and tokens held by an address",
	Args:  cobra.ExactArgs(1),
	Run: run(func(cmd *cobra.Command, args []string) error {
		return withNode(func(n *node) error { return balance(cmd.OutOrStdout(), n, args[0]) })
	}),
}

var flagToken struct {
	Decimals uint8
}

func init() {
	cmdMain.AddCommand(cmdFaucet, cmdToken, cmdBalance)
	cmdToken.AddCommand(cmdTokenCreateMint, cmdTokenCreateAccount, cmdTokenIssue)

	cmdTokenCreateMint.Flags().Uint8Var(&flagToken.Decimals, "decimals", protocol.RepoTokenDecimals, "Decimal places of the mint")
}

// parseAddress accepts a base58 address or the path of a keypair file.
func parseAddress(s string) (protocol.PublicKey, error) {
	if _, err := os.Stat(s); err == nil {
		account, err := readKeypair(s)
		if err != nil {
			return protocol.PublicKey{}, err
		}
		return account.PublicKey, nil
	}
	return protocol.ParsePublicKey(s)
}

func faucet(w io.Writer, n *node, address, lamports string) error {
	addr, err := parseAddress(address)
	if err != nil {
		return err
	}
	amount, err := parseAmount(lamports)
	if err != nil {
		return err
	}

	err = n.db.Update(func(batch *database.Batch) error {
		return system.Airdrop(batch, addr, amount)
	})
	if err != nil {
		return err
	}
	printSuccess(w, "Credited %s lamports to %s", formatAmount(amount, 0), addr.ToBase58())
	return nil
}

func createMint(w io.Writer, n *node, authorityFile string, decimals uint8) (protocol.PublicKey, error) {
	authority, err := readKeypair(authorityFile)
	if err != nil {
		return protocol.PublicKey{}, err
	}

	mint := types.NewAccount().PublicKey
	err = n.db.Update(func(batch *database.Batch) error {
		return token.CreateMint(batch, core.NewSignerSet(authority.PublicKey, mint), authority.PublicKey, token.InitializeMint{
			Mint:          mint,
			Decimals:      decimals,
			MintAuthority: authority.PublicKey,
		})
	})
	if err != nil {
		return protocol.PublicKey{}, err
	}
	printField(w, "Mint", mint.ToBase58())
	return mint, nil
}

func createTokenAccount(w io.Writer, n *node, ownerFile, mintAddr string) (protocol.PublicKey, error) {
	owner, err := readKeypair(ownerFile)
	if err != nil {
		return protocol.PublicKey{}, err
	}
	mint, err := parseAddress(mintAddr)
	if err != nil {
		return protocol.PublicKey{}, err
	}

	account := types.NewAccount().PublicKey
	err = n.db.Update(func(batch *database.Batch) error {
		return token.CreateAccount(batch, core.NewSignerSet(owner.PublicKey, account), owner.PublicKey, token.InitializeAccount{
			Account: account,
			Mint:    mint,
			Owner:   owner.PublicKey,
		})
	})
	if err != nil {
		return protocol.PublicKey{}, err
	}
	printField(w, "Token account", account.ToBase58())
	return account, nil
}

func issue(w io.Writer, n *node, authorityFile, mintAddr, accountAddr, amountStr string) error {
	authority, err := readKeypair(authorityFile)
	if err != nil {
		return err
	}
	mint, err := parseAddress(mintAddr)
	if err != nil {
		return err
	}
	to, err := parseAddress(accountAddr)
	if err != nil {
		return err
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}

	err = n.db.Update(func(batch *database.Batch) error {
		return token.MintTo{Mint: mint, To: to, Authority: authority.PublicKey, Amount: amount}.
			Execute(batch, core.NewSignerSet(authority.PublicKey))
	})
	if err != nil {
		return err
	}
	printSuccess(w, "Issued %d to %s", amount, to.ToBase58())
	return nil
}

func balance(w io.Writer, n *node, address string) error {
	addr, err := parseAddress(address)
	if err != nil {
		return err
	}

	return n.db.View(func(batch *database.Batch) error {
		info, err := batch.Account(addr).Get()
		if err != nil {
			return err
		}
		printField(w, "Lamports", formatAmount(info.Lamports, 0))

		if info.Owner != protocol.TokenProgramID || info.Space != protocol.TokenAccountSize {
			return nil
		}
		account, _, err := token.LoadAccount(batch, addr)
		if err != nil {
			return err
		}
		mint, _, err := token.LoadMint(batch, account.Mint)
		if err != nil {
			return err
		}
		printField(w, "Mint", account.Mint.ToBase58())
		printField(w, "Owner", account.Owner.ToBase58())
		printField(w, "Tokens", formatAmount(account.Amount, mint.Decimals))
		return nil
	})
}
