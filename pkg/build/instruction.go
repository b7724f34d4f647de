// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package build assembles signed instruction envelopes for the repository
// token program.
package build

import (
	"github.com/blocto/solana-go-sdk/types"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

func signer(key protocol.PublicKey) protocol.AccountMeta {
	return protocol.AccountMeta{PubKey: key, IsSigner: true, IsWritable: true}
}

func writable(key protocol.PublicKey) protocol.AccountMeta {
	return protocol.AccountMeta{PubKey: key, IsWritable: true}
}

func readonly(key protocol.PublicKey) protocol.AccountMeta {
	return protocol.AccountMeta{PubKey: key}
}

// derived holds either an explicit address or a salt to derive it from. If
// neither is set, the address is found by searching for the canonical salt.
type derived struct {
	addr *protocol.PublicKey
	salt *uint8
}

func (p *parser) resolveDerived(d derived, program protocol.PublicKey, label string, repo protocol.PublicKey) (protocol.PublicKey, uint8) {
	switch {
	case d.addr != nil:
		var salt uint8
		if d.salt != nil {
			salt = *d.salt
		}
		return *d.addr, salt
	case d.salt != nil:
		addr, err := protocol.DerivedAddress(program, label, repo, *d.salt)
		if err != nil {
			p.record(err)
		}
		return addr, *d.salt
	default:
		addr, salt, err := protocol.FindDerivedAddress(program, label, repo)
		if err != nil {
			p.record(err)
		}
		return addr, salt
	}
}

type InitializeRepoBuilder struct {
	parser
	program      protocol.PublicKey
	repo         protocol.PublicKey
	creator      protocol.PublicKey
	exchangeMint protocol.PublicKey
	mint         protocol.PublicKey
	vault        derived
	treasury     derived
	ipfsHash     string
}

// InitializeRepo starts an initialize_repo envelope for the given program.
func InitializeRepo(program any) InitializeRepoBuilder {
	var b InitializeRepoBuilder
	b.program = b.parseKey(program)
	return b
}

func (b InitializeRepoBuilder) Repository(key any) InitializeRepoBuilder {
	b.repo = b.parseKey(key)
	return b
}

func (b InitializeRepoBuilder) Creator(key any) InitializeRepoBuilder {
	b.creator = b.parseKey(key)
	return b
}

func (b InitializeRepoBuilder) ExchangeMint(key any) InitializeRepoBuilder {
	b.exchangeMint = b.parseKey(key)
	return b
}

func (b InitializeRepoBuilder) Mint(key any) InitializeRepoBuilder {
	b.mint = b.parseKey(key)
	return b
}

func (b InitializeRepoBuilder) IpfsHash(s string) InitializeRepoBuilder {
	b.ipfsHash = s
	return b
}

// Salts sets the vault and treasury salts. Without them the canonical salts
// are used.
func (b InitializeRepoBuilder) Salts(vault, treasury uint8) InitializeRepoBuilder {
	b.vault.salt, b.treasury.salt = &vault, &treasury
	return b
}

// Vault overrides the derived vault address. The salt is still taken from
// [InitializeRepoBuilder.Salts].
func (b InitializeRepoBuilder) Vault(key any) InitializeRepoBuilder {
	k := b.parseKey(key)
	b.vault.addr = &k
	return b
}

func (b InitializeRepoBuilder) Treasury(key any) InitializeRepoBuilder {
	k := b.parseKey(key)
	b.treasury.addr = &k
	return b
}

func (b InitializeRepoBuilder) Build() (*protocol.Envelope, error) {
	vault, vaultSalt := b.resolveDerived(b.vault, b.program, protocol.SeedRepoVault, b.repo)
	treasury, treasurySalt := b.resolveDerived(b.treasury, b.program, protocol.SeedRepoTreasury, b.repo)
	if !b.ok() {
		return nil, b.err()
	}

	return protocol.NewEnvelope(b.program,
		&protocol.InitializeRepo{IpfsHash: b.ipfsHash, VaultSalt: vaultSalt, TreasurySalt: treasurySalt},
		signer(b.repo),
		signer(b.creator),
		readonly(b.exchangeMint),
		signer(b.mint),
		writable(vault),
		writable(treasury),
		readonly(protocol.SystemProgramID),
		readonly(protocol.TokenProgramID),
		readonly(protocol.SysVarRentPubkey),
	)
}

func (b InitializeRepoBuilder) SignWith(keys ...types.Account) (*protocol.Envelope, error) {
	return sign(b.Build())(keys...)
}

type UpdateRepoBuilder struct {
	parser
	program  protocol.PublicKey
	repo     protocol.PublicKey
	signer   protocol.PublicKey
	ipfsHash string
}

// UpdateRepo starts an update_repo envelope for the given program.
func UpdateRepo(program any) UpdateRepoBuilder {
	var b UpdateRepoBuilder
	b.program = b.parseKey(program)
	return b
}

func (b UpdateRepoBuilder) Repository(key any) UpdateRepoBuilder {
	b.repo = b.parseKey(key)
	return b
}

func (b UpdateRepoBuilder) Signer(key any) UpdateRepoBuilder {
	b.signer = b.parseKey(key)
	return b
}

func (b UpdateRepoBuilder) IpfsHash(s string) UpdateRepoBuilder {
	b.ipfsHash = s
	return b
}

func (b UpdateRepoBuilder) Build() (*protocol.Envelope, error) {
	if !b.ok() {
		return nil, b.err()
	}
	return protocol.NewEnvelope(b.program,
		&protocol.UpdateRepo{IpfsHash: b.ipfsHash},
		writable(b.repo),
		protocol.AccountMeta{PubKey: b.signer, IsSigner: true},
		readonly(protocol.SystemProgramID),
	)
}

func (b UpdateRepoBuilder) SignWith(keys ...types.Account) (*protocol.Envelope, error) {
	return sign(b.Build())(keys...)
}

type BuyTokensBuilder struct {
	parser
	program       protocol.PublicKey
	buyer         protocol.PublicKey
	repo          protocol.PublicKey
	exchangeMint  protocol.PublicKey
	vault         derived
	treasury      derived
	buyerExchange protocol.PublicKey
	buyerTokens   protocol.PublicKey
	amount        uint64
}

// BuyTokens starts a buy_tokens envelope for the given program.
func BuyTokens(program any) BuyTokensBuilder {
	var b BuyTokensBuilder
	b.program = b.parseKey(program)
	return b
}

func (b BuyTokensBuilder) Buyer(key any) BuyTokensBuilder {
	b.buyer = b.parseKey(key)
	return b
}

// Repository sets the repository and takes its exchange mint and salts from
// the record.
func (b BuyTokensBuilder) Repository(key any, record *protocol.Repository) BuyTokensBuilder {
	b.repo = b.parseKey(key)
	if record == nil {
		return b
	}
	b.exchangeMint = record.ExchangeTokenMint()
	vault, treasury := record.Salts().Vault(), record.Salts().Treasury()
	b.vault.salt, b.treasury.salt = &vault, &treasury
	return b
}

func (b BuyTokensBuilder) ExchangeMint(key any) BuyTokensBuilder {
	b.exchangeMint = b.parseKey(key)
	return b
}

func (b BuyTokensBuilder) Vault(key any) BuyTokensBuilder {
	k := b.parseKey(key)
	b.vault.addr = &k
	return b
}

func (b BuyTokensBuilder) Treasury(key any) BuyTokensBuilder {
	k := b.parseKey(key)
	b.treasury.addr = &k
	return b
}

// From sets the buyer's reference-token account that pays.
func (b BuyTokensBuilder) From(key any) BuyTokensBuilder {
	b.buyerExchange = b.parseKey(key)
	return b
}

// To sets the buyer's repository-token account that receives.
func (b BuyTokensBuilder) To(key any) BuyTokensBuilder {
	b.buyerTokens = b.parseKey(key)
	return b
}

func (b BuyTokensBuilder) Amount(amount uint64) BuyTokensBuilder {
	b.amount = amount
	return b
}

func (b BuyTokensBuilder) Build() (*protocol.Envelope, error) {
	vault, _ := b.resolveDerived(b.vault, b.program, protocol.SeedRepoVault, b.repo)
	treasury, _ := b.resolveDerived(b.treasury, b.program, protocol.SeedRepoTreasury, b.repo)
	if !b.ok() {
		return nil, b.err()
	}

	return protocol.NewEnvelope(b.program,
		&protocol.BuyTokens{Amount: b.amount},
		signer(b.buyer),
		readonly(b.repo),
		readonly(b.exchangeMint),
		writable(vault),
		writable(treasury),
		writable(b.buyerExchange),
		writable(b.buyerTokens),
		readonly(protocol.TokenProgramID),
	)
}

func (b BuyTokensBuilder) SignWith(keys ...types.Account) (*protocol.Envelope, error) {
	return sign(b.Build())(keys...)
}

func sign(env *protocol.Envelope, err error) func(...types.Account) (*protocol.Envelope, error) {
	return func(keys ...types.Account) (*protocol.Envelope, error) {
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, errors.BadRequest.With("no signers")
		}
		err = env.Sign(keys...)
		if err != nil {
			return nil, err
		}
		return env, nil
	}
}
