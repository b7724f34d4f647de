// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package execute

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gitlab.com/defios/repotoken/internal/core/token"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/internal/logging"
	"gitlab.com/defios/repotoken/pkg/build"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

// repoFixture is an initialized repository and a buyer holding 1,000
// reference tokens.
type repoFixture struct {
	*harness
	creator      types.Account
	repo         types.Account
	mint         types.Account
	exchangeMint protocol.PublicKey
	vault        protocol.PublicKey
	treasury     protocol.PublicKey

	buyer     types.Account
	buyerRef  protocol.PublicKey
	buyerRepo protocol.PublicKey
}

func setupRepo(t *testing.T, opts ...func(*Options)) *repoFixture {
	f := &repoFixture{harness: newHarness(t, opts...)}
	f.creator = f.wallet()
	f.repo = repoKeyWithSalts(t, f.program, 7, 9)
	f.mint = types.NewAccount()
	f.exchangeMint = f.createMint()

	var err error
	f.vault, err = protocol.RepoVaultAddress(f.program, f.repo.PublicKey, 7)
	require.NoError(t, err)
	f.treasury, err = protocol.RepoTreasuryAddress(f.program, f.repo.PublicKey, 9)
	require.NoError(t, err)

	require.NoError(t, f.submit(f.initialize("Qm123").SignWith(f.repo, f.creator, f.mint)))

	f.buyer = f.wallet()
	f.buyerRef = f.createTokenAccount(f.exchangeMint, f.buyer.PublicKey)
	f.buyerRepo = f.createTokenAccount(f.mint.PublicKey, f.buyer.PublicKey)
	f.issue(f.exchangeMint, f.buyerRef, 1_000)
	return f
}

func (f *repoFixture) initialize(ipfsHash string) build.InitializeRepoBuilder {
	return build.InitializeRepo(f.program).
		Repository(f.repo).
		Creator(f.creator).
		ExchangeMint(f.exchangeMint).
		Mint(f.mint).
		IpfsHash(ipfsHash).
		Salts(7, 9)
}

func (f *repoFixture) buy(amount uint64) build.BuyTokensBuilder {
	return build.BuyTokens(f.program).
		Buyer(f.buyer).
		Repository(f.repo, f.active(f.repo.PublicKey)).
		From(f.buyerRef).
		To(f.buyerRepo).
		Amount(amount)
}

func (f *repoFixture) updateRepo(signer types.Account, ipfsHash string) error {
	return f.submit(build.UpdateRepo(f.program).
		Repository(f.repo).
		Signer(signer).
		IpfsHash(ipfsHash).
		SignWith(signer))
}

type balances struct{ vault, treasury, buyerRef, buyerRepo uint64 }

func (f *repoFixture) balances() balances {
	return balances{
		vault:     f.balance(f.vault),
		treasury:  f.balance(f.treasury),
		buyerRef:  f.balance(f.buyerRef),
		buyerRepo: f.balance(f.buyerRepo),
	}
}

func TestScenario(t *testing.T) {
	f := setupRepo(t)

	repo := f.active(f.repo.PublicKey)
	require.Equal(t, "Qm123", repo.IpfsHash())
	require.Equal(t, f.exchangeMint, repo.ExchangeTokenMint())
	require.Equal(t, uint8(7), repo.Salts().Vault())
	require.Equal(t, uint8(9), repo.Salts().Treasury())
	require.Equal(t, f.creator.PublicKey, repo.Authority())
	require.Equal(t, balances{vault: 1_000_000, buyerRef: 1_000}, f.balances())

	require.NoError(t, f.submit(f.buy(500).SignWith(f.buyer)))
	require.Equal(t, balances{vault: 999_500, treasury: 500, buyerRef: 500, buyerRepo: 500}, f.balances())
}

func TestInitializeRepoCreatesMint(t *testing.T) {
	f := setupRepo(t)

	var mint *protocol.Mint
	require.NoError(t, f.x.View(func(batch *database.Batch) error {
		var err error
		mint, _, err = token.LoadMint(batch, f.mint.PublicKey)
		return err
	}))
	require.Equal(t, protocol.RepoTokenDecimals, mint.Decimals)
	require.Equal(t, protocol.InitialVaultSupply, mint.Supply)
	require.Equal(t, f.creator.PublicKey, *mint.MintAuthority)
	require.Equal(t, f.creator.PublicKey, *mint.FreezeAuthority)
}

func TestInitializeRepoTwice(t *testing.T) {
	f := setupRepo(t)
	f.mint = types.NewAccount()
	err := f.submit(f.initialize("Qm456").SignWith(f.repo, f.creator, f.mint))
	f.requireCode(errors.AlreadyInitialized, err)

	// The original record is untouched
	require.Equal(t, "Qm123", f.active(f.repo.PublicKey).IpfsHash())
	require.False(t, f.exists(f.mint.PublicKey))
}

func TestInitializeRepoWrongSalt(t *testing.T) {
	h := newHarness(t)
	f := &repoFixture{harness: h, creator: h.wallet(), mint: types.NewAccount(), exchangeMint: h.createMint()}
	f.repo = repoKeyWithSalts(t, f.program, 7, 9)

	// A vault address that was not derived with the supplied salt
	err := f.submit(f.initialize("Qm123").Vault(types.NewAccount().PublicKey).SignWith(f.repo, f.creator, f.mint))
	f.requireCode(errors.IdentityMismatch, err)

	err = f.submit(f.initialize("Qm123").Treasury(types.NewAccount().PublicKey).SignWith(f.repo, f.creator, f.mint))
	f.requireCode(errors.IdentityMismatch, err)

	require.Equal(t, protocol.Uninitialized{}, f.repository(f.repo.PublicKey))
}

func TestInitializeRepoUnfunded(t *testing.T) {
	h := newHarness(t)
	f := &repoFixture{harness: h, creator: types.NewAccount(), mint: types.NewAccount(), exchangeMint: h.createMint()}
	f.repo = repoKeyWithSalts(t, f.program, 7, 9)

	// Enough for the record but not for everything else
	f.fund(f.creator.PublicKey, 3_000_000)
	err := f.submit(f.initialize("Qm123").SignWith(f.repo, f.creator, f.mint))
	f.requireCode(errors.AllocationFailure, err)

	// Nothing persists
	require.Equal(t, protocol.Uninitialized{}, f.repository(f.repo.PublicKey))
	require.False(t, f.exists(f.mint.PublicKey))
}

func TestInitializeRepoHashTooLong(t *testing.T) {
	h := newHarness(t)
	f := &repoFixture{harness: h, creator: h.wallet(), mint: types.NewAccount(), exchangeMint: h.createMint()}
	f.repo = repoKeyWithSalts(t, f.program, 7, 9)

	err := f.submit(f.initialize(strings.Repeat("Q", protocol.MaxIpfsHashLength+1)).SignWith(f.repo, f.creator, f.mint))
	f.requireCode(errors.BadRequest, err)

	err = f.submit(f.initialize(strings.Repeat("Q", protocol.MaxIpfsHashLength)).SignWith(f.repo, f.creator, f.mint))
	require.NoError(t, err)
}

func TestInitializeRepoRequiresSignatures(t *testing.T) {
	h := newHarness(t)
	f := &repoFixture{harness: h, creator: h.wallet(), mint: types.NewAccount(), exchangeMint: h.createMint()}
	f.repo = repoKeyWithSalts(t, f.program, 7, 9)

	err := f.submit(f.initialize("Qm123").SignWith(f.creator, f.mint))
	f.requireCode(errors.Unauthenticated, err)
}

func TestInitializeRepoExchangeMintMustExist(t *testing.T) {
	h := newHarness(t)
	f := &repoFixture{harness: h, creator: h.wallet(), mint: types.NewAccount(), exchangeMint: types.NewAccount().PublicKey}
	f.repo = repoKeyWithSalts(t, f.program, 7, 9)

	err := f.submit(f.initialize("Qm123").SignWith(f.repo, f.creator, f.mint))
	f.requireCode(errors.NotFound, err)
}

func TestUpdateRepo(t *testing.T) {
	f := setupRepo(t)
	before := f.active(f.repo.PublicKey)

	require.NoError(t, f.updateRepo(f.creator, "s1"))
	require.NoError(t, f.updateRepo(f.creator, "s2"))

	after := f.active(f.repo.PublicKey)
	require.Equal(t, "s2", after.IpfsHash())
	require.Equal(t, before.Salts(), after.Salts())
	require.Equal(t, before.ExchangeTokenMint(), after.ExchangeTokenMint())
	require.Equal(t, before.Authority(), after.Authority())
}

func TestUpdateRepoUnauthorized(t *testing.T) {
	f := setupRepo(t)
	f.requireCode(errors.Unauthorized, f.updateRepo(f.buyer, "mallory"))
	require.Equal(t, "Qm123", f.active(f.repo.PublicKey).IpfsHash())
}

func TestUpdateRepoUninitialized(t *testing.T) {
	h := newHarness(t)
	creator := h.wallet()
	err := h.submit(build.UpdateRepo(h.program).
		Repository(types.NewAccount()).
		Signer(creator).
		IpfsHash("Qm456").
		SignWith(creator))
	h.requireCode(errors.NotFound, err)
}

func TestUpdateRepoHashTooLong(t *testing.T) {
	f := setupRepo(t)
	f.requireCode(errors.BadRequest, f.updateRepo(f.creator, strings.Repeat("x", protocol.MaxIpfsHashLength+1)))
}

func TestBuyTokensInsufficientFunds(t *testing.T) {
	cases := map[string]uint64{
		"Buyer": 1_001,
		"Vault": protocol.InitialVaultSupply + 1,
	}
	for name, amount := range cases {
		t.Run(name, func(t *testing.T) {
			f := setupRepo(t)
			if name == "Vault" {
				// Give the buyer enough that only the vault is short
				f.issue(f.exchangeMint, f.buyerRef, amount)
			}
			before := f.balances()

			err := f.submit(f.buy(amount).SignWith(f.buyer))
			f.requireCode(errors.InsufficientFunds, err)
			require.Equal(t, before, f.balances())
		})
	}
}

func TestBuyTokensTamperedSalt(t *testing.T) {
	f := setupRepo(t)

	// Derive the custody accounts from salts other than the recorded ones
	for salt := uint8(0); salt < 255; salt++ {
		if salt == 7 {
			continue
		}
		vault, err := protocol.RepoVaultAddress(f.program, f.repo.PublicKey, salt)
		if err != nil {
			continue
		}

		before := f.balances()
		err = f.submit(f.buy(10).Vault(vault).SignWith(f.buyer))
		f.requireCode(errors.IdentityMismatch, err)
		require.Equal(t, before, f.balances())
		break
	}

	// Same for the treasury
	err := f.submit(f.buy(10).Treasury(f.vault).SignWith(f.buyer))
	f.requireCode(errors.IdentityMismatch, err)
}

func TestBuyTokensWrongExchangeMint(t *testing.T) {
	f := setupRepo(t)
	other := f.createMint()

	err := f.submit(f.buy(10).ExchangeMint(other).SignWith(f.buyer))
	f.requireCode(errors.IdentityMismatch, err)

	// Paying from an account of another mint
	from := f.createTokenAccount(other, f.buyer.PublicKey)
	f.issue(other, from, 100)
	err = f.submit(f.buy(10).From(from).SignWith(f.buyer))
	f.requireCode(errors.IdentityMismatch, err)

	// Receiving into an account of another mint
	to := f.createTokenAccount(other, f.buyer.PublicKey)
	err = f.submit(f.buy(10).To(to).SignWith(f.buyer))
	f.requireCode(errors.IdentityMismatch, err)
}

func TestBuyTokensBuyerMustOwnSource(t *testing.T) {
	f := setupRepo(t)
	mallory := f.wallet()
	to := f.createTokenAccount(f.mint.PublicKey, mallory.PublicKey)

	err := f.submit(f.buy(10).Buyer(mallory).To(to).SignWith(mallory))
	f.requireCode(errors.Unauthorized, err)
	require.Equal(t, uint64(1_000), f.balance(f.buyerRef))
}

func TestBuyTokensIntoVault(t *testing.T) {
	f := setupRepo(t)
	before := f.balances()

	// Paying out of the vault into the vault would credit the buyer nothing
	f.requireCode(errors.BadRequest, f.submit(f.buy(10).To(f.vault).SignWith(f.buyer)))
	require.Equal(t, before, f.balances())
}

func TestBuyTokensZero(t *testing.T) {
	f := setupRepo(t)
	f.requireCode(errors.BadRequest, f.submit(f.buy(0).SignWith(f.buyer)))
}

func TestBuyTokensUninitialized(t *testing.T) {
	f := setupRepo(t)
	err := f.submit(build.BuyTokens(f.program).
		Buyer(f.buyer).
		Repository(types.NewAccount(), nil).
		ExchangeMint(f.exchangeMint).
		Vault(f.vault).
		Treasury(f.treasury).
		From(f.buyerRef).
		To(f.buyerRepo).
		Amount(10).
		SignWith(f.buyer))
	f.requireCode(errors.NotFound, err)
}

func TestEnvelopeChecks(t *testing.T) {
	f := setupRepo(t)

	// Unsigned
	env, err := f.buy(10).Build()
	require.NoError(t, err)
	f.requireCode(errors.Unauthenticated, f.submit(env, nil))

	// Addressed to another program
	env, err = f.buy(10).SignWith(f.buyer)
	require.NoError(t, err)
	env.Message.ProgramID = protocol.TokenProgramID
	f.requireCode(errors.BadRequest, f.submit(env, nil))

	// Too few accounts
	env, err = f.buy(10).Build()
	require.NoError(t, err)
	env.Message.Accounts = env.Message.Accounts[:3]
	require.NoError(t, env.Sign(f.buyer))
	f.requireCode(errors.BadRequest, f.submit(env, nil))

	// The vault must be writable
	env, err = f.buy(10).Build()
	require.NoError(t, err)
	env.Message.Accounts[buyVault].IsWritable = false
	require.NoError(t, env.Sign(f.buyer))
	f.requireCode(errors.BadRequest, f.submit(env, nil))

	// The token program must be the real one
	env, err = f.buy(10).Build()
	require.NoError(t, err)
	env.Message.Accounts[len(env.Message.Accounts)-1].PubKey = types.NewAccount().PublicKey
	require.NoError(t, env.Sign(f.buyer))
	f.requireCode(errors.IdentityMismatch, f.submit(env, nil))
}

func TestCanceledContext(t *testing.T) {
	f := setupRepo(t)
	env, err := f.buy(10).SignWith(f.buyer)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.x.Execute(ctx, env)
	f.requireCode(errors.NotReady, err)
	require.Equal(t, uint64(1_000), f.balance(f.buyerRef))
}

func TestRequireCID(t *testing.T) {
	requireCID := func(o *Options) { o.RequireCID = true }

	h := newHarness(t, requireCID)
	f := &repoFixture{harness: h, creator: h.wallet(), mint: types.NewAccount(), exchangeMint: h.createMint()}
	f.repo = repoKeyWithSalts(t, f.program, 7, 9)

	err := f.submit(f.initialize("Qm123").SignWith(f.repo, f.creator, f.mint))
	f.requireCode(errors.BadRequest, err)

	err = f.submit(f.initialize("bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi").SignWith(f.repo, f.creator, f.mint))
	require.NoError(t, err)
}

func TestMetrics(t *testing.T) {
	f := setupRepo(t)
	require.NoError(t, f.submit(f.buy(1).SignWith(f.buyer)))
	f.requireCode(errors.InsufficientFunds, f.submit(f.buy(10_000).SignWith(f.buyer)))

	m := f.x.metrics.instructions
	require.Equal(t, 1.0, testutil.ToFloat64(m.WithLabelValues("initialize_repo", errors.OK.String())))
	require.Equal(t, 1.0, testutil.ToFloat64(m.WithLabelValues("buy_tokens", errors.OK.String())))
	require.Equal(t, 1.0, testutil.ToFloat64(m.WithLabelValues("buy_tokens", errors.InsufficientFunds.String())))
}

func TestLogging(t *testing.T) {
	buf := new(bytes.Buffer)
	rules, err := logging.ParseRules("error;executor=info")
	require.NoError(t, err)
	logger, err := logging.New(logging.Config{Format: "json", Rules: rules}, buf)
	require.NoError(t, err)

	f := setupRepo(t, func(o *Options) { o.Logger = logger })
	require.Contains(t, buf.String(), `"message":"Committed"`)
	require.Contains(t, buf.String(), `"instruction":"initialize_repo"`)
	require.Contains(t, buf.String(), `"repository":"`+f.repo.PublicKey.ToBase58()+`"`)

	buf.Reset()
	f.requireCode(errors.InsufficientFunds, f.submit(f.buy(10_000).SignWith(f.buyer)))
	require.Contains(t, buf.String(), `"message":"Rejected"`)
	require.Contains(t, buf.String(), `"code":"insufficientFunds"`)

	// Debug records are below the executor's level
	require.NotContains(t, buf.String(), "Accepted")
}
