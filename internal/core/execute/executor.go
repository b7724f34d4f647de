// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package execute

import (
	"context"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/defios/repotoken/internal/core"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/internal/logging"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
	"golang.org/x/exp/slog"
)

type Options struct {
	ProgramID protocol.PublicKey
	Database  *database.Database
	Logger    *slog.Logger

	// RequireCID rejects metadata references that are not valid CIDs.
	RequireCID bool

	// Registerer registers the executor's metrics. If nil the metrics are
	// collected but not registered.
	Registerer prometheus.Registerer
}

// Executor executes instructions against the ledger, one at a time.
type Executor struct {
	mu         sync.Mutex
	programID  protocol.PublicKey
	db         *database.Database
	logger     *slog.Logger
	requireCID bool
	metrics    *metrics
}

// Result describes an instruction that was committed.
type Result struct {
	Instruction protocol.InstructionType
	Hash        [32]byte
	Modified    []protocol.PublicKey
}

func New(opts Options) (*Executor, error) {
	if opts.Database == nil {
		return nil, errors.BadRequest.With("missing database")
	}
	if opts.ProgramID == (protocol.PublicKey{}) {
		return nil, errors.BadRequest.With("missing program ID")
	}

	x := new(Executor)
	x.programID = opts.ProgramID
	x.db = opts.Database
	x.requireCID = opts.RequireCID
	x.metrics = newMetrics(opts.Registerer)
	x.logger = opts.Logger
	if x.logger == nil {
		x.logger = slog.Default()
	}
	x.logger = x.logger.With("module", "executor")
	return x, nil
}

func (x *Executor) ProgramID() protocol.PublicKey { return x.programID }

// Execute verifies and executes an envelope. Either every effect of the
// instruction is committed or none is.
func (x *Executor) Execute(ctx context.Context, env *protocol.Envelope) (*Result, error) {
	start := time.Now()
	typ := protocol.InstructionTypeUnknown
	if ix, err := env.Message.Instruction(); err == nil {
		typ = ix.Type()
	}

	ctx = logging.With(ctx, "instruction", typ.String(), "repository", repositoryOf(env, typ))
	result, err := x.execute(ctx, env)
	code := errors.Code(err)

	x.metrics.instructions.WithLabelValues(typ.String(), code.String()).Inc()
	x.metrics.duration.WithLabelValues(typ.String()).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		x.logger.InfoCtx(ctx, "Committed", "modified", len(result.Modified))
	case code.IsClientError():
		x.logger.InfoCtx(ctx, "Rejected", "code", code, "error", err)
	default:
		x.logger.ErrorCtx(ctx, "Failed", "code", code, "error", err)
	}
	return result, err
}

func (x *Executor) execute(ctx context.Context, env *protocol.Envelope) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NotReady.WithFormat("execute: %w", err)
	}

	if env.Message.ProgramID != x.programID {
		return nil, errors.BadRequest.WithFormat("message is for program %v", env.Message.ProgramID.ToBase58())
	}

	signed, err := env.Verify()
	if err != nil {
		return nil, err
	}

	ix, err := env.Message.Instruction()
	if err != nil {
		return nil, err
	}

	executor, ok := executors[ix.Type()]
	if !ok {
		return nil, errors.BadRequest.WithFormat("unsupported instruction %v", ix.Type())
	}

	hash, err := env.Message.Hash()
	if err != nil {
		return nil, err
	}

	keys := make([]protocol.PublicKey, 0, len(signed))
	for k := range signed {
		keys = append(keys, k)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	batch := x.db.Begin(true)
	defer batch.Discard()

	st := &StateManager{
		Batch:      batch,
		ProgramID:  x.programID,
		Signers:    core.NewSignerSet(keys...),
		Accounts:   env.Message.Accounts,
		logger:     x.logger.With("instruction", ix.Type().String()),
		requireCID: x.requireCID,
	}

	x.logger.DebugCtx(ctx, "Accepted", "hash", logHash(hash))

	err = executor.Validate(st, ix)
	if err != nil {
		return nil, err
	}

	err = executor.Execute(st, ix)
	if err != nil {
		return nil, err
	}

	// The instruction may only change accounts it marked writable
	modified := batch.Modified()
	for _, addr := range modified {
		if !st.writable(addr) {
			return nil, errors.NotAllowed.WithFormat("%v was modified but is not writable", addr.ToBase58())
		}
	}

	err = batch.Commit()
	if err != nil {
		return nil, errors.UnknownError.WithFormat("commit: %w", err)
	}

	return &Result{Instruction: ix.Type(), Hash: hash, Modified: modified}, nil
}

// View runs fn against a read-only view of the ledger.
func (x *Executor) View(fn func(*database.Batch) error) error {
	return x.db.View(fn)
}

// Repository loads a repository record.
func (x *Executor) Repository(addr protocol.PublicKey) (protocol.RepositoryState, error) {
	var state protocol.RepositoryState
	err := x.db.View(func(batch *database.Batch) error {
		var err error
		state, err = LoadRepository(batch, x.programID, addr)
		return err
	})
	return state, err
}

// repositoryIndex is the position of the repository record in the accounts
// of each instruction.
var repositoryIndex = map[protocol.InstructionType]int{
	protocol.InstructionTypeInitializeRepo: initRepo,
	protocol.InstructionTypeUpdateRepo:     updateRepo,
	protocol.InstructionTypeBuyTokens:      buyRepo,
}

func repositoryOf(env *protocol.Envelope, typ protocol.InstructionType) string {
	i, ok := repositoryIndex[typ]
	if !ok || i >= len(env.Message.Accounts) {
		return ""
	}
	return env.Message.Accounts[i].PubKey.ToBase58()
}

func logHash(h [32]byte) string {
	return base58.Encode(h[:])
}
