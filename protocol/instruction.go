// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package protocol

import (
	"bytes"
	"crypto/sha256"

	"github.com/near/borsh-go"
	"gitlab.com/defios/repotoken/pkg/errors"
)

type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota
	InstructionTypeInitializeRepo
	InstructionTypeUpdateRepo
	InstructionTypeBuyTokens
)

var instructionNames = map[InstructionType]string{
	InstructionTypeInitializeRepo: "initialize_repo",
	InstructionTypeUpdateRepo:     "update_repo",
	InstructionTypeBuyTokens:      "buy_tokens",
}

func (t InstructionType) String() string {
	if s, ok := instructionNames[t]; ok {
		return s
	}
	return "unknown"
}

// discriminator is the 8-byte prefix of the instruction's data.
func (t InstructionType) discriminator() discriminator {
	var d discriminator
	h := sha256.Sum256([]byte("global:" + t.String()))
	copy(d[:], h[:])
	return d
}

// Instruction is the decoded body of a program instruction.
type Instruction interface {
	Type() InstructionType
}

// InitializeRepo creates a repository, its token mint, its vault and its
// treasury.
type InitializeRepo struct {
	IpfsHash     string
	VaultSalt    uint8
	TreasurySalt uint8
}

// UpdateRepo replaces the metadata reference of a repository.
type UpdateRepo struct {
	IpfsHash string
}

// BuyTokens exchanges Amount reference tokens for Amount repository tokens.
type BuyTokens struct {
	Amount uint64
}

func (*InitializeRepo) Type() InstructionType { return InstructionTypeInitializeRepo }
func (*UpdateRepo) Type() InstructionType     { return InstructionTypeUpdateRepo }
func (*BuyTokens) Type() InstructionType      { return InstructionTypeBuyTokens }

func newInstruction(typ InstructionType) (Instruction, bool) {
	switch typ {
	case InstructionTypeInitializeRepo:
		return new(InitializeRepo), true
	case InstructionTypeUpdateRepo:
		return new(UpdateRepo), true
	case InstructionTypeBuyTokens:
		return new(BuyTokens), true
	}
	return nil, false
}

// MarshalInstruction encodes an instruction as its discriminator followed by
// its borsh-encoded arguments.
func MarshalInstruction(ix Instruction) ([]byte, error) {
	// Encode the value, since borsh encodes a pointer as an option
	var v any
	switch ix := ix.(type) {
	case *InitializeRepo:
		v = *ix
	case *UpdateRepo:
		v = *ix
	case *BuyTokens:
		v = *ix
	default:
		return nil, errors.BadRequest.WithFormat("unknown instruction %T", ix)
	}

	d := ix.Type().discriminator()
	b, err := borsh.Serialize(v)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("encode %v: %w", ix.Type(), err)
	}
	return append(d[:], b...), nil
}

// UnmarshalInstruction decodes instruction data produced by
// [MarshalInstruction].
func UnmarshalInstruction(data []byte) (Instruction, error) {
	if len(data) < discriminatorSize {
		return nil, errors.BadRequest.With("instruction data is too short")
	}
	for typ := range instructionNames {
		d := typ.discriminator()
		if !bytes.Equal(data[:discriminatorSize], d[:]) {
			continue
		}
		ix, _ := newInstruction(typ)
		err := borsh.Deserialize(ix, data[discriminatorSize:])
		if err != nil {
			return nil, errors.EncodingError.WithFormat("decode %v: %w", typ, err)
		}
		return ix, nil
	}
	return nil, errors.BadRequest.WithFormat("unknown instruction %x", data[:discriminatorSize])
}
