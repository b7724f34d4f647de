// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package protocol

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"
	"gitlab.com/defios/repotoken/pkg/errors"
)

// AccountMeta describes how an instruction uses an account.
type AccountMeta struct {
	PubKey     PublicKey
	IsSigner   bool
	IsWritable bool
}

// Message is an instruction addressed to a program, with the accounts it
// operates on listed by position.
type Message struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

func (m *Message) MarshalBinary() ([]byte, error) {
	b, err := borsh.Serialize(*m)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("encode message: %w", err)
	}
	return b, nil
}

func (m *Message) Hash() ([32]byte, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// Instruction decodes the message data.
func (m *Message) Instruction() (Instruction, error) {
	return UnmarshalInstruction(m.Data)
}

type Signature struct {
	PublicKey PublicKey
	Signature []byte
}

// Envelope is a message and the signatures of the accounts the message marks
// as signers.
type Envelope struct {
	Message    Message
	Signatures []Signature
}

// NewEnvelope builds an unsigned envelope for an instruction.
func NewEnvelope(program PublicKey, ix Instruction, accounts ...AccountMeta) (*Envelope, error) {
	data, err := MarshalInstruction(ix)
	if err != nil {
		return nil, err
	}
	return &Envelope{Message: Message{ProgramID: program, Accounts: accounts, Data: data}}, nil
}

// Sign adds a signature from each of the given keypairs.
func (e *Envelope) Sign(signers ...types.Account) error {
	msg, err := e.Message.MarshalBinary()
	if err != nil {
		return err
	}
	for _, s := range signers {
		e.Signatures = append(e.Signatures, Signature{
			PublicKey: s.PublicKey,
			Signature: s.Sign(msg),
		})
	}
	return nil
}

// Verify checks every signature and returns the set of keys that signed.
// Every account the message marks as a signer must have a valid signature.
func (e *Envelope) Verify() (map[PublicKey]bool, error) {
	msg, err := e.Message.MarshalBinary()
	if err != nil {
		return nil, err
	}

	signed := make(map[PublicKey]bool, len(e.Signatures))
	for _, sig := range e.Signatures {
		if !ed25519.Verify(ed25519.PublicKey(sig.PublicKey.Bytes()), msg, sig.Signature) {
			return nil, errors.Unauthenticated.WithFormat("invalid signature from %v", sig.PublicKey.ToBase58())
		}
		signed[sig.PublicKey] = true
	}

	for _, meta := range e.Message.Accounts {
		if meta.IsSigner && !signed[meta.PubKey] {
			return nil, errors.Unauthenticated.WithFormat("missing signature from %v", meta.PubKey.ToBase58())
		}
	}
	return signed, nil
}
