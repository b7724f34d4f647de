// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package core holds what the ledger programs share.
package core

import (
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

// SignerSet is the set of keys that have authorized an instruction. It holds
// the keys that signed the envelope and any derived addresses the executing
// program has signed for by presenting their seeds.
type SignerSet struct {
	keys map[protocol.PublicKey]bool
}

func NewSignerSet(keys ...protocol.PublicKey) *SignerSet {
	s := &SignerSet{keys: make(map[protocol.PublicKey]bool, len(keys))}
	for _, k := range keys {
		s.keys[k] = true
	}
	return s
}

func (s *SignerSet) Has(key protocol.PublicKey) bool {
	return s != nil && s.keys[key]
}

// Require fails with Unauthenticated if key has not signed. role names the
// account in the error.
func (s *SignerSet) Require(key protocol.PublicKey, role string) error {
	if s.Has(key) {
		return nil
	}
	return errors.Unauthenticated.Skip(1).WithFormat("%s %v did not sign", role, key.ToBase58())
}

// WithProgramSigner returns a copy of the set that also includes the address
// derived from seeds under program. Only the program that owns the
// derivation can produce the seeds, so this is how a program signs for the
// accounts it controls.
func (s *SignerSet) WithProgramSigner(program protocol.PublicKey, label string, repo protocol.PublicKey, salt uint8) (*SignerSet, error) {
	addr, err := protocol.DerivedAddress(program, label, repo, salt)
	if err != nil {
		return nil, err
	}

	c := NewSignerSet(addr)
	if s != nil {
		for k := range s.keys {
			c.keys[k] = true
		}
	}
	return c, nil
}
