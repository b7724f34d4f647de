// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package database

import (
	"encoding"

	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

// Account is a ledger account within a batch.
type Account struct {
	batch   *Batch
	address protocol.PublicKey
}

func (a *Account) Address() protocol.PublicKey { return a.address }

// Get loads the account. Get fails with NotFound if the account has never
// been created.
func (a *Account) Get() (*protocol.AccountInfo, error) {
	b, err := a.batch.store.Get(accountKey(a.address))
	if err != nil {
		return nil, errors.UnknownError.WithFormat("load %v: %w", a.address.ToBase58(), err)
	}

	info := new(protocol.AccountInfo)
	err = info.UnmarshalBinary(b)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("load %v: %w", a.address.ToBase58(), err)
	}
	return info, nil
}

// GetOrEmpty loads the account, returning an empty account if it has never
// been created.
func (a *Account) GetOrEmpty() (*protocol.AccountInfo, error) {
	info, err := a.Get()
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, errors.NotFound):
		return new(protocol.AccountInfo), nil
	default:
		return nil, err
	}
}

// Put stores the account.
func (a *Account) Put(info *protocol.AccountInfo) error {
	b, err := info.MarshalBinary()
	if err != nil {
		return errors.UnknownError.WithFormat("store %v: %w", a.address.ToBase58(), err)
	}

	err = a.batch.store.Put(accountKey(a.address), b)
	if err != nil {
		return errors.UnknownError.WithFormat("store %v: %w", a.address.ToBase58(), err)
	}
	a.batch.dirty[a.address] = true
	return nil
}

// GetStateAs loads the account and decodes its data into v. It fails with
// WrongType if the account is not owned by owner.
func (a *Account) GetStateAs(owner protocol.PublicKey, v encoding.BinaryUnmarshaler) (*protocol.AccountInfo, error) {
	info, err := a.Get()
	if err != nil {
		return nil, err
	}
	if info.Owner != owner {
		return nil, errors.WrongType.WithFormat("%v is owned by %v, not %v", a.address.ToBase58(), info.Owner.ToBase58(), owner.ToBase58())
	}
	err = v.UnmarshalBinary(info.Data)
	if err != nil {
		return nil, errors.UnknownError.WithFormat("load %v: %w", a.address.ToBase58(), err)
	}
	return info, nil
}

// PutState encodes v into the account's data and stores the account.
func (a *Account) PutState(info *protocol.AccountInfo, v encoding.BinaryMarshaler) error {
	b, err := v.MarshalBinary()
	if err != nil {
		return errors.UnknownError.WithFormat("store %v: %w", a.address.ToBase58(), err)
	}
	if uint64(len(b)) > info.Space {
		return errors.AllocationFailure.WithFormat("store %v: state is %d bytes, exceeding its space of %d", a.address.ToBase58(), len(b), info.Space)
	}
	info.Data = b
	return a.Put(info)
}
