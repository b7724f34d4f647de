// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/blocto/solana-go-sdk/types"
	"gitlab.com/defios/repotoken/pkg/errors"
)

// readKeypair loads a keypair file in the solana-keygen format, a JSON array
// of the 64 bytes of the private key.
func readKeypair(file string) (types.Account, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return types.Account{}, errors.NotFound.WithFormat("read keypair: %w", err)
	}
	return decodeKeypair(data)
}

func decodeKeypair(data []byte) (types.Account, error) {
	var ints []int
	err := json.Unmarshal(data, &ints)
	if err != nil {
		return types.Account{}, errors.EncodingError.WithFormat("decode keypair: %w", err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return types.Account{}, errors.BadRequest.WithFormat("keypair has %d bytes, want %d", len(ints), ed25519.PrivateKeySize)
	}

	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return types.Account{}, errors.BadRequest.WithFormat("keypair byte %d is out of range", i)
		}
		b[i] = byte(v)
	}

	account, err := types.AccountFromBytes(b)
	if err != nil {
		return types.Account{}, errors.BadRequest.WithFormat("decode keypair: %w", err)
	}
	return account, nil
}

func encodeKeypair(account types.Account) ([]byte, error) {
	ints := make([]int, len(account.PrivateKey))
	for i, v := range account.PrivateKey {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// writeKeypair writes a keypair file. It refuses to overwrite an existing
// file.
func writeKeypair(file string, account types.Account) error {
	data, err := encodeKeypair(account)
	if err != nil {
		return errors.EncodingError.WithFormat("encode keypair: %w", err)
	}

	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return errors.Conflict.WithFormat("%s already exists", file)
		}
		return errors.UnknownError.WithFormat("create keypair: %w", err)
	}
	defer f.Close()

	_, err = f.Write(data)
	if err != nil {
		return errors.UnknownError.WithFormat("write keypair: %w", err)
	}
	return nil
}
