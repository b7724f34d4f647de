// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package database

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// A Key is the composite key of a stored value, such as
// ("Account", address, "Data").
type Key struct {
	values []any
}

// KeyHash is the storage form of a [Key].
type KeyHash [32]byte

func NewKey(v ...any) *Key {
	return &Key{v}
}

func (k *Key) Len() int {
	if k == nil {
		return 0
	}
	return len(k.values)
}

func (k *Key) Get(i int) any {
	if i < 0 || i >= k.Len() {
		return nil
	}
	return k.values[i]
}

// Append creates a child key of this key.
func (k *Key) Append(v ...any) *Key {
	if len(v) == 0 {
		return k
	}
	if k.Len() == 0 {
		return &Key{v}
	}
	l := make([]any, len(k.values)+len(v))
	n := copy(l, k.values)
	copy(l[n:], v)
	return &Key{l}
}

// AppendKey appends one key to another.
func (k *Key) AppendKey(l *Key) *Key {
	if k.Len() == 0 {
		return l
	}
	if l.Len() == 0 {
		return k
	}
	return k.Append(l.values...)
}

// Equal checks if the two keys hash to the same value.
func (k *Key) Equal(l *Key) bool {
	return k.Hash() == l.Hash()
}

// Hash converts the key to a storage key. Each part is folded into the hash
// as sha256(previous || part).
func (k *Key) Hash() KeyHash {
	var h KeyHash
	for i := 0; i < k.Len(); i++ {
		part := keyPartBytes(k.values[i])
		b := make([]byte, len(h)+len(part))
		copy(b, h[:])
		copy(b[len(h):], part)
		h = sha256.Sum256(b)
	}
	return h
}

// String returns a human-readable string for the key.
func (k *Key) String() string {
	if k.Len() == 0 {
		return "()"
	}
	s := make([]string, len(k.values))
	for i, v := range k.values {
		switch v := v.(type) {
		case []byte:
			s[i] = hex.EncodeToString(v)
		case string:
			s[i] = v
		default:
			s[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(s, ".")
}

func keyPartBytes(v any) []byte {
	switch v := v.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	case [32]byte:
		return v[:]
	case interface{ Bytes() []byte }:
		return v.Bytes()
	case uint64:
		return binary.BigEndian.AppendUint64(nil, v)
	case int:
		return binary.BigEndian.AppendUint64(nil, uint64(v))
	case uint8:
		return []byte{v}
	default:
		return []byte(fmt.Sprint(v))
	}
}
