// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package build

import (
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

type Errors []error

func (e Errors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var errs []string
	for _, e := range e {
		errs = append(errs, e.Error())
	}
	return strings.Join(errs, "; ")
}

type parser struct {
	errs []error
}

func (p *parser) ok() bool {
	return len(p.errs) == 0
}

func (p *parser) err() error {
	switch len(p.errs) {
	case 0:
		return nil
	case 1:
		return p.errs[0]
	default:
		return Errors(p.errs)
	}
}

func (p *parser) record(err ...error) {
	errs := make([]error, 0, len(p.errs)+len(err))
	errs = append(errs, p.errs...)
	errs = append(errs, err...)
	p.errs = errs
}

func (p *parser) errorf(code errors.Status, format string, args ...interface{}) {
	p.record(code.Skip(1).WithFormat(format, args...))
}

// parseKey accepts a public key, a keypair, a base58 string or 32 raw bytes.
func (p *parser) parseKey(v any) protocol.PublicKey {
	switch v := v.(type) {
	case protocol.PublicKey:
		return v
	case *protocol.PublicKey:
		if v == nil {
			p.errorf(errors.BadRequest, "missing key")
			return protocol.PublicKey{}
		}
		return *v
	case types.Account:
		return v.PublicKey
	case *types.Account:
		return v.PublicKey
	case string:
		k, err := protocol.ParsePublicKey(v)
		if err != nil {
			p.record(err)
		}
		return k
	case []byte:
		if len(v) != common.PublicKeyLength {
			p.errorf(errors.BadRequest, "invalid key: want %d bytes, got %d", common.PublicKeyLength, len(v))
			return protocol.PublicKey{}
		}
		return common.PublicKeyFromBytes(v)
	case nil:
		p.errorf(errors.BadRequest, "missing key")
	default:
		p.errorf(errors.BadRequest, "cannot use %T as a key", v)
	}
	return protocol.PublicKey{}
}
