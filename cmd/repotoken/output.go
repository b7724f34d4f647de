// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"gitlab.com/defios/repotoken/pkg/errors"
)

var (
	labelColor   = color.New(color.FgHiBlack)
	successColor = color.New(color.FgGreen)
)

// printField prints a labeled value.
func printField(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%s %v\n", labelColor.Sprintf("%-16s", label+":"), value)
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, successColor.Sprintf(format, args...))
}

// formatAmount renders a raw token amount in whole units, for example
// 1,500.25 for 1500250000000 with 9 decimals.
func formatAmount(amount uint64, decimals uint8) string {
	v := new(big.Float).SetUint64(amount)
	if decimals > 0 {
		d := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
		v.Quo(v, d)
	}
	return humanize.BigCommaf(v)
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.BadRequest.WithFormat("invalid amount %q: %w", s, err)
	}
	return v, nil
}
