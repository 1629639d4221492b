package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/ed25519"

	"github.com/mnill/tycho-vm/protocol/cell"
	"github.com/mnill/tycho-vm/protocol/vmutil"
)

// sigprogCmd prints the program that checks a signature by one key,
// or by a quorum of keys when the first argument is a number and
// more than one key follows.
func sigprogCmd(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: cellvm sigprog pubkey-hex")
		fmt.Fprintln(os.Stderr, "       cellvm sigprog nrequired pubkey-hex...")
		os.Exit(2)
	}

	code, err := program(args)
	if err != nil {
		fatalln("error:", err)
	}

	fmt.Println(code.BeginParse())
	if err := disasm(ctx, code, 0, true); err != nil {
		os.Exit(1)
	}
}

func program(args []string) (*cell.Cell, error) {
	if n, err := strconv.Atoi(args[0]); err == nil && len(args) > 1 {
		keys, err := parseKeys(args[1:])
		if err != nil {
			return nil, err
		}
		return vmutil.MultiSigProgram(keys, n)
	}
	keys, err := parseKeys(args)
	if err != nil {
		return nil, err
	}
	if len(keys) != 1 {
		return nil, fmt.Errorf("want one public key, got %d", len(keys))
	}
	return vmutil.SignatureProgram(keys[0])
}

func parseKeys(args []string) ([]ed25519.PublicKey, error) {
	var keys []ed25519.PublicKey
	for _, a := range args {
		b, err := hex.DecodeString(a)
		if err != nil {
			return nil, err
		}
		if len(b) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("key %s: want %d bytes", a, ed25519.PublicKeySize)
		}
		keys = append(keys, ed25519.PublicKey(b))
	}
	return keys, nil
}
