package vmutil

import (
	"math/big"

	"golang.org/x/crypto/ed25519"

	"github.com/mnill/tycho-vm/errors"
	"github.com/mnill/tycho-vm/protocol/cell"
)

var (
	ErrBadValue        = errors.New("bad value")
	ErrSignatureFormat = errors.New("bad signature program format")
)

// Exit code of a program whose signature check fails.
const ExcBadSignature = 33

// Opcodes used by the standard programs.
const (
	opSwap       = 0x01
	opNip        = 0x31
	opSub        = 0xA1
	opGeq        = 0xBE
	opChkSignU   = 0xF910
	opAccept     = 0xF800
	opThrowIfNot = 0x3CA<<6 | ExcBadSignature
)

// IsUnspendable reports whether code starts with an
// unconditional THROW.
func IsUnspendable(code *cell.Cell) bool {
	s := code.BeginParse()
	v, err := s.PreloadUint(10)
	return err == nil && v == 0x3C8
}

// SignatureProgram returns a program that accepts when the signature
// below the top of the stack is a valid Ed25519 signature by pub of
// the 256-bit hash on top of it. The result is:
// <hash> <sig> | PUSHINT <pub> CHKSIGNU THROWIFNOT 33 ACCEPT
func SignatureProgram(pub ed25519.PublicKey) (*cell.Cell, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, errors.WithDetail(ErrBadValue, "bad public key length")
	}
	b := NewBuilder()
	b.AddBigInt(new(big.Int).SetBytes(pub))
	b.AddOp(opChkSignU, 16).AddOp(opThrowIfNot, 16).AddOp(opAccept, 16)
	return b.Build()
}

// ParseSignatureProgram returns the key of a program built by
// SignatureProgram.
func ParseSignatureProgram(code *cell.Cell) (ed25519.PublicKey, error) {
	s := code.BeginParse()
	if v, err := s.LoadUint(8); err != nil || v != 0x82 {
		return nil, errors.WithDetail(ErrSignatureFormat, "no PUSHINT")
	}
	l, err := s.LoadUint(5)
	if err != nil {
		return nil, errors.Wrap(ErrSignatureFormat, err)
	}
	x, err := s.LoadBigInt(8*int(l)+19, true)
	if err != nil {
		return nil, errors.Wrap(ErrSignatureFormat, err)
	}
	if x.Sign() < 0 || x.BitLen() > 8*ed25519.PublicKeySize {
		return nil, errors.WithDetail(ErrSignatureFormat, "key out of range")
	}
	for _, want := range []uint64{opChkSignU, opThrowIfNot, opAccept} {
		if v, err := s.LoadUint(16); err != nil || v != want {
			return nil, errors.WithDetailf(ErrSignatureFormat, "want opcode %X", want)
		}
	}
	if s.BitsLeft() != 0 {
		return nil, errors.WithDetail(ErrSignatureFormat, "trailing code")
	}
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	x.FillBytes(pub)
	return pub, nil
}

// MultiSigProgram returns a program that accepts when at least
// nrequired of the signatures on the stack are valid. The stack
// holds the hash, then one 512-bit signature slice per key in
// order; a key that did not sign gets any slice that fails to verify.
func MultiSigProgram(pubkeys []ed25519.PublicKey, nrequired int) (*cell.Cell, error) {
	if err := checkMultiSigParams(int64(nrequired), int64(len(pubkeys))); err != nil {
		return nil, err
	}
	for _, k := range pubkeys {
		if len(k) != ed25519.PublicKeySize {
			return nil, errors.WithDetail(ErrBadValue, "bad public key length")
		}
	}
	b := NewBuilder()
	b.AddInt64(0) // [hash sig_1 ... sig_n count]
	for i := len(pubkeys) - 1; i >= 0; i-- {
		b.AddOp(opSwap, 8) // [hash ... count sig_i]
		b.addPush(i + 2)   // [hash ... count sig_i hash]
		b.AddOp(opSwap, 8)
		b.AddBigInt(new(big.Int).SetBytes(pubkeys[i]))
		b.AddOp(opChkSignU, 16) // [hash ... count ok]
		b.AddOp(opSub, 8)       // ok is -1 when valid
	}
	b.AddOp(opNip, 8)
	b.AddInt64(int64(nrequired)).AddOp(opGeq, 8)
	b.AddOp(opThrowIfNot, 16).AddOp(opAccept, 16)
	return b.Build()
}

// addPush adds PUSH s(i).
func (b *Builder) addPush(i int) *Builder {
	if i < 16 {
		return b.AddOp(0x20|uint64(i), 8)
	}
	return b.AddOp(0x5600|uint64(i), 16)
}

func checkMultiSigParams(nrequired, npubkeys int64) error {
	if nrequired < 0 {
		return errors.WithDetail(ErrBadValue, "negative quorum")
	}
	if npubkeys < 0 {
		return errors.WithDetail(ErrBadValue, "negative pubkey count")
	}
	if npubkeys > 254 {
		return errors.WithDetail(ErrBadValue, "too many pubkeys")
	}
	if nrequired > npubkeys {
		return errors.WithDetail(ErrBadValue, "quorum too big")
	}
	if nrequired == 0 && npubkeys > 0 {
		return errors.WithDetail(ErrBadValue, "quorum empty with non-empty pubkey list")
	}
	return nil
}
