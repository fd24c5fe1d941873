package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Address is a 32-byte account address. Derived addresses are computed
// deterministically from a seed tuple; wallet addresses are derived from a
// signer's public key. The derivation digest is the uniqueness primitive:
// creating an account at an occupied address fails.
type Address [32]byte

var ZeroAddress Address

func (a Address) Bytes() []byte { return a[:] }

func (a Address) IsZero() bool { return a == ZeroAddress }

func (a Address) String() string { return base58.Encode(a[:]) }

// Short 日志里用的短格式
func (a Address) Short() string {
	s := a.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != len(a) {
		return a, fmt.Errorf("address must be %d bytes, got %d", len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// AddressFromPubKey maps a secp256k1 public key to its wallet address.
func AddressFromPubKey(pub *secp256k1.PublicKey) Address {
	return Address(chainhash.HashH(pub.SerializeCompressed()))
}

// DeriveAddress computes the deterministic address for a seed tuple. Each
// seed is length-prefixed before hashing so that tuple boundaries cannot be
// forged by concatenation.
func DeriveAddress(seeds ...[]byte) Address {
	var buf bytes.Buffer
	for _, s := range seeds {
		var l [2]byte
		binary.LittleEndian.PutUint16(l[:], uint16(len(s)))
		buf.Write(l[:])
		buf.Write(s)
	}
	return Address(chainhash.DoubleHashH(buf.Bytes()))
}

// InvestmentID is the 15-byte fixed campaign identifier.
type InvestmentID [15]byte

func NewInvestmentID(s string) (InvestmentID, error) {
	var id InvestmentID
	if len(s) != len(id) {
		return id, NewCodedError(CodeInvalidInvestmentIdLength,
			"investment id must be %d bytes, got %d", len(id), len(s))
	}
	copy(id[:], s)
	return id, nil
}

func (id InvestmentID) String() string {
	return string(bytes.TrimRight(id[:], "\x00"))
}

// Version is the 4-byte campaign version tag.
type Version [4]byte

func NewVersion(s string) (Version, error) {
	var v Version
	if len(s) != len(v) {
		return v, fmt.Errorf("version must be %d bytes, got %d", len(v), len(s))
	}
	copy(v[:], s)
	return v, nil
}

func (v Version) String() string {
	return string(bytes.TrimRight(v[:], "\x00"))
}

// AccountID is the 15-byte investor tag.
type AccountID [15]byte

func NewAccountID(s string) (AccountID, error) {
	var id AccountID
	if len(s) != len(id) {
		return id, NewCodedError(CodeInvalidAccountIdLength,
			"account id must be %d bytes, got %d", len(id), len(s))
	}
	copy(id[:], s)
	return id, nil
}

func (id AccountID) String() string {
	return string(bytes.TrimRight(id[:], "\x00"))
}

// ========== 种子方案（与外部接口字节一致） ==========

// InvestmentAddress: ["investment", investmentId(15B), version(4B)]
func InvestmentAddress(id InvestmentID, ver Version) Address {
	return DeriveAddress([]byte("investment"), id[:], ver[:])
}

// VaultAddress: ["vault", investmentId(15B), version(4B)]
func VaultAddress(id InvestmentID, ver Version) Address {
	return DeriveAddress([]byte("vault"), id[:], ver[:])
}

// RecordAddress: ["record", investmentId, version, batchId(2B LE), recordId(8B LE), accountId]
func RecordAddress(id InvestmentID, ver Version, batchID uint16, recordID uint64, accountID AccountID) Address {
	var batch [2]byte
	binary.LittleEndian.PutUint16(batch[:], batchID)
	var rec [8]byte
	binary.LittleEndian.PutUint64(rec[:], recordID)
	return DeriveAddress([]byte("record"), id[:], ver[:], batch[:], rec[:], accountID[:])
}

// ProfitCacheAddress: ["profit_cache", investmentId, version, batchId(2B LE)]
func ProfitCacheAddress(id InvestmentID, ver Version, batchID uint16) Address {
	var batch [2]byte
	binary.LittleEndian.PutUint16(batch[:], batchID)
	return DeriveAddress([]byte("profit_cache"), id[:], ver[:], batch[:])
}

// RefundCacheAddress: ["refund_cache", investmentId, version, batchId(2B LE), yearIndex(1B)]
func RefundCacheAddress(id InvestmentID, ver Version, batchID uint16, yearIndex uint8) Address {
	var batch [2]byte
	binary.LittleEndian.PutUint16(batch[:], batchID)
	return DeriveAddress([]byte("refund_cache"), id[:], ver[:], batch[:], []byte{yearIndex})
}

// TokenAccountAddress: ["token", wallet, mint] — the recipient token-holding
// account for a wallet and mint (the ATA analog).
func TokenAccountAddress(wallet, mint Address) Address {
	return DeriveAddress([]byte("token"), wallet[:], mint[:])
}

// LookupTableAddress: ["lookup", kind(1B), investmentId, version, batchId(2B LE), yearIndex(1B)]
func LookupTableAddress(kind LookupKind, id InvestmentID, ver Version, batchID uint16, yearIndex uint8) Address {
	var batch [2]byte
	binary.LittleEndian.PutUint16(batch[:], batchID)
	return DeriveAddress([]byte("lookup"), []byte{byte(kind)}, id[:], ver[:], batch[:], []byte{yearIndex})
}
