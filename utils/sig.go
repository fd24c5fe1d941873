package utils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/dchest/siphash"
	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// 签名格式：65字节紧凑可恢复签名 [R(32) || S(32) || V(1)]，V ∈ {0,1}
const SignatureLen = 65

var ErrBadSignature = errors.New("bad signature")

// SignDigest 对 32 字节摘要做 secp256k1 可恢复签名（测试驱动层使用）。
func SignDigest(priv *ecdsa.PrivateKey, digest [32]byte) ([]byte, error) {
	return ethcrypto.Sign(digest[:], priv)
}

// RecoverPubKey 从可恢复签名还原出签名者公钥。
func RecoverPubKey(digest [32]byte, sig []byte) (*secp256k1.PublicKey, error) {
	if len(sig) != SignatureLen {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrBadSignature, len(sig), SignatureLen)
	}
	raw, err := ethcrypto.Ecrecover(digest[:], sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return pub, nil
}

// ParseCompressedPubKey 解析 33 字节压缩公钥。
func ParseCompressedPubKey(raw []byte) (*secp256k1.PublicKey, error) {
	if len(raw) != 33 {
		return nil, fmt.Errorf("compressed pubkey must be 33 bytes, got %d", len(raw))
	}
	return secp256k1.ParsePubKey(raw)
}

// CorrelationID 事件审计用的短摘要（SipHash，非加密用途）
func CorrelationID(data []byte) uint64 {
	return siphash.Hash(0x12345678, 0x87654321, data)
}
