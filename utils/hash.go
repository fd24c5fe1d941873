package utils

import (
	"crypto/sha256"
	"vaultshare/logs"

	"github.com/spaolacci/murmur3"
)

// MurmurHash 使用Murmur3哈希算法
func MurmurHash(data []byte) []byte {
	h := murmur3.New64()
	_, err := h.Write(data)
	if err != nil {
		logs.Verbose("hash error: %v", err)
	}
	sum64 := h.Sum64()
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(sum64 >> (8 * i))
	}
	return b
}

// MurmurSum64 返回Murmur3的64位校验值（查表分块校验用）
func MurmurSum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

// Sha256Digest 返回签名与恢复共用的 32 字节摘要
func Sha256Digest(data []byte) [32]byte {
	return sha256.Sum256(data)
}
