// Package keys 封装 Solana ed25519 密钥的生成、解析、签名与验签。
package keys

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

const (
	SeedSize      = ed25519.SeedSize
	KeypairSize   = ed25519.PrivateKeySize
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
)

var (
	// ErrPublicKeyMismatch 表示 64 字节 keypair 的公钥部分与种子推导结果不一致。
	ErrPublicKeyMismatch = errors.New("public key does not match secret seed")
	// ErrNotOnCurve 表示 32 字节不是合法的 edwards25519 点。
	ErrNotOnCurve = errors.New("public key is not a valid curve point")
)

// Keypair 持有 64 字节 (seed || pubkey) 的 Solana 私钥。
type Keypair struct {
	private solana.PrivateKey
}

// Generate 使用 crypto/rand 生成新的 keypair。
func Generate() (Keypair, error) {
	pk, err := solana.NewRandomPrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{private: pk}, nil
}

// FromSeed 由 32 字节 secret 推导完整 keypair。
func FromSeed(seed []byte) (Keypair, error) {
	if len(seed) != SeedSize {
		return Keypair{}, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	return Keypair{private: solana.PrivateKey(ed25519.NewKeyFromSeed(seed))}, nil
}

// FromKeypairBytes 解析 64 字节 keypair，要求公钥部分合法且与种子一致。
func FromKeypairBytes(raw []byte) (Keypair, error) {
	if len(raw) != KeypairSize {
		return Keypair{}, fmt.Errorf("keypair must be %d bytes, got %d", KeypairSize, len(raw))
	}
	public := raw[SeedSize:]
	if !IsOnCurve(public) {
		return Keypair{}, ErrNotOnCurve
	}
	derived := ed25519.NewKeyFromSeed(raw[:SeedSize])
	if !bytes.Equal(derived[SeedSize:], public) {
		return Keypair{}, ErrPublicKeyMismatch
	}
	return Keypair{private: solana.PrivateKey(derived)}, nil
}

// PublicKey 返回公钥。
func (k Keypair) PublicKey() solana.PublicKey {
	return k.private.PublicKey()
}

// Secret 返回完整 64 字节 keypair 的 base58 编码。
func (k Keypair) Secret() string {
	return k.private.String()
}

// Sign 对任意字节签名。
func (k Keypair) Sign(message []byte) (solana.Signature, error) {
	sig, err := k.private.Sign(message)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign message: %w", err)
	}
	return sig, nil
}

// ParsePublicKey 将 32 字节转换为公钥。非曲线点不会被拒绝，验签时自然返回 false。
func ParsePublicKey(raw []byte) (solana.PublicKey, error) {
	if len(raw) != PublicKeySize {
		return solana.PublicKey{}, fmt.Errorf("public key must be %d bytes, got %d", PublicKeySize, len(raw))
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// ParseSignature 将 64 字节转换为签名。
func ParseSignature(raw []byte) (solana.Signature, error) {
	var sig solana.Signature
	if len(raw) != SignatureSize {
		return sig, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(raw))
	}
	copy(sig[:], raw)
	return sig, nil
}

// Verify 校验签名；任何不合法的输入都只返回 false。
func Verify(pub solana.PublicKey, message []byte, sig solana.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, sig[:])
}

// IsOnCurve 判断 32 字节能否解码为 edwards25519 点。
func IsOnCurve(raw []byte) bool {
	if len(raw) != PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
