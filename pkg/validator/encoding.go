package validator

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidEncoding 表示字符串无法按 base58/base64 解码。
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrInvalidLength 表示解码后字节数不在允许范围内。
	ErrInvalidLength = errors.New("invalid length")
)

// LengthError 描述解码后长度不匹配，Error() 可直接拼入对外消息。
type LengthError struct {
	Got  int
	Want []int
}

func (e *LengthError) Error() string {
	want := make([]string, len(e.Want))
	for i, n := range e.Want {
		want[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("expected %s bytes, got %d", strings.Join(want, " or "), e.Got)
}

// Is 让 errors.Is(err, ErrInvalidLength) 成立。
func (e *LengthError) Is(target error) bool {
	return target == ErrInvalidLength
}

// Blank 判断字段是否为空或仅包含空白字符。
func Blank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// DecodeBase58 解码 base58 字符串并校验长度属于 lengths 之一。
func DecodeBase58(raw string, lengths ...int) ([]byte, error) {
	decoded, err := base58.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: base58: %v", ErrInvalidEncoding, err)
	}
	if err := checkLength(len(decoded), lengths); err != nil {
		return nil, err
	}
	return decoded, nil
}

// DecodeBase64 解码标准 base64（带 padding）并校验长度。
func DecodeBase64(raw string, lengths ...int) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrInvalidEncoding, err)
	}
	if err := checkLength(len(decoded), lengths); err != nil {
		return nil, err
	}
	return decoded, nil
}

// ParseAddress 将 base58 地址解析为 solana.PublicKey，不做 on-curve 检查（PDA 也是合法地址）。
func ParseAddress(raw string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	return pk, nil
}

func checkLength(got int, lengths []int) error {
	if len(lengths) == 0 {
		return nil
	}
	for _, n := range lengths {
		if got == n {
			return nil
		}
	}
	return &LengthError{Got: got, Want: lengths}
}
