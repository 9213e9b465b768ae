// Package instructions 构造未签名的 System / SPL Token 指令描述。
package instructions

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// AccountMeta 对应链上指令的账户描述。
type AccountMeta struct {
	Address  solana.PublicKey
	Signer   bool
	Writable bool
}

// Descriptor 是与链上编码格式一致的指令描述，服务本身从不执行或保存它。
type Descriptor struct {
	ProgramID solana.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Transfer 构造 System Program 原生 SOL 转账。
func Transfer(from, to solana.PublicKey, lamports uint64) (Descriptor, error) {
	ix, err := system.NewTransferInstruction(lamports, from, to).ValidateAndBuild()
	if err != nil {
		return Descriptor{}, fmt.Errorf("build transfer: %w", err)
	}
	return describe(ix)
}

// InitializeMint 构造 InitializeMint，不设置 freeze authority。
func InitializeMint(mint, mintAuthority solana.PublicKey, decimals uint8) (Descriptor, error) {
	ix, err := token.NewInitializeMintInstructionBuilder().
		SetDecimals(decimals).
		SetMintAuthority(mintAuthority).
		SetMintAccount(mint).
		SetSysVarRentPubkeyAccount(solana.SysVarRentPubkey).
		ValidateAndBuild()
	if err != nil {
		return Descriptor{}, fmt.Errorf("build initialize_mint: %w", err)
	}
	return describe(ix)
}

// MintTo 构造单签 authority 的 MintTo。
func MintTo(mint, destination, authority solana.PublicKey, amount uint64) (Descriptor, error) {
	ix, err := token.NewMintToInstruction(amount, mint, destination, authority, nil).ValidateAndBuild()
	if err != nil {
		return Descriptor{}, fmt.Errorf("build mint_to: %w", err)
	}
	return describe(ix)
}

// TransferChecked 构造 TransferChecked，decimals 由调用方提供。
func TransferChecked(source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8) (Descriptor, error) {
	ix, err := token.NewTransferCheckedInstruction(amount, decimals, source, mint, destination, owner, nil).ValidateAndBuild()
	if err != nil {
		return Descriptor{}, fmt.Errorf("build transfer_checked: %w", err)
	}
	return describe(ix)
}

func describe(ix solana.Instruction) (Descriptor, error) {
	data, err := ix.Data()
	if err != nil {
		return Descriptor{}, fmt.Errorf("encode instruction data: %w", err)
	}
	metas := ix.Accounts()
	accounts := make([]AccountMeta, 0, len(metas))
	for _, meta := range metas {
		if meta == nil {
			continue
		}
		accounts = append(accounts, AccountMeta{
			Address:  meta.PublicKey,
			Signer:   meta.IsSigner,
			Writable: meta.IsWritable,
		})
	}
	return Descriptor{
		ProgramID: ix.ProgramID(),
		Accounts:  accounts,
		Data:      data,
	}, nil
}
