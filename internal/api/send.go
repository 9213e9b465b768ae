package solanaapi

import (
	"encoding/base64"
	"net/http"

	"github.com/aegis-sign/solana-api/internal/solana/instructions"
	"github.com/aegis-sign/solana-api/pkg/apierrors"
	"github.com/aegis-sign/solana-api/pkg/validator"
	"github.com/gagliardetto/solana-go"
)

type sendSolRequestBody struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Lamports uint64 `json:"lamports"`
}

type sendTokenRequestBody struct {
	Destination string `json:"destination"`
	Mint        string `json:"mint"`
	Owner       string `json:"owner"`
	Amount      uint64 `json:"amount"`
	Decimals    *uint8 `json:"decimals"`
}

// solInstructionBody 的账户列表只有地址，与 token 接口的结构不同，保持旧客户端兼容。
type solInstructionBody struct {
	ProgramID       string   `json:"programId"`
	Accounts        []string `json:"accounts"`
	InstructionData string   `json:"instructionData"`
}

type signerAccountBody struct {
	Pubkey   string `json:"pubkey"`
	IsSigner bool   `json:"isSigner"`
}

type tokenTransferBody struct {
	ProgramID       string              `json:"programId"`
	Accounts        []signerAccountBody `json:"accounts"`
	InstructionData string              `json:"instructionData"`
}

func (h *HTTPHandler) handleSendSol(w http.ResponseWriter, r *http.Request) {
	var body sendSolRequestBody
	if apiErr := h.decodeBody(w, r, sendSolSchema, &body); apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	from, apiErr := parseAddress(body.From, "Invalid sender address")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	to, apiErr := parseAddress(body.To, "Invalid recipient address")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	desc, err := instructions.Transfer(from, to, body.Lamports)
	if err != nil {
		h.writeAPIError(w, apierrors.New(apierrors.CodeInstructionFailed, "Failed to create transfer instruction").WithCause(err))
		return
	}
	accounts := make([]string, len(desc.Accounts))
	for i, acc := range desc.Accounts {
		accounts[i] = acc.Address.String()
	}
	h.writeOK(w, OK(solInstructionBody{
		ProgramID:       desc.ProgramID.String(),
		Accounts:        accounts,
		InstructionData: base64.StdEncoding.EncodeToString(desc.Data),
	}))
}

// handleSendToken 以 owner 作为源 token 账户与签名者构造 TransferChecked。
func (h *HTTPHandler) handleSendToken(w http.ResponseWriter, r *http.Request) {
	var body sendTokenRequestBody
	if apiErr := h.decodeBody(w, r, sendTokenSchema, &body); apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	mint, apiErr := parseAddress(body.Mint, "Invalid mint address")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	destination, apiErr := parseAddress(body.Destination, "Invalid destination address")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	owner, apiErr := parseAddress(body.Owner, "Invalid owner address")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	decimals := h.transferDecimals
	if body.Decimals != nil {
		decimals = *body.Decimals
	}
	desc, err := instructions.TransferChecked(owner, mint, destination, owner, body.Amount, decimals)
	if err != nil {
		h.writeAPIError(w, apierrors.New(apierrors.CodeInstructionFailed, "Failed to create SPL token transfer instruction").WithCause(err))
		return
	}
	accounts := make([]signerAccountBody, len(desc.Accounts))
	for i, acc := range desc.Accounts {
		accounts[i] = signerAccountBody{Pubkey: acc.Address.String(), IsSigner: acc.Signer}
	}
	h.writeOK(w, OK(tokenTransferBody{
		ProgramID:       desc.ProgramID.String(),
		Accounts:        accounts,
		InstructionData: base64.StdEncoding.EncodeToString(desc.Data),
	}))
}

func parseAddress(raw, message string) (solana.PublicKey, *apierrors.Error) {
	pk, err := validator.ParseAddress(raw)
	if err != nil {
		return solana.PublicKey{}, apierrors.New(apierrors.CodeInvalidKey, message).WithCause(err)
	}
	return pk, nil
}
