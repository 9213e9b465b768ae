package solanaapi

import (
	"encoding/base64"
	"net/http"

	"github.com/aegis-sign/solana-api/internal/solana/instructions"
	"github.com/aegis-sign/solana-api/pkg/apierrors"
)

type createTokenRequestBody struct {
	MintAuthority string `json:"mintAuthority"`
	Mint          string `json:"mint"`
	Decimals      uint8  `json:"decimals"`
}

type mintTokenRequestBody struct {
	Mint        string `json:"mint"`
	Destination string `json:"destination"`
	Authority   string `json:"authority"`
	Amount      uint64 `json:"amount"`
}

type accountInfoBody struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type tokenInstructionBody struct {
	ProgramID       string            `json:"programId"`
	Accounts        []accountInfoBody `json:"accounts"`
	InstructionData string            `json:"instructionData"`
}

func (h *HTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var body createTokenRequestBody
	if apiErr := h.decodeBody(w, r, createTokenSchema, &body); apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	mint, apiErr := parseAddress(body.Mint, "Invalid mint pubkey")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	authority, apiErr := parseAddress(body.MintAuthority, "Invalid mint authority pubkey")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	desc, err := instructions.InitializeMint(mint, authority, body.Decimals)
	if err != nil {
		h.writeAPIError(w, apierrors.New(apierrors.CodeInstructionFailed, "Failed to create initialize_mint instruction").WithCause(err))
		return
	}
	h.writeOK(w, OK(newTokenInstructionBody(desc)))
}

func (h *HTTPHandler) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var body mintTokenRequestBody
	if apiErr := h.decodeBody(w, r, mintTokenSchema, &body); apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	mint, apiErr := parseAddress(body.Mint, "Invalid mint pubkey")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	destination, apiErr := parseAddress(body.Destination, "Invalid destination pubkey")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	authority, apiErr := parseAddress(body.Authority, "Invalid authority pubkey")
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	desc, err := instructions.MintTo(mint, destination, authority, body.Amount)
	if err != nil {
		h.writeAPIError(w, apierrors.New(apierrors.CodeInstructionFailed, "Failed to create mint_to instruction").WithCause(err))
		return
	}
	h.writeOK(w, OK(newTokenInstructionBody(desc)))
}

func newTokenInstructionBody(desc instructions.Descriptor) tokenInstructionBody {
	accounts := make([]accountInfoBody, len(desc.Accounts))
	for i, acc := range desc.Accounts {
		accounts[i] = accountInfoBody{
			Pubkey:     acc.Address.String(),
			IsSigner:   acc.Signer,
			IsWritable: acc.Writable,
		}
	}
	return tokenInstructionBody{
		ProgramID:       desc.ProgramID.String(),
		Accounts:        accounts,
		InstructionData: base64.StdEncoding.EncodeToString(desc.Data),
	}
}
