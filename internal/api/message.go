package solanaapi

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/aegis-sign/solana-api/internal/solana/keys"
	"github.com/aegis-sign/solana-api/pkg/apierrors"
	"github.com/aegis-sign/solana-api/pkg/validator"
)

type signRequestBody struct {
	Message string `json:"message"`
	Secret  string `json:"secret"`
}

type signResponseBody struct {
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
	Message   string `json:"message"`
}

type verifyRequestBody struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Pubkey    string `json:"pubkey"`
}

type verifyResponseBody struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Pubkey  string `json:"pubkey"`
}

func (h *HTTPHandler) handleSign(w http.ResponseWriter, r *http.Request) {
	var body signRequestBody
	if apiErr := h.decodeBody(w, r, signSchema, &body); apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	if validator.Blank(body.Message) || validator.Blank(body.Secret) {
		h.writeAPIError(w, apierrors.New(apierrors.CodeMissingField, "Missing required fields"))
		return
	}
	kp, apiErr := keypairFromSecret(body.Secret)
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	sig, err := kp.Sign([]byte(body.Message))
	if err != nil {
		h.writeUnknownError(w, err)
		return
	}
	h.writeOK(w, OK(signResponseBody{
		Signature: base64.StdEncoding.EncodeToString(sig[:]),
		PublicKey: kp.PublicKey().String(),
		Message:   body.Message,
	}))
}

// keypairFromSecret 接受 32 字节 seed 或 64 字节完整 keypair 的 base58 编码。
func keypairFromSecret(secret string) (keys.Keypair, *apierrors.Error) {
	raw, err := validator.DecodeBase58(secret, keys.SeedSize, keys.KeypairSize)
	switch {
	case errors.Is(err, validator.ErrInvalidLength):
		return keys.Keypair{}, apierrors.New(apierrors.CodeInvalidLength, "Invalid secret length: "+err.Error())
	case err != nil:
		return keys.Keypair{}, apierrors.New(apierrors.CodeInvalidEncoding, "Invalid base58-encoded secret").WithCause(err)
	}
	if len(raw) == keys.KeypairSize {
		kp, err := keys.FromKeypairBytes(raw)
		if err != nil {
			return keys.Keypair{}, apierrors.New(apierrors.CodeInvalidKey, "Failed to parse keypair").WithCause(err)
		}
		return kp, nil
	}
	kp, err := keys.FromSeed(raw)
	if err != nil {
		return keys.Keypair{}, apierrors.New(apierrors.CodeInvalidKey, "Invalid secret key").WithCause(err)
	}
	return kp, nil
}

// handleVerify 验签失败属于正常结果，返回 valid=false 与 200。
func (h *HTTPHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body verifyRequestBody
	if apiErr := h.decodeBody(w, r, verifySchema, &body); apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}
	sigBytes, err := validator.DecodeBase64(body.Signature, keys.SignatureSize)
	switch {
	case errors.Is(err, validator.ErrInvalidLength):
		h.writeAPIError(w, apierrors.New(apierrors.CodeInvalidLength, "Invalid signature length: "+err.Error()))
		return
	case err != nil:
		h.writeAPIError(w, apierrors.New(apierrors.CodeInvalidEncoding, "Invalid base64 signature").WithCause(err))
		return
	}
	pubBytes, err := validator.DecodeBase58(body.Pubkey, keys.PublicKeySize)
	switch {
	case errors.Is(err, validator.ErrInvalidLength):
		h.writeAPIError(w, apierrors.New(apierrors.CodeInvalidLength, "Invalid public key length: "+err.Error()))
		return
	case err != nil:
		h.writeAPIError(w, apierrors.New(apierrors.CodeInvalidEncoding, "Invalid public key format").WithCause(err))
		return
	}
	// 长度已由上面的解码保证，以下两个分支当前不可达；结构合法性交给 Verify 判定为 valid=false。
	sig, err := keys.ParseSignature(sigBytes)
	if err != nil {
		h.writeAPIError(w, apierrors.New(apierrors.CodeInvalidKey, "Invalid signature format").WithCause(err))
		return
	}
	pub, err := keys.ParsePublicKey(pubBytes)
	if err != nil {
		h.writeAPIError(w, apierrors.New(apierrors.CodeInvalidKey, "Failed to parse public key").WithCause(err))
		return
	}
	h.writeOK(w, OK(verifyResponseBody{
		Valid:   keys.Verify(pub, []byte(body.Message), sig),
		Message: body.Message,
		Pubkey:  body.Pubkey,
	}))
}
