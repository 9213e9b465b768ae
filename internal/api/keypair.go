package solanaapi

import (
	"net/http"

	"github.com/aegis-sign/solana-api/internal/solana/keys"
)

type keypairResponseBody struct {
	Pubkey string `json:"pubkey"`
	Secret string `json:"secret"`
}

// handleKeypair 生成新的 keypair，请求体被忽略。
func (h *HTTPHandler) handleKeypair(w http.ResponseWriter, r *http.Request) {
	kp, err := keys.Generate()
	if err != nil {
		h.writeUnknownError(w, err)
		return
	}
	h.writeOK(w, OK(keypairResponseBody{
		Pubkey: kp.PublicKey().String(),
		Secret: kp.Secret(),
	}))
}
