package solanaapi

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aegis-sign/solana-api/internal/solana/keys"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	addrB = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	addrC = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestMux(t *testing.T, opts Options) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHTTPHandler(opts).Register(mux)
	return mux
}

func post(t *testing.T, mux http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	var env envelope
	if rr.Code == http.StatusOK || rr.Code == http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body=%s", rr.Body.String())
	}
	return rr, env
}

func requireFailure(t *testing.T, rr *httptest.ResponseRecorder, env envelope, contains string) {
	t.Helper()
	require.Equal(t, http.StatusBadRequest, rr.Code, "body=%s", rr.Body.String())
	require.False(t, env.Success)
	require.Contains(t, env.Error, contains)
	require.Empty(t, env.Data, "failure envelope must omit data")
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestEnvelopeOmitsAbsentFields(t *testing.T) {
	okBody, err := json.Marshal(OK(map[string]int{"n": 1}))
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true,"data":{"n":1}}`, string(okBody))

	failBody, err := json.Marshal(Fail("Invalid mint pubkey"))
	require.NoError(t, err)
	require.JSONEq(t, `{"success":false,"error":"Invalid mint pubkey"}`, string(failBody))
}

func TestKeypairEndpoint(t *testing.T) {
	mux := newTestMux(t, Options{})
	rr, env := post(t, mux, "/keypair", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.Success)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var data keypairResponseBody
	require.NoError(t, json.Unmarshal(env.Data, &data))
	pub, err := base58.Decode(data.Pubkey)
	require.NoError(t, err)
	require.Len(t, pub, keys.PublicKeySize)
	secret, err := base58.Decode(data.Secret)
	require.NoError(t, err)
	require.Len(t, secret, keys.KeypairSize)
	derived := ed25519.NewKeyFromSeed(secret[:keys.SeedSize]).Public().(ed25519.PublicKey)
	require.Equal(t, []byte(derived), pub)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	_, hasError := raw["error"]
	require.False(t, hasError, "success envelope must omit error")
}

func TestSignVerifyRoundTrip(t *testing.T) {
	mux := newTestMux(t, Options{})
	kp, err := keys.Generate()
	require.NoError(t, err)
	full, err := base58.Decode(kp.Secret())
	require.NoError(t, err)
	seed := base58.Encode(full[:keys.SeedSize])

	rr, env := post(t, mux, "/message/sign", jsonBody(t, map[string]string{"message": "hi", "secret": seed}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var signed signResponseBody
	require.NoError(t, json.Unmarshal(env.Data, &signed))
	require.Equal(t, "hi", signed.Message)
	require.Equal(t, kp.PublicKey().String(), signed.PublicKey)

	_, envFull := post(t, mux, "/message/sign", jsonBody(t, map[string]string{"message": "hi", "secret": kp.Secret()}))
	var signedFull signResponseBody
	require.NoError(t, json.Unmarshal(envFull.Data, &signedFull))
	require.Equal(t, signed.Signature, signedFull.Signature, "seed and full keypair must sign identically")

	for _, tc := range []struct {
		message string
		valid   bool
	}{
		{"hi", true},
		{"hj", false},
	} {
		rr, env := post(t, mux, "/message/verify", jsonBody(t, map[string]string{
			"message":   tc.message,
			"signature": signed.Signature,
			"pubkey":    signed.PublicKey,
		}))
		require.Equal(t, http.StatusOK, rr.Code)
		var verified verifyResponseBody
		require.NoError(t, json.Unmarshal(env.Data, &verified))
		require.Equal(t, tc.valid, verified.Valid, "message %q", tc.message)
		require.Equal(t, tc.message, verified.Message)
		require.Equal(t, signed.PublicKey, verified.Pubkey)
	}
}

func TestVerifyTamperYieldsInvalidNotError(t *testing.T) {
	mux := newTestMux(t, Options{})
	kp, err := keys.Generate()
	require.NoError(t, err)
	msg := []byte("tamper me")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)
	pub := kp.PublicKey()

	verify := func(message []byte, sigBytes []byte, pubBytes []byte) bool {
		t.Helper()
		rr, env := post(t, mux, "/message/verify", jsonBody(t, map[string]string{
			"message":   string(message),
			"signature": base64.StdEncoding.EncodeToString(sigBytes),
			"pubkey":    base58.Encode(pubBytes),
		}))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var out verifyResponseBody
		require.NoError(t, json.Unmarshal(env.Data, &out))
		return out.Valid
	}

	require.True(t, verify(msg, sig[:], pub[:]))
	for i := range msg {
		tampered := append([]byte{}, msg...)
		tampered[i] ^= 0x01
		require.Falsef(t, verify(tampered, sig[:], pub[:]), "message byte %d", i)
	}
	for i := 0; i < keys.SignatureSize; i++ {
		tampered := sig
		tampered[i] ^= 0x80
		require.Falsef(t, verify(msg, tampered[:], pub[:]), "signature byte %d", i)
	}
	for i := 0; i < keys.PublicKeySize; i++ {
		tampered := pub
		tampered[i] ^= 0x80
		require.Falsef(t, verify(msg, sig[:], tampered[:]), "pubkey byte %d", i)
	}
}

func TestSignValidation(t *testing.T) {
	mux := newTestMux(t, Options{})
	mismatched := append(ed25519.NewKeyFromSeed(make([]byte, 32))[:32:32], solana.TokenProgramID.Bytes()...)

	cases := []struct {
		name     string
		body     string
		contains string
	}{
		{"empty message", `{"message":"","secret":"abc"}`, "Missing required fields"},
		{"whitespace secret", `{"message":"hi","secret":"   "}`, "Missing required fields"},
		{"absent fields", `{}`, "Missing required fields"},
		{"invalid base58", `{"message":"hi","secret":"0OIl0OIl"}`, "Invalid base58-encoded secret"},
		{"wrong length", jsonBody(t, map[string]string{"message": "hi", "secret": base58.Encode(make([]byte, 31))}), "Invalid secret length: expected 32 or 64 bytes, got 31"},
		{"too long", jsonBody(t, map[string]string{"message": "hi", "secret": base58.Encode(make([]byte, 65))}), "Invalid secret length"},
		{"mismatched keypair", jsonBody(t, map[string]string{"message": "hi", "secret": base58.Encode(mismatched)}), "Failed to parse keypair"},
		{"wrong type", `{"message":5,"secret":"abc"}`, "Invalid request body: message"},
		{"malformed json", `{"message":`, "Invalid JSON body"},
		{"empty body", ``, "Invalid JSON body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := post(t, mux, "/message/sign", tc.body)
			requireFailure(t, rr, env, tc.contains)
		})
	}
}

func TestVerifyValidation(t *testing.T) {
	mux := newTestMux(t, Options{})
	validSig := base64.StdEncoding.EncodeToString(make([]byte, 64))

	cases := []struct {
		name      string
		signature string
		pubkey    string
		contains  string
	}{
		{"bad base64", "***", addrA, "Invalid base64 signature"},
		{"short signature", base64.StdEncoding.EncodeToString(make([]byte, 63)), addrA, "Invalid signature length: expected 64 bytes, got 63"},
		{"bad base58 pubkey", validSig, "0OIl", "Invalid public key format"},
		{"short pubkey", validSig, base58.Encode(make([]byte, 31)), "Invalid public key length: expected 32 bytes, got 31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := post(t, mux, "/message/verify", jsonBody(t, map[string]string{
				"message":   "hi",
				"signature": tc.signature,
				"pubkey":    tc.pubkey,
			}))
			requireFailure(t, rr, env, tc.contains)
		})
	}
}

func TestSendSol(t *testing.T) {
	mux := newTestMux(t, Options{})
	rr, env := post(t, mux, "/send/sol", `{"from":"`+addrA+`","to":"`+addrB+`","lamports":100}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data solInstructionBody
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, solana.SystemProgramID.String(), data.ProgramID)
	require.Equal(t, []string{addrA, addrB}, data.Accounts)
	raw, err := base64.StdEncoding.DecodeString(data.InstructionData)
	require.NoError(t, err)
	require.Equal(t, []byte{2, 0, 0, 0, 100, 0, 0, 0, 0, 0, 0, 0}, raw)

	cases := []struct {
		name     string
		body     string
		contains string
	}{
		{"invalid sender", `{"from":"not-valid","to":"` + addrB + `","lamports":100}`, "Invalid sender address"},
		{"invalid recipient", `{"from":"` + addrA + `","to":"","lamports":100}`, "Invalid recipient address"},
		{"both invalid reports sender", `{"from":"x","to":"y","lamports":1}`, "Invalid sender address"},
		{"missing lamports", `{"from":"` + addrA + `","to":"` + addrB + `"}`, "lamports"},
		{"negative lamports", `{"from":"` + addrA + `","to":"` + addrB + `","lamports":-1}`, "Invalid request body: lamports"},
		{"fractional lamports", `{"from":"` + addrA + `","to":"` + addrB + `","lamports":1.5}`, "Invalid request body: lamports"},
		{"whole float lamports", `{"from":"` + addrA + `","to":"` + addrB + `","lamports":1.0}`, "Invalid request body: lamports"},
		{"lamports overflow", `{"from":"` + addrA + `","to":"` + addrB + `","lamports":18446744073709551616}`, "Invalid request body: lamports"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := post(t, mux, "/send/sol", tc.body)
			requireFailure(t, rr, env, tc.contains)
		})
	}
}

func TestSendToken(t *testing.T) {
	mux := newTestMux(t, Options{TransferDecimals: 6})
	body := `{"destination":"` + addrB + `","mint":"` + addrA + `","owner":"` + addrC + `","amount":42}`
	rr, env := post(t, mux, "/send/token", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data tokenTransferBody
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, solana.TokenProgramID.String(), data.ProgramID)
	require.Equal(t, []signerAccountBody{
		{Pubkey: addrC, IsSigner: false},
		{Pubkey: addrA, IsSigner: false},
		{Pubkey: addrB, IsSigner: false},
		{Pubkey: addrC, IsSigner: true},
	}, data.Accounts)
	raw, err := base64.StdEncoding.DecodeString(data.InstructionData)
	require.NoError(t, err)
	require.Len(t, raw, 10)
	require.Equal(t, byte(12), raw[0])
	require.Equal(t, byte(6), raw[9], "configured default decimals")

	var shape struct {
		Data struct {
			Accounts []map[string]any `json:"accounts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &shape))
	require.Len(t, shape.Data.Accounts[0], 2, "transfer accounts carry only pubkey and isSigner")

	_, env = post(t, mux, "/send/token", `{"destination":"`+addrB+`","mint":"`+addrA+`","owner":"`+addrC+`","amount":42,"decimals":9}`)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	raw, err = base64.StdEncoding.DecodeString(data.InstructionData)
	require.NoError(t, err)
	require.Equal(t, byte(9), raw[9], "request decimals override default")

	cases := []struct {
		name     string
		body     string
		contains string
	}{
		{"invalid mint", `{"destination":"` + addrB + `","mint":"bad","owner":"` + addrC + `","amount":1}`, "Invalid mint address"},
		{"invalid destination", `{"destination":"bad","mint":"` + addrA + `","owner":"` + addrC + `","amount":1}`, "Invalid destination address"},
		{"invalid owner", `{"destination":"` + addrB + `","mint":"` + addrA + `","owner":"bad","amount":1}`, "Invalid owner address"},
		{"decimals out of range", `{"destination":"` + addrB + `","mint":"` + addrA + `","owner":"` + addrC + `","amount":1,"decimals":256}`, "Invalid request body: decimals"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := post(t, mux, "/send/token", tc.body)
			requireFailure(t, rr, env, tc.contains)
		})
	}
}

func TestCreateToken(t *testing.T) {
	mux := newTestMux(t, Options{})
	rr, env := post(t, mux, "/token/create", `{"mintAuthority":"`+addrB+`","mint":"`+addrA+`","decimals":6}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data tokenInstructionBody
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, solana.TokenProgramID.String(), data.ProgramID)
	require.Equal(t, []accountInfoBody{
		{Pubkey: addrA, IsSigner: false, IsWritable: true},
		{Pubkey: solana.SysVarRentPubkey.String(), IsSigner: false, IsWritable: false},
	}, data.Accounts)
	raw, err := base64.StdEncoding.DecodeString(data.InstructionData)
	require.NoError(t, err)
	require.Equal(t, byte(0), raw[0])
	require.Equal(t, byte(6), raw[1])

	cases := []struct {
		name     string
		body     string
		contains string
	}{
		{"invalid mint", `{"mintAuthority":"` + addrB + `","mint":"nope","decimals":6}`, "Invalid mint pubkey"},
		{"invalid authority", `{"mintAuthority":"nope","mint":"` + addrA + `","decimals":6}`, "Invalid mint authority pubkey"},
		{"missing decimals", `{"mintAuthority":"` + addrB + `","mint":"` + addrA + `"}`, "decimals"},
		{"decimals too large", `{"mintAuthority":"` + addrB + `","mint":"` + addrA + `","decimals":300}`, "Invalid request body: decimals"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := post(t, mux, "/token/create", tc.body)
			requireFailure(t, rr, env, tc.contains)
		})
	}
}

func TestMintToken(t *testing.T) {
	mux := newTestMux(t, Options{})
	rr, env := post(t, mux, "/token/mint", `{"mint":"`+addrA+`","destination":"`+addrB+`","authority":"`+addrC+`","amount":1000000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data tokenInstructionBody
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, []accountInfoBody{
		{Pubkey: addrA, IsSigner: false, IsWritable: true},
		{Pubkey: addrB, IsSigner: false, IsWritable: true},
		{Pubkey: addrC, IsSigner: true, IsWritable: false},
	}, data.Accounts)
	raw, err := base64.StdEncoding.DecodeString(data.InstructionData)
	require.NoError(t, err)
	require.Len(t, raw, 9)
	require.Equal(t, byte(7), raw[0])

	cases := []struct {
		name     string
		body     string
		contains string
	}{
		{"invalid mint", `{"mint":"x","destination":"` + addrB + `","authority":"` + addrC + `","amount":1}`, "Invalid mint pubkey"},
		{"invalid destination", `{"mint":"` + addrA + `","destination":"x","authority":"` + addrC + `","amount":1}`, "Invalid destination pubkey"},
		{"invalid authority", `{"mint":"` + addrA + `","destination":"` + addrB + `","authority":"x","amount":1}`, "Invalid authority pubkey"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := post(t, mux, "/token/mint", tc.body)
			requireFailure(t, rr, env, tc.contains)
		})
	}
}

func TestInstructionEndpointsAreIdempotent(t *testing.T) {
	mux := newTestMux(t, Options{TransferDecimals: 6})
	requests := map[string]string{
		"/send/sol":     `{"from":"` + addrA + `","to":"` + addrB + `","lamports":5}`,
		"/send/token":   `{"destination":"` + addrB + `","mint":"` + addrA + `","owner":"` + addrC + `","amount":5}`,
		"/token/create": `{"mintAuthority":"` + addrB + `","mint":"` + addrA + `","decimals":2}`,
		"/token/mint":   `{"mint":"` + addrA + `","destination":"` + addrB + `","authority":"` + addrC + `","amount":5}`,
	}
	for path, body := range requests {
		first, _ := post(t, mux, path, body)
		second, _ := post(t, mux, path, body)
		require.Equal(t, http.StatusOK, first.Code, path)
		require.Equal(t, first.Body.Bytes(), second.Body.Bytes(), path)
	}
}

func TestRouting(t *testing.T) {
	mux := newTestMux(t, Options{})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/unknown", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/keypair", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestBodyLimit(t *testing.T) {
	mux := newTestMux(t, Options{MaxBodyBytes: 1024})
	body := `{"message":"` + strings.Repeat("a", 2048) + `","secret":"x"}`
	rr, env := post(t, mux, "/message/sign", body)
	requireFailure(t, rr, env, "Request body exceeds 1024 bytes")
}

func TestMetricsRecordStatusAndCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	mux := newTestMux(t, Options{Metrics: metrics})

	post(t, mux, "/send/sol", `{"from":"`+addrA+`","to":"`+addrB+`","lamports":1}`)
	post(t, mux, "/send/sol", `{"from":"bad","to":"`+addrB+`","lamports":1}`)
	post(t, mux, "/send/sol", `{"from":"bad","to":"`+addrB+`","lamports":1}`)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/send/sol", "200")))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/send/sol", "400")))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.errors.WithLabelValues("/send/sol", "INVALID_KEY")))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.latency))
}
