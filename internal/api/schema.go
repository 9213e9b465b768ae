package solanaapi

import (
	"bytes"

	"github.com/aegis-sign/solana-api/pkg/apierrors"
	"github.com/xeipuuv/gojsonschema"
)

// 只约束 JSON 形状（类型、数值范围、数值字段必填）；地址与密钥的语义校验由 handler 逐字段完成。
var (
	signSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"message": {"type": "string"},
			"secret": {"type": "string"}
		}
	}`)
	verifySchema = mustSchema(`{
		"type": "object",
		"properties": {
			"message": {"type": "string"},
			"signature": {"type": "string"},
			"pubkey": {"type": "string"}
		}
	}`)
	sendSolSchema = mustSchema(`{
		"type": "object",
		"required": ["lamports"],
		"properties": {
			"from": {"type": "string"},
			"to": {"type": "string"},
			"lamports": {"type": "integer", "minimum": 0}
		}
	}`)
	sendTokenSchema = mustSchema(`{
		"type": "object",
		"required": ["amount"],
		"properties": {
			"destination": {"type": "string"},
			"mint": {"type": "string"},
			"owner": {"type": "string"},
			"amount": {"type": "integer", "minimum": 0},
			"decimals": {"type": "integer", "minimum": 0, "maximum": 255}
		}
	}`)
	createTokenSchema = mustSchema(`{
		"type": "object",
		"required": ["decimals"],
		"properties": {
			"mintAuthority": {"type": "string"},
			"mint": {"type": "string"},
			"decimals": {"type": "integer", "minimum": 0, "maximum": 255}
		}
	}`)
	mintTokenSchema = mustSchema(`{
		"type": "object",
		"required": ["amount"],
		"properties": {
			"mint": {"type": "string"},
			"destination": {"type": "string"},
			"authority": {"type": "string"},
			"amount": {"type": "integer", "minimum": 0}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("invalid request schema: " + err.Error())
	}
	return schema
}

// validateShape 只报告第一个不满足 schema 的字段。
func validateShape(schema *gojsonschema.Schema, body []byte) *apierrors.Error {
	if len(bytes.TrimSpace(body)) == 0 {
		return apierrors.New(apierrors.CodeInvalidArgument, "Invalid JSON body")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apierrors.New(apierrors.CodeInvalidArgument, "Invalid JSON body").WithCause(err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return apierrors.Newf(apierrors.CodeInvalidArgument, "Invalid request body: %s: %s", first.Field(), first.Description())
	}
	return nil
}
