package payment

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef"

func decryptECB(block cipher.Block, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	size := block.BlockSize()
	if len(data) == 0 || len(data)%size != 0 {
		return "", fmt.Errorf("ciphertext is not a whole number of blocks")
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += size {
		block.Decrypt(out[i:i+size], data[i:i+size])
	}
	n := int(out[len(out)-1])
	if n == 0 || n > size {
		return "", fmt.Errorf("invalid padding")
	}
	return string(out[:len(out)-n]), nil
}

func signedFields(responseCode, ref string) map[string]string {
	fields := map[string]string{
		"ID":                    "136082",
		"Response_Code":         responseCode,
		"Unique_Ref_Number":     "2506011234567",
		"Service_Tax_Amount":    "0.00",
		"Processing_Fee_Amount": "0.00",
		"Total_Amount":          "5000.00",
		"Transaction_Amount":    "5000",
		"Transaction_Date":      "01-06-2025 10:15:00",
		"Interchange_Value":     "",
		"TDR":                   "",
		"Payment_Mode":          "NET_BANKING",
		"SubMerchantId":         "1",
		"ReferenceNo":           ref,
		"TPS":                   "Y",
	}
	fields["RS"] = signature(fields, testKey)
	return fields
}

func TestEncryptECB(t *testing.T) {
	block, err := aes.NewCipher([]byte(testKey))
	require.NoError(t, err)

	for _, plain := range []string{"", "9", "0123456789abcdef", "BK20250601000000ABC123-XYZ789|1|5000|BK20250601000000ABC123"} {
		enc := encryptECB(block, plain)
		raw, err := base64.StdEncoding.DecodeString(enc)
		require.NoError(t, err)
		assert.Zero(t, len(raw)%aes.BlockSize)
		assert.Greater(t, len(raw), len(plain), "padding always adds at least one byte")

		dec, err := decryptECB(block, enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}

	// ECB is deterministic.
	assert.Equal(t, encryptECB(block, "5000"), encryptECB(block, "5000"))
}

func TestSignature(t *testing.T) {
	fields := signedFields("E000", "BK1-ABCDEF")

	plain := "136082|E000|2506011234567|0.00|0.00|5000.00|5000|01-06-2025 10:15:00|||NET_BANKING|1|BK1-ABCDEF|Y|" + testKey
	sum := sha512.Sum512([]byte(plain))
	assert.Equal(t, hex.EncodeToString(sum[:]), fields["RS"])

	assert.True(t, validSignature(fields, testKey))

	t.Run("uppercase hex accepted", func(t *testing.T) {
		upper := copyFields(fields)
		upper["RS"] = fmt.Sprintf("%X", sum[:])
		assert.True(t, validSignature(upper, testKey))
	})

	t.Run("tampered field", func(t *testing.T) {
		tampered := copyFields(fields)
		tampered["Transaction_Amount"] = "1"
		assert.False(t, validSignature(tampered, testKey))
	})

	t.Run("wrong key", func(t *testing.T) {
		assert.False(t, validSignature(fields, "fedcba9876543210"))
	})

	t.Run("missing signature", func(t *testing.T) {
		missing := copyFields(fields)
		delete(missing, "RS")
		assert.False(t, validSignature(missing, testKey))
	})
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func TestParseOutcome(t *testing.T) {
	tests := map[string]Outcome{
		"SUCCESS":    OutcomeSuccess,
		"Captured":   OutcomeSuccess,
		" rip ":      OutcomeProcessing,
		"SIP":        OutcomeProcessing,
		"initiated":  OutcomeProcessing,
		"Declined":   OutcomeFailed,
		"expired":    OutcomeFailed,
		"Cancelled":  OutcomeFailed,
		"successful": OutcomeSuccess,
	}
	for raw, want := range tests {
		got, ok := ParseOutcome(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := ParseOutcome("refunded")
	assert.False(t, ok)
}
