package payment

import (
	"bytes"
	"crypto/cipher"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// callbackFields is the order in which the gateway hashes its return fields.
var callbackFields = []string{
	"ID",
	"Response_Code",
	"Unique_Ref_Number",
	"Service_Tax_Amount",
	"Processing_Fee_Amount",
	"Total_Amount",
	"Transaction_Amount",
	"Transaction_Date",
	"Interchange_Value",
	"TDR",
	"Payment_Mode",
	"SubMerchantId",
	"ReferenceNo",
	"TPS",
}

// encryptECB encrypts plain with AES in ECB mode and PKCS#7 padding, as the
// gateway expects, and returns it base64 encoded.
func encryptECB(block cipher.Block, plain string) string {
	size := block.BlockSize()
	data := pkcs7Pad([]byte(plain), size)
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += size {
		block.Encrypt(out[i:i+size], data[i:i+size])
	}
	return base64.StdEncoding.EncodeToString(out)
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// signature is the lowercase hex SHA-512 of the ordered callback fields,
// each followed by a pipe, then the shared key.
func signature(fields map[string]string, key string) string {
	var sb strings.Builder
	for _, name := range callbackFields {
		sb.WriteString(fields[name])
		sb.WriteByte('|')
	}
	sb.WriteString(key)

	sum := sha512.Sum512([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func validSignature(fields map[string]string, key string) bool {
	got := strings.ToLower(strings.TrimSpace(fields["RS"]))
	if got == "" {
		return false
	}
	want := signature(fields, key)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
