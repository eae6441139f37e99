package payment

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// udfSlots is the number of user-defined fields PayU includes in its hash.
const udfSlots = 10

// Signer turns an ordered field list into a request signature.
type Signer interface {
	Sign(fields []string) string
}

// SHA512Signer joins fields with "|" and returns the lowercase hex SHA-512.
type SHA512Signer struct{}

func (SHA512Signer) Sign(fields []string) string {
	sum := sha512.Sum512([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}

// RequestFields are the inputs to a PayU payment request hash.
type RequestFields struct {
	Key         string   `json:"key"`
	TxnID       string   `json:"txnid"`
	Amount      string   `json:"amount"`
	ProductInfo string   `json:"productinfo"`
	FirstName   string   `json:"firstname"`
	Email       string   `json:"email"`
	UDF         []string `json:"udf"`
	Salt        string   `json:"salt"`
}

// Ordered returns key|txnid|amount|productinfo|firstname|email|udf1..udf10|salt
// as a slice. Missing udf slots are empty, extra ones are dropped.
func (r RequestFields) Ordered() []string {
	out := make([]string, 0, 7+udfSlots)
	out = append(out, r.Key, r.TxnID, r.Amount, r.ProductInfo, r.FirstName, r.Email)
	out = append(out, padUDF(r.UDF)...)
	return append(out, r.Salt)
}

func padUDF(udf []string) []string {
	out := make([]string, udfSlots)
	copy(out, udf)
	return out
}
