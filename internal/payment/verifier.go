package payment

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// Verifier decides whether a callback really came from the provider.
type Verifier interface {
	Verify(f Fields) error
}

// AcceptAll trusts every callback. It is the default.
type AcceptAll struct{}

func (AcceptAll) Verify(Fields) error { return nil }

var (
	errHashMissing  = errors.New("callback hash missing")
	errHashMismatch = errors.New("callback hash mismatch")
)

// ReverseHashVerifier checks PayU's response hash:
// [additional_charges|]salt|status|udf10..udf1|email|firstname|productinfo|amount|txnid|key
type ReverseHashVerifier struct {
	Key    string
	Salt   string
	Signer Signer
}

func (v ReverseHashVerifier) Verify(f Fields) error {
	got := strings.ToLower(f.Get("hash"))
	if got == "" {
		return errHashMissing
	}

	var fields []string
	if charges := f.Get("additional_charges"); charges != "" {
		fields = append(fields, charges)
	}
	fields = append(fields, v.Salt, f.Get("status"))
	for i := udfSlots; i >= 1; i-- {
		fields = append(fields, f.Get(udfKey(i)))
	}
	fields = append(fields,
		f.Get("email"), f.Get("firstname"), f.Get("productinfo"),
		f.Get("amount"), f.Get("txnid"), v.Key)

	signer := v.Signer
	if signer == nil {
		signer = SHA512Signer{}
	}
	want := signer.Sign(fields)
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return errHashMismatch
	}
	return nil
}
