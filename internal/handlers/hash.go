package handlers

import (
	"net/http"

	"github.com/kouprey/storefront/internal/payment"
)

type HashHandler struct {
	Signer payment.Signer
}

type hashRequest struct {
	payment.RequestFields
	// Fields, when present, is hashed as given instead of the PayU layout.
	Fields []string `json:"fields"`
}

func (h *HashHandler) Hash(w http.ResponseWriter, r *http.Request) {
	var req hashRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields := req.Fields
	if fields == nil {
		if req.Key == "" || req.TxnID == "" || req.Salt == "" {
			writeError(w, http.StatusBadRequest, "key, txnid and salt required")
			return
		}
		fields = req.Ordered()
	}
	writeJSON(w, http.StatusOK, map[string]string{"hash": h.Signer.Sign(fields)})
}
