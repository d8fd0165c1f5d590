package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")         // 404
	ErrInvalidSignature = errors.New("invalid signature") // 400
)

// VNPay builds signed redirect URLs for the VNPAY gateway and verifies its
// return callbacks.
type VNPay struct {
	TmnCode    string
	HashSecret []byte
	BaseURL    string
	ReturnURL  string
}

const vnpSuccessCode = "00"

// sign canonicalizes the parameter map: keys sorted, joined as key=value
// pairs with '&', HMAC-SHA256 over the UTF-8 bytes, hex encoded.
func (v *VNPay) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	mac := hmac.New(sha256.New, v.HashSecret)
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildPaymentURL assembles the redirect URL for one order. The amount is
// multiplied by 100 as VNPAY expects minor units.
func (v *VNPay) BuildPaymentURL(orderID uint, amount float64, clientIP string, now time.Time) string {
	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_TmnCode":    v.TmnCode,
		"vnp_Amount":     strconv.FormatInt(int64(amount*100), 10),
		"vnp_Command":    "pay",
		"vnp_CreateDate": now.Format("2006-01-02 15:04:05"),
		"vnp_CurrCode":   "VND",
		"vnp_IpAddr":     clientIP,
		"vnp_Locale":     "vn",
		"vnp_OrderInfo":  fmt.Sprintf("Thanh toan cho don hang %d", orderID),
		"vnp_ReturnUrl":  v.ReturnURL,
		"vnp_TxnRef":     strconv.FormatUint(uint64(orderID), 10),
	}
	params["vnp_SecureHash"] = v.sign(params)

	q := url.Values{}
	for k, val := range params {
		q.Set(k, val)
	}
	return v.BaseURL + "?" + q.Encode()
}

// VerifyCallback recomputes the signature over every received parameter
// except the hash fields and compares it in constant time. It must be called
// before any state is touched.
func (v *VNPay) VerifyCallback(query url.Values) error {
	got := query.Get("vnp_SecureHash")
	if got == "" {
		return fmt.Errorf("%w: missing vnp_SecureHash", ErrInvalidSignature)
	}

	params := make(map[string]string, len(query))
	for k := range query {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		params[k] = query.Get(k)
	}

	want := v.sign(params)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(got))) {
		return ErrInvalidSignature
	}
	return nil
}

// Succeeded reports whether a verified callback carries the gateway's
// success code.
func (v *VNPay) Succeeded(query url.Values) bool {
	return query.Get("vnp_ResponseCode") == vnpSuccessCode
}
