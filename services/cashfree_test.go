package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"bgmi-scrims-system/models"
)

func signWebhook(secret string, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	secret := "cf-secret"
	body := []byte(`{"data":{"order":{"order_id":"scrim_abc","order_status":"PAID"}}}`)
	ts := "1756700000"

	sig := signWebhook(secret, body, ts)
	if !VerifyWebhookSignature(secret, body, sig, ts) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifyWebhookSignature_Rejections(t *testing.T) {
	secret := "cf-secret"
	body := []byte(`{"data":{}}`)
	ts := "1756700000"
	sig := signWebhook(secret, body, ts)

	if VerifyWebhookSignature(secret, body, sig, "1756700001") {
		t.Error("tampered timestamp must not verify")
	}
	if VerifyWebhookSignature(secret, []byte(`{"data":{"x":1}}`), sig, ts) {
		t.Error("tampered body must not verify")
	}
	if VerifyWebhookSignature("other-secret", body, sig, ts) {
		t.Error("wrong secret must not verify")
	}
	if VerifyWebhookSignature(secret, body, "", ts) {
		t.Error("empty signature must not verify")
	}
	if VerifyWebhookSignature(secret, body, sig, "") {
		t.Error("empty timestamp must not verify")
	}
}

func TestMapGatewayStatus(t *testing.T) {
	cases := []struct {
		orderStatus   string
		paymentStatus string
		want          models.PaymentOrderStatus
	}{
		{"PAID", "", models.PaymentOrderStatusSuccess},
		{"paid", "", models.PaymentOrderStatusSuccess},
		{"SUCCESS", "", models.PaymentOrderStatusSuccess},
		{"FAILED", "", models.PaymentOrderStatusFailed},
		{"ACTIVE", "", models.PaymentOrderStatusInitiated},
		{"ACTIVE", "SUCCESS", models.PaymentOrderStatusSuccess},
		{"ACTIVE", "FAILED", models.PaymentOrderStatusFailed},
		{"", "", models.PaymentOrderStatusInitiated},
		{"EXPIRED", "", models.PaymentOrderStatusInitiated},
	}
	for _, tc := range cases {
		if got := MapGatewayStatus(tc.orderStatus, tc.paymentStatus); got != tc.want {
			t.Errorf("MapGatewayStatus(%q, %q) = %s, want %s", tc.orderStatus, tc.paymentStatus, got, tc.want)
		}
	}
}
