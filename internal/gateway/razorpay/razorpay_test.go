package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))

	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAccepts(t *testing.T) {
	t.Parallel()

	client := NewClient("rzp_test_key", "secret123")

	signature := sign("secret123", "order_abc", "pay_xyz")
	require.NoError(t, client.VerifySignature("order_abc", "pay_xyz", signature))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	client := NewClient("rzp_test_key", "secret123")

	signature := sign("other-secret", "order_abc", "pay_xyz")
	err := client.VerifySignature("order_abc", "pay_xyz", signature)
	require.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifySignatureRejectsSwappedIDs(t *testing.T) {
	t.Parallel()

	client := NewClient("rzp_test_key", "secret123")

	signature := sign("secret123", "order_abc", "pay_xyz")
	err := client.VerifySignature("pay_xyz", "order_abc", signature)
	require.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifySignatureRejectsEmpty(t *testing.T) {
	t.Parallel()

	client := NewClient("rzp_test_key", "secret123")

	err := client.VerifySignature("order_abc", "pay_xyz", "")
	require.ErrorIs(t, err, ErrSignatureMismatch)
}
