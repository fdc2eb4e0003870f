package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/security"
)

func TestEncryptor(t *testing.T) {
	enc, err := security.NewEncryptor([]byte("a secret of arbitrary length"))
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		cipher, err := enc.Encrypt(`{"body":"hello"}`)
		require.NoError(t, err)
		assert.NotEqual(t, `{"body":"hello"}`, cipher)

		plain, err := enc.Decrypt(cipher)
		require.NoError(t, err)
		assert.Equal(t, `{"body":"hello"}`, plain)
	})

	t.Run("FreshNoncePerMessage", func(t *testing.T) {
		a, err := enc.Encrypt("same")
		require.NoError(t, err)
		b, err := enc.Encrypt("same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("WrongKeyFails", func(t *testing.T) {
		other, err := security.NewEncryptor([]byte("different key"))
		require.NoError(t, err)

		cipher, err := enc.Encrypt("payload")
		require.NoError(t, err)
		_, err = other.Decrypt(cipher)
		assert.Error(t, err)
	})

	t.Run("GarbageInput", func(t *testing.T) {
		_, err := enc.Decrypt("not base64 !!!")
		assert.Error(t, err)

		_, err = enc.Decrypt("c2hvcnQ=") // valid base64, too short for a nonce
		assert.Error(t, err)
	})

	t.Run("EmptyKeyRejected", func(t *testing.T) {
		_, err := security.NewEncryptor(nil)
		assert.Error(t, err)
	})
}
