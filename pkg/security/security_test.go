package security_test

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shipdesk/shipdesk-backend/pkg/security"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealerRoundTrip(t *testing.T) {
	sealer, err := security.NewSealer(testKeyHex)
	require.NoError(t, err)

	sealed, err := sealer.Seal("carrier-token")
	require.NoError(t, err)
	require.NotContains(t, sealed, "carrier-token")

	again, err := sealer.Seal("carrier-token")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := sealer.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "carrier-token", plain)
}

func TestSealerAcceptsBase64Key(t *testing.T) {
	raw, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)

	sealer, err := security.NewSealer(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	hexSealer, err := security.NewSealer(testKeyHex)
	require.NoError(t, err)

	sealed, err := sealer.Seal("x")
	require.NoError(t, err)
	plain, err := hexSealer.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "x", plain)
}

func TestSealerRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "short", strings.Repeat("zz", 32)} {
		_, err := security.NewSealer(key)
		require.Error(t, err, key)
		require.Error(t, security.ValidateKey(key), key)
	}
}

func TestSealerOpenRejectsTampering(t *testing.T) {
	sealer, err := security.NewSealer(testKeyHex)
	require.NoError(t, err)
	sealed, err := sealer.Seal("carrier-token")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	_, err = sealer.Open(base64.StdEncoding.EncodeToString(raw))
	require.ErrorIs(t, err, security.ErrInvalidCiphertext)

	_, err = sealer.Open("not base64!")
	require.ErrorIs(t, err, security.ErrInvalidCiphertext)
}

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"id":1}`)
	sig := security.SignHMACSHA256("s3cret", body)

	require.True(t, security.VerifyHMACBase64("s3cret", body, base64.StdEncoding.EncodeToString(sig)))
	require.False(t, security.VerifyHMACBase64("other", body, base64.StdEncoding.EncodeToString(sig)))
	require.False(t, security.VerifyHMACBase64("", body, base64.StdEncoding.EncodeToString(sig)))

	require.True(t, security.VerifyHMACHex("s3cret", body, hex.EncodeToString(sig)))
	require.True(t, security.VerifyHMACHex("s3cret", body, "sha256="+hex.EncodeToString(sig)))
	require.False(t, security.VerifyHMACHex("s3cret", []byte(`{"id":2}`), hex.EncodeToString(sig)))
}
