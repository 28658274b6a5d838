package crypto_test

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
)

func TestGenerateKeyPair_LengthAndCommutativity(t *testing.T) {
	for i := 0; i < 16; i++ {
		alice, err := crypto.GenerateKeyPair(rand.Reader)
		require.NoError(t, err)
		bob, err := crypto.GenerateKeyPair(rand.Reader)
		require.NoError(t, err)

		require.Len(t, alice.Public.Slice(), 32)
		require.Len(t, bob.Public.Slice(), 32)
		require.NotEqual(t, alice.Public, bob.Public)

		ab, err := crypto.ComputeSharedSecret(alice.Private.Slice(), bob.Public.Slice())
		require.NoError(t, err)
		ba, err := crypto.ComputeSharedSecret(bob.Private.Slice(), alice.Public.Slice())
		require.NoError(t, err)
		require.Equal(t, ab, ba)
	}
}

func TestComputeSharedSecret_RejectsBadLengths(t *testing.T) {
	kp, err := crypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	for _, n := range []int{0, 31, 33, 64} {
		_, err := crypto.ComputeSharedSecret(kp.Private.Slice(), make([]byte, n))
		require.ErrorIs(t, err, domain.ErrInvalidKey)

		var ike *domain.InvalidKeyError
		require.True(t, errors.As(err, &ike))
		require.Equal(t, 32, ike.Want)
		require.Equal(t, n, ike.Got)
	}

	_, err = crypto.ComputeSharedSecret(make([]byte, 16), kp.Public.Slice())
	require.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestComputeSharedSecret_RejectsLowOrderPoint(t *testing.T) {
	kp, err := crypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	_, err = crypto.ComputeSharedSecret(kp.Private.Slice(), make([]byte, 32))
	require.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestGenerateKeyPair_ShortReader(t *testing.T) {
	_, err := crypto.GenerateKeyPair(&shortReader{})
	require.Error(t, err)
}

func TestDeriveKeys(t *testing.T) {
	secret := []byte("shared secret")

	a, err := crypto.DeriveKeys(secret, []byte("salt"), []byte("info"), 76)
	require.NoError(t, err)
	require.Len(t, a, 76)

	b, err := crypto.DeriveKeys(secret, []byte("salt"), []byte("info"), 76)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := crypto.DeriveKeys(secret, []byte("salt"), []byte("other"), 76)
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	_, err = crypto.DeriveKeys(secret, nil, nil, 0)
	require.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateSigningKeyPair(rand.Reader)
	require.NoError(t, err)

	msg := []byte("signed pre-key")
	sig := crypto.Sign(priv, msg)
	require.Len(t, sig, crypto.SignatureSize)
	require.True(t, crypto.Verify(pub, msg, sig))

	require.False(t, crypto.Verify(pub, []byte("other"), sig))
	require.False(t, crypto.Verify(pub, msg, sig[:10]))

	_, otherPub, err := crypto.GenerateSigningKeyPair(rand.Reader)
	require.NoError(t, err)
	require.False(t, crypto.Verify(otherPub, msg, sig))
}

func TestSealOpen(t *testing.T) {
	var key [32]byte
	var iv [crypto.NonceSize]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)

	ct, err := crypto.Seal(key, iv, []byte("hello"), []byte("ad"))
	require.NoError(t, err)

	pt, err := crypto.Open(key, iv, ct, []byte("ad"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(pt))

	_, err = crypto.Open(key, iv, ct, []byte("AD"))
	require.Error(t, err)

	ct[0] ^= 1
	_, err = crypto.Open(key, iv, ct, []byte("ad"))
	require.Error(t, err)
}

func TestMAC(t *testing.T) {
	key := []byte("mac key")
	tag := crypto.MAC(key, []byte("a"), []byte("bc"))
	require.Len(t, tag, crypto.MACSize)
	require.True(t, crypto.VerifyMAC(key, tag, []byte("ab"), []byte("c")))
	require.False(t, crypto.VerifyMAC(key, tag, []byte("abd")))
	require.False(t, crypto.VerifyMAC([]byte("other"), tag, []byte("abc")))
}

func TestFingerprint(t *testing.T) {
	fp := crypto.Fingerprint([]byte("pub"))
	require.Len(t, fp.String(), 20)
	require.Equal(t, fp, crypto.Fingerprint([]byte("pub")))
	require.NotEqual(t, fp, crypto.Fingerprint([]byte("pub2")))
}

type shortReader struct{}

func (shortReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = 1
	return 1, errors.New("entropy exhausted")
}
