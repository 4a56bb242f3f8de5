package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshweave/fabric-go/crypto"
)

func TestSigner_SerializeRoundTrip(t *testing.T) {
	signer, err := crypto.GenerateSigner()
	require.NoError(t, err)

	material, err := signer.Serialize()
	require.NoError(t, err)
	require.Len(t, material, crypto.ScalarLength)

	rebuilt, err := crypto.DeserializeSigner(material)
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey(), rebuilt.PublicKey())

	// the rebuilt key must produce verifiable signatures
	message := []byte("identity material")
	sig, err := rebuilt.Sign(message)
	require.NoError(t, err)
	ok, err := crypto.VerifySignature(signer.PublicKey(), message, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeserializeSigner_InvalidMaterial(t *testing.T) {
	_, err := crypto.DeserializeSigner(nil)
	require.ErrorIs(t, err, crypto.ErrInvalidKeyMaterial)

	_, err = crypto.DeserializeSigner(make([]byte, 16))
	require.ErrorIs(t, err, crypto.ErrInvalidKeyMaterial)

	// the zero scalar is not a valid private key
	_, err = crypto.DeserializeSigner(make([]byte, crypto.ScalarLength))
	require.ErrorIs(t, err, crypto.ErrInvalidKeyMaterial)
}

func TestVerifySignature_WrongKey(t *testing.T) {
	signer, err := crypto.GenerateSigner()
	require.NoError(t, err)
	other, err := crypto.GenerateSigner()
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("message"))
	require.NoError(t, err)

	ok, err := crypto.VerifySignature(other.PublicKey(), []byte("message"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}
