package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/storage"
)

const (
	fixtureKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	fixtureIV  = "0f0e0d0c0b0a09080706050403020100"
	// openssl enc -aes-256-cbc of
	// {"questions":[{"question":"2+2?","options":["3","4"],"correctAnswer":1}]}
	fixtureData = "b499e49f2c5a742aab5b650b8a6ac6fe64cd55fb8c67b1168a048aca99cdd28e" +
		"0a1d1f814468dbb8adda885dd43520bdc96d98aa2c0ad146be89cdcee74d94fe" +
		"f989a5b5447d1f4c13a322ccd13bbec9"
)

func sampleDoc() exam.Document {
	return exam.Document{Questions: []exam.Question{
		{Prompt: "Capital of France?", Options: []string{"Berlin", "Paris", "Rome"}, CorrectAnswerIndex: 1},
		{Prompt: "2+3?", Options: []string{"5", "6"}, CorrectAnswerIndex: 0},
	}}
}

// sealCBC encrypts arbitrary plaintext so tests can build envelopes that
// Seal would refuse.
func sealCBC(t *testing.T, key string, plain []byte) storage.Envelope {
	t.Helper()
	k, err := hex.DecodeString(key)
	require.NoError(t, err)
	block, err := aes.NewCipher(k)
	require.NoError(t, err)
	iv := make([]byte, aes.BlockSize)
	padded := pad(append([]byte(nil), plain...))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return storage.Envelope{IV: hex.EncodeToString(iv), EncryptedData: hex.EncodeToString(out)}
}

func TestDecrypt_OpenSSLFixture(t *testing.T) {
	doc, err := Decrypt(storage.Envelope{IV: fixtureIV, EncryptedData: fixtureData}, fixtureKey)
	require.NoError(t, err)
	require.Len(t, doc.Questions, 1)
	assert.Equal(t, "2+2?", doc.Questions[0].Prompt)
	assert.Equal(t, []string{"3", "4"}, doc.Questions[0].Options)
	assert.Equal(t, 1, doc.Questions[0].CorrectAnswerIndex)
}

func TestSealDecrypt_RoundTrip(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)

	for _, alg := range []string{"", AlgAES256CBC, AlgXChaCha20Poly1305} {
		t.Run("alg="+alg, func(t *testing.T) {
			env, err := Seal(sampleDoc(), key, alg)
			require.NoError(t, err)
			if alg == AlgXChaCha20Poly1305 {
				assert.Equal(t, alg, env.Alg)
			} else {
				assert.Empty(t, env.Alg)
			}

			doc, err := Decrypt(env, key)
			require.NoError(t, err)
			assert.Equal(t, sampleDoc(), doc)
		})
	}
}

func TestSeal_FreshIVEachTime(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	a, err := Seal(sampleDoc(), key, "")
	require.NoError(t, err)
	b, err := Seal(sampleDoc(), key, "")
	require.NoError(t, err)
	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.EncryptedData, b.EncryptedData)
}

func TestDecrypt_Failures(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	other, err := NewKey()
	require.NoError(t, err)

	cbc, err := Seal(sampleDoc(), key, "")
	require.NoError(t, err)
	xc, err := Seal(sampleDoc(), key, AlgXChaCha20Poly1305)
	require.NoError(t, err)

	tampered := xc
	raw, _ := hex.DecodeString(tampered.EncryptedData)
	raw[0] ^= 0xff
	tampered.EncryptedData = hex.EncodeToString(raw)

	testCases := []struct {
		name string
		env  storage.Envelope
		key  string
		want error
	}{
		{"cbc wrong key", cbc, other, exam.ErrDecryptionFailed},
		{"xchacha wrong key", xc, other, exam.ErrDecryptionFailed},
		{"xchacha tampered", tampered, key, exam.ErrDecryptionFailed},
		{"malformed key", cbc, "not-hex", exam.ErrDecryptionFailed},
		{"short key", cbc, "abcd", exam.ErrDecryptionFailed},
		{"non hex iv", storage.Envelope{IV: "zz", EncryptedData: cbc.EncryptedData}, key, exam.ErrDecryptionFailed},
		{"short iv", storage.Envelope{IV: "00", EncryptedData: cbc.EncryptedData}, key, exam.ErrDecryptionFailed},
		{"partial block", storage.Envelope{IV: cbc.IV, EncryptedData: "abcdef"}, key, exam.ErrDecryptionFailed},
		{"unknown alg", storage.Envelope{Alg: "rot13", IV: cbc.IV, EncryptedData: cbc.EncryptedData}, key, exam.ErrDecryptionFailed},
		{"not json", sealCBC(t, key, []byte("hello, world")), key, exam.ErrDecryptionFailed},
		{"no questions", sealCBC(t, key, []byte(`{"questions":[]}`)), key, exam.ErrInvalidContent},
		{"answer out of range", sealCBC(t, key, []byte(`{"questions":[{"question":"q","options":["a"],"correctAnswer":1}]}`)), key, exam.ErrInvalidContent},
		{"negative answer", sealCBC(t, key, []byte(`{"questions":[{"question":"q","options":["a"],"correctAnswer":-1}]}`)), key, exam.ErrInvalidContent},
		{"no options", sealCBC(t, key, []byte(`{"questions":[{"question":"q","options":[],"correctAnswer":0}]}`)), key, exam.ErrInvalidContent},
		{"empty prompt", sealCBC(t, key, []byte(`{"questions":[{"question":"","options":["a"],"correctAnswer":0}]}`)), key, exam.ErrInvalidContent},
		{"missing answer key", sealCBC(t, key, []byte(`{"questions":[{"question":"q","options":["a","b"]}]}`)), key, exam.ErrInvalidContent},
		{"null answer key", sealCBC(t, key, []byte(`{"questions":[{"question":"q","options":["a","b"],"correctAnswer":null}]}`)), key, exam.ErrInvalidContent},
		{"trailing bytes", sealCBC(t, key, []byte(`{"questions":[{"question":"q","options":["a"],"correctAnswer":0}]}garbage`)), key, exam.ErrDecryptionFailed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decrypt(tc.env, tc.key)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestSeal_RejectsInvalidDocument(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	_, err = Seal(exam.Document{}, key, "")
	assert.ErrorIs(t, err, exam.ErrInvalidContent)

	_, err = Seal(sampleDoc(), key, "des")
	assert.Error(t, err)
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"questions":[{"question":"q","options":["a","b"],"correctAnswer":0}]}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Questions[0].CorrectAnswerIndex)

	_, err = ParseDocument([]byte(`{"questions":[{"question":"q","options":["a","b"],"correctAnswer":1},{"question":"r","options":["a"]}]}`))
	assert.ErrorIs(t, err, exam.ErrInvalidContent)
	assert.Contains(t, err.Error(), "question 1")

	_, err = ParseDocument([]byte(`{"questions":[]} {}`))
	assert.ErrorIs(t, err, errNotDocument)
}

type stubFetcher struct {
	env storage.Envelope
	err error
}

func (s stubFetcher) Fetch(context.Context, string) (storage.Envelope, error) {
	return s.env, s.err
}

func TestLoader(t *testing.T) {
	key, err := NewKey()
	require.NoError(t, err)
	env, err := Seal(sampleDoc(), key, "")
	require.NoError(t, err)
	e := exam.Exam{ID: "e1", ContentAddress: "Qm1", EncryptionKey: key}

	doc, err := NewLoader(stubFetcher{env: env}).Load(context.Background(), e)
	require.NoError(t, err)
	assert.Len(t, doc.Questions, 2)

	_, err = NewLoader(stubFetcher{err: exam.ErrContentUnavailable}).Load(context.Background(), e)
	assert.ErrorIs(t, err, exam.ErrContentUnavailable)

	e.EncryptionKey = fixtureKey
	_, err = NewLoader(stubFetcher{env: env}).Load(context.Background(), e)
	assert.ErrorIs(t, err, exam.ErrDecryptionFailed)
}
