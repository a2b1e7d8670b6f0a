// Package payment builds and parses the payment-request wire messages.
// Encoding signs the canonical Info JSON first, then encrypts it under a
// fresh session key wrapped for the receiver. Decoding verifies the
// signature after decryption and before any field is trusted; parse and
// verification failures are indistinguishable to callers.
package payment

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"

	"paygate/internal/envelope"
	dErrors "paygate/pkg/domain-errors"
)

// Encode serializes info, signs it with the sender's private key, encrypts
// it for the receiver and returns the base64 envelope string merchants post
// to /pay.
func Encode(info Info, senderKey *rsa.PrivateKey, receiverKey *rsa.PublicKey) (string, error) {
	env, err := seal(info, senderKey, receiverKey)
	if err != nil {
		return "", err
	}
	return wrap(env)
}

// Decode reverses Encode. The signature must verify against the sender's
// public key; unverified data is never returned.
func Decode(encoded string, receiverKey *rsa.PrivateKey, senderKey *rsa.PublicKey) (Info, error) {
	var env Envelope
	if err := unwrap(encoded, &env); err != nil {
		return Info{}, err
	}
	return open(env, receiverKey, senderKey)
}

// GenerateProofEnvelope re-seals info toward the chosen bank's public key,
// signed with the forwarding party's private key and stamped with its
// directory identity. The receiving bank trusts the forwarded amount and
// destination because the forwarder already validated them.
func GenerateProofEnvelope(info Info, bankKey *rsa.PublicKey, signerKey *rsa.PrivateKey, identity BankIdentity) (string, error) {
	env, err := seal(info, signerKey, bankKey)
	if err != nil {
		return "", err
	}
	proof := ProofEnvelope{
		Envelope:      env,
		BankName:      identity.Name,
		BankSwiftCode: identity.SwiftCode,
		BankCountry:   identity.Country,
	}
	return wrap(proof)
}

// DecodeProofEnvelope splits a forwarded envelope into its sender identity
// and sealed payload. The identity fields are the only part readable before
// key resolution; everything else stays opaque until open succeeds.
func DecodeProofEnvelope(encoded string) (ProofEnvelope, error) {
	var proof ProofEnvelope
	if err := unwrap(encoded, &proof); err != nil {
		return ProofEnvelope{}, err
	}
	if proof.BankName == "" || proof.BankSwiftCode == "" || proof.BankCountry == "" {
		return ProofEnvelope{}, dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	return proof, nil
}

// Open verifies and decrypts the sealed payload of a proof envelope once the
// sender's registered key has been resolved.
func (p ProofEnvelope) Open(receiverKey *rsa.PrivateKey, senderKey *rsa.PublicKey) (Info, error) {
	return open(p.Envelope, receiverKey, senderKey)
}

// BankIdentity names a bank as registered in the directory.
type BankIdentity struct {
	Name      string
	SwiftCode string
	Country   string
}

// GenerateSuccessResponse builds the signed settlement receipt. reference is
// the content hash of the original envelope; the signature proves the
// claimed bank performed the settlement.
func GenerateSuccessResponse(reference string, signerKey *rsa.PrivateKey) (string, error) {
	payload := []byte(reference + "|settled")
	sig, err := envelope.Sign(payload, signerKey)
	if err != nil {
		return "", dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")
	}
	receipt := Receipt{
		Reference: reference,
		Outcome:   "settled",
		Signature: base64.StdEncoding.EncodeToString(sig),
	}
	return wrap(receipt)
}

// VerifySuccessResponse checks a receipt against the signer's public key and
// the expected reference.
func VerifySuccessResponse(encoded, reference string, signerKey *rsa.PublicKey) (Receipt, error) {
	var receipt Receipt
	if err := unwrap(encoded, &receipt); err != nil {
		return Receipt{}, err
	}
	sig, err := base64.StdEncoding.DecodeString(receipt.Signature)
	if err != nil {
		return Receipt{}, dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	payload := []byte(receipt.Reference + "|" + receipt.Outcome)
	if receipt.Reference != reference || !envelope.Verify(payload, sig, signerKey) {
		return Receipt{}, dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")
	}
	return receipt, nil
}

func seal(info Info, senderKey *rsa.PrivateKey, receiverKey *rsa.PublicKey) (Envelope, error) {
	if err := info.Validate(); err != nil {
		return Envelope{}, err
	}
	plaintext, err := json.Marshal(info)
	if err != nil {
		return Envelope{}, dErrors.New(dErrors.CodeInternal, "serialize payment info")
	}

	signature, err := envelope.Sign(plaintext, senderKey)
	if err != nil {
		return Envelope{}, dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")
	}
	key, iv, err := envelope.GenerateSessionKey()
	if err != nil {
		return Envelope{}, dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")
	}
	ciphertext, err := envelope.Encrypt(plaintext, key, iv)
	if err != nil {
		return Envelope{}, dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")
	}
	wrappedKey, err := envelope.WrapKey(key, receiverKey)
	if err != nil {
		return Envelope{}, dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")
	}
	wrappedIV, err := envelope.WrapKey(iv, receiverKey)
	if err != nil {
		return Envelope{}, dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")
	}

	return Envelope{
		EncryptedKey: base64.StdEncoding.EncodeToString(wrappedKey),
		EncryptedIv:  base64.StdEncoding.EncodeToString(wrappedIV),
		Data:         base64.StdEncoding.EncodeToString(ciphertext),
		Signature:    base64.StdEncoding.EncodeToString(signature),
	}, nil
}

// open decrypts then verifies. Any failure along the way surfaces as the
// same generic crypto error.
func open(env Envelope, receiverKey *rsa.PrivateKey, senderKey *rsa.PublicKey) (Info, error) {
	cryptoErr := dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")

	wrappedKey, err := base64.StdEncoding.DecodeString(env.EncryptedKey)
	if err != nil {
		return Info{}, cryptoErr
	}
	wrappedIV, err := base64.StdEncoding.DecodeString(env.EncryptedIv)
	if err != nil {
		return Info{}, cryptoErr
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return Info{}, cryptoErr
	}
	signature, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return Info{}, cryptoErr
	}

	key, err := envelope.UnwrapKey(wrappedKey, receiverKey)
	if err != nil {
		return Info{}, cryptoErr
	}
	iv, err := envelope.UnwrapKey(wrappedIV, receiverKey)
	if err != nil {
		return Info{}, cryptoErr
	}
	plaintext, err := envelope.Decrypt(ciphertext, key, iv)
	if err != nil {
		return Info{}, cryptoErr
	}
	if !envelope.Verify(plaintext, signature, senderKey) {
		return Info{}, cryptoErr
	}

	var info Info
	if err := json.Unmarshal(plaintext, &info); err != nil {
		return Info{}, cryptoErr
	}
	if err := info.Validate(); err != nil {
		return Info{}, cryptoErr
	}
	return info, nil
}

func wrap(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInternal, "serialize envelope")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func unwrap(encoded string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	return nil
}
