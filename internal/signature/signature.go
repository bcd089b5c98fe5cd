// Package signature recreates the digests lease and attestation parties sign
// off-chain and recovers signer addresses from 65-byte secp256k1 signatures.
//
// The payload encoding is schema v1 and is part of the external signing
// interface: strings are packed as raw UTF-8 bytes, integers as 32-byte
// big-endian words, in the declared field order. Any divergence between the
// off-chain signer and this package silently yields an unrelated recovered
// address, so callers must compare the recovered address against the
// expected party rather than rely on errors.
package signature

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/terrafield/landledger/internal/domain"
)

// signedMessagePrefix is the standard Ethereum personal-sign domain separator
// for a 32-byte message.
const signedMessagePrefix = "\x19Ethereum Signed Message:\n32"

// SignatureLength is the required raw signature size: r (32) || s (32) || v (1)
const SignatureLength = 65

// word encodes an integer as a 32-byte big-endian word, the packed encoding
// of a uint256.
func word(v uint64) []byte {
	var w [32]byte
	binary.BigEndian.PutUint64(w[24:], v)
	return w[:]
}

// hashWithPrefix applies the signed-message prefix over the inner payload
// hash and hashes again. The outer hash is what signatures are computed over.
func hashWithPrefix(inner []byte) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte(signedMessagePrefix), inner))
}

// AttestationDigest recreates the digest signed to attest a land title.
// Schema v1 field order: tokenID, documentHash, size.
func AttestationDigest(tokenID uint64, documentHash string, size domain.Quantity) common.Hash {
	inner := crypto.Keccak256(
		word(tokenID),
		[]byte(documentHash),
		word(uint64(size)),
	)
	return hashWithPrefix(inner)
}

// AgreementDigest recreates the digest both parties sign over lease terms.
// Schema v1 field order: purpose, size, duration, cost, tokenID.
func AgreementDigest(terms domain.AgreementTerms) common.Hash {
	inner := crypto.Keccak256(
		[]byte(terms.Purpose),
		word(uint64(terms.Size)),
		word(terms.Duration),
		word(terms.Cost),
		word(terms.TokenID),
	)
	return hashWithPrefix(inner)
}

// RecoverSigner recovers the signing address from a 65-byte signature over
// digest. A recovery id below 27 is offset by 27 to normalize both signing
// conventions; an id outside {27, 28} yields the zero address rather than an
// error, matching on-chain ecrecover semantics. Only a wrong-length
// signature fails.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, domain.ErrInvalidSignatureLength
	}

	v := sig[SignatureLength-1]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return common.Address{}, nil
	}

	// crypto.Ecrecover expects the recovery id in the 0/1 range
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig[:SignatureLength-1])
	normalized[SignatureLength-1] = v - 27

	pub, err := crypto.Ecrecover(digest.Bytes(), normalized)
	if err != nil {
		// Undecodable r/s values recover no address, they do not throw
		return common.Address{}, nil
	}

	return common.BytesToAddress(crypto.Keccak256(pub[1:])[12:]), nil
}
