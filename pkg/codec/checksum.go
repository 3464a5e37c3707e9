package codec

import (
	"crypto"
	_ "crypto/sha512" // registers crypto.SHA512
	"hash"
)

// newDigest returns the hash used for the checksum record.
func newDigest() (hash.Hash, error) {
	if !crypto.SHA512.Available() {
		return nil, ErrDigestUnavailable
	}
	return crypto.SHA512.New(), nil
}

// Sum returns the SHA-512 digest of data. The checksum of a stream is Sum
// over the signature and every record before the checksum record.
func Sum(data []byte) ([ChecksumSize]byte, error) {
	var out [ChecksumSize]byte
	h, err := newDigest()
	if err != nil {
		return out, newError(KindResource, "checksum", FieldChecksum, -1, err)
	}
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out, nil
}
