package field

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// encoding to change without colliding with older hashes.
const (
	DomainValue    = "scenecore/value/v1"
	DomainDelivery = "scenecore/delivery/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a stable content hash of a tagged value. Equal values
// always share a fingerprint.
func Fingerprint(v Value) (string, error) {
	data, err := MarshalTagged(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainValue, data), nil
}

// DeliveryID returns the content-addressed identity of one delivery inside
// a cascade. The same cascade token and sequence number always produce the
// same ID, so re-recording a trace is idempotent.
func DeliveryID(cascadeToken string, seq int64) string {
	data := fmt.Appendf(nil, "%s\x00%d", cascadeToken, seq)
	return hashWithDomain(DomainDelivery, data)
}
