package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainEvent  = "fairseed/event/v1"
	DomainConfig = "fairseed/config/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of an event. The ID covers every
// field except ID itself, so any edit to a stored event is detectable.
func EventID(e Event) (string, error) {
	obj := IRObject{
		"distribution_id": IRString(e.DistributionID),
		"seq":             IRInt(e.Seq),
		"type":            IRString(string(e.Type)),
		"at":              IRInt(e.At),
		"payload":         e.Payload,
	}
	if e.Payload == nil {
		obj["payload"] = IRObject{}
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// VerifyEventID reports whether e.ID matches its content.
func VerifyEventID(e Event) error {
	want, err := EventID(e)
	if err != nil {
		return err
	}
	if want != e.ID {
		return fmt.Errorf("event seq %d: id %q does not match content (want %q)", e.Seq, e.ID, want)
	}
	return nil
}

// ConfigHash fingerprints a distribution configuration.
func ConfigHash(cfg IRObject) (string, error) {
	canonical, err := MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(e Event) string {
	id, err := EventID(e)
	if err != nil {
		panic(err)
	}
	return id
}
