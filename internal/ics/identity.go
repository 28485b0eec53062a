package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"onevents/internal/model"
)

// Identity derives the stable UID stem of an event, or of one of its
// sessions when session is non-nil. index is the 1-based position of the
// session after sorting and is ignored for whole events.
//
// Empty components are left out of the join so "a--b" and "a-b" cannot come
// from different inputs that only differ by an empty field. The result is
// the first 128 bits of the SHA-256 digest in lowercase hex.
func Identity(ev model.Event, session *model.Session, index int) string {
	parts := []string{
		ev.Title,
		ev.Date.String(),
		ev.City,
		ev.Address,
		ev.RegistrationURL,
	}
	if session != nil {
		parts = append(parts,
			session.Date.String(),
			session.StartTime.String(),
			session.EndTime.String(),
			strconv.Itoa(index),
		)
	}

	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(kept, "-")))
	return hex.EncodeToString(sum[:16])
}
