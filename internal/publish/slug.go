package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"ward/internal/period"
	"ward/internal/store"
)

const slugHashLen = 16

// PeriodSlug derives the idempotency slug for period-anchored content.
// One slug exists per (kind, neighborhood, local date), so a retried run
// always computes the same value.
func PeriodSlug(kind store.Kind, key period.Key) string {
	return slugFor(kind, string(key))
}

// ContentSlug derives the idempotency slug for item-anchored content such
// as news and alerts, keyed by the originating URL and local date.
func ContentSlug(kind store.Kind, sourceURL, localDate string) string {
	return slugFor(kind, strings.TrimSpace(sourceURL)+"|"+localDate)
}

func slugFor(kind store.Kind, material string) string {
	sum := sha256.Sum256([]byte(material))
	return fmt.Sprintf("%s-%s", kind, hex.EncodeToString(sum[:])[:slugHashLen])
}
