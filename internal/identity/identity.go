// Package identity derives stable shop identifiers and generates order and
// procurement-session IDs. Shop IDs are deterministic so that repeated logins
// from the same shop collapse onto one shop record without real auth.
package identity

import (
	"fmt"
	"math/rand"
	"time"
	"unicode/utf16"

	"storefront-service/internal/models"
)

// shopTypePrefixes maps a shop type to its 3-letter ID prefix.
var shopTypePrefixes = map[string]string{
	models.ShopTypeRegular: "REG",
	models.ShopTypePremium: "PRM",
	models.ShopTypeAdmin:   "ADM",
}

// ResolveShopID derives a stable shop identifier from shop type, shop name
// and contact email. Identical (name, email) pairs always resolve to the same
// ID within a shop type. The 1-in-1000 ID space means collisions between
// distinct shops are possible and are not detected here.
func ResolveShopID(shopType, shopName, contactEmail string) string {
	prefix, ok := shopTypePrefixes[shopType]
	if !ok {
		prefix = "UNK"
	}
	return fmt.Sprintf("%s%03d", prefix, rollingHash(shopName+contactEmail)%1000)
}

// rollingHash is a 32-bit rolling string hash (h = h*31 + c) over UTF-16 code
// units, with int32 wraparound. Matches the hash the legacy web client used,
// so shop IDs stay stable across the migration.
func rollingHash(s string) int {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	// Widen before negating: -MinInt32 does not fit in an int32.
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v)
}

// NewOrderID builds an order identifier from a compact timestamp plus a
// random 3-digit suffix for intra-second uniqueness. The suffix leaves a
// small collision window under concurrent submissions in the same second;
// callers rely on the store's primary key to reject the rare duplicate.
func NewOrderID(now time.Time, rng *rand.Rand) string {
	return fmt.Sprintf("ORD-%s-%03d", now.UTC().Format("20060102150405"), rng.Intn(1000))
}

// NewSessionID builds a procurement session identifier from the session date
// and a per-day sequence number.
func NewSessionID(date time.Time, seq int) string {
	return fmt.Sprintf("PROC-%s-%03d", date.UTC().Format("20060102"), seq)
}
