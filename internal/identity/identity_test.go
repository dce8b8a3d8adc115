package identity

import (
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveShopIDDeterministic(t *testing.T) {
	first := ResolveShopID("regular", "Test Shop", "t@example.com")
	second := ResolveShopID("regular", "Test Shop", "t@example.com")

	assert.Equal(t, first, second)
	assert.Regexp(t, regexp.MustCompile(`^REG\d{3}$`), first)
}

func TestResolveShopIDPrefixByType(t *testing.T) {
	regular := ResolveShopID("regular", "Test Shop", "t@example.com")
	premium := ResolveShopID("premium", "Test Shop", "t@example.com")
	admin := ResolveShopID("admin", "Test Shop", "t@example.com")
	unknown := ResolveShopID("wholesale", "Test Shop", "t@example.com")

	assert.Equal(t, "REG", regular[:3])
	assert.Equal(t, "PRM", premium[:3])
	assert.Equal(t, "ADM", admin[:3])
	assert.Equal(t, "UNK", unknown[:3])

	// Same (name, email) pair: only the prefix differs between types.
	assert.Equal(t, regular[3:], premium[3:])
}

func TestResolveShopIDDistinctInputs(t *testing.T) {
	a := ResolveShopID("regular", "Shop A", "a@example.com")
	b := ResolveShopID("regular", "Shop B", "b@example.com")

	// Not guaranteed in general (1-in-1000 space) but holds for this pair.
	assert.NotEqual(t, a, b)
}

func TestResolveShopIDThaiInput(t *testing.T) {
	first := ResolveShopID("premium", "ร้านซูชิพรีเมียม", "sushi@example.com")
	second := ResolveShopID("premium", "ร้านซูชิพรีเมียม", "sushi@example.com")

	assert.Equal(t, first, second)
	assert.Regexp(t, regexp.MustCompile(`^PRM\d{3}$`), first)
}

func TestNewOrderID(t *testing.T) {
	now := time.Date(2025, 8, 25, 13, 45, 7, 0, time.UTC)
	rng := rand.New(rand.NewSource(1))

	id := NewOrderID(now, rng)

	assert.Regexp(t, regexp.MustCompile(`^ORD-20250825134507-\d{3}$`), id)
}

func TestNewSessionID(t *testing.T) {
	date := time.Date(2025, 8, 25, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "PROC-20250825-001", NewSessionID(date, 1))
	assert.Equal(t, "PROC-20250825-012", NewSessionID(date, 12))
}

func TestNewSessionIDLabeledByUTCDate(t *testing.T) {
	early := time.Date(2026, 9, 1, 2, 0, 0, 0, time.UTC)
	late := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)
	bangkok := time.Date(2026, 9, 2, 3, 0, 0, 0, time.FixedZone("ICT", 7*3600))

	// Any instant in the same UTC day yields the same label, so the per-day
	// sequence must be counted in UTC as well or IDs would collide.
	assert.Equal(t, NewSessionID(early, 1), NewSessionID(late, 1))
	assert.Equal(t, "PROC-20260901-001", NewSessionID(bangkok, 1))
}
