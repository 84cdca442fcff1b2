package prayer

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"vakit-notify/internal/config"
)

// Locality is a resolved city: the grouping key, the display name users
// entered, the name sent to the time source, and its civil time zone.
type Locality struct {
	Key      string
	Name     string
	Slug     string
	Location *time.Location
}

// Key normalises a city name for grouping and API lookups: Turkish-aware
// lowercasing, diacritics stripped, whitespace collapsed to '-'.
// "İstanbul", "ISTANBUL" and "istanbul" share one key.
func Key(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	// Casers and transformers are stateful; build them per call.
	lower := cases.Lower(language.Turkish).String(name)
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), lower)
	if err != nil {
		folded = lower
	}
	folded = strings.ReplaceAll(folded, "ı", "i")
	return strings.Join(strings.Fields(folded), "-")
}

// Resolver maps user-entered city names to Localities.
type Resolver struct {
	def       *time.Location
	overrides map[string]config.Locality
}

func NewResolver(defaultTZ string, overrides map[string]config.Locality) (*Resolver, error) {
	loc, err := time.LoadLocation(defaultTZ)
	if err != nil {
		return nil, fmt.Errorf("load default time zone: %w", err)
	}
	byKey := make(map[string]config.Locality, len(overrides))
	for k, v := range overrides {
		byKey[Key(k)] = v
	}
	return &Resolver{def: loc, overrides: byKey}, nil
}

func (r *Resolver) Resolve(name string) (Locality, error) {
	key := Key(name)
	if key == "" {
		return Locality{}, fmt.Errorf("%w: empty city name", ErrLocalityUnresolved)
	}
	l := Locality{Key: key, Name: strings.TrimSpace(name), Slug: key, Location: r.def}
	if o, ok := r.overrides[key]; ok {
		if o.Slug != "" {
			l.Slug = o.Slug
		}
		if o.Timezone != "" {
			loc, err := time.LoadLocation(o.Timezone)
			if err != nil {
				return Locality{}, fmt.Errorf("%w: %s: time zone %q: %v", ErrLocalityUnresolved, name, o.Timezone, err)
			}
			l.Location = loc
		}
	}
	return l, nil
}
