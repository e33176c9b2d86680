// internal/enrollment/cart/partitioner.go
package cart

import (
	"strings"

	"enrollment-core/internal/models"
)

// Partitioner groups selected coverage items by carrier identity. Group
// order is first-seen, so submission order is reproducible for retries.
type Partitioner struct {
	defaultCarrier string
}

func NewPartitioner(defaultCarrier string) *Partitioner {
	return &Partitioner{defaultCarrier: defaultCarrier}
}

// Partition returns one ordered group per carrier plus a flag indicating a
// multi-carrier enrollment. An empty cart yields an empty group list; that
// is the caller's error condition, not this component's.
func (p *Partitioner) Partition(items []models.CoverageItem) ([]models.CarrierGroup, bool) {
	groups := make([]models.CarrierGroup, 0, 2)
	index := make(map[string]int)

	for _, item := range items {
		key := p.carrierKey(item)

		if i, ok := index[key]; ok {
			groups[i].Items = append(groups[i].Items, item)
			if groups[i].CarrierName == "" && item.CarrierName != "" {
				groups[i].CarrierName = item.CarrierName
			}
			continue
		}

		index[key] = len(groups)
		groups = append(groups, models.CarrierGroup{
			CarrierSlug: key,
			CarrierName: item.CarrierName,
			Items:       []models.CoverageItem{item},
		})
	}

	return groups, len(groups) > 1
}

// carrierKey resolves a normalized carrier identity: explicit slug first,
// carrier name second, the configured default last.
func (p *Partitioner) carrierKey(item models.CoverageItem) string {
	if slug := normalize(item.CarrierSlug); slug != "" {
		return slug
	}
	if name := normalize(item.CarrierName); name != "" {
		return name
	}
	return p.defaultCarrier
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "-")
}
