package elements

import "github.com/rpattn/iblockql/internal/domain"

// Aggregated holds property values grouped by property id and then by
// element id. A group of exactly one stored value is a scalar, every other
// group is a list in fetch order. No value is deduplicated.
type Aggregated struct {
	PropertyIDs []int64
	Values      map[int64]map[int64]domain.PropertyValue
}

// Len returns the number of distinct properties observed.
func (a Aggregated) Len() int {
	return len(a.PropertyIDs)
}

// Aggregate groups raw property rows. Property ids keep first-seen order.
func Aggregate(rows []domain.PropertyValueRow) Aggregated {
	grouped := make(map[int64]map[int64][]string)
	order := make([]int64, 0)

	for _, row := range rows {
		byRecord, ok := grouped[row.PropertyID]
		if !ok {
			byRecord = make(map[int64][]string)
			grouped[row.PropertyID] = byRecord
			order = append(order, row.PropertyID)
		}
		byRecord[row.RecordID] = append(byRecord[row.RecordID], row.Value)
	}

	result := Aggregated{
		PropertyIDs: order,
		Values:      make(map[int64]map[int64]domain.PropertyValue, len(grouped)),
	}
	for propertyID, byRecord := range grouped {
		collapsed := make(map[int64]domain.PropertyValue, len(byRecord))
		for recordID, values := range byRecord {
			collapsed[recordID] = domain.FromValues(values)
		}
		result.Values[propertyID] = collapsed
	}
	return result
}

// uniqueIDs drops repeated ids keeping first occurrence order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
