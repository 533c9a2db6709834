package inventory

import "hopper/internal/domain"

// Filter returns the snapshot records that survive rule, in snapshot order.
// A nil rule passes every record through.
func Filter(snap *domain.InventorySnapshot, rule *domain.FilterRule) []domain.HostRecord {
	if snap == nil {
		return nil
	}
	return FilterRecords(snap.Records, rule)
}

// FilterRecords applies rule to records
func FilterRecords(records []domain.HostRecord, rule *domain.FilterRule) []domain.HostRecord {
	out := make([]domain.HostRecord, 0, len(records))
	for _, rec := range records {
		if rule == nil || rule.Keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}
