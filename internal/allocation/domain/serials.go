package domain

import (
	"sort"
	"strings"
)

// NormalizeSerials trims, dedupes and sorts a batch of serial numbers. A
// blank entry is rejected, as is a batch above limit when limit is positive.
func NormalizeSerials(serials []string, limit int) ([]string, error) {
	seen := make(map[string]struct{}, len(serials))
	out := make([]string, 0, len(serials))
	for _, serial := range serials {
		serial = strings.TrimSpace(serial)
		if serial == "" {
			return nil, ErrInvalidSerialNumber
		}
		if _, ok := seen[serial]; ok {
			continue
		}
		seen[serial] = struct{}{}
		out = append(out, serial)
	}
	if limit > 0 && len(out) > limit {
		return nil, ErrBatchTooLarge
	}
	sort.Strings(out)
	return out, nil
}
