package models

import (
	"fmt"
	"sort"
	"strings"
)

// PartialFetchError reports accounts that could not be fetched while the
// aggregate was still computable from the remaining accounts. Callers
// receive it alongside the computed series, not instead of it.
type PartialFetchError struct {
	Succeeded []string
	Failed    map[string]error
}

func (e *PartialFetchError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		names = append(names, id)
	}
	sort.Strings(names)
	return fmt.Sprintf("%d of %d accounts failed to fetch: %s",
		len(e.Failed), len(e.Failed)+len(e.Succeeded), strings.Join(names, ", "))
}

// FailedAccounts returns the failed account ids in stable order.
func (e *PartialFetchError) FailedAccounts() []string {
	names := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}
