package scheduler

import (
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// Fingerprint hashes the (event, role, person) triples of an assignment set in
// a canonical order. Equal sets hash equal regardless of commit order.
func Fingerprint(assignments []models.Assignment) string {
	keys := make([]string, 0, len(assignments))
	for _, a := range assignments {
		keys = append(keys, a.EventID+"\x1f"+a.Role+"\x1f"+a.PersonID)
	}
	sort.Strings(keys)

	h := xxh3.New()
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.Write([]byte{'\x1e'})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
