package store

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// orderIDs hands out ORD-<base36 ms>-<suffix> identifiers. The millisecond
// part never repeats or goes backwards within a process, even when the
// clock does.
type orderIDs struct {
	mu   sync.Mutex
	last int64
}

func (g *orderIDs) next(now time.Time) string {
	g.mu.Lock()
	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	g.mu.Unlock()

	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return "ORD-" + strings.ToUpper(strconv.FormatInt(ms, 36)) + "-" + suffix
}
