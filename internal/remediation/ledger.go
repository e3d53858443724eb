package remediation

import "time"

// Ledger remembers when each container was last restarted successfully.
// Entries are never removed. It is owned by the decision cycle and touched
// only from the cycle goroutine, so it carries no lock.
type Ledger struct {
	last map[string]time.Time
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{last: make(map[string]time.Time)}
}

// LastRestart returns the recorded restart time for name.
func (l *Ledger) LastRestart(name string) (time.Time, bool) {
	t, ok := l.last[name]
	return t, ok
}

// Record stores at as the last restart of name.
func (l *Ledger) Record(name string, at time.Time) {
	l.last[name] = at
}

// Len is the number of containers ever restarted.
func (l *Ledger) Len() int {
	return len(l.last)
}
