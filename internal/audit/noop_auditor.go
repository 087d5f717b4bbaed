package audit

import "github.com/capsim/capsim/internal/core"

var _ core.Auditor = (*NoopAuditor)(nil)

// NoopAuditor discards all entries. Used for local one-shot CLI runs.
type NoopAuditor struct{}

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (n *NoopAuditor) Log(_ core.AuditEntry) error {
	return nil
}

func (n *NoopAuditor) Close() error {
	return nil
}
