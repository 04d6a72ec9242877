package repository

import (
	"BlockBench/internal/domain"
	"sync"
)

// ReportRepository keeps the latest report of each role. It is the only state shared between a
// session loop and the HTTP report API.
type ReportRepository struct {
	mu      sync.RWMutex
	reports  map[domain.Role]domain.SessionReport
	records  map[domain.Role][]domain.BlockRecord
	sessions map[domain.Role]string
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		reports:  make(map[domain.Role]domain.SessionReport),
		records:  make(map[domain.Role][]domain.BlockRecord),
		sessions: make(map[domain.Role]string),
	}
}

// Append stores records as they complete, before the session report exists. Records of an
// earlier session of the same role are dropped when a new session starts appending.
func (r *ReportRepository) Append(sessionID string, role domain.Role, records ...domain.BlockRecord) {
	if len(records) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[role] != sessionID {
		r.sessions[role] = sessionID
		r.records[role] = nil
	}
	r.records[role] = append(r.records[role], records...)
}

func (r *ReportRepository) Save(report domain.SessionReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.Role] = report
	r.sessions[report.Role] = report.SessionID
	r.records[report.Role] = append([]domain.BlockRecord(nil), report.Records...)
}

func (r *ReportRepository) Find(role domain.Role) (domain.SessionReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[role]
	return report, ok
}

// FindAll returns the saved reports, sender first.
func (r *ReportRepository) FindAll() []domain.SessionReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SessionReport
	for _, role := range []domain.Role{domain.RoleSender, domain.RoleReceiver} {
		if report, ok := r.reports[role]; ok {
			out = append(out, report)
		}
	}
	return out
}

// Records returns a copy of the records seen so far for role.
func (r *ReportRepository) Records(role domain.Role) []domain.BlockRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.BlockRecord(nil), r.records[role]...)
}
