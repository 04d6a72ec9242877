package report

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/repository"
	"io"
	"log"
	"net/http"

	json "github.com/json-iterator/go"
)

type ReportHandler struct {
	repository *repository.ReportRepository
}

type BlocksResponse struct {
	Role    domain.Role          `json:"role"`
	Records []domain.BlockRecord `json:"records"`
}

func NewReportHandler(repository *repository.ReportRepository) *ReportHandler {
	return &ReportHandler{repository: repository}
}

// GetReports returns every finished session report.
func (h *ReportHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	reports := h.repository.FindAll()
	if len(reports) == 0 {
		http.Error(w, "no session finished yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// GetBlocks returns the records seen so far, including those of a session still running.
func (h *ReportHandler) GetBlocks(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(r.URL.Query().Get("role"))
	switch role {
	case "":
		role = domain.RoleReceiver
	case domain.RoleReceiver, domain.RoleSender:
	default:
		http.Error(w, "role must be sender or receiver", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, BlocksResponse{Role: role, Records: h.repository.Records(role)})
}

// SaveReport accepts a report pushed by a remote session.
func (h *ReportHandler) SaveReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var report domain.SessionReport
	if err := json.Unmarshal(body, &report); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if report.Role != domain.RoleSender && report.Role != domain.RoleReceiver {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	h.repository.Save(report)
	log.Printf("Stored %s report %s: %d blocks, good_bytes=%d", report.Role, report.SessionID,
		report.Summary.Blocks, report.Summary.GoodBytes)
	w.WriteHeader(http.StatusCreated)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	output, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(output)
}
