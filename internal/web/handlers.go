package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/hiansit/ankiflow/internal/backup"
	"github.com/hiansit/ankiflow/internal/domain"
	"github.com/hiansit/ankiflow/internal/level"
	"github.com/hiansit/ankiflow/internal/playlist"
)

type subjectResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Settings  domain.Settings `json:"settings"`
	CreatedAt int64           `json:"createdAt"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	SubjectID   int64  `json:"subjectId"`
	Front       string `json:"front"`
	FrontInfo   string `json:"frontInfo"`
	Back        string `json:"back"`
	BackInfo    string `json:"backInfo"`
	CreatedAt   int64  `json:"createdAt"`
	Level       int    `json:"level"`
	LastStudied int64  `json:"lastStudied"`
}

func toSubjectResponse(s domain.Subject) subjectResponse {
	return subjectResponse{ID: s.ID, Name: s.Name, Settings: s.Settings, CreatedAt: s.CreatedAt}
}

func toItemResponse(it domain.ItemWithProgress) itemResponse {
	return itemResponse{
		ID:          it.ID,
		SubjectID:   it.SubjectID,
		Front:       it.Front,
		FrontInfo:   it.FrontInfo,
		Back:        it.Back,
		BackInfo:    it.BackInfo,
		CreatedAt:   it.CreatedAt,
		Level:       it.Level,
		LastStudied: it.LastStudied,
	}
}

// handleListSubjects returns all subjects, creating the default one if needed.
func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.lib.Subjects(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]subjectResponse, 0, len(subjects))
	for _, subj := range subjects {
		out = append(out, toSubjectResponse(subj))
	}
	writeJSON(w, http.StatusOK, out)
}

type createSubjectRequest struct {
	Name     string          `json:"name"`
	Settings domain.Settings `json:"settings"`
}

func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req createSubjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name == "" {
		s.writeError(w, r, fmt.Errorf("%w: name cannot be empty", errBadRequest))
		return
	}

	id, err := s.lib.CreateSubject(r.Context(), req.Name, req.Settings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	subject, err := s.lib.Subject(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubjectResponse(*subject))
}

type updateSubjectRequest struct {
	Name     *string          `json:"name"`
	Settings *domain.Settings `json:"settings"`
}

func (s *Server) handleUpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateSubjectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	patch := domain.SubjectPatch{Name: req.Name, Settings: req.Settings}
	if err := s.lib.UpdateSubject(r.Context(), id, patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	subject, err := s.lib.Subject(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubjectResponse(*subject))
}

func (s *Server) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.lib.DeleteSubject(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.lib.Subject(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.lib.Items(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

type importResponse struct {
	Imported int `json:"imported"`
}

// handleImportItems reads raw delimited text from the body.
// ?clear=true replaces the subject's items.
func (s *Server) handleImportItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	clearExisting, _ := strconv.ParseBool(r.URL.Query().Get("clear"))

	n, err := s.lib.ImportText(r.Context(), id, http.MaxBytesReader(w, r.Body, maxBodySize), clearExisting)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Imported: n})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.lib.Export(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := backup.Encode(w, doc); err != nil {
		s.logger.Error("failed to write export", "subject_id", id, "error", err)
	}
}

type restoreResponse struct {
	SubjectID int64 `json:"subjectId"`
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	doc, err := backup.Decode(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.lib.Restore(r.Context(), doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, restoreResponse{SubjectID: id})
}

type updateItemRequest struct {
	Front     string `json:"front"`
	FrontInfo string `json:"frontInfo"`
	Back      string `json:"back"`
	BackInfo  string `json:"backInfo"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	item := domain.Item{ID: id, Front: req.Front, FrontInfo: req.FrontInfo, Back: req.Back, BackInfo: req.BackInfo}
	if err := s.lib.UpdateItem(r.Context(), item); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.lib.DeleteItem(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type gradeRequest struct {
	Grade int `json:"grade"`
}

type gradeResponse struct {
	Level int `json:"level"`
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req gradeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rating, err := level.ParseRating(req.Grade)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	next, err := s.lib.Grade(r.Context(), id, rating)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gradeResponse{Level: next})
}

type sessionRequest struct {
	SubjectID int64  `json:"subjectId"`
	Levels    []int  `json:"levels"`
	Mode      string `json:"mode"`
}

type statusResponse struct {
	SubjectID int64  `json:"subjectId"`
	Mode      string `json:"mode"`
	Position  int    `json:"position"`
	Total     int    `json:"total"`
}

type nextResponse struct {
	Item   *itemResponse  `json:"item"`
	Status statusResponse `json:"status"`
}

func (s *Server) statusLocked() statusResponse {
	st := s.session.Status()
	return statusResponse{
		SubjectID: s.session.Subject().ID,
		Mode:      string(st.Mode),
		Position:  st.Position,
		Total:     st.Total,
	}
}

// handleStartSession replaces the current review session.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.lib.StartSession(r.Context(), req.SubjectID, req.Levels, playlist.ParseMode(req.Mode))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	writeJSON(w, http.StatusCreated, s.statusLocked())
}

// handleNext advances the current session. The item is null when nothing
// matches the session's level filter.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		s.writeError(w, r, fmt.Errorf("%w: no session started", errBadRequest))
		return
	}

	resp := nextResponse{}
	if it, ok := s.session.Next(); ok {
		item := toItemResponse(it)
		resp.Item = &item
	}
	resp.Status = s.statusLocked()
	writeJSON(w, http.StatusOK, resp)
}
