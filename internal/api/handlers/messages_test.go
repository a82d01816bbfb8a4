package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chronus-app/chronus/internal/models"
)

func seedCollaboration(st *mockStore, id string) {
	st.collaborationStore.collaborations[id] = &models.Collaboration{
		ID:             id,
		Title:          "help",
		RequestedTime:  0.5,
		Deadline:       time.Now().AddDate(0, 0, 7),
		Status:         models.StatusInProgress,
		ApplicantID:    "alice",
		CollaboratorID: "bob",
	}
}

func TestMessageListMarksRead(t *testing.T) {
	st := newMockStore()
	addStudent(st, "alice", 1)
	addStudent(st, "bob", 1)
	seedCollaboration(st, "c1")

	st.messageStore.messages = []*models.Message{
		{ID: "m1", CollaborationID: "c1", SenderID: "alice", Text: "hi"},
		{ID: "m2", CollaborationID: "c1", SenderID: "bob", Text: "hello"},
		{ID: "m3", CollaborationID: "other", SenderID: "alice", Text: "elsewhere"},
	}

	handler := NewMessageHandler(st, newHandlerService(st), slog.Default())

	req := httptest.NewRequest("GET", "/v1/messages?collaboration_id=c1", nil)
	rr := httptest.NewRecorder()
	handler.List(rr, asStudent(req, "alice"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var listed []*models.Message
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("messages = %d, want 2", len(listed))
	}

	// Bob's message is read now, Alice's own is not
	for _, m := range st.messageStore.messages {
		switch m.ID {
		case "m2":
			if !m.Read {
				t.Error("expected the other participant's message to be marked read")
			}
		default:
			if m.Read {
				t.Errorf("message %s should not be marked read", m.ID)
			}
		}
	}
}

func TestMessageListAccessControl(t *testing.T) {
	st := newMockStore()
	addStudent(st, "alice", 1)
	addStudent(st, "carol", 1)
	seedCollaboration(st, "c1")

	handler := NewMessageHandler(st, newHandlerService(st), slog.Default())

	req := httptest.NewRequest("GET", "/v1/messages?collaboration_id=c1", nil)
	rr := httptest.NewRecorder()
	handler.List(rr, asStudent(req, "carol"))
	if rr.Code != http.StatusForbidden {
		t.Errorf("outsider: status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest("GET", "/v1/messages", nil)
	rr = httptest.NewRecorder()
	handler.List(rr, asStudent(req, "alice"))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing collaboration_id: status = %d, want 400", rr.Code)
	}

	req = httptest.NewRequest("GET", "/v1/messages?collaboration_id=missing", nil)
	rr = httptest.NewRecorder()
	handler.List(rr, asStudent(req, "alice"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown collaboration: status = %d, want 404", rr.Code)
	}
}

func TestCompetenceList(t *testing.T) {
	st := newMockStore()
	st.competenceStore.names = []string{"statistics", "calculus"}

	handler := NewCompetenceHandler(st, slog.Default())

	req := httptest.NewRequest("GET", "/v1/competences", nil)
	rr := httptest.NewRecorder()
	handler.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var names []string
	if err := json.NewDecoder(rr.Body).Decode(&names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("competences = %v, want 2 entries", names)
	}
}
