package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/chronus-app/chronus/internal/api/middleware"
	"github.com/chronus-app/chronus/internal/collab"
	"github.com/chronus-app/chronus/internal/ledger"
	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// mockStudentStore implements store.StudentStore for testing.
type mockStudentStore struct {
	students map[string]*models.Student
}

func (m *mockStudentStore) Create(ctx context.Context, student *models.Student, password string) error {
	if _, ok := m.students[student.UserID]; ok {
		return store.ErrDuplicateKey
	}
	for _, s := range m.students {
		if s.Email == student.Email {
			return store.ErrDuplicateKey
		}
	}
	m.students[student.UserID] = student
	return nil
}

func (m *mockStudentStore) Get(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockStudentStore) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	for _, s := range m.students {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockStudentStore) Authenticate(ctx context.Context, email, password string) (*models.Student, error) {
	return m.GetByEmail(ctx, email)
}

func (m *mockStudentStore) UpdateProfile(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.UserID]; !ok {
		return store.ErrNotFound
	}
	m.students[student.UserID] = student
	return nil
}

func (m *mockStudentStore) Debit(ctx context.Context, id string, amount models.Hours) error {
	s, ok := m.students[id]
	if !ok {
		return store.ErrNotFound
	}
	if s.AvailableTime < amount {
		return store.ErrInsufficientBudget
	}
	s.AvailableTime -= amount
	return nil
}

func (m *mockStudentStore) Credit(ctx context.Context, id string, amount models.Hours) error {
	s, ok := m.students[id]
	if !ok {
		return store.ErrNotFound
	}
	s.AvailableTime += amount
	return nil
}

// mockRequestStore implements store.RequestStore for testing.
type mockRequestStore struct {
	requests map[string]*models.CollaborationRequest
}

func (m *mockRequestStore) Create(ctx context.Context, req *models.CollaborationRequest) error {
	m.requests[req.ID] = req
	return nil
}

func (m *mockRequestStore) Get(ctx context.Context, id string) (*models.CollaborationRequest, error) {
	if r, ok := m.requests[id]; ok {
		return r, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockRequestStore) List(ctx context.Context, filter store.RequestFilter) ([]*models.CollaborationRequest, error) {
	var result []*models.CollaborationRequest
	for _, r := range m.requests {
		if filter.ApplicantID != "" && r.ApplicantID != filter.ApplicantID {
			continue
		}
		if filter.OffererID != "" && !r.HasOfferer(filter.OffererID) {
			continue
		}
		if !filter.NotExpiredOn.IsZero() && r.Expired(filter.NotExpiredOn) {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func (m *mockRequestStore) AddOfferer(ctx context.Context, requestID, studentID string) error {
	r, ok := m.requests[requestID]
	if !ok {
		return store.ErrNotFound
	}
	if r.HasOfferer(studentID) {
		return store.ErrDuplicateKey
	}
	r.Offerers = append(r.Offerers, studentID)
	return nil
}

func (m *mockRequestStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.requests[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.requests, id)
	return nil
}

// mockCollaborationStore implements store.CollaborationStore for testing.
type mockCollaborationStore struct {
	collaborations map[string]*models.Collaboration
}

func (m *mockCollaborationStore) Create(ctx context.Context, c *models.Collaboration) error {
	m.collaborations[c.ID] = c
	return nil
}

func (m *mockCollaborationStore) Get(ctx context.Context, id string) (*models.Collaboration, error) {
	if c, ok := m.collaborations[id]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockCollaborationStore) ListForStudent(ctx context.Context, studentID string, today time.Time) ([]*models.Collaboration, error) {
	var result []*models.Collaboration
	for _, c := range m.collaborations {
		if c.Participant(studentID) && !c.Expired(today) {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCollaborationStore) ListOverdue(ctx context.Context, today time.Time) ([]*models.Collaboration, error) {
	return nil, nil
}

func (m *mockCollaborationStore) Delete(ctx context.Context, id string) error {
	delete(m.collaborations, id)
	return nil
}

// mockMessageStore implements store.MessageStore for testing.
type mockMessageStore struct {
	messages []*models.Message
}

func (m *mockMessageStore) Create(ctx context.Context, msg *models.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockMessageStore) ListByCollaboration(ctx context.Context, collaborationID string) ([]*models.Message, error) {
	var result []*models.Message
	for _, msg := range m.messages {
		if msg.CollaborationID == collaborationID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *mockMessageStore) MarkRead(ctx context.Context, collaborationID, readerID string) error {
	for _, msg := range m.messages {
		if msg.CollaborationID == collaborationID && msg.SenderID != readerID {
			msg.Read = true
		}
	}
	return nil
}

// mockCompetenceStore implements store.CompetenceStore for testing.
type mockCompetenceStore struct {
	names []string
}

func (m *mockCompetenceStore) List(ctx context.Context) ([]string, error) {
	return m.names, nil
}

// mockStore implements store.Store for testing.
type mockStore struct {
	studentStore       *mockStudentStore
	requestStore       *mockRequestStore
	collaborationStore *mockCollaborationStore
	messageStore       *mockMessageStore
	competenceStore    *mockCompetenceStore
}

func newMockStore() *mockStore {
	return &mockStore{
		studentStore:       &mockStudentStore{students: make(map[string]*models.Student)},
		requestStore:       &mockRequestStore{requests: make(map[string]*models.CollaborationRequest)},
		collaborationStore: &mockCollaborationStore{collaborations: make(map[string]*models.Collaboration)},
		messageStore:       &mockMessageStore{},
		competenceStore:    &mockCompetenceStore{},
	}
}

func (m *mockStore) Students() store.StudentStore             { return m.studentStore }
func (m *mockStore) Requests() store.RequestStore             { return m.requestStore }
func (m *mockStore) Collaborations() store.CollaborationStore { return m.collaborationStore }
func (m *mockStore) Messages() store.MessageStore             { return m.messageStore }
func (m *mockStore) Competences() store.CompetenceStore       { return m.competenceStore }

func (m *mockStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

func addStudent(st *mockStore, id string, budget models.Hours) {
	st.studentStore.students[id] = &models.Student{
		UserID:        id,
		Email:         id + "@example.edu",
		FirstName:     "Test",
		LastName:      id,
		AvailableTime: budget,
	}
}

func newHandlerService(st *mockStore) *collab.Service {
	return collab.NewService(st, ledger.New(slog.Default()), nil, slog.Default())
}

func asStudent(req *http.Request, studentID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.StudentIDKey, studentID)
	return req.WithContext(ctx)
}

func futureDeadline() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func postRequest(t *testing.T, handler *RequestHandler, studentID string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", "/v1/requests", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.Create(rr, asStudent(req, studentID))
	return rr
}

// Property: a created request is returned by the list endpoint with the
// caller's identity and the budget is debited by the requested amount.
func TestRequestCreateListRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("created requests show up in the caller's list", prop.ForAll(
		func(studentID string, quarters int, title string) bool {
			st := newMockStore()
			addStudent(st, studentID, 100)
			handler := NewRequestHandler(newHandlerService(st), slog.Default())

			amount := float64(quarters) * 0.25
			rr := postRequest(t, handler, studentID, map[string]any{
				"title":          title,
				"requested_time": amount,
				"deadline":       futureDeadline(),
			})
			if rr.Code != http.StatusCreated {
				return false
			}
			var created models.CollaborationRequest
			if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
				return false
			}
			if created.ApplicantID != studentID || created.Title != title {
				return false
			}

			listReq := httptest.NewRequest("GET", "/v1/requests?applicant_id="+studentID, nil)
			listRR := httptest.NewRecorder()
			handler.List(listRR, asStudent(listReq, studentID))
			if listRR.Code != http.StatusOK {
				return false
			}
			var listed []*models.CollaborationRequest
			if err := json.NewDecoder(listRR.Body).Decode(&listed); err != nil {
				return false
			}
			if len(listed) != 1 || listed[0].ID != created.ID {
				return false
			}

			return st.studentStore.students[studentID].AvailableTime == models.Hours(100-amount)
		},
		gen.RegexMatch("[a-z0-9-]{8,20}"),
		gen.IntRange(1, 12),
		gen.RegexMatch("[A-Za-z ]{1,40}"),
	))

	properties.TestingRun(t)
}

func TestRequestCreateErrorMapping(t *testing.T) {
	st := newMockStore()
	addStudent(st, "alice", 1)
	handler := NewRequestHandler(newHandlerService(st), slog.Default())

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing title", map[string]any{"requested_time": 0.5, "deadline": futureDeadline()}, http.StatusBadRequest},
		{"unquantized time", map[string]any{"title": "x", "requested_time": 0.30, "deadline": futureDeadline()}, http.StatusBadRequest},
		{"zero time", map[string]any{"title": "x", "requested_time": 0, "deadline": futureDeadline()}, http.StatusBadRequest},
		{"past deadline", map[string]any{"title": "x", "requested_time": 0.5, "deadline": "2020-01-01"}, http.StatusBadRequest},
		{"bad deadline format", map[string]any{"title": "x", "requested_time": 0.5, "deadline": "soon"}, http.StatusBadRequest},
		{"over budget", map[string]any{"title": "x", "requested_time": 1.25, "deadline": futureDeadline()}, http.StatusConflict},
		{"valid", map[string]any{"title": "x", "requested_time": 0.5, "deadline": futureDeadline()}, http.StatusCreated},
	}

	for _, tc := range cases {
		rr := postRequest(t, handler, "alice", tc.body)
		if rr.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rr.Code, tc.want)
		}
	}
}

func TestRequestListForeignFilterForbidden(t *testing.T) {
	st := newMockStore()
	addStudent(st, "alice", 1)
	handler := NewRequestHandler(newHandlerService(st), slog.Default())

	for _, query := range []string{"applicant_id=bob", "offerer_id=bob"} {
		req := httptest.NewRequest("GET", "/v1/requests?"+query, nil)
		rr := httptest.NewRecorder()
		handler.List(rr, asStudent(req, "alice"))
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s: status = %d, want 403", query, rr.Code)
		}
	}
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestOfferEndpoint(t *testing.T) {
	st := newMockStore()
	addStudent(st, "alice", 10)
	addStudent(st, "bob", 1)
	service := newHandlerService(st)
	handler := NewRequestHandler(service, slog.Default())

	rr := postRequest(t, handler, "alice", map[string]any{
		"title": "help", "requested_time": 0.5, "deadline": futureDeadline(),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rr.Code)
	}
	var created models.CollaborationRequest
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	offer := func(studentID, requestID string) int {
		req := httptest.NewRequest("POST", fmt.Sprintf("/v1/requests/%s/offers", requestID), nil)
		req = withURLParam(asStudent(req, studentID), "requestID", requestID)
		rr := httptest.NewRecorder()
		handler.AddOffer(rr, req)
		return rr.Code
	}

	if got := offer("alice", created.ID); got != http.StatusForbidden {
		t.Errorf("own request: status = %d, want 403", got)
	}
	if got := offer("bob", created.ID); got != http.StatusCreated {
		t.Errorf("first offer: status = %d, want 201", got)
	}
	if got := offer("bob", created.ID); got != http.StatusConflict {
		t.Errorf("duplicate offer: status = %d, want 409", got)
	}
	if got := offer("bob", "missing"); got != http.StatusNotFound {
		t.Errorf("unknown request: status = %d, want 404", got)
	}
}

func TestAcceptEndpoint(t *testing.T) {
	st := newMockStore()
	addStudent(st, "alice", 10)
	addStudent(st, "bob", 1)
	addStudent(st, "carol", 1)
	service := newHandlerService(st)
	requestHandler := NewRequestHandler(service, slog.Default())
	collabHandler := NewCollaborationHandler(service, slog.Default())

	rr := postRequest(t, requestHandler, "alice", map[string]any{
		"title": "help", "requested_time": 0.5, "deadline": futureDeadline(),
	})
	var created models.CollaborationRequest
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	offerReq := httptest.NewRequest("POST", "/v1/requests/"+created.ID+"/offers", nil)
	offerReq = withURLParam(asStudent(offerReq, "bob"), "requestID", created.ID)
	offerRR := httptest.NewRecorder()
	requestHandler.AddOffer(offerRR, offerReq)
	if offerRR.Code != http.StatusCreated {
		t.Fatalf("offer: status = %d", offerRR.Code)
	}

	accept := func(callerID, collaboratorID string) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(map[string]string{
			"request_id":      created.ID,
			"collaborator_id": collaboratorID,
		})
		req := httptest.NewRequest("POST", "/v1/collaborations", bytes.NewReader(raw))
		rr := httptest.NewRecorder()
		collabHandler.Create(rr, asStudent(req, callerID))
		return rr
	}

	if got := accept("bob", "bob").Code; got != http.StatusForbidden {
		t.Errorf("non-applicant accept: status = %d, want 403", got)
	}
	if got := accept("alice", "carol").Code; got != http.StatusForbidden {
		t.Errorf("non-offerer accept: status = %d, want 403", got)
	}

	acceptRR := accept("alice", "bob")
	if acceptRR.Code != http.StatusCreated {
		t.Fatalf("accept: status = %d, want 201", acceptRR.Code)
	}
	var c models.Collaboration
	if err := json.NewDecoder(acceptRR.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Status != models.StatusInProgress || c.CollaboratorID != "bob" {
		t.Errorf("collaboration = %+v, want in-progress with bob", c)
	}

	// The request is gone now
	if got := accept("alice", "bob").Code; got != http.StatusNotFound {
		t.Errorf("accept after accept: status = %d, want 404", got)
	}

	getReq := httptest.NewRequest("GET", "/v1/collaborations/"+c.ID, nil)
	getReq = withURLParam(asStudent(getReq, "carol"), "collaborationID", c.ID)
	getRR := httptest.NewRecorder()
	collabHandler.Get(getRR, getReq)
	if getRR.Code != http.StatusForbidden {
		t.Errorf("outsider get: status = %d, want 403", getRR.Code)
	}
}
