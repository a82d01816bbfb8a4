package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/chronus-app/chronus/internal/models"
)

// Property: patching one profile field leaves the others and the time
// budget untouched.
func TestProfilePatchIsPartial(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("patching the description changes only the description", prop.ForAll(
		func(description string, budgetQuarters int) bool {
			st := newMockStore()
			budget := models.Hours(float64(budgetQuarters) * 0.25)
			addStudent(st, "alice", budget)
			st.studentStore.students["alice"].Competences = []string{"statistics"}
			handler := NewStudentHandler(st, slog.Default())

			raw, _ := json.Marshal(map[string]any{"description": description})
			req := httptest.NewRequest("PATCH", "/v1/students/me", bytes.NewReader(raw))
			rr := httptest.NewRecorder()
			handler.UpdateMe(rr, asStudent(req, "alice"))

			if rr.Code != http.StatusOK {
				return false
			}

			got := st.studentStore.students["alice"]
			return got.Description == description &&
				got.AvailableTime == budget &&
				len(got.Competences) == 1 && got.Competences[0] == "statistics"
		},
		gen.RegexMatch("[A-Za-z ]{0,60}"),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func TestMeEndpoint(t *testing.T) {
	st := newMockStore()
	addStudent(st, "alice", 1.5)
	s := st.studentStore.students["alice"]
	s.RatingCount = 3
	s.AccumulatedRating = 11

	handler := NewStudentHandler(st, slog.Default())

	req := httptest.NewRequest("GET", "/v1/students/me", nil)
	rr := httptest.NewRecorder()
	handler.Me(rr, asStudent(req, "alice"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		UserID        string  `json:"user_id"`
		AvailableTime float64 `json:"available_time"`
		AverageRating float64 `json:"average_rating"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserID != "alice" || resp.AvailableTime != 1.5 {
		t.Errorf("body = %+v", resp)
	}
	// 11/3 = 3.67, rounded to the nearest half
	if resp.AverageRating != 3.5 {
		t.Errorf("average_rating = %v, want 3.5", resp.AverageRating)
	}

	req = httptest.NewRequest("GET", "/v1/students/me", nil)
	rr = httptest.NewRecorder()
	handler.Me(rr, asStudent(req, "ghost"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown student: status = %d, want 404", rr.Code)
	}
}

func TestUpdateMeRejectsInvalidDegrees(t *testing.T) {
	st := newMockStore()
	addStudent(st, "alice", 1)
	handler := NewStudentHandler(st, slog.Default())

	raw, _ := json.Marshal(map[string]any{
		"degrees": []models.Degree{{Name: "Maths", HigherGrade: "9", Finished: false}},
	})
	req := httptest.NewRequest("PATCH", "/v1/students/me", bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	handler.UpdateMe(rr, asStudent(req, "alice"))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if len(st.studentStore.students["alice"].Degrees) != 0 {
		t.Error("invalid degrees must not be stored")
	}
}
