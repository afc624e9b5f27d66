package repos

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

func testStore(t *testing.T, h http.HandlerFunc) recordstore.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := recordstore.New(logger.NewNop(), recordstore.Config{
		BaseURL:    srv.URL,
		BaseID:     "appTEST",
		APIKey:     "key",
		Timeout:    5 * time.Second,
		RatePerSec: 1000,
		Burst:      1000,
	})
	require.NoError(t, err)
	return c
}

// Queries by linked record must go through the RECORD_ID() lookup columns.
// A formula comparing the link field itself resolves to the linked record's
// primary-field value, so an ID equality there silently matches nothing.

func TestAttendanceFindFiltersOnRecordIDLookup(t *testing.T) {
	var formula string
	store := testStore(t, func(w http.ResponseWriter, r *http.Request) {
		formula = r.URL.Query().Get("filterByFormula")
		fmt.Fprint(w, `{"records":[{"id":"recATT1","fields":{"Member":["recPER1"],"Service":["recSVC1"],"Present":true}}]}`)
	})
	repo := NewAttendanceRepo(store, recordstore.DefaultSchema(), logger.NewNop())

	got, err := repo.FindByPersonService(context.Background(), "recPER1", "recSVC1")
	require.NoError(t, err)
	require.Equal(t, "recATT1", got.ID)
	require.Equal(t, "recPER1", got.PersonID)

	require.Equal(t,
		"AND(FIND('recPER1',ARRAYJOIN({Member Record ID})),FIND('recSVC1',ARRAYJOIN({Service Record ID})))",
		formula,
	)
	require.NotContains(t, formula, "{Member}=")
	require.NotContains(t, formula, "{Service}=")
}

func TestAssignmentCountOpenFiltersOnRecordIDLookup(t *testing.T) {
	var formula string
	store := testStore(t, func(w http.ResponseWriter, r *http.Request) {
		formula = r.URL.Query().Get("filterByFormula")
		fmt.Fprint(w, `{"records":[{"id":"recASG1","fields":{"Status":"Assigned"}},{"id":"recASG2","fields":{"Status":"In Progress"}}]}`)
	})
	repo := NewAssignmentRepo(store, recordstore.DefaultSchema(), logger.NewNop())

	n, err := repo.CountOpenForVolunteer(context.Background(), "recVOL1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Contains(t, formula, "FIND('recVOL1',ARRAYJOIN({Volunteer Record ID}))")
	require.Contains(t, formula, recordstore.FieldEquals("Status", string(types.AssignmentAssigned)))
	require.NotContains(t, formula, "{Volunteer}=")
}

func TestAssignmentListForPersonFiltersOnRecordIDLookup(t *testing.T) {
	var formula string
	store := testStore(t, func(w http.ResponseWriter, r *http.Request) {
		formula = r.URL.Query().Get("filterByFormula")
		fmt.Fprint(w, `{"records":[{"id":"recASG1","fields":{"Member":["recPER1"],"Volunteer":["recVOL1"],"Status":"Assigned"}}]}`)
	})
	repo := NewAssignmentRepo(store, recordstore.DefaultSchema(), logger.NewNop())

	all, err := repo.ListForPerson(context.Background(), "recPER1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "recVOL1", all[0].VolunteerID)

	require.Equal(t, "FIND('recPER1',ARRAYJOIN({Member Record ID}))", formula)

	if strings.Contains(formula, "{Member}=") {
		t.Fatalf("filter compares the link field itself: %s", formula)
	}
}
