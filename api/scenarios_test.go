/*
scenarios_test.go - Tests for demo scenario loading
*/
package api

import (
	"net/http"
	"testing"
)

func TestListScenarios(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/scenarios")
	if err != nil {
		t.Fatalf("GET scenarios: %v", err)
	}
	var list []ScenarioDTO
	decodeBody(t, resp, &list)
	if len(list) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(list))
	}
}

func TestLoadScenario_FreshCatalog(t *testing.T) {
	// GIVEN: Stores holding stale data
	srv, mem := newTestServer(t)
	seedCatalog(t, mem)

	// WHEN: Loading the fresh-catalog scenario
	resp := postJSON(t, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "fresh-catalog"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// THEN: The old data is gone and the duplicate rows consolidate
	catResp, err := http.Get(srv.URL + "/api/catalog")
	if err != nil {
		t.Fatalf("GET catalog: %v", err)
	}
	var books []LogicalBookDTO
	decodeBody(t, catResp, &books)
	if len(books) != 3 {
		t.Fatalf("expected 3 logical books, got %d", len(books))
	}
	if len(books[0].MergedFrom) != 2 {
		t.Errorf("expected the Dune rows merged, got %+v", books[0].MergedFrom)
	}

	// AND: The current scenario is reported
	curResp, err := http.Get(srv.URL + "/api/scenarios/current")
	if err != nil {
		t.Fatalf("GET current: %v", err)
	}
	var cur map[string]string
	decodeBody(t, curResp, &cur)
	if cur["scenarioId"] != "fresh-catalog" {
		t.Errorf("expected fresh-catalog, got %q", cur["scenarioId"])
	}
}

func TestLoadScenario_BusyTermStagesConfirmFlow(t *testing.T) {
	// GIVEN: The busy-term scenario
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "busy-term"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// WHEN: The staged student requests one more book
	borrowResp := postJSON(t, srv.URL+"/api/loans/borrow", BorrowRequest{
		BookIDs: []string{"dune-1"}, StudentID: "101", Days: 14, Personnel: "Ms. Reed",
	})

	// THEN: The request parks as pending confirmation
	var outcome BorrowOutcomeDTO
	decodeBody(t, borrowResp, &outcome)
	if outcome.Status != "pending_confirmation" {
		t.Errorf("expected pending_confirmation, got %q", outcome.Status)
	}
}

func TestLoadScenario_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}
