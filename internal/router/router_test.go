package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pet-health-tracker/internal/domain/accessgrants"
	"pet-health-tracker/internal/platform/clock"
	"pet-health-tracker/internal/router"
)

// 2024-01-10 12:00 UTC
var testNow = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: nil,
		Clock:        clock.Fixed(testNow),
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_Health(t *testing.T) {
	ts := newServer(t)

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected 200 ok, got %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/metrics", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 on /metrics, got %d", st)
	}
	if !strings.Contains(string(body), "http_requests_total") {
		t.Fatalf("expected http_requests_total in metrics output")
	}
}

func TestHTTP_EndToEnd_CareScheduleAndCalendar(t *testing.T) {
	ts := newServer(t)
	ownerID := "owner-1"

	petID := createPet(t, ts.URL, ownerID, map[string]any{
		"name":       "Milo",
		"species":    "dog",
		"birth_date": "2020-03-01",
	})

	// 1) Medicación semanal desde el 8 de enero a las 08:00
	itemID := createResource(t, ts.URL, ownerID, "/pets/"+petID+"/care-items", map[string]any{
		"kind":                 "medication",
		"name":                 "Antiparasitario",
		"due_date":             "2024-01-08",
		"due_time":             "08:00",
		"repeat":               true,
		"repeat_interval_days": 7,
		"dosage":               "1 tableta",
	})

	// 2) Antes del nacimiento => 400
	{
		st, body := doReq(t, ts.URL, "POST", "/pets/"+petID+"/care-items", ownerID, map[string]any{
			"kind":     "vaccination",
			"name":     "Rabia",
			"due_date": "2019-01-01",
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for due date before birth, got %d body=%s", st, string(body))
		}

		// Mover el nacimiento después del cuidado pendiente => 400
		st, body = doReq(t, ts.URL, "PATCH", "/pets/"+petID, ownerID, map[string]any{"birth_date": "2024-01-09"})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for birth_date after pending care, got %d body=%s", st, string(body))
		}
	}

	// 3) Proyección de enero
	{
		st, body := doReq(t, ts.URL, "GET", "/pets/"+petID+"/care-items/occurrences?from=2024-01-01&to=2024-01-31", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 occurrences, got %d body=%s", st, string(body))
		}
		var occ []struct {
			CareItemID string `json:"care_item_id"`
			Date       string `json:"date"`
			Time       string `json:"time"`
		}
		mustDecode(t, body, &occ)
		got := make([]string, 0, len(occ))
		for _, o := range occ {
			got = append(got, o.Date)
		}
		want := "2024-01-08,2024-01-15,2024-01-22,2024-01-29"
		if strings.Join(got, ",") != want {
			t.Fatalf("expected occurrences %s, got %v", want, got)
		}
		if occ[0].Time != "08:00" || occ[0].CareItemID != itemID {
			t.Fatalf("unexpected first occurrence: %+v", occ[0])
		}
	}

	// 4) El item vence el 8 y hoy es 10 => overdue
	{
		st, body := doReq(t, ts.URL, "GET", "/pets/"+petID+"/care-items/"+itemID, ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get care item, got %d body=%s", st, string(body))
		}
		var it struct {
			Status string `json:"status"`
		}
		mustDecode(t, body, &it)
		if it.Status != "overdue" {
			t.Fatalf("expected overdue, got %q", it.Status)
		}
	}

	// 5) Completar genera el sucesor del 15
	var successorID string
	{
		st, body := doReq(t, ts.URL, "POST", "/pets/"+petID+"/care-items/"+itemID+"/complete", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 complete, got %d body=%s", st, string(body))
		}
		var res struct {
			Outcome   string `json:"outcome"`
			Completed struct {
				Completed bool `json:"completed"`
			} `json:"completed"`
			Successor *struct {
				ID         string `json:"id"`
				DueDate    string `json:"due_date"`
				PreviousID string `json:"previous_id"`
				Dosage     string `json:"dosage"`
			} `json:"successor"`
		}
		mustDecode(t, body, &res)
		if res.Outcome != "completed" || !res.Completed.Completed {
			t.Fatalf("unexpected completion result: %s", string(body))
		}
		if res.Successor == nil || res.Successor.DueDate != "2024-01-15" || res.Successor.PreviousID != itemID {
			t.Fatalf("unexpected successor: %s", string(body))
		}
		if res.Successor.Dosage != "1 tableta" {
			t.Fatalf("successor should inherit dosage, got %q", res.Successor.Dosage)
		}
		successorID = res.Successor.ID
	}

	// 6) Completar de nuevo => 409
	{
		st, _ := doReq(t, ts.URL, "POST", "/pets/"+petID+"/care-items/"+itemID+"/complete", ownerID, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 completing twice, got %d", st)
		}
	}

	// 7) El listado por defecto solo trae pendientes
	{
		st, body := doReq(t, ts.URL, "GET", "/pets/"+petID+"/care-items", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list, got %d body=%s", st, string(body))
		}
		var items []struct {
			ID string `json:"id"`
		}
		mustDecode(t, body, &items)
		if len(items) != 1 || items[0].ID != successorID {
			t.Fatalf("expected only the successor, got %s", string(body))
		}
	}

	// 8) Métrica del 3 de enero
	createResource(t, ts.URL, ownerID, "/pets/"+petID+"/metrics", map[string]any{
		"recorded_at": "2024-01-03T09:30:00Z",
		"weight_kg":   4.2,
		"behavior":    "calm",
	})

	// 9) Calendario de enero
	{
		st, body := doReq(t, ts.URL, "GET", "/pets/"+petID+"/calendar?month=2024-01", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 calendar, got %d body=%s", st, string(body))
		}
		var month struct {
			Year int `json:"year"`
			Days []struct {
				Date        string   `json:"date"`
				MetricKinds []string `json:"metric_kinds"`
				RecordCount int      `json:"record_count"`
				Occurrences []struct {
					CareItemID string `json:"care_item_id"`
				} `json:"occurrences"`
			} `json:"days"`
		}
		mustDecode(t, body, &month)
		if month.Year != 2024 || len(month.Days) != 31 {
			t.Fatalf("expected 31 days of 2024, got year=%d days=%d", month.Year, len(month.Days))
		}
		d3 := month.Days[2]
		if d3.Date != "2024-01-03" || d3.RecordCount != 1 || strings.Join(d3.MetricKinds, ",") != "weight,behavior" {
			t.Fatalf("unexpected day 3: %+v", d3)
		}
		// El item completado no se proyecta; el sucesor arranca el 15.
		if len(month.Days[7].Occurrences) != 0 {
			t.Fatalf("expected no occurrence on Jan 8 after completion, got %+v", month.Days[7])
		}
		if len(month.Days[14].Occurrences) != 1 || month.Days[14].Occurrences[0].CareItemID != successorID {
			t.Fatalf("expected successor on Jan 15, got %+v", month.Days[14])
		}
	}

	// 10) Timeline del 3: una entrada por campo
	{
		st, body := doReq(t, ts.URL, "GET", "/pets/"+petID+"/timeline?date=2024-01-03", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 timeline, got %d body=%s", st, string(body))
		}
		var entries []struct {
			Type       string `json:"type"`
			MetricKind string `json:"metric_kind"`
			Value      string `json:"value"`
		}
		mustDecode(t, body, &entries)
		if len(entries) != 2 ||
			entries[0].MetricKind != "weight" || entries[0].Value != "4.2" ||
			entries[1].MetricKind != "behavior" || entries[1].Value != "calm" {
			t.Fatalf("unexpected timeline: %s", string(body))
		}
	}

	// 11) Posponer mueve el vencimiento un día
	{
		st, body := doReq(t, ts.URL, "POST", "/pets/"+petID+"/care-items/"+successorID+"/delay", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 delay, got %d body=%s", st, string(body))
		}
		var it struct {
			DueDate string `json:"due_date"`
		}
		mustDecode(t, body, &it)
		if it.DueDate != "2024-01-16" {
			t.Fatalf("expected due date 2024-01-16, got %s", it.DueDate)
		}
	}

	// 12) Borrar
	{
		st, _ := doReq(t, ts.URL, "DELETE", "/pets/"+petID+"/care-items/"+successorID, ownerID, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 delete, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "GET", "/pets/"+petID+"/care-items/"+successorID, ownerID, nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", st)
		}
	}
}

func TestHTTP_EndToEnd_DelegationScopes(t *testing.T) {
	ts := newServer(t)

	ownerID := "owner-1"
	delegateID := "delegate-1"

	petID := createPet(t, ts.URL, ownerID, map[string]any{
		"name":    "Milo",
		"species": "dog",
		"sex":     "male",
	})
	itemID := createResource(t, ts.URL, ownerID, "/pets/"+petID+"/care-items", map[string]any{
		"kind":     "vaccination",
		"name":     "Rabia",
		"due_date": "2024-01-20",
	})

	// 1) Sin grant no ve nada
	{
		st, _ := doReq(t, ts.URL, "GET", "/pets/"+petID+"/care-items", delegateID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before grant, got %d", st)
		}
	}

	// 2) Grant solo de lectura de cuidados
	grantID := inviteGrant(t, ts.URL, ownerID, petID, delegateID, []string{
		string(accessgrants.ScopePetRead),
		string(accessgrants.ScopeCareRead),
	})
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/accept", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 accept grant, got %d body=%s", st, string(body))
		}
	}

	// 3) Lee cuidados, no puede completarlos ni registrar métricas
	{
		st, body := doReq(t, ts.URL, "GET", "/pets/"+petID+"/care-items", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list care items by delegate, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "POST", "/pets/"+petID+"/care-items/"+itemID+"/complete", delegateID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 complete without care:write, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "POST", "/pets/"+petID+"/metrics", delegateID, map[string]any{"weight_kg": 4.0})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 metrics without metrics:create, got %d", st)
		}
	}

	// 4) El calendario pide ambos scopes de lectura
	{
		st, _ := doReq(t, ts.URL, "GET", "/pets/"+petID+"/calendar?month=2024-01", delegateID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 calendar without metrics:read, got %d", st)
		}
	}

	// 5) Owner revoca; nueva invitación con permisos completos
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/revoke", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke grant by owner, got %d body=%s", st, string(body))
		}
	}
	grantID = inviteGrant(t, ts.URL, ownerID, petID, delegateID, []string{
		string(accessgrants.ScopePetRead),
		string(accessgrants.ScopeCareRead),
		string(accessgrants.ScopeCareWrite),
		string(accessgrants.ScopeMetricsRead),
		string(accessgrants.ScopeMetricsCreate),
	})
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/accept", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 accept second grant, got %d body=%s", st, string(body))
		}
	}

	// 6) Ahora puede completar, registrar y ver el calendario
	{
		st, body := doReq(t, ts.URL, "POST", "/pets/"+petID+"/care-items/"+itemID+"/complete", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 complete by delegate, got %d body=%s", st, string(body))
		}
		recID := createResource(t, ts.URL, delegateID, "/pets/"+petID+"/metrics", map[string]any{
			"activity_level": 7,
		})
		st, body = doReq(t, ts.URL, "GET", "/pets/"+petID+"/metrics/"+recID, delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get metric record, got %d body=%s", st, string(body))
		}
		var rec struct {
			ActorType string `json:"actor_type"`
			ActorID   string `json:"actor_id"`
		}
		mustDecode(t, body, &rec)
		if rec.ActorType != "DELEGATE_USER" || rec.ActorID != delegateID {
			t.Fatalf("expected delegate actor, got %+v", rec)
		}
		st, _ = doReq(t, ts.URL, "GET", "/pets/"+petID+"/calendar?month=2024-01", delegateID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 calendar by delegate, got %d", st)
		}
	}

	// 7) Revocado pierde acceso inmediatamente
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/revoke", ownerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "GET", "/pets/"+petID+"/timeline", delegateID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 timeline after revoke, got %d", st)
		}
	}
}

func TestHTTP_InviteGrant_RejectsUnknownScope(t *testing.T) {
	ts := newServer(t)

	petID := createPet(t, ts.URL, "owner-1", map[string]any{
		"name": "Milo",
	})

	st, _ := doReq(t, ts.URL, "POST", "/pets/"+petID+"/grants", "owner-1", map[string]any{
		"grantee_user_id": "delegate-1",
		"scopes":          []string{"care:read", "care:unknown"},
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scope, got %d", st)
	}
}

func TestHTTP_Unauthenticated(t *testing.T) {
	ts := newServer(t)

	st, _ := doReq(t, ts.URL, "GET", "/pets/p-1/calendar", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", st)
	}
}

func TestHTTP_BadQueryParams(t *testing.T) {
	ts := newServer(t)
	ownerID := "owner-1"
	petID := createPet(t, ts.URL, ownerID, map[string]any{"name": "Milo"})

	for _, path := range []string{
		"/pets/" + petID + "/calendar?month=2024-13",
		"/pets/" + petID + "/calendar?tz=Nowhere/City",
		"/pets/" + petID + "/timeline?date=03-01-2024",
		"/pets/" + petID + "/care-items/occurrences?from=2024-02-01&to=2024-01-01",
		"/pets/" + petID + "/metrics?from=2024-02-01T00:00:00Z&to=2024-01-01T00:00:00Z",
	} {
		st, body := doReq(t, ts.URL, "GET", path, ownerID, nil)
		if st != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d body=%s", path, st, string(body))
		}
	}
}

func createResource(t *testing.T, baseURL, userID, path string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", path, userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 POST %s, got %d body=%s", path, st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("POST %s: missing id body=%s", path, string(body))
	}
	return resp.ID
}

func mustDecode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", string(body), err)
	}
}

func TestHTTP_SharedPetsAndProfilePatch(t *testing.T) {
	ts := newServer(t)

	petID := createPet(t, ts.URL, "owner-1", map[string]any{
		"name":       "Milo",
		"birth_date": "2020-03-01",
	})

	// Vencimiento en el pasado del reloj de test.
	st, _ := doReq(t, ts.URL, "POST", "/pets/"+petID+"/grants", "owner-1", map[string]any{
		"grantee_user_id": "vet-1",
		"expires_at":      "2024-01-01T00:00:00Z",
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for past expires_at, got %d", st)
	}

	grantID := inviteGrant(t, ts.URL, "owner-1", petID, "vet-1", nil)

	// Invitado todavía no ve la mascota
	st, body := doReq(t, ts.URL, "GET", "/me/pets", "vet-1", nil)
	if st != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty shared list before accept, got %d body=%s", st, string(body))
	}

	if st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/accept", "vet-1", nil); st != http.StatusOK {
		t.Fatalf("expected 200 accept, got %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/me/pets", "vet-1", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 shared pets, got %d", st)
	}
	var shared []struct {
		Pet struct {
			ID string `json:"id"`
		} `json:"pet"`
		GrantID string `json:"grant_id"`
	}
	mustDecode(t, body, &shared)
	if len(shared) != 1 || shared[0].Pet.ID != petID || shared[0].GrantID != grantID {
		t.Fatalf("unexpected shared pets: %s", string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/me/grants?status=active", "vet-1", nil)
	if st != http.StatusOK || !strings.Contains(string(body), `"status":"active"`) {
		t.Fatalf("expected active grant listed, got %d body=%s", st, string(body))
	}

	// Delegado por defecto no edita el perfil
	if st, _ := doReq(t, ts.URL, "PATCH", "/pets/"+petID, "vet-1", map[string]any{"name": "X"}); st != http.StatusForbidden {
		t.Fatalf("expected 403 patch without pet:edit_profile, got %d", st)
	}

	// Owner limpia la fecha de nacimiento con null
	st, body = doReq(t, ts.URL, "PATCH", "/pets/"+petID, "owner-1", map[string]any{"birth_date": nil})
	if st != http.StatusOK {
		t.Fatalf("expected 200 patch, got %d body=%s", st, string(body))
	}
	if strings.Contains(string(body), "birth_date") {
		t.Fatalf("expected birth_date cleared, body=%s", string(body))
	}

	st, _ = doReq(t, ts.URL, "PATCH", "/pets/"+petID, "owner-1", map[string]any{"birth_date": "2030-01-01"})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for future birth_date, got %d", st)
	}
}

func createPet(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/pets", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create pet, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create pet: missing id body=%s", string(body))
	}
	return resp.ID
}

func inviteGrant(t *testing.T, baseURL, ownerID, petID, granteeID string, scopes []string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/pets/"+petID+"/grants", ownerID, map[string]any{
		"grantee_user_id": granteeID,
		"scopes":          scopes,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 invite grant, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("invite grant: missing id body=%s", string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
