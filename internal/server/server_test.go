package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"partnerledger/internal/auth"
	"partnerledger/internal/feed"
	"partnerledger/internal/models"
	"partnerledger/internal/roster"
	"partnerledger/internal/service"
	"partnerledger/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.New()
	resolver := roster.NewResolver(store)
	svc := service.NewTransactionService(store, resolver, feed.NewHub(), nil)
	jwt := auth.NewJWTManager("test-secret-key", time.Hour)
	srv := New(svc, resolver, auth.NewPasswordAuthenticator(store), jwt)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

type session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func register(t *testing.T, ts *httptest.Server, email, name string, role models.Role) session {
	t.Helper()

	var sess session
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]any{
		"email":    email,
		"name":     name,
		"role":     role,
		"password": "long-enough-password",
	}, &sess)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register returned %d", resp.StatusCode)
	}
	return sess
}

func createTransaction(t *testing.T, ts *httptest.Server, token, partnerID, counterpartyID string) models.Transaction {
	t.Helper()

	var tx models.Transaction
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", token, map[string]any{
		"partner_id":         partnerID,
		"counterparty_id":    counterpartyID,
		"customer_name":      "Israel Israeli",
		"total_revenue":      "1000",
		"expenses":           []map[string]any{{"name": "fuel", "amount": "100"}},
		"partner_percentage": 20,
	}, &tx)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create returned %d", resp.StatusCode)
	}
	return tx
}

func TestAuthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("register then login", func(t *testing.T) {
		sess := register(t, ts, "shimon@example.com", "Shimon", models.RoleBoss)
		if sess.Token == "" || sess.User.ID == "" {
			t.Fatal("register returned an empty session")
		}

		var login session
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
			"email":    "shimon@example.com",
			"password": "long-enough-password",
		}, &login)
		if resp.StatusCode != http.StatusOK || login.Token == "" {
			t.Fatalf("login returned %d", resp.StatusCode)
		}
		if login.User.Role != models.RoleBoss {
			t.Errorf("login role = %q, want boss", login.User.Role)
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
			"email":    "shimon@example.com",
			"password": "wrong-password-here",
		}, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("login with wrong password returned %d, want 401", resp.StatusCode)
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]any{
			"email":    "shimon@example.com",
			"name":     "Impostor",
			"role":     models.RoleBoss,
			"password": "long-enough-password",
		}, nil)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("duplicate register returned %d, want 409", resp.StatusCode)
		}
	})

	t.Run("short password is rejected", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]any{
			"email":    "new@example.com",
			"name":     "New",
			"role":     models.RolePartner,
			"password": "short",
		}, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("weak password returned %d, want 400", resp.StatusCode)
		}
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/transactions", "", nil, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("unauthenticated list returned %d, want 401", resp.StatusCode)
		}
	})
}

func TestTransactionEndpoints(t *testing.T) {
	ts := newTestServer(t)

	boss := register(t, ts, "shimon@example.com", "Shimon", models.RoleBoss)
	partner := register(t, ts, "eli@example.com", "Eli", models.RolePartner)
	other := register(t, ts, "dana@example.com", "Dana", models.RolePartner)

	t.Run("create computes the split", func(t *testing.T) {
		tx := createTransaction(t, ts, boss.Token, partner.User.ID, boss.User.ID)
		if !tx.PartnerShare.Equal(decimal.NewFromInt(180)) {
			t.Errorf("PartnerShare = %s, want 180", tx.PartnerShare)
		}
		if tx.PartnerName != "Eli" {
			t.Errorf("PartnerName = %q, want Eli", tx.PartnerName)
		}
	})

	t.Run("partner cannot create", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", partner.Token, map[string]any{
			"partner_id":      partner.User.ID,
			"counterparty_id": boss.User.ID,
			"total_revenue":   "10",
		}, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("partner create returned %d, want 403", resp.StatusCode)
		}
	})

	t.Run("listing is role scoped", func(t *testing.T) {
		createTransaction(t, ts, boss.Token, other.User.ID, boss.User.ID)

		var bossView, partnerView []models.Transaction
		doJSON(t, http.MethodGet, ts.URL+"/api/transactions", boss.Token, nil, &bossView)
		doJSON(t, http.MethodGet, ts.URL+"/api/transactions", partner.Token, nil, &partnerView)

		if len(bossView) != 2 {
			t.Errorf("boss sees %d records, want 2", len(bossView))
		}
		if len(partnerView) != 1 || partnerView[0].PartnerID != partner.User.ID {
			t.Errorf("partner view leaked: %+v", partnerView)
		}
	})

	t.Run("hidden record reads as missing", func(t *testing.T) {
		foreign := createTransaction(t, ts, boss.Token, other.User.ID, boss.User.ID)

		resp := doJSON(t, http.MethodGet, ts.URL+"/api/transactions/"+foreign.ID, partner.Token, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("hidden get returned %d, want 404", resp.StatusCode)
		}
	})

	t.Run("patch flips the paid flag", func(t *testing.T) {
		tx := createTransaction(t, ts, boss.Token, partner.User.ID, boss.User.ID)

		var updated models.Transaction
		resp := doJSON(t, http.MethodPatch, ts.URL+"/api/transactions/"+tx.ID, boss.Token,
			map[string]any{"is_paid_to_partner": true}, &updated)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("patch returned %d", resp.StatusCode)
		}
		if !updated.IsPaidToPartner {
			t.Error("paid flag not set")
		}
		if !updated.PartnerShare.Equal(tx.PartnerShare) {
			t.Error("patch changed unrelated fields")
		}
	})

	t.Run("delete then delete again", func(t *testing.T) {
		tx := createTransaction(t, ts, boss.Token, partner.User.ID, boss.User.ID)

		resp := doJSON(t, http.MethodDelete, ts.URL+"/api/transactions/"+tx.ID, boss.Token, nil, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete returned %d, want 204", resp.StatusCode)
		}
		resp = doJSON(t, http.MethodDelete, ts.URL+"/api/transactions/"+tx.ID, boss.Token, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("second delete returned %d, want 404", resp.StatusCode)
		}
	})

	t.Run("clear all reports the count", func(t *testing.T) {
		var result struct {
			Deleted int `json:"deleted"`
		}
		resp := doJSON(t, http.MethodDelete, ts.URL+"/api/transactions", boss.Token, nil, &result)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("clear all returned %d", resp.StatusCode)
		}
		if result.Deleted == 0 {
			t.Error("clear all deleted nothing")
		}

		var remaining []models.Transaction
		doJSON(t, http.MethodGet, ts.URL+"/api/transactions", boss.Token, nil, &remaining)
		if len(remaining) != 0 {
			t.Errorf("%d records survived clear all", len(remaining))
		}
	})
}

func TestSummaryAndRosterEndpoints(t *testing.T) {
	ts := newTestServer(t)

	boss := register(t, ts, "shimon@example.com", "Shimon", models.RoleBoss)
	eli := register(t, ts, "eli@example.com", "Eli", models.RolePartner)
	dana := register(t, ts, "dana@example.com", "Dana", models.RolePartner)

	createTransaction(t, ts, boss.Token, eli.User.ID, boss.User.ID)
	createTransaction(t, ts, boss.Token, dana.User.ID, boss.User.ID)

	t.Run("roster lists by role", func(t *testing.T) {
		var partners []models.User
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/roster/partners", boss.Token, nil, &partners)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("roster returned %d", resp.StatusCode)
		}
		if len(partners) != 2 || partners[0].Name != "Dana" || partners[1].Name != "Eli" {
			t.Errorf("partner roster = %+v, want Dana then Eli", partners)
		}

		var bosses []models.User
		doJSON(t, http.MethodGet, ts.URL+"/api/roster/bosses", boss.Token, nil, &bosses)
		if len(bosses) != 1 || bosses[0].Name != "Shimon" {
			t.Errorf("boss roster = %+v, want only Shimon", bosses)
		}
	})

	t.Run("roster is boss only", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/roster/partners", eli.Token, nil, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("partner roster access returned %d, want 403", resp.StatusCode)
		}
	})

	t.Run("summary totals everything visible", func(t *testing.T) {
		var summary struct {
			Totals struct {
				PartnerTotal      decimal.Decimal `json:"partner_total"`
				CounterpartyTotal decimal.Decimal `json:"counterparty_total"`
			} `json:"totals"`
			Partners []service.PartnerRef `json:"partners"`
			Count    int                  `json:"count"`
		}
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/summary", boss.Token, nil, &summary)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("summary returned %d", resp.StatusCode)
		}
		if summary.Count != 2 || len(summary.Partners) != 2 {
			t.Errorf("summary covers %d records and %d partners, want 2 and 2", summary.Count, len(summary.Partners))
		}
		if !summary.Totals.PartnerTotal.Equal(decimal.NewFromInt(360)) {
			t.Errorf("PartnerTotal = %s, want 360", summary.Totals.PartnerTotal)
		}
	})

	t.Run("summary narrows by partner", func(t *testing.T) {
		var summary struct {
			Count int `json:"count"`
		}
		url := fmt.Sprintf("%s/api/summary?partner=%s", ts.URL, eli.User.ID)
		doJSON(t, http.MethodGet, url, boss.Token, nil, &summary)
		if summary.Count != 1 {
			t.Errorf("filtered summary covers %d records, want 1", summary.Count)
		}
	})
}

func TestLegacyImportEndpoint(t *testing.T) {
	ts := newTestServer(t)

	boss := register(t, ts, "shimon@example.com", "Shimon", models.RoleBoss)
	register(t, ts, "eli@example.com", "Eli", models.RolePartner)

	var result struct {
		Imported int    `json:"imported"`
		Warning  string `json:"warning"`
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/transactions/import", boss.Token, []map[string]any{
		{
			"customerName":  "old export",
			"date":          "2022-09-01",
			"totalRevenue":  "500",
			"eliPercentage": 40,
			"paid":          true,
		},
	}, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import returned %d", resp.StatusCode)
	}
	if result.Imported != 1 || result.Warning != "" {
		t.Fatalf("import result = %+v, want 1 clean record", result)
	}

	var records []models.Transaction
	doJSON(t, http.MethodGet, ts.URL+"/api/transactions", boss.Token, nil, &records)
	if len(records) != 1 || !records[0].IsPaidToPartner {
		t.Errorf("imported record missing or wrong: %+v", records)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz returned %d", resp.StatusCode)
	}
}
