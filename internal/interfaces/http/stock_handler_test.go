package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
)

const testProductID = "prod-papa"

type fakeReport struct{}

func (fakeReport) GenerateStockReport(context.Context, string, time.Time, dto.StatisticsResponse, []dto.SnapshotResponse) ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

// stockApp arma la API completa sobre el almacén en memoria.
func stockApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	s.AddProduct(entity.Product{ID: testProductID, OrganizationID: testOrgID, Name: "Papa Criolla", UnitMeasure: "KG", Active: true})
	s.AddProduct(entity.Product{ID: "prod-ajena", OrganizationID: "otra-org", Name: "Ajena", Active: true})

	ledger := inventory.NewLedgerUseCase(s, s, nil, inventory.LedgerConfig{MaxAttempts: 2}, zerolog.Nop())
	query := inventory.NewQueryUseCase(s.MovementRepository(), s.SnapshotRepository(), decimal.NewFromInt(10))

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:    ledger,
		Quick:     inventory.NewQuickActions(ledger),
		Query:     query,
		Report:    inventory.NewStockReportUseCase(query, fakeReport{}),
		Reconcile: inventory.NewReconcileUseCase(s),
		JWTSecret: testJWTSecret,
		Log:       zerolog.Nop(),
	})
	return app, s
}

func call(t *testing.T, app *fiber.App, method, path, role, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func errorCode(t *testing.T, body []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestRecordMovement_FlujoCompleto(t *testing.T) {
	app, s := stockApp(t)

	resp, body := call(t, app, http.MethodPost, "/api/stock/movements", "bodeguero",
		`{"productId":"prod-papa","type":"ENTRY","quantity":50}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created dto.RecordMovementResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "ENTRY", created.Movement.Type)
	assert.Equal(t, testUserID, created.Movement.UserID, "el usuario sale del token")
	assert.Equal(t, testOrgID, created.Movement.OrganizationID)
	assert.True(t, created.Snapshot.CurrentQuantity.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "OK", created.Snapshot.Status)

	resp, body = call(t, app, http.MethodPost, "/api/stock/movements", "cocina",
		`{"productId":"prod-papa","type":"EXIT","quantity":"20"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodPost, "/api/stock/movements", "cocina",
		`{"productId":"prod-papa","type":"EXIT","quantity":31}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	e := errorCode(t, body)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	assert.Equal(t, "30", e.Available)
	assert.Contains(t, e.Message, "30")

	assert.Len(t, s.Movements(), 2)
	assert.True(t, s.Snapshot(testOrgID, testProductID).CurrentQuantity.Equal(decimal.NewFromInt(30)))
}

func TestRecordMovement_ErroresDeValidacion(t *testing.T) {
	app, _ := stockApp(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"cantidad cero", `{"productId":"prod-papa","type":"ENTRY","quantity":0}`, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"cantidad negativa", `{"productId":"prod-papa","type":"ENTRY","quantity":-3}`, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"cantidad con cinco decimales", `{"productId":"prod-papa","type":"ENTRY","quantity":0.00001}`, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"cantidad no numérica", `{"productId":"prod-papa","type":"ENTRY","quantity":"muchas"}`, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"sin cantidad", `{"productId":"prod-papa","type":"ENTRY"}`, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"tipo inválido", `{"productId":"prod-papa","type":"AJUSTE","quantity":1}`, http.StatusBadRequest, "INVALID_MOVEMENT_TYPE"},
		{"producto inexistente", `{"productId":"nada","type":"ENTRY","quantity":1}`, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"producto de otra organización", `{"productId":"prod-ajena","type":"ENTRY","quantity":1}`, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"body inválido", `{"productId":`, http.StatusBadRequest, "INVALID_BODY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := call(t, app, http.MethodPost, "/api/stock/movements", "admin", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, errorCode(t, body).Code)
		})
	}
}

func TestRecordMovement_ConflictoDevuelveRetryAfter(t *testing.T) {
	app, s := stockApp(t)
	s.InjectConflicts(2)

	resp, body := call(t, app, http.MethodPost, "/api/stock/movements", "admin",
		`{"productId":"prod-papa","type":"ENTRY","quantity":1}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONCURRENCY_CONFLICT", errorCode(t, body).Code)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.Empty(t, s.Movements())
}

func TestQuickActions_HTTP(t *testing.T) {
	app, _ := stockApp(t)

	resp, body := call(t, app, http.MethodPost, "/api/stock/quick-entry", "cocina", `{"productId":"prod-papa","quantity":5}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var res dto.RecordMovementResponse
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, inventory.QuickEntryObservation, res.Movement.Observation)
	assert.Equal(t, "BAJO", res.Snapshot.Status)

	resp, body = call(t, app, http.MethodPost, "/api/stock/quick-exit", "cocina", `{"productId":"prod-papa","quantity":6}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "5", errorCode(t, body).Available)

	resp, _ = call(t, app, http.MethodPost, "/api/stock/quick-exit", "cocina", `{"productId":"prod-papa","quantity":5}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestEscrituras_RequierenRolOperativo(t *testing.T) {
	app, _ := stockApp(t)

	resp, _ := call(t, app, http.MethodPost, "/api/stock/movements", "auditor", `{"productId":"prod-papa","type":"ENTRY","quantity":1}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, app, http.MethodPost, "/api/stock/movements", "", `{"productId":"prod-papa","type":"ENTRY","quantity":1}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConsultas_HTTP(t *testing.T) {
	app, s := stockApp(t)
	for _, b := range []string{
		`{"productId":"prod-papa","type":"ENTRY","quantity":12}`,
		`{"productId":"prod-papa","type":"EXIT","quantity":4}`,
	} {
		resp, body := call(t, app, http.MethodPost, "/api/stock/movements", "admin", b)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := call(t, app, http.MethodGet, "/api/stock/movements?type=EXIT&page=1&pageSize=5", "auditor", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var movs dto.MovementListResponse
	require.NoError(t, json.Unmarshal(body, &movs))
	assert.Equal(t, 1, movs.Total)
	assert.Equal(t, 1, movs.TotalPages)
	assert.Equal(t, 5, movs.PageSize)
	assert.Equal(t, "Papa Criolla", movs.Items[0].ProductName)

	resp, body = call(t, app, http.MethodGet, "/api/stock/movements/"+s.Movements()[0].ID, "auditor", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodGet, "/api/stock/movements/no-existe", "auditor", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body).Code)

	resp, _ = call(t, app, http.MethodGet, "/api/stock/movements?dateFrom=ayer", "auditor", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, app, http.MethodGet, "/api/stock/snapshots?lowStock=true", "auditor", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var snaps dto.SnapshotListResponse
	require.NoError(t, json.Unmarshal(body, &snaps))
	require.Equal(t, 1, snaps.Total)
	assert.Equal(t, "BAJO", snaps.Items[0].Status)

	resp, body = call(t, app, http.MethodGet, "/api/stock/statistics?threshold=5", "auditor", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var st dto.StatisticsResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, 1, st.TotalProducts)
	assert.Equal(t, 0, st.LowStock)

	resp, _ = call(t, app, http.MethodGet, "/api/stock/statistics?threshold=abc", "auditor", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, app, http.MethodGet, "/api/stock/snapshots/report.pdf", "auditor", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".pdf")
	assert.Equal(t, "%PDF-fake", string(body))
}

func TestReconcile_SoloAdmin(t *testing.T) {
	app, _ := stockApp(t)

	resp, _ := call(t, app, http.MethodGet, "/api/stock/reconcile", "bodeguero", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := call(t, app, http.MethodGet, "/api/stock/reconcile", "admin", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var report dto.ReconcileReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.True(t, report.Consistent())
	assert.Equal(t, testOrgID, report.OrganizationID)
}

func TestOrganizacion_SaleDelToken(t *testing.T) {
	app, _ := stockApp(t)
	resp, _ := call(t, app, http.MethodPost, "/api/stock/movements", "admin",
		`{"productId":"prod-papa","type":"ENTRY","quantity":3,"organizationId":"otra-org"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	other, err := pkgjwt.Generate(testJWTSecret, testUserID, "otra-org", "admin", testIssuer, testExpMin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/stock/movements", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	r, err := app.Test(req, -1)
	require.NoError(t, err)
	defer r.Body.Close()
	var movs dto.MovementListResponse
	require.NoError(t, json.NewDecoder(r.Body).Decode(&movs))
	assert.Equal(t, 0, movs.Total, "otra organización no ve movimientos ajenos")
}
