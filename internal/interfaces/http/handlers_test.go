package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret  = "test-secret-key-for-unit-tests"
	testUser       = "00000000-0000-0000-0000-000000000001"
	testApprover   = "00000000-0000-0000-0000-000000000002"
	testProductID  = "00000000-0000-0000-0000-0000000000aa"
	testWarehouseA = "00000000-0000-0000-0000-00000000000a"
	testWarehouseB = "00000000-0000-0000-0000-00000000000b"
)

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, userID, role, "stock-ledger-test", 60)
	require.NoError(t, err)
	return "Bearer " + tok
}

type apiClient struct {
	t        *testing.T
	app      *fiber.App
	operator string
	approver string
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	store := memory.NewStore()
	log := logger.Nop()
	m := metrics.New("ledger_test")
	obs := appinv.WithObserver(m)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:      appinv.NewLedgerUseCase(store, log, obs),
		Adjustments: appinv.NewAdjustmentUseCase(store, log, obs),
		Movements:   appinv.NewMovementUseCase(store, log, decimal.NewFromInt(100), obs),
		Transfers:   appinv.NewTransferUseCase(store, log, obs),
		Metrics:     m,
		JWTSecret:   testJWTSecret,
		ServiceName: "stock-ledger",
		Log:         log,
	})
	return &apiClient{
		t:        t,
		app:      app,
		operator: bearer(t, testUser, pkgjwt.RoleOperator),
		approver: bearer(t, testApprover, pkgjwt.RoleSupervisor),
	}
}

// do envía la petición y decodifica el JSON de respuesta (si lo hay) en un mapa.
func (a *apiClient) do(method, path, auth string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(a.t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (a *apiClient) createInventory(warehouseID string, onHand int) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/inventory", a.operator, map[string]any{
		"product_id": testProductID, "warehouse_id": warehouseID, "quantity_on_hand": onHand,
	})
	require.Equal(a.t, http.StatusCreated, status, body)
	return body["id"].(string)
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventario
// ──────────────────────────────────────────────────────────────────────────────

func TestInventario_CrearConsultarYDuplicado(t *testing.T) {
	api := newAPI(t)
	id := api.createInventory(testWarehouseA, 100)

	status, body := api.do(http.MethodGet, "/api/inventory/"+id, api.operator, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, body["quantity_available"])

	status, body = api.do(http.MethodGet, "/api/inventory?product_id="+testProductID+"&warehouse_id="+testWarehouseA, api.operator, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["id"])

	status, body = api.do(http.MethodPost, "/api/inventory", api.operator, map[string]any{
		"product_id": testProductID, "warehouse_id": testWarehouseA, "quantity_on_hand": 5,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", body["code"])
}

func TestInventario_ValidacionDelCuerpo(t *testing.T) {
	api := newAPI(t)
	status, body := api.do(http.MethodPost, "/api/inventory", api.operator, map[string]any{
		"product_id": "no-es-uuid", "warehouse_id": testWarehouseA, "quantity_on_hand": 5, "quantity_reserved": 9,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])

	fields := map[string]bool{}
	for _, f := range body["fields"].([]any) {
		fields[f.(map[string]any)["field"].(string)] = true
	}
	assert.True(t, fields["product_id"])
	assert.True(t, fields["quantity_reserved"])
}

func TestInventario_ReservaInsuficienteYLiberacion(t *testing.T) {
	api := newAPI(t)
	id := api.createInventory(testWarehouseA, 10)

	status, body := api.do(http.MethodPost, "/api/inventory/"+id+"/reserve", api.operator, map[string]any{"quantity": 8})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["quantity_available"])

	status, body = api.do(http.MethodPost, "/api/inventory/"+id+"/reserve", api.operator, map[string]any{"quantity": 3})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_AVAILABILITY", body["code"])

	status, body = api.do(http.MethodPost, "/api/inventory/"+id+"/release", api.operator, map[string]any{"quantity": 50})
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["quantity_reserved"])
	assert.EqualValues(t, 10, body["quantity_available"])
}

func TestInventario_NoEncontradoYSinToken(t *testing.T) {
	api := newAPI(t)
	status, body := api.do(http.MethodGet, "/api/inventory/no-existe", api.operator, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, _ = api.do(http.MethodGet, "/api/inventory/no-existe", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestInventario_AjusteEHistorial(t *testing.T) {
	api := newAPI(t)
	id := api.createInventory(testWarehouseA, 100)

	status, body := api.do(http.MethodPost, "/api/inventory/"+id+"/adjustments", api.operator, map[string]any{
		"adjustment_type": "decrease", "quantity_adjusted": 30, "reason": "damage",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.EqualValues(t, 100, body["quantity_before"])
	assert.EqualValues(t, 70, body["quantity_after"])
	assert.Regexp(t, `^ADJ-\d{8}-[A-Z0-9]{6}$`, body["reference_number"])
	assert.Equal(t, testUser, body["adjusted_by"])

	status, body = api.do(http.MethodGet, "/api/inventory/"+id+"/adjustments?limit=10", api.operator, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, _ = api.do(http.MethodGet, "/api/inventory/"+id+"/adjustments?limit=500", api.operator, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInventario_EliminarSoloAdmin(t *testing.T) {
	api := newAPI(t)
	id := api.createInventory(testWarehouseA, 1)

	status, _ := api.do(http.MethodDelete, "/api/inventory/"+id, api.operator, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodDelete, "/api/inventory/"+id, bearer(t, testUser, pkgjwt.RoleAdmin), nil)
	assert.Equal(t, http.StatusNoContent, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestMovimientos_AutoAprobacionYAprobacionManual(t *testing.T) {
	api := newAPI(t)
	invID := api.createInventory(testWarehouseA, 50)

	status, small := api.do(http.MethodPost, "/api/movements", api.operator, map[string]any{
		"product_id": testProductID, "warehouse_id": testWarehouseA,
		"movement_type": "adjustment_increase", "quantity_moved": 1, "unit_cost": "99.99",
	})
	require.Equal(t, http.StatusCreated, status, small)
	assert.Equal(t, "applied", small["status"])
	assert.Equal(t, appinv.AutoApprover, small["approved_by"])

	status, big := api.do(http.MethodPost, "/api/movements", api.operator, map[string]any{
		"product_id": testProductID, "warehouse_id": testWarehouseA,
		"movement_type": "adjustment_increase", "quantity_moved": 1, "unit_cost": "100",
	})
	require.Equal(t, http.StatusCreated, status, big)
	assert.Equal(t, "pending", big["status"])
	movID := big["id"].(string)

	status, _ = api.do(http.MethodPost, "/api/movements/"+movID+"/approve", api.operator, nil)
	assert.Equal(t, http.StatusForbidden, status, "un operador no aprueba")

	status, body := api.do(http.MethodPost, "/api/movements/"+movID+"/approve", api.approver, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "applied", body["status"])
	assert.Equal(t, testApprover, body["approved_by"])

	status, body = api.do(http.MethodPost, "/api/movements/"+movID+"/approve", api.approver, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", body["code"])
	assert.Equal(t, "applied", body["current_state"])

	_, inv := api.do(http.MethodGet, "/api/inventory/"+invID, api.operator, nil)
	assert.EqualValues(t, 52, inv["quantity_on_hand"])

	status, body = api.do(http.MethodGet, "/api/inventory/"+invID+"/movements", api.operator, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 2)
}

func TestMovimientos_RechazoRequiereMotivo(t *testing.T) {
	api := newAPI(t)
	api.createInventory(testWarehouseA, 50)

	_, mov := api.do(http.MethodPost, "/api/movements", api.operator, map[string]any{
		"product_id": testProductID, "warehouse_id": testWarehouseA,
		"movement_type": "purchase_receive", "quantity_moved": 10, "unit_cost": "5",
	})
	movID := mov["id"].(string)

	status, body := api.do(http.MethodPost, "/api/movements/"+movID+"/reject", api.approver, map[string]any{"reason": "  "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", body["code"])

	status, body = api.do(http.MethodPost, "/api/movements/"+movID+"/reject", api.approver, map[string]any{"reason": "sin soporte"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "rejected", body["status"])
	assert.Contains(t, body["notes"], "sin soporte")
}

func TestMovimientos_SalidaSinExistencia(t *testing.T) {
	api := newAPI(t)
	api.createInventory(testWarehouseA, 5)

	status, body := api.do(http.MethodPost, "/api/movements", api.operator, map[string]any{
		"product_id": testProductID, "warehouse_id": testWarehouseA,
		"movement_type": "sale_fulfill", "quantity_moved": -6,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_INVENTORY", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestTraslados_CicloCompletoEHistorial(t *testing.T) {
	api := newAPI(t)
	fromID := api.createInventory(testWarehouseA, 100)

	status, tr := api.do(http.MethodPost, "/api/transfers", api.operator, map[string]any{
		"from_warehouse_id": testWarehouseA, "to_warehouse_id": testWarehouseB,
		"product_id": testProductID, "quantity_transferred": 30,
	})
	require.Equal(t, http.StatusCreated, status, tr)
	assert.Equal(t, "pending", tr["transfer_status"])
	assert.Regexp(t, `^ST-\d{8}-\d{4}$`, tr["reference_number"])
	id := tr["id"].(string)

	status, body := api.do(http.MethodPost, "/api/transfers", api.operator, map[string]any{
		"from_warehouse_id": testWarehouseA, "to_warehouse_id": testWarehouseB,
		"product_id": testProductID, "quantity_transferred": 5,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_REQUEST", body["code"])

	status, body = api.do(http.MethodPost, "/api/transfers/"+id+"/ship", api.operator, nil)
	assert.Equal(t, http.StatusConflict, status, "no se despacha sin aprobar")
	assert.Equal(t, "pending", body["current_state"])

	for _, step := range []struct{ path, auth, want string }{
		{"/approve", api.approver, "approved"},
		{"/ship", api.operator, "in_transit"},
		{"/complete", api.operator, "completed"},
	} {
		status, body = api.do(http.MethodPost, "/api/transfers/"+id+step.path, step.auth, nil)
		require.Equal(t, http.StatusOK, status, body)
		assert.Equal(t, step.want, body["transfer_status"])
	}

	_, src := api.do(http.MethodGet, "/api/inventory/"+fromID, api.operator, nil)
	assert.EqualValues(t, 70, src["quantity_on_hand"])
	_, dst := api.do(http.MethodGet, "/api/inventory?product_id="+testProductID+"&warehouse_id="+testWarehouseB, api.operator, nil)
	assert.EqualValues(t, 30, dst["quantity_on_hand"])

	status, body = api.do(http.MethodGet, "/api/transfers/"+id+"/history", api.operator, nil)
	require.Equal(t, http.StatusOK, status)
	items := body["items"].([]any)
	require.Len(t, items, 4)
	assert.Equal(t, "initiated", items[0].(map[string]any)["transition"])
	assert.Equal(t, "completed", items[3].(map[string]any)["transition"])
}

func TestTraslados_CancelacionEnTransitoCompensa(t *testing.T) {
	api := newAPI(t)
	fromID := api.createInventory(testWarehouseA, 40)

	_, tr := api.do(http.MethodPost, "/api/transfers", api.operator, map[string]any{
		"from_warehouse_id": testWarehouseA, "to_warehouse_id": testWarehouseB,
		"product_id": testProductID, "quantity_transferred": 10,
	})
	id := tr["id"].(string)
	api.do(http.MethodPost, "/api/transfers/"+id+"/approve", api.approver, nil)
	api.do(http.MethodPost, "/api/transfers/"+id+"/ship", api.operator, nil)

	_, src := api.do(http.MethodGet, "/api/inventory/"+fromID, api.operator, nil)
	assert.EqualValues(t, 30, src["quantity_on_hand"])

	status, body := api.do(http.MethodPost, "/api/transfers/"+id+"/cancel", api.operator, map[string]any{"cancellation_reason": "camión averiado"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "cancelled", body["transfer_status"])
	assert.Equal(t, "camión averiado", body["cancellation_reason"])

	_, src = api.do(http.MethodGet, "/api/inventory/"+fromID, api.operator, nil)
	assert.EqualValues(t, 40, src["quantity_on_hand"])
}

func TestTraslados_MismaBodega(t *testing.T) {
	api := newAPI(t)
	api.createInventory(testWarehouseA, 40)

	status, body := api.do(http.MethodPost, "/api/transfers", api.operator, map[string]any{
		"from_warehouse_id": testWarehouseA, "to_warehouse_id": testWarehouseA,
		"product_id": testProductID, "quantity_transferred": 1,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SAME_WAREHOUSE", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Operación
// ──────────────────────────────────────────────────────────────────────────────

func TestHealthYMetrics(t *testing.T) {
	api := newAPI(t)
	status, body := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	api.createInventory(testWarehouseA, 1)

	resp, err := api.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `ledger_test_ledger_operations_total{operation="inventory.create",outcome="ok"} 1`)
}
