package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	modbus "github.com/hootrhino/rtuframe"
	"github.com/hootrhino/rtuframe/internal/history"
	"github.com/hootrhino/rtuframe/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router  *gin.Engine
	log     *history.MemoryLog
	metrics *metrics.AppMetrics
}

func newTestEnv(t *testing.T, capacity int) *testEnv {
	t.Helper()
	log := history.NewMemoryLog(capacity)
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	h := NewHandler(modbus.NewFrameBuilder(), log, m, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r)
	return &testEnv{router: r, log: log, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestBuildFrame(t *testing.T) {
	env := newTestEnv(t, 10)

	rr := env.do(t, http.MethodPost, "/api/frames", gin.H{
		"unitAddress":  1,
		"functionCode": "03",
		"startAddress": "0000",
		"payload":      "1",
		"comment":      "probe",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[frameResponse](t, rr)
	assert.Equal(t, "01 03 00 00 00 01 84 0A", resp.Hex)
	assert.Equal(t, []int{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}, resp.Bytes)
	assert.Equal(t, "84 0A", resp.View.Checksum)
	assert.Equal(t, "00 00", resp.View.RegisterAddress)
	require.NotEmpty(t, resp.EntryID)

	entry, err := env.log.Get(context.Background(), resp.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "probe", entry.Comment)
	assert.Equal(t, modbus.ReadHoldingRegisters, entry.Request.Function)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.FramesBuilt.WithLabelValues("03", metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HistoryEntries))
}

func TestBuildFrameValidation(t *testing.T) {
	env := newTestEnv(t, 10)

	testCases := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"unit out of range", gin.H{"unitAddress": 0, "functionCode": "03", "startAddress": "0000"}, modbus.FieldUnitAddress},
		{"bad start", gin.H{"unitAddress": 1, "functionCode": "03", "startAddress": "XYZ"}, modbus.FieldStartAddress},
		{"unknown function", gin.H{"unitAddress": 1, "functionCode": "2B", "startAddress": "0000"}, modbus.FieldFunctionCode},
		{"unit before function", gin.H{"unitAddress": 300, "functionCode": "zz", "startAddress": "0000"}, modbus.FieldUnitAddress},
		{"register payload width", gin.H{"unitAddress": 1, "functionCode": "06", "startAddress": "0000", "payload": "01"}, modbus.FieldPayload},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/frames", tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			resp := decode[errorResponse](t, rr)
			assert.Equal(t, tc.field, resp.Field)
			assert.NotEmpty(t, resp.Error)
		})
	}

	n, err := env.log.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "rejected frames must not be recorded")
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.FramesBuilt.WithLabelValues(invalidLabel, metrics.ResultError)))
}

func TestBuildFrameBadJSON(t *testing.T) {
	env := newTestEnv(t, 10)

	rr := env.do(t, http.MethodPost, "/api/frames", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

}

func TestBuildFrameMissingFunctionCode(t *testing.T) {
	env := newTestEnv(t, 10)

	rr := env.do(t, http.MethodPost, "/api/frames", gin.H{"unitAddress": 0})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Equal(t, modbus.FieldUnitAddress, decode[errorResponse](t, rr).Field)

	rr = env.do(t, http.MethodPost, "/api/frames", gin.H{"unitAddress": 1})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Equal(t, modbus.FieldStartAddress, decode[errorResponse](t, rr).Field)

	rr = env.do(t, http.MethodPost, "/api/frames", gin.H{"unitAddress": 1, "startAddress": "0000"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Equal(t, modbus.FieldFunctionCode, decode[errorResponse](t, rr).Field)
}

func TestConvert(t *testing.T) {
	env := newTestEnv(t, 10)

	rr := env.do(t, http.MethodPost, "/api/conversions", gin.H{"value": 1.5, "format": "float32", "byteOrder": "CD AB"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[convertResponse](t, rr)
	assert.Equal(t, "00 00 3F C0", resp.Hex)
	assert.Equal(t, []int{0x00, 0x00, 0x3F, 0xC0}, resp.Bytes)

	rr = env.do(t, http.MethodPost, "/api/conversions", gin.H{"value": 0, "format": "uint16"})
	require.Equal(t, http.StatusOK, rr.Code, "zero is a valid value")
	assert.Equal(t, "00 00", decode[convertResponse](t, rr).Hex)

	rr = env.do(t, http.MethodPost, "/api/conversions", gin.H{"value": 100000, "format": "uint16"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, modbus.FieldValue, decode[errorResponse](t, rr).Field)

	rr = env.do(t, http.MethodPost, "/api/conversions", gin.H{"value": 1, "format": "int64"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, modbus.FieldFormat, decode[errorResponse](t, rr).Field)

	rr = env.do(t, http.MethodPost, "/api/conversions", gin.H{"value": 1})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, modbus.FieldFormat, decode[errorResponse](t, rr).Field)

	rr = env.do(t, http.MethodPost, "/api/conversions", gin.H{"format": "int16"})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "value is required")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Conversions.WithLabelValues("uint16", metrics.ResultError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.Conversions.WithLabelValues(invalidLabel, metrics.ResultError)))
}

func TestFunctionCodes(t *testing.T) {
	env := newTestEnv(t, 10)

	rr := env.do(t, http.MethodGet, "/api/function-codes", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[struct {
		FunctionCodes []functionCodeInfo `json:"functionCodes"`
	}](t, rr)
	require.Len(t, resp.FunctionCodes, len(modbus.FunctionCodes()))
	assert.Equal(t, functionCodeInfo{Code: "01", Name: "Read Coils", Read: true}, resp.FunctionCodes[0])
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t, 2)

	ids := make([]string, 0, 3)
	for _, unit := range []int{1, 2, 3} {
		rr := env.do(t, http.MethodPost, "/api/frames", gin.H{"unitAddress": unit, "functionCode": "03", "startAddress": "0000"})
		require.Equal(t, http.StatusOK, rr.Code)
		ids = append(ids, decode[frameResponse](t, rr).EntryID)
	}

	rr := env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Count   int             `json:"count"`
		Entries []history.Entry `json:"entries"`
	}](t, rr)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, ids[2], list.Entries[0].ID, "newest first")
	assert.Equal(t, ids[1], list.Entries[1].ID)

	rr = env.do(t, http.MethodGet, "/api/history/"+ids[0], nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "oldest entry was evicted")

	rr = env.do(t, http.MethodGet, "/api/history/"+ids[1], nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, decode[history.Entry](t, rr).Request.UnitAddress)

	rr = env.do(t, http.MethodPost, "/api/history/"+ids[2]+"/replay", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	replayed := decode[frameResponse](t, rr)
	assert.Equal(t, ids[2], replayed.EntryID)
	assert.Equal(t, list.Entries[0].Hex, replayed.Hex)

	n, err := env.log.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "replay does not append")

	rr = env.do(t, http.MethodDelete, "/api/history/"+ids[1], nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/history/"+ids[1], nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HistoryEntries))

	rr = env.do(t, http.MethodDelete, "/api/history", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"entries":[]}`, rr.Body.String())
	assert.Zero(t, testutil.ToFloat64(env.metrics.HistoryEntries))
}

func TestReplayUnknownEntry(t *testing.T) {
	env := newTestEnv(t, 2)
	rr := env.do(t, http.MethodPost, "/api/history/missing/replay", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerWithoutMetrics(t *testing.T) {
	h := NewHandler(modbus.NewFrameBuilder(), history.NewMemoryLog(1), nil, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/conversions", bytes.NewBufferString(`{"value":-1,"format":"int16"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"hex":"FF FF","bytes":[255,255]}`, rr.Body.String())
}
