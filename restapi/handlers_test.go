package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcore/profiler/intern"
	"github.com/orbitcore/profiler/process"
	"github.com/orbitcore/profiler/report"
	"github.com/orbitcore/profiler/sampling"
	"github.com/orbitcore/profiler/symtab"
)

func newTestRouter(t *testing.T) (*sampling.Aggregator, http.Handler) {
	t.Helper()
	idx := process.New()
	m := symtab.New("/bin/app", 0x1000, 0x9000)
	m.LoadSymbols(symtab.ModuleSymbols{
		Symbols: []symtab.SymbolInfo{
			{Name: "foo", DemangledName: "foo", Address: 0x500},
			{Name: "bar", DemangledName: "bar", Address: 0x700},
		},
	})
	idx.AddModule(m)

	agg := sampling.NewAggregator(idx)
	agg.AddCallstack(intern.NewCallStack(5, []uint64{0x1501}))
	agg.AddCallstack(intern.NewCallStack(5, []uint64{0x1701}))
	agg.AddCallstack(intern.NewCallStack(9, []uint64{0x1701}))
	agg.ProcessSamples()

	b := report.NewBuilder(agg, map[uint32]string{5: "worker-5", 9: "worker-9"})
	return agg, NewRouter(RouterArgs{Builder: b, Aggregator: agg})
}

func TestGetReportReturnsAllThreads(t *testing.T) {
	_, r := newTestRouter(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var tables []report.ThreadTable
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tables))
	assert.NotEmpty(t, tables)
}

func TestGetReportWithWhereFilter(t *testing.T) {
	_, r := newTestRouter(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, `/report?where=name+%3D+%22bar%22`, nil)
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var tables []report.ThreadTable
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tables))
	for _, tbl := range tables {
		for _, fn := range tbl.Functions {
			assert.Equal(t, "bar", fn.Name)
		}
	}
}

func TestGetThreadReportFindsSpecificThread(t *testing.T) {
	_, r := newTestRouter(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/report/thread/5", nil)
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var table report.ThreadTable
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &table))
	assert.Equal(t, uint32(5), table.TID)
}

func TestGetThreadReportMissingThreadIs404(t *testing.T) {
	_, r := newTestRouter(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/report/thread/999", nil)
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetCallstacksFromAddress(t *testing.T) {
	_, r := newTestRouter(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callstacks/0x500?tid=5", nil)
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp sampling.SortedCallstackReport
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.NumCallStacksTotal)
}

func TestGetCallstacksFromAddressBadAddressIs400(t *testing.T) {
	_, r := newTestRouter(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callstacks/not-a-number", nil)
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
