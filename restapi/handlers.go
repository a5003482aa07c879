// Package restapi exposes a read-only HTTP view over a report.Builder's
// output, for a UI thread to poll once a capture reaches DoneProcessing:
// GET /report, /report/thread/{tid}, /callstacks/{address}.
package restapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/orbitcore/profiler/query"
	"github.com/orbitcore/profiler/report"
	"github.com/orbitcore/profiler/sampling"
)

// RouterArgs wires a router to the state it reads from.
type RouterArgs struct {
	Builder    *report.Builder
	Aggregator *sampling.Aggregator
}

// API holds the handlers; its methods are registered onto a mux.Router by
// NewRouter.
type API struct {
	RouterArgs
}

// NewRouter builds a gorilla/mux router exposing the report endpoints.
func NewRouter(args RouterArgs) *mux.Router {
	api := &API{RouterArgs: args}
	r := mux.NewRouter()
	r.HandleFunc("/report", api.getReport).Methods(http.MethodGet)
	r.HandleFunc("/report/thread/{tid}", api.getThreadReport).Methods(http.MethodGet)
	r.HandleFunc("/callstacks/{address}", api.getCallstacksFromAddress).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error, status int) {
	http.Error(w, err.Error(), status)
}

// reportQuery holds the optional filter/sort/limit parameters a request
// can set via query string.
type reportQuery struct {
	where string
	sortMode report.SortMode
	limit    int
}

func parseReportQuery(r *http.Request) reportQuery {
	q := r.URL.Query()
	rq := reportQuery{where: q.Get("where")}
	if q.Get("sort") == "tid" {
		rq.sortMode = report.SortByThreadID
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		rq.limit = l
	}
	return rq
}

// getReport builds every thread's table, running the filter/sort/limit
// pipeline over each table's Functions concurrently -- one goroutine per
// thread, fanned in with an errgroup the way APIWorker fans work out
// across the response.
func (a *API) getReport(w http.ResponseWriter, r *http.Request) {
	rq := parseReportQuery(r)
	tables := a.Builder.Build(rq.sortMode)

	g := new(errgroup.Group)
	for i := range tables {
		i := i
		g.Go(func() error {
			filtered, err := applyPipeline(tables[i].Functions, rq)
			if err != nil {
				return err
			}
			tables[i].Functions = filtered
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, errors.Wrap(err, "restapi: filtering report"), http.StatusBadRequest)
		return
	}
	writeJSON(w, tables)
}

func (a *API) getThreadReport(w http.ResponseWriter, r *http.Request) {
	tidStr := mux.Vars(r)["tid"]
	tid, err := strconv.ParseUint(tidStr, 10, 32)
	if err != nil {
		writeError(w, errors.Wrap(err, "restapi: parsing tid"), http.StatusBadRequest)
		return
	}

	rq := parseReportQuery(r)
	tables := a.Builder.Build(rq.sortMode)
	for _, t := range tables {
		if uint64(t.TID) != tid {
			continue
		}
		filtered, err := applyPipeline(t.Functions, rq)
		if err != nil {
			writeError(w, errors.Wrap(err, "restapi: filtering thread report"), http.StatusBadRequest)
			return
		}
		t.Functions = filtered
		writeJSON(w, t)
		return
	}
	writeError(w, errors.Errorf("restapi: no thread %d in last report", tid), http.StatusNotFound)
}

func (a *API) getCallstacksFromAddress(w http.ResponseWriter, r *http.Request) {
	addrStr := mux.Vars(r)["address"]
	addr, err := strconv.ParseUint(addrStr, 0, 64)
	if err != nil {
		writeError(w, errors.Wrap(err, "restapi: parsing address"), http.StatusBadRequest)
		return
	}

	var tid uint64
	if tidStr := r.URL.Query().Get("tid"); tidStr != "" {
		tid, err = strconv.ParseUint(tidStr, 10, 32)
		if err != nil {
			writeError(w, errors.Wrap(err, "restapi: parsing tid"), http.StatusBadRequest)
			return
		}
	}

	writeJSON(w, a.Aggregator.GetSortedCallstacksFromAddress(addr, uint32(tid)))
}

// applyPipeline runs the where-filter, sort-by-inclusive-descending, and
// limit stages over rows, in that order.
func applyPipeline(rows []sampling.SampledFunction, rq reportQuery) ([]sampling.SampledFunction, error) {
	out := rows
	if rq.where != "" {
		filtered, err := query.Filter(out, rq.where)
		if err != nil {
			return nil, err
		}
		out = filtered
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Inclusive > out[j].Inclusive })

	if rq.limit > 0 && rq.limit < len(out) {
		out = out[:rq.limit]
	}
	return out, nil
}
