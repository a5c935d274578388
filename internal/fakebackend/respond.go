package fakebackend

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
)

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDetail sends an error in the {"detail": "..."} shape
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

// writeValidation sends a 422 with a list detail, one entry per issue
func writeValidation(w http.ResponseWriter, issues ...validationIssue) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
}

func invalid(where, field, msg string) validationIssue {
	return validationIssue{Loc: []string{where, field}, Msg: msg, Type: "value_error"}
}

// decodeBody reads a JSON body into dst, answering 422 itself on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeValidation(w, invalid("body", "", "Invalid JSON body: "+err.Error()))
		return false
	}
	return true
}

// pathVar returns an unescaped route variable
func pathVar(r *http.Request, name string) string {
	raw := mux.Vars(r)[name]
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

type pageQuery struct {
	limit  int
	offset int
}

// intQuery reads an optional integer query parameter bounded by [lo, hi]
func intQuery(q url.Values, name string, def, lo, hi int) (int, *validationIssue) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		issue := invalid("query", name, "value is not a valid integer")
		return 0, &issue
	}
	if n < lo || n > hi {
		issue := invalid("query", name, "ensure this value is between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return 0, &issue
	}
	return n, nil
}

func parsePage(w http.ResponseWriter, q url.Values) (pageQuery, bool) {
	limit, issue := intQuery(q, "limit", 50, 1, 100)
	if issue != nil {
		writeValidation(w, *issue)
		return pageQuery{}, false
	}
	offset, issue := intQuery(q, "offset", 0, 0, int(^uint(0)>>1))
	if issue != nil {
		writeValidation(w, *issue)
		return pageQuery{}, false
	}
	return pageQuery{limit: limit, offset: offset}, true
}

func parseDays(w http.ResponseWriter, q url.Values) (int, bool) {
	days, issue := intQuery(q, "days", 30, 1, 365)
	if issue != nil {
		writeValidation(w, *issue)
		return 0, false
	}
	return days, true
}

// paginate returns the window of items selected by p
func paginate[T any](items []T, p pageQuery) []T {
	if p.offset >= len(items) {
		return []T{}
	}
	end := p.offset + p.limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.offset:end]
}
