package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// restError satisfies codedError for failures detected before dispatch.
type restError struct {
	message string
}

func (e *restError) Error() string             { return e.message }
func (e *restError) CodeValue() string         { return "INVALID_INPUT" }
func (e *restError) MessageValue() string      { return e.message }
func (e *restError) RecoveryHintValue() string { return "Check the request path and JSON body" }

func (s *Server) routeAPI(r chi.Router) {
	r.Post("/tables", s.call("create_table", http.StatusCreated))
	r.Get("/tables", s.call("list_tables", http.StatusOK))
	r.Route("/tables/{tableID}", func(r chi.Router) {
		r.Get("/", s.call("get_table", http.StatusOK))
		r.Delete("/", s.call("close_table", http.StatusOK))
		r.Post("/rows", s.call("add_row", http.StatusCreated))
		r.Delete("/rows/{row}", s.call("remove_row", http.StatusOK))
		r.Put("/rows/{row}/fields/{field}", s.call("edit_field", http.StatusOK))
		r.Put("/rows/{row}/route", s.call("set_route", http.StatusOK))
		r.Put("/rows/{row}/cycle", s.call("set_cycle", http.StatusOK))
		r.Get("/payload", s.call("get_payload", http.StatusOK))
		r.Post("/submit", s.call("submit_protocol", http.StatusOK))
		r.Post("/save", s.call("save_protocol", http.StatusOK))
	})
	r.Post("/commands/extract", s.call("extract", http.StatusOK))
	r.Post("/commands/dispense", s.call("dispense", http.StatusOK))
	r.Post("/commands/execute", s.call("execute", http.StatusOK))
	r.Get("/activity", s.call("get_recent_activity", http.StatusOK))
}

// call returns a handler that merges the JSON body, path parameters and
// query string into one params object and dispatches it as method.
func (s *Server) call(method string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := TenantFromContext(r.Context())
		if !ok || tenantID == "" {
			writeErrorBody(w, http.StatusUnauthorized, codeUnauthorized, "missing tenant", "")
			return
		}

		params, err := requestParams(r)
		if err != nil {
			writeAPIError(w, err)
			return
		}

		result, err := s.handler.Handle(r.Context(), tenantID, method, params)
		if err != nil {
			var coded codedError
			if !errors.As(err, &coded) {
				s.logger.Error("api call failed", "method", method, "tenant", tenantID, "error", err)
			}
			writeAPIError(w, err)
			return
		}
		writeJSON(w, status, result)
	}
}

func requestParams(r *http.Request) (json.RawMessage, error) {
	params := map[string]any{}

	if r.Body != nil && r.Method != http.MethodGet {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
			return nil, &restError{message: fmt.Sprintf("invalid JSON body: %v", err)}
		}
		if params == nil {
			params = map[string]any{}
		}
	}

	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		if key == "row" || key == "limit" || key == "offset" {
			n, err := strconv.Atoi(values[0])
			if err != nil {
				return nil, &restError{message: fmt.Sprintf("query parameter %s must be an integer", key)}
			}
			params[key] = n
			continue
		}
		params[key] = values[0]
	}

	rctx := chi.RouteContext(r.Context())
	if rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			value := rctx.URLParams.Values[i]
			switch key {
			case "tableID":
				params["table_id"] = value
			case "row":
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, &restError{message: fmt.Sprintf("row must be an integer, got %q", value)}
				}
				params["row"] = n
			case "field":
				params["field"] = value
			}
		}
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, &restError{message: err.Error()}
	}
	return raw, nil
}
