package mocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// NotionPage is a stored page with its raw property payloads.
type NotionPage struct {
	ID         string
	Properties map[string]json.RawMessage
}

// NotionServer is an in-memory stand-in for the Notion database and page endpoints.
type NotionServer struct {
	*httptest.Server

	mu       sync.Mutex
	pages    []*NotionPage
	Schema   map[string]string // column name -> type
	Requests []string          // "METHOD path", in order

	// FailWrites makes page create/update answer with this status when non-zero.
	FailWrites int

	// SchemaUpdates collects the properties payload of each database update.
	SchemaUpdates []map[string]json.RawMessage
}

func NewNotionServer() *NotionServer {
	s := &NotionServer{Schema: map[string]string{"Name": "title", "Date": "date"}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			s.Requests = append(s.Requests, req.Method+" "+req.URL.Path)
			s.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/databases/{id}/query", s.query)
	r.Get("/databases/{id}", s.retrieveDatabase)
	r.Patch("/databases/{id}", s.updateDatabase)
	r.Post("/pages", s.createPage)
	r.Patch("/pages/{id}", s.updatePage)

	s.Server = httptest.NewServer(r)
	return s
}

// Pages returns a snapshot of the stored pages.
func (s *NotionServer) Pages() []NotionPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NotionPage, 0, len(s.pages))
	for _, p := range s.pages {
		props := make(map[string]json.RawMessage, len(p.Properties))
		for k, v := range p.Properties {
			props[k] = v
		}
		out = append(out, NotionPage{ID: p.ID, Properties: props})
	}
	return out
}

// PagesForDate returns the stored pages whose Date property starts at date.
func (s *NotionServer) PagesForDate(date string) []NotionPage {
	var out []NotionPage
	for _, p := range s.Pages() {
		if pageDate(p.Properties) == date {
			out = append(out, p)
		}
	}
	return out
}

func pageDate(props map[string]json.RawMessage) string {
	var v struct {
		Date *struct {
			Start string `json:"start"`
		} `json:"date"`
	}
	if raw, ok := props["Date"]; ok && json.Unmarshal(raw, &v) == nil && v.Date != nil {
		return v.Date.Start
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func notionError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"object": "error", "status": status, "code": "validation_error", "message": msg})
}

func (s *NotionServer) pageJSON(p *NotionPage) map[string]interface{} {
	return map[string]interface{}{"object": "page", "id": p.ID, "properties": p.Properties}
}

func (s *NotionServer) query(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Filter *struct {
			Property string `json:"property"`
			Date     *struct {
				Equals string `json:"equals"`
			} `json:"date"`
		} `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		notionError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	results := []interface{}{}
	for _, p := range s.pages {
		if body.Filter != nil && body.Filter.Date != nil && pageDate(p.Properties) != body.Filter.Date.Equals {
			continue
		}
		results = append(results, s.pageJSON(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"object": "list", "results": results, "has_more": false, "next_cursor": nil})
}

func (s *NotionServer) createPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Parent struct {
			DatabaseID string `json:"database_id"`
		} `json:"parent"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		notionError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != 0 {
		notionError(w, s.FailWrites, "write rejected")
		return
	}
	if body.Parent.DatabaseID == "" {
		notionError(w, http.StatusBadRequest, "parent.database_id is required")
		return
	}
	p := &NotionPage{ID: uuid.NewString(), Properties: body.Properties}
	s.pages = append(s.pages, p)
	writeJSON(w, http.StatusOK, s.pageJSON(p))
}

func (s *NotionServer) updatePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		notionError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != 0 {
		notionError(w, s.FailWrites, "write rejected")
		return
	}
	for _, p := range s.pages {
		if p.ID == id {
			if p.Properties == nil {
				p.Properties = map[string]json.RawMessage{}
			}
			for k, v := range body.Properties {
				p.Properties[k] = v
			}
			writeJSON(w, http.StatusOK, s.pageJSON(p))
			return
		}
	}
	notionError(w, http.StatusNotFound, fmt.Sprintf("page %s not found", id))
}

func (s *NotionServer) retrieveDatabase(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	props := map[string]interface{}{}
	for name, typ := range s.Schema {
		props[name] = map[string]string{"id": name, "name": name, "type": typ}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"object": "database", "id": chi.URLParam(r, "id"), "properties": props})
}

func (s *NotionServer) updateDatabase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		notionError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.SchemaUpdates = append(s.SchemaUpdates, body.Properties)
	for name, raw := range body.Properties {
		if string(raw) == "null" {
			delete(s.Schema, name)
			continue
		}
		var def map[string]json.RawMessage
		if err := json.Unmarshal(raw, &def); err != nil {
			continue
		}
		for typ := range def {
			if typ != "name" {
				s.Schema[name] = typ
			}
		}
	}
	s.mu.Unlock()

	s.retrieveDatabase(w, r)
}
