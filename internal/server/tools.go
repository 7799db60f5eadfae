// ABOUTME: Handlers for the search_vulnerabilities and get_vulnerability_details tools.
// ABOUTME: Decode requests, query the record store, and render structured and text results.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jfeddern/VulnSearch/internal/metrics"
	"github.com/jfeddern/VulnSearch/internal/types"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// DefaultLimit is used when a search request carries no limit
const DefaultLimit = 5

type SearchRequest struct {
	Query *string `json:"query"`
	Limit *int    `json:"limit"`
}

type SearchResponse struct {
	Query   string                `json:"query"`
	Limit   int                   `json:"limit"`
	Count   int                   `json:"count"`
	Found   bool                  `json:"found"`
	Results []types.RecordSummary `json:"results"`
	Text    string                `json:"text"`
}

type DetailsRequest struct {
	ID string `json:"id"`
}

type DetailsResponse struct {
	Found         bool          `json:"found"`
	ID            string        `json:"id"`
	Vulnerability *types.Record `json:"vulnerability,omitempty"`
	Message       string        `json:"message,omitempty"`
	Text          string        `json:"text"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := s.logger.WithField("tool", ToolSearch)

	query, limit, err := decodeSearchRequest(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidParams, err.Error())
		s.observe(ToolSearch, metrics.OutcomeInvalid, start)
		return
	}

	src, err := s.source()
	if err != nil {
		logger.WithError(err).Error("Record store unavailable")
		s.writeError(w, r, http.StatusInternalServerError, CodeInternalError, fmt.Sprintf("failed to search vulnerabilities: %v", err))
		s.observe(ToolSearch, metrics.OutcomeError, start)
		return
	}

	results, hit := s.cache.Get(query, limit)
	s.metrics.ObserveCache(hit)
	if !hit {
		records := src.Search(query, limit)
		results = make([]types.RecordSummary, 0, len(records))
		for _, record := range records {
			results = append(results, types.Summarize(record))
		}
		s.cache.Set(query, limit, results)
	}

	response := SearchResponse{
		Query:   query,
		Limit:   limit,
		Count:   len(results),
		Found:   len(results) > 0,
		Results: results,
		Text:    searchText(query, results),
	}
	s.writeJSON(w, r, http.StatusOK, response)

	outcome := metrics.OutcomeSuccess
	if !response.Found {
		outcome = metrics.OutcomeEmpty
	}
	s.observe(ToolSearch, outcome, start)

	logger.WithFields(logrus.Fields{
		"query":     query,
		"limit":     limit,
		"count":     response.Count,
		"cache_hit": hit,
	}).Info("Served search")
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := s.logger.WithField("tool", ToolDetails)

	id, err := decodeDetailsRequest(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidParams, err.Error())
		s.observe(ToolDetails, metrics.OutcomeInvalid, start)
		return
	}

	src, err := s.source()
	if err != nil {
		logger.WithError(err).Error("Record store unavailable")
		s.writeError(w, r, http.StatusInternalServerError, CodeInternalError, fmt.Sprintf("failed to get vulnerability details: %v", err))
		s.observe(ToolDetails, metrics.OutcomeError, start)
		return
	}

	record, ok := src.LookupByID(id)
	if !ok {
		message := fmt.Sprintf("Vulnerability %s not found.", id)
		s.writeJSON(w, r, http.StatusNotFound, DetailsResponse{
			Found:   false,
			ID:      id,
			Message: message,
			Text:    message,
		})
		s.observe(ToolDetails, metrics.OutcomeNotFound, start)
		logger.WithField("id", id).Info("Vulnerability not found")
		return
	}

	s.writeJSON(w, r, http.StatusOK, DetailsResponse{
		Found:         true,
		ID:            id,
		Vulnerability: &record,
		Text:          detailsText(record),
	})
	s.observe(ToolDetails, metrics.OutcomeSuccess, start)
	logger.WithField("id", id).Info("Served vulnerability details")
}

func decodeSearchRequest(r *http.Request) (string, int, error) {
	var req SearchRequest

	if r.Method == http.MethodPost {
		if err := decodeBody(r, &req); err != nil {
			return "", 0, err
		}
	} else {
		values := r.URL.Query()
		if values.Has("query") {
			query := values.Get("query")
			req.Query = &query
		}
		if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				return "", 0, fmt.Errorf("invalid limit parameter %q: must be an integer", raw)
			}
			req.Limit = &limit
		}
	}

	if req.Query == nil {
		return "", 0, errors.New("query is required")
	}
	limit := DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	return *req.Query, limit, nil
}

func decodeDetailsRequest(r *http.Request) (string, error) {
	var req DetailsRequest

	if r.Method == http.MethodPost {
		if err := decodeBody(r, &req); err != nil {
			return "", err
		}
	} else {
		req.ID = mux.Vars(r)["id"]
	}

	if strings.TrimSpace(req.ID) == "" {
		return "", errors.New("id is required")
	}
	return req.ID, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func searchText(query string, results []types.RecordSummary) string {
	if len(results) == 0 {
		return fmt.Sprintf("No vulnerabilities found for query '%s'.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d vulnerabilities for query '%s':\n", len(results), query)
	for _, r := range results {
		fmt.Fprintf(&b, "\n%s\n   Name: %s\n   Software: %s - %s\n   Severity: %s\n", r.ID, r.Name, r.Vendor, r.Software, r.Severity)
	}
	return b.String()
}

func detailsText(r types.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.ID)
	fmt.Fprintf(&b, "Name: %s\n", r.Name)
	fmt.Fprintf(&b, "Description: %s\n", r.Description)
	fmt.Fprintf(&b, "Software: %s %s (%s)\n", r.Software, r.Version, r.Vendor)
	fmt.Fprintf(&b, "Severity: %s\n", r.Severity)

	keys := make([]string, 0, len(r.Attributes))
	for key := range r.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value := r.Attributes[key]; value != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, value)
		}
	}
	return b.String()
}
