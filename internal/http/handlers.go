package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/presentation"
	"fintrack/internal/services"
)

const maxBodyBytes = 1 << 20

type indexData struct {
	Today     string
	Types     []core.EntryType
	Dashboard presentation.Dashboard
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := indexData{
		Today:     time.Now().Format(core.DateLayout),
		Types:     []core.EntryType{core.Income, core.Expense},
		Dashboard: s.dashboard(r.Context()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err.Error(), "template", "index.html")
	}
}

// handleSummary renders the summary partial refreshed after every change.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	d := s.dashboard(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="summary"><p>` + template.HTMLEscapeString(d.SavingsLine) + `</p></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "summary", d); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Summary template execution failed", log.FieldError, err.Error())
		_, _ = w.Write([]byte(`<section id="summary"><div class="placeholder">Could not render summary</div></section>`))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(s.dashboard(r.Context())).Write(w)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	p, fail := s.parseBody(w, r)
	if fail != nil {
		fail.Write(w)
		return
	}
	out, err := s.dispatcher.Dispatch(r.Context(), services.Command{
		Action: services.ActionAddEntry,
		Entry:  RawEntryFrom(p),
	})
	s.respond(w, r, p.IsJSON(), out, err, "Entry added")
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	p, fail := s.parseBody(w, r)
	if fail != nil {
		fail.Write(w)
		return
	}
	out, err := s.dispatcher.Dispatch(r.Context(), services.Command{
		Action: services.ActionSetBudget,
		Budget: RawBudgetFrom(p),
	})
	s.respond(w, r, p.IsJSON(), out, err, "Budget saved")
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	p, fail := s.parseBody(w, r)
	if fail != nil {
		fail.Write(w)
		return
	}
	out, err := s.dispatcher.Dispatch(r.Context(), services.Command{Action: services.ActionClear})
	s.respond(w, r, p.IsJSON(), out, err, "All entries cleared")
}

func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Unparseable request body", log.FieldError, err.Error())
		return nil, BadRequestError("Invalid request format")
	}
	return p, nil
}

type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

type mutationBody struct {
	Entry     *entryBody             `json:"entry,omitempty"`
	Revision  uint64                 `json:"revision"`
	Dashboard presentation.Dashboard `json:"dashboard"`
}

type entryBody struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
}

// respond writes the result of a mutation as JSON or as an HTMX fragment.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, asJSON bool, out services.Outcome, err error, okMsg string) {
	if err != nil {
		status, msg := http.StatusInternalServerError, "Something went wrong, please try again"
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			status, msg = http.StatusUnprocessableEntity, verr.Error()
		} else if errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		} else {
			log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Ledger action failed", err,
				log.ComponentHTTP, string(out.Action), log.NewFields().WithAction(string(out.Action)))
		}
		if asJSON {
			body := errorBody{Error: msg}
			if verr != nil {
				body.Missing = verr.Missing
			}
			NewHTMXResponse().Status(status).JSON(body).Write(w)
			return
		}
		ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
		return
	}

	s.unsaved.Store(out.Change.PersistErr != nil)
	if out.Entry != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogEntryAdded(r.Context(),
			out.Entry.ID, string(out.Entry.Type), out.Entry.Category, core.FormatAmount(out.Entry.Amount), out.Change.Revision)
	}

	if asJSON {
		body := mutationBody{Revision: out.Change.Revision, Dashboard: out.Dashboard}
		if out.Entry != nil {
			body.Entry = &entryBody{
				ID:       out.Entry.ID,
				Type:     string(out.Entry.Type),
				Category: out.Entry.Category,
				Amount:   core.FormatAmount(out.Entry.Amount),
				Date:     out.Entry.Date.String(),
			}
		}
		NewHTMXResponse().JSON(body).Write(w)
		return
	}

	b := NewHTMXResponse().
		TriggerLedgerChanged(out.Change.Revision).
		TriggerFormReset()
	if out.Dashboard.Warning != "" {
		b.TriggerWarningNotification(out.Dashboard.Warning)
		b.BodyHTML(`<div class="warning">` + template.HTMLEscapeString(out.Dashboard.Warning) + `</div>`)
	} else {
		b.TriggerSuccessNotification(okMsg)
		b.BodyHTML(`<div class="success">` + template.HTMLEscapeString(okMsg) + `</div>`)
	}
	b.Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewHTMXResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady probes templates and every registered dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]string{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}
	checks["revision"] = strconv.FormatUint(s.dispatcher.Ledger().Revision(), 10)

	NewHTMXResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
