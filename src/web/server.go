// Package web is the browser front end: a control page for the tracked set,
// the live chart, and a small JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"stockticker/src/chart"
	"stockticker/src/common"
	"stockticker/src/export"
	"stockticker/src/sampler"
	"stockticker/src/series"
)

// Tracker is the part of the sampler the front end drives.
type Tracker interface {
	Track(ctx context.Context, name string) error
	Untrack(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context) (series.Snapshot, error)
}

const (
	msgInvalid    = "Invalid Ticker Symbol. Please try again."
	msgDuplicate  = "Ticker already being tracked."
	msgNoSelect   = "No ticker selected."
	msgNotTracked = "Ticker is not being tracked."
	msgStopped    = "Sampler is not running."
)

type Server struct {
	addr    string
	title   string
	tracker Tracker
	page    *chart.Canvas
	image   *chart.Canvas
	notice  *Notice
	handler *http.ServeMux
}

func NewServer(addr, title string, tracker Tracker, page, image *chart.Canvas) *Server {
	s := &Server{
		addr:    addr,
		title:   title,
		tracker: tracker,
		page:    page,
		image:   image,
		notice:  &Notice{},
	}

	handler := http.NewServeMux()
	handler.HandleFunc("GET /{$}", s.IndexHandler)
	handler.HandleFunc("POST /track", s.TrackHandler)
	handler.HandleFunc("POST /untrack", s.UntrackHandler)
	handler.HandleFunc("GET /chart", s.ChartHandler)
	handler.HandleFunc("GET /chart.png", s.ChartImageHandler)
	handler.HandleFunc("GET /export.xlsx", s.ExportHandler)
	handler.HandleFunc("GET /api/tickers", s.ListTickersHandler)
	handler.HandleFunc("POST /api/tickers", s.AddTickerHandler)
	handler.HandleFunc("DELETE /api/tickers/{name}", s.RemoveTickerHandler)
	handler.HandleFunc("GET /api/snapshot", s.SnapshotHandler)
	s.handler = handler

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Notice() *Notice {
	return s.notice
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	common.Go(func() {
		common.Logger.Sugar().Infof("Server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	})
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// message maps a tracker error to the text shown to the user.
func message(err error) string {
	switch {
	case errors.Is(err, sampler.ErrInvalidName):
		return msgInvalid
	case errors.Is(err, sampler.ErrAlreadyTracked):
		return msgDuplicate
	case errors.Is(err, sampler.ErrNotTracked):
		return msgNotTracked
	case errors.Is(err, sampler.ErrStopped):
		return msgStopped
	}
	return err.Error()
}

func status(err error) int {
	switch {
	case errors.Is(err, sampler.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, sampler.ErrAlreadyTracked):
		return http.StatusConflict
	case errors.Is(err, sampler.ErrNotTracked):
		return http.StatusNotFound
	case errors.Is(err, sampler.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) track(ctx context.Context, name string) error {
	err := s.tracker.Track(ctx, name)
	if err != nil {
		s.notice.Show(message(err))
		return err
	}
	s.notice.Clear()
	return nil
}

func (s *Server) untrack(ctx context.Context, name string) error {
	if name == "" {
		s.notice.Show(msgNoSelect)
		return sampler.ErrNotTracked
	}
	err := s.tracker.Untrack(ctx, name)
	if err != nil {
		s.notice.Show(message(err))
		return err
	}
	s.notice.Clear()
	return nil
}

type indexData struct {
	Title   string
	Tickers []string
	Notice  string
	Shown   bool
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="display:flex;font-family:sans-serif">
<div style="width:260px;padding:10px">
  <form method="post" action="/track">
    <label for="name">Enter Stock Ticker:</label><br>
    <input id="name" name="name" autofocus>
    <button type="submit">Track Ticker</button>
  </form>
  <form method="post" action="/untrack">
    <select name="name" size="20" style="width:100%">
    {{range .Tickers}}<option value="{{.}}">{{.}}</option>
    {{end}}</select>
    <button type="submit">Remove Ticker</button>
  </form>
  {{if .Shown}}<p style="color:red">{{.Notice}}</p>{{end}}
  <p><a href="/export.xlsx">Download samples</a></p>
</div>
<iframe src="/chart" style="flex:1;height:95vh;border:0"></iframe>
</body>
</html>
`))

func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	names, err := s.tracker.Names(r.Context())
	if err != nil {
		common.Logger.Sugar().Warnf("Server IndexHandler Names error: %v", err)
	}
	msg, shown := s.notice.Current()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = indexTemplate.Execute(w, indexData{Title: s.title, Tickers: names, Notice: msg, Shown: shown})
	if err != nil {
		common.Logger.Sugar().Errorf("Server IndexHandler template error: %v", err)
	}
}

func (s *Server) TrackHandler(w http.ResponseWriter, r *http.Request) {
	_ = s.track(r.Context(), r.FormValue("name"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) UntrackHandler(w http.ResponseWriter, r *http.Request) {
	_ = s.untrack(r.Context(), r.FormValue("name"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func lastModified(w http.ResponseWriter, c *chart.Canvas) {
	if updated := c.Updated(); !updated.IsZero() {
		w.Header().Set("Last-Modified", updated.UTC().Format(http.TimeFormat))
	}
}

const waitingPage = `<!DOCTYPE html><html><body><p>Waiting for the first tick…</p></body></html>`

func (s *Server) ChartHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Refresh", "1")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page, _ := s.page.Load()
	lastModified(w, s.page)
	if page == nil {
		_, _ = w.Write([]byte(waitingPage))
		return
	}
	_, _ = w.Write(page)
}

func (s *Server) ChartImageHandler(w http.ResponseWriter, r *http.Request) {
	if s.image == nil {
		http.NotFound(w, r)
		return
	}
	img, _ := s.image.Load()
	if img == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", s.image.ContentType())
	lastModified(w, s.image)
	_, _ = w.Write(img)
}

func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.tracker.Snapshot(r.Context())
	if err != nil {
		http.Error(w, message(err), status(err))
		return
	}
	f, err := export.Workbook(snap)
	if err != nil {
		common.Logger.Sugar().Errorf("Server ExportHandler Workbook error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="samples.xlsx"`)
	if err = f.Write(w); err != nil {
		common.Logger.Sugar().Warnf("Server ExportHandler Write error: %v", err)
	}
}

type tickerRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		common.Logger.Sugar().Warnf("Server writeJSON error: %v", err)
	}
}

func (s *Server) ListTickersHandler(w http.ResponseWriter, r *http.Request) {
	names, err := s.tracker.Names(r.Context())
	if err != nil {
		writeJSON(w, status(err), errorResponse{Error: message(err)})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) AddTickerHandler(w http.ResponseWriter, r *http.Request) {
	var req tickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.track(r.Context(), req.Name); err != nil {
		writeJSON(w, status(err), errorResponse{Error: message(err)})
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) RemoveTickerHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.untrack(r.Context(), r.PathValue("name")); err != nil {
		writeJSON(w, status(err), errorResponse{Error: message(err)})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.tracker.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, status(err), errorResponse{Error: message(err)})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
