package internal

import (
	"encoding/json"
	"html/template"
	"livechat/infrastructure/storage"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
)

const inspectPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>livechat inspect {{.Prefix}}</title></head>
<body>
<h1>Keys under "{{.Prefix}}" ({{len .Items}})</h1>
<table>
<tr><th>Key</th><th>Type</th><th>Timestamp</th><th>Entity ID</th><th>Detail</th></tr>
{{range .Items}}<tr><td>{{.Key}}</td><td>{{.Type}}</td><td>{{.Timestamp}}</td><td>{{.EntityID}}</td><td>{{.Detail}}</td></tr>
{{end}}</table>
</body>
</html>`

type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Detail    string
}

type RowMapper func(e storage.Entry) InspectRow

// StatsProvider returns any JSON serializable snapshot.
type StatsProvider func() any

type PageData struct {
	Prefix string
	Items  []InspectRow
}

// DebugServer exposes the raw store content and the runtime stats.
// The inspector is only available with the badger store.
type DebugServer struct {
	log    *slog.Logger
	db     *badger.DB
	mapper RowMapper
	stats  StatsProvider
	tmpl   *template.Template
}

func NewDebugServer(log *slog.Logger, db *badger.DB, mapper RowMapper, stats StatsProvider) *DebugServer {
	if mapper == nil {
		mapper = DefaultMapper
	}
	return &DebugServer{
		log:    log,
		db:     db,
		mapper: mapper,
		stats:  stats,
		tmpl:   template.Must(template.New("inspect").Parse(inspectPage)),
	}
}

// Register mounts /debug/inspect and /debug/stats.
func (d *DebugServer) Register(r *mux.Router) {
	r.Methods(http.MethodGet).Path("/debug/inspect").HandlerFunc(d.inspect)
	r.Methods(http.MethodGet).Path("/debug/stats").HandlerFunc(d.statistics)
}

func (d *DebugServer) inspect(w http.ResponseWriter, r *http.Request) {
	if d.db == nil {
		http.Error(w, "inspector requires the badger store", http.StatusNotImplemented)
		return
	}
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "msg:"
	}

	data := PageData{Prefix: prefix}
	err := storage.ScanEntries(d.db, prefix, func(e storage.Entry) error {
		data.Items = append(data.Items, d.mapper(e))
		return nil
	})
	if err != nil {
		d.log.Error("Inspection failed", "prefix", prefix, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.tmpl.Execute(w, data); err != nil {
		d.log.Warn("Failed to render inspect page", "error", err)
	}
}

func (d *DebugServer) statistics(w http.ResponseWriter, _ *http.Request) {
	var stats any = map[string]any{}
	if d.stats != nil {
		stats = d.stats()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		d.log.Warn("Failed to write stats", "error", err)
	}
}

func DefaultMapper(e storage.Entry) InspectRow {
	row := InspectRow{
		Key:       e.Key,
		Type:      e.Kind,
		Timestamp: "--:--:--",
		EntityID:  "--------",
		Detail:    "Size: " + strconv.Itoa(e.Size) + " bytes",
	}
	switch e.Kind {
	case storage.KindMessage:
		row.Timestamp = e.Message.CreatedAt.Format("15:04:05")
		row.EntityID = shortID(e.Message.ID)
		row.Detail = e.Message.Sender + ": " + e.Message.Text +
			" (" + strconv.Itoa(e.Message.Likes()) + " likes, " + strconv.Itoa(len(e.Message.Comments)) + " comments)"
	case storage.KindIndex:
		row.Detail = "-> " + e.Target
	case storage.KindCorrupt:
		row.Detail = e.Err.Error()
	}
	return row
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
