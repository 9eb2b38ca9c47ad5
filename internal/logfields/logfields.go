package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeyFile        = "file"
	KeyKind        = "kind"
	KeySlug        = "slug"
	KeyURL         = "url"
	KeyPage        = "page"
	KeyCount       = "count"
	KeyEvent       = "event"
	KeyState       = "state"
	KeyProvider    = "provider"
	KeyContainer   = "container"
	KeyObjectKey   = "object_key"
	KeyMethod      = "method"
	KeyStatus      = "status"
	KeyUserAgent   = "user_agent"
	KeyRemoteAddr  = "remote_addr"
	KeyPort        = "port"
	KeyError       = "error"
	KeyErrCategory = "error_category"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr             { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr             { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr         { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr                 { return slog.String(KeyPath, p) }
func File(f string) slog.Attr                 { return slog.String(KeyFile, f) }
func Kind(k string) slog.Attr                 { return slog.String(KeyKind, k) }
func Slug(s string) slog.Attr                 { return slog.String(KeySlug, s) }
func URL(u string) slog.Attr                  { return slog.String(KeyURL, u) }
func Page(n int) slog.Attr                    { return slog.Int(KeyPage, n) }
func Count(n int) slog.Attr                   { return slog.Int(KeyCount, n) }
func Event(op string) slog.Attr               { return slog.String(KeyEvent, op) }
func State(s string) slog.Attr                { return slog.String(KeyState, s) }
func Provider(p string) slog.Attr             { return slog.String(KeyProvider, p) }
func Container(c string) slog.Attr            { return slog.String(KeyContainer, c) }
func ObjectKey(k string) slog.Attr            { return slog.String(KeyObjectKey, k) }
func Method(m string) slog.Attr               { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr               { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr           { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr        { return slog.String(KeyRemoteAddr, addr) }
func Port(p int) slog.Attr                    { return slog.Int(KeyPort, p) }
func ErrorCategory(category string) slog.Attr { return slog.String(KeyErrCategory, category) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
