package effect

import "log/slog"

// Platform performs the effects that have no collaborator of their own.
type Platform interface {
	Toast(ToastMsg)
	SetClipboard(text string)
	OpenURL(url string)
	Share(ShareMsg)
	Exit()
}

// LogPlatform performs every effect by logging it. Used by headless runs.
type LogPlatform struct{}

func (LogPlatform) Toast(m ToastMsg) {
	slog.Info("toast", "message", m.Message, "duration", m.Duration)
}

func (LogPlatform) SetClipboard(text string) {
	slog.Info("clipboard", "text", text)
}

func (LogPlatform) OpenURL(url string) {
	slog.Info("open url", "url", url)
}

func (LogPlatform) Share(m ShareMsg) {
	slog.Info("share", "title", m.Title, "message", m.Message, "url", m.URL)
}

func (LogPlatform) Exit() {
	slog.Info("exit requested")
}

// Recorder keeps every platform effect in memory. Owned by the loop
// goroutine.
type Recorder struct {
	Toasts    []ToastMsg
	Clipboard []string
	URLs      []string
	Shares    []ShareMsg
	Exits     int
}

func (r *Recorder) Toast(m ToastMsg)         { r.Toasts = append(r.Toasts, m) }
func (r *Recorder) SetClipboard(text string) { r.Clipboard = append(r.Clipboard, text) }
func (r *Recorder) OpenURL(url string)       { r.URLs = append(r.URLs, url) }
func (r *Recorder) Share(m ShareMsg)         { r.Shares = append(r.Shares, m) }
func (r *Recorder) Exit()                    { r.Exits++ }
