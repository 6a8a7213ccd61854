package types

// Severity of a user-facing notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier shows short messages to the user
type Notifier interface {
	Notify(sev Severity, msg string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(sev Severity, msg string)

func (f NotifierFunc) Notify(sev Severity, msg string) { f(sev, msg) }

// NopNotifier drops every message
var NopNotifier Notifier = NotifierFunc(func(Severity, string) {})
