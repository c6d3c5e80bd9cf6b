package progress

import "github.com/sirupsen/logrus"

// LoggerSink narrates job events into a logrus entry. Log lines are written
// at info level, overall progress at debug and byte progress at trace.
type LoggerSink struct {
	entry *logrus.Entry
	token *Token
}

// NewLoggerSink returns a sink writing to entry; token may be nil.
func NewLoggerSink(entry *logrus.Entry, token *Token) *LoggerSink {
	return &LoggerSink{entry: entry, token: token}
}

func (s *LoggerSink) Log(line string) {
	s.entry.WithField("action", "install_log").Info(line)
}

func (s *LoggerSink) Overall(current, total int) {
	s.entry.WithFields(logrus.Fields{
		"action":  "install_progress",
		"current": current,
		"total":   total,
	}).Debug("overall_progress")
}

func (s *LoggerSink) Item(done, expected int64) {
	if !s.entry.Logger.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	s.entry.WithFields(logrus.Fields{
		"action":   "install_progress",
		"done":     done,
		"expected": expected,
	}).Trace("item_progress")
}

func (s *LoggerSink) Cancelled() bool {
	return s.token.Cancelled()
}
