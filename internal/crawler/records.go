package crawler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/station-crawler/internal/telemetry"
)

// Delimiter closes every marker visit in the data file.
const Delimiter = "!@#$%^&*"

// SessionReadyRecord follows the iteration header once a session is usable.
const SessionReadyRecord = "WebDriver started successfully"

const timestampLayout = "2006-01-02 15:04"

// IterationRecord marks the start of pass k.
func IterationRecord(k int) string {
	return fmt.Sprintf("Iteration %d", k)
}

// TimestampRecord stamps a marker visit with local wall-clock time.
func TimestampRecord(t time.Time) string {
	return "Current date and time: " + t.Format(timestampLayout)
}

// StationRecord captures a marker before it is clicked; index is 1-based.
func StationRecord(index int, desc, text string) string {
	return fmt.Sprintf("Station button %d - content-desc: %s, text: %s", index, desc, text)
}

// StationTypeRecord records the widget class of the marker.
func StationTypeRecord(class string) string {
	return "Type of station button: " + class
}

// ElementRecord captures one element scraped from a detail screen.
func ElementRecord(desc, text string) string {
	return fmt.Sprintf("Element content-desc: %s, text: %s", desc, text)
}

// ErrorRecord persists an unexpected failure for marker index (1-based).
func ErrorRecord(index int, err error) string {
	return fmt.Sprintf("Error processing station button %d: %v", index, err)
}

// recorder forwards lines to the sink and counts them.
type recorder struct {
	w      RecordWriter
	logger *zap.Logger
}

func (r *recorder) emit(line string) error {
	if err := r.w.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	telemetry.ObserveRecordWritten()
	return nil
}

// emitOrLog is used where a sink failure must not change control flow.
func (r *recorder) emitOrLog(line string) {
	if err := r.emit(line); err != nil {
		r.logger.Error("data sink write failed", zap.Error(err))
	}
}
