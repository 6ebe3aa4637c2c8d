package notify

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"
)

const appName = "WebTranscriber"

type Notifier interface {
	TranscriptionComplete(file string, lines int, jobID string)
	TranscriptionFailed(file string, err error)
	Downloaded(paths []string)
	Error(msg string)
}

// New returns the notifier for a notifications.type value. Unknown kinds
// fall back to Log.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return NewDesktop()
	case "none":
		return Nop{}
	default:
		return Log{}
	}
}

// Desktop shows notifications through notify-send.
type Desktop struct {
	run func(name string, args ...string) error
}

func NewDesktop() Desktop {
	return Desktop{run: func(name string, args ...string) error {
		return exec.Command(name, args...).Run()
	}}
}

func (d Desktop) send(urgency, title, body string) {
	args := []string{"-a", appName}
	if urgency != "" {
		args = append(args, "-u", urgency)
	}
	args = append(args, title)
	if body != "" {
		args = append(args, body)
	}

	run := d.run
	if run == nil {
		run = NewDesktop().run
	}
	if err := run("notify-send", args...); err != nil {
		log.Warn("failed to send notification", "err", err)
	}
}

func (d Desktop) TranscriptionComplete(file string, lines int, jobID string) {
	d.send("", "Transcription complete", completeBody(file, lines))
}

func (d Desktop) TranscriptionFailed(file string, err error) {
	d.send("critical", "Transcription failed", fmt.Sprintf("%s: %v", filepath.Base(file), err))
}

func (d Desktop) Downloaded(paths []string) {
	d.send("", "Downloads saved", downloadedBody(paths))
}

func (d Desktop) Error(msg string) {
	d.send("critical", appName, msg)
}

// Log writes notifications to the application log.
type Log struct{}

var logger = log.WithPrefix("notify")

func (Log) TranscriptionComplete(file string, lines int, jobID string) {
	logger.Info("transcription complete", "file", filepath.Base(file), "lines", lines, "job", jobID)
}

func (Log) TranscriptionFailed(file string, err error) {
	logger.Error("transcription failed", "file", filepath.Base(file), "err", err)
}

func (Log) Downloaded(paths []string) {
	logger.Info("downloads saved", "files", paths)
}

func (Log) Error(msg string) {
	logger.Error(msg)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or when notifications are disabled.
type Nop struct{}

func (Nop) TranscriptionComplete(string, int, string) {}
func (Nop) TranscriptionFailed(string, error)         {}
func (Nop) Downloaded([]string)                       {}
func (Nop) Error(string)                              {}

func completeBody(file string, lines int) string {
	noun := "lines"
	if lines == 1 {
		noun = "line"
	}
	return fmt.Sprintf("%s: %d %s", filepath.Base(file), lines, noun)
}

func downloadedBody(paths []string) string {
	if len(paths) == 1 {
		return paths[0]
	}
	return fmt.Sprintf("%d files in %s", len(paths), commonDir(paths))
}

func commonDir(paths []string) string {
	if len(paths) == 0 {
		return "."
	}
	dir := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		if filepath.Dir(p) != dir {
			return "several directories"
		}
	}
	return dir
}
