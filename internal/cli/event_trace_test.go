package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/notanas/notanas-cli/internal/events"
	"github.com/notanas/notanas-cli/internal/logging"
)

func TestEventTraceLogsEvents(t *testing.T) {
	logging.SetGlobalLevel(zerolog.DebugLevel)
	defer logging.SetGlobalLevel(zerolog.InfoLevel)

	bus := events.NewEventBus(10)
	defer bus.Close()
	var buf bytes.Buffer
	log := logging.NewDefaultLogger()
	log.SetOutput(&buf)

	trace := startEventTrace(bus, log)
	bus.PublishFile(events.EventFileDeleted, "f1", "report.pdf", "")
	bus.PublishOTL("f1", "http://nas/onetimelink/tok")
	bus.PublishLog(events.WarnLevel, "ignored", nil)
	trace.Stop()

	out := buf.String()
	for _, want := range []string{"event=file.deleted", "name=report.pdf", "event=otl.generated", "link=http://nas/onetimelink/tok"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ignored") {
		t.Errorf("log events must not be traced:\n%s", out)
	}
}
