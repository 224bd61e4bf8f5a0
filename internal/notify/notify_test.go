package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	ctx := context.Background()

	w.Notify(ctx, Notification{Title: "Error fetching data", Description: "timeout", Variant: VariantDestructive})
	w.Notify(ctx, Notification{Title: "Dose recorded"})
	w.Notify(ctx, Notification{Title: "Live updates paused", Variant: VariantWarning})

	assert.Equal(t, "! Error fetching data: timeout\n* Dose recorded\n? Live updates paused\n", buf.String())
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	l.Notify(context.Background(), Notification{Title: "Error", Description: "boom", Variant: VariantDestructive})
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "description=boom")
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi{a, b}.Notify(context.Background(), Notification{Title: "x"})

	assert.Len(t, a.Sent(), 1)
	assert.Equal(t, "x", b.Sent()[0].Title)
}
