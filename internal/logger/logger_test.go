package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		env       string
		wantDebug bool
		wantJSON  bool
	}{
		{env: EnvLocal, wantDebug: true, wantJSON: false},
		{env: EnvDev, wantDebug: true, wantJSON: true},
		{env: EnvProd, wantDebug: false, wantJSON: true},
		{env: "unknown", wantDebug: false, wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.env, &buf)

			assert.Equal(t, tt.wantDebug, log.Enabled(context.Background(), slog.LevelDebug))

			log.Info("hello", slog.String("k", "v"))
			out := buf.String()
			assert.Contains(t, out, "hello")
			if tt.wantJSON {
				assert.Contains(t, out, `"k":"v"`)
			} else {
				assert.Contains(t, out, "k=v")
				assert.NotContains(t, out, "\x1b[")
			}
		})
	}
}
