package menu

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/messaging"
	menusvc "github.com/Additional-Code/bistro/internal/service/menu"
)

type countingWarmer struct {
	calls int
	err   error
}

func (w *countingWarmer) Warm(context.Context) error {
	w.calls++
	return w.err
}

func TestWarmHandler(t *testing.T) {
	event, _ := json.Marshal(menusvc.ChangedEvent{Entity: menusvc.EntityItem, Action: menusvc.ActionUpdated, ID: 3})
	boom := errors.New("db down")

	tests := []struct {
		name      string
		value     []byte
		warmErr   error
		wantErr   error
		wantCalls int
	}{
		{"warms on change", event, nil, nil, 1},
		{"drops malformed payload", []byte("{"), nil, nil, 0},
		{"returns warm failure for redelivery", event, boom, boom, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &countingWarmer{err: tt.warmErr}
			err := warmHandler(zap.NewNop(), w)(context.Background(), messaging.Message{Value: tt.value})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if w.calls != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", w.calls, tt.wantCalls)
			}
		})
	}
}
