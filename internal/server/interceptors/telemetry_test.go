package interceptors

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/projectNEWM/newm-server-sub005/internal/telemetry"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*telemetry.Event
	done   chan struct{}
}

func newCaptureEmitter(n int) *captureEmitter {
	return &captureEmitter{done: make(chan struct{}, n)}
}

func (c *captureEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

func (c *captureEmitter) wait(t *testing.T) *telemetry.Event {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emit")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func TestTelemetryUnary_EmitsGRPCRequestEvent(t *testing.T) {
	emitter := newCaptureEmitter(1)
	interceptor := TelemetryUnary(emitter, nil)

	ctx := WithIdentity(context.Background(), "identity-1")
	resp, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/Method",
	}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}

	event := emitter.wait(t)
	if event.EventType != "grpc_request" {
		t.Errorf("event type = %q, want %q", event.EventType, "grpc_request")
	}
	if event.Source != "grpc_interceptor" {
		t.Errorf("source = %q, want %q", event.Source, "grpc_interceptor")
	}
	if event.IdentityID != "identity-1" {
		t.Errorf("identity id = %q, want %q", event.IdentityID, "identity-1")
	}
	var meta grpcRequestMetadata
	if err := json.Unmarshal(event.Metadata, &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if meta.FullMethod != "/test.Service/Method" {
		t.Errorf("full_method = %q, want %q", meta.FullMethod, "/test.Service/Method")
	}
	if meta.StatusCode != "OK" {
		t.Errorf("status_code = %q, want %q", meta.StatusCode, "OK")
	}
}

func TestTelemetryUnary_SkipMethods(t *testing.T) {
	emitter := newCaptureEmitter(1)
	skip := map[string]bool{"/grpc.health.v1.Health/Check": true}
	interceptor := TelemetryUnary(emitter, skip)

	if _, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/grpc.health.v1.Health/Check",
	}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	select {
	case <-emitter.done:
		t.Error("event emitted for skipped method")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTelemetryUnary_NilEmitter(t *testing.T) {
	interceptor := TelemetryUnary(nil, nil)
	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/Method",
	}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
}
