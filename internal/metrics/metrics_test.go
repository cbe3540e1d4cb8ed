package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordMessageSent()
	c.RecordMessageSent()
	c.RecordMarkedRead(3)
	c.RecordPushDelivered()
	c.RecordPushDropped()

	if got := testutil.ToFloat64(c.messagesSent); got != 2 {
		t.Errorf("messagesSent = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.markedRead); got != 3 {
		t.Errorf("markedRead = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.pushesDelivered); got != 1 {
		t.Errorf("pushesDelivered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.pushesDropped); got != 1 {
		t.Errorf("pushesDropped = %v, want 1", got)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewPrometheusCollector(reg)
}

func TestHTTPHistogramLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordHTTPRequest("GET", "/api/messages/conversations", 200, 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "caremsg_http_request_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("http duration metric not registered")
	}
}
