package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(verifications.WithLabelValues("dls", "none"))
	ObserveVerify("dls", "", 0.5)
	if got := testutil.ToFloat64(verifications.WithLabelValues("dls", "none")); got != before+1 {
		t.Fatalf("verifications = %v, want %v", got, before+1)
	}

	ObserveCompare("fcm", true)
	if testutil.ToFloat64(comparisons.WithLabelValues("fcm", "true")) < 1 {
		t.Fatalf("comparison not counted")
	}

	IncTranslate("hit")
	IncNotify("http", "ok")
	ObserveExtract("ok", 15*time.Millisecond)

	families, err := Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"matchverify_verifications_total", "matchverify_extract_duration_seconds", "matchverify_notifications_total"} {
		if !names[want] {
			t.Fatalf("missing metric family %s", want)
		}
	}
}
