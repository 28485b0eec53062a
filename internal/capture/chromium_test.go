package capture

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestFileURL(t *testing.T) {
	got, err := FileURL("/srv/site/index.html")
	if err != nil {
		t.Fatalf("FileURL: %v", err)
	}
	if got != "file:///srv/site/index.html" {
		t.Errorf("FileURL = %q", got)
	}

	got, err = FileURL("site/index.html")
	if err != nil {
		t.Fatalf("FileURL: %v", err)
	}
	if !strings.HasPrefix(got, "file:///") || !strings.HasSuffix(got, "/site/index.html") {
		t.Errorf("FileURL(relative) = %q", got)
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "file:///x", OutputPath: "out.png"}
	if err := o.normalize(); err != nil {
		t.Fatal(err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeoutSec*time.Second {
		t.Errorf("defaults not applied: %+v", o)
	}

	for _, bad := range []Options{{OutputPath: "x.png"}, {URL: "file:///x"}} {
		if err := CapturePagePNG(context.Background(), bad); err == nil {
			t.Errorf("CapturePagePNG(%+v) accepted incomplete options", bad)
		}
	}
}
