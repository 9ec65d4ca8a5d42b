package juliaclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"juliaform/core"
	"juliaform/params"
)

const constraintsJSON = `{"sqlIntMin":-1000,"sqlIntMax":1000,"sqlDecLength":10,"sqlDecPrecision":2,` +
	`"iterationsLimit":500,"modulusLimit":1000,"resolutionLimit":2000}`

func sampleSnapshot() params.Snapshot {
	return params.Snapshot{
		RealComponent: "-0.8", ImaginaryComponent: "0.156",
		MinXValue: "-2", MaxXValue: "2", MinYValue: "-1.5", MaxYValue: "1.5",
		PictureWidth: "800", PictureHeight: "600", Iterations: "250", MaxModulus: "2",
	}
}

func TestClient_GetConstraints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/juliasets"+ConstraintsPath {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		w.Write([]byte(constraintsJSON))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/juliasets/"}, zaptest.NewLogger(t))
	body, err := c.GetConstraints(context.Background())
	if err != nil {
		t.Fatalf("GetConstraints() error: %v", err)
	}
	if string(body) != constraintsJSON {
		t.Errorf("body = %q", body)
	}
}

func TestClient_GenerateImage_SendsAllFieldsVerbatim(t *testing.T) {
	s := sampleSnapshot()
	s.Iterations = "250.0"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != GeneratePath {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		for _, name := range params.FieldNames {
			if q.Get(name) != s.Get(name) {
				t.Errorf("query %s = %q, want %q", name, q.Get(name), s.Get(name))
			}
		}
		w.Write([]byte(`<img src="images/7.png" alt="Julia set">`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	markup, err := c.GenerateImage(context.Background(), s)
	if err != nil {
		t.Fatalf("GenerateImage() error: %v", err)
	}
	if !strings.Contains(markup, "images/7.png") {
		t.Errorf("markup = %q", markup)
	}
}

func TestClient_GenerateImage_Sanitize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<img src="images/7.png" onerror="alert(1)"><script>alert(2)</script>`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Sanitize: true}, zaptest.NewLogger(t))
	markup, err := c.GenerateImage(context.Background(), sampleSnapshot())
	if err != nil {
		t.Fatalf("GenerateImage() error: %v", err)
	}
	if strings.Contains(markup, "script") || strings.Contains(markup, "onerror") {
		t.Errorf("active content survived sanitising: %q", markup)
	}
	if !strings.Contains(markup, "images/7.png") {
		t.Errorf("image dropped by sanitiser: %q", markup)
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Julia window is degenerate", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	_, err := c.GenerateImage(context.Background(), sampleSnapshot())
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("err = %v, want ErrRequest", err)
	}
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("err is %T", err)
	}
	if re.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", re.StatusCode)
	}
	if re.Body != "Julia window is degenerate" {
		t.Errorf("Body = %q", re.Body)
	}
	if re.Endpoint != GeneratePath {
		t.Errorf("Endpoint = %q", re.Endpoint)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url}, zaptest.NewLogger(t))
	_, err := c.GetConstraints(context.Background())
	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if re.StatusCode != 0 || re.Err == nil {
		t.Errorf("RequestError = %+v", re)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewFromConfig(&core.Config{BaseURL: srv.URL, RequestTimeout: 50 * time.Millisecond}, zaptest.NewLogger(t))
	start := time.Now()
	_, err := c.GetConstraints(context.Background())
	if !errors.Is(err, ErrRequest) {
		t.Fatalf("err = %v, want ErrRequest", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("request did not time out")
	}
}

func TestClient_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Config{BaseURL: srv.URL}, nil)
	_, err := c.GetConstraints(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
}
