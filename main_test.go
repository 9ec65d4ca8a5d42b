package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"go.uber.org/zap/zaptest"

	"juliaform/core"
	"juliaform/db"
	"juliaform/params"
)

const constraintsJSON = `{"sqlIntMin":-1000,"sqlIntMax":1000,"sqlDecLength":10,"sqlDecPrecision":2,` +
	`"iterationsLimit":500,"modulusLimit":1000,"resolutionLimit":2000}`

const validParams = `realComponent: -0.8
imaginaryComponent: 0.156
minXValue: -2
maxXValue: 2
minYValue: -1.5
maxYValue: 1.5
pictureWidth: 800
pictureHeight: 600
iterations: 250
maxModulus: 2
`

type stubService struct {
	imageErr error
	got      params.Snapshot
}

func (s *stubService) GetConstraints(ctx context.Context) ([]byte, error) {
	return []byte(constraintsJSON), nil
}

func (s *stubService) GenerateImage(ctx context.Context, p params.Snapshot) (string, error) {
	s.got = p
	if s.imageErr != nil {
		return "", s.imageErr
	}
	return `<img src="images/1.png">`, nil
}

func oneShotConfig(t *testing.T, paramsYAML string) *core.Config {
	t.Helper()
	dir := t.TempDir()
	paramsFile := filepath.Join(dir, "params.yaml")
	if err := os.WriteFile(paramsFile, []byte(paramsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return &core.Config{ParamsFile: paramsFile, OutputFile: filepath.Join(dir, "juliaSet.html")}
}

func init() {
	color.NoColor = true
}

func TestRunOnce_Rendered(t *testing.T) {
	cfg := oneShotConfig(t, validParams)
	svc := &stubService{}
	var out bytes.Buffer

	code := runOnce(context.Background(), cfg, svc, nil, &out, zaptest.NewLogger(t))
	if code != core.ExitCodeSuccess {
		t.Fatalf("exit code = %d, output:\n%s", code, out.String())
	}

	markup, err := os.ReadFile(cfg.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(markup) != `<img src="images/1.png">` {
		t.Errorf("markup = %q", markup)
	}
	if svc.got.Iterations != "250" || svc.got.MinYValue != "-1.5" {
		t.Errorf("sent %+v", svc.got)
	}
	if !strings.Contains(out.String(), "Image rendered") {
		t.Errorf("report:\n%s", out.String())
	}
}

func TestRunOnce_Invalid(t *testing.T) {
	cfg := oneShotConfig(t, strings.Replace(validParams, "iterations: 250", "iterations: 501", 1))
	var out bytes.Buffer

	code := runOnce(context.Background(), cfg, &stubService{}, nil, &out, zaptest.NewLogger(t))
	if code != core.ExitCodeInvalid {
		t.Fatalf("exit code = %d, want %d", code, core.ExitCodeInvalid)
	}
	if _, err := os.Stat(cfg.OutputFile); !os.IsNotExist(err) {
		t.Error("output written for invalid parameters")
	}
	if !strings.Contains(out.String(), "at most 500") {
		t.Errorf("report:\n%s", out.String())
	}
}

func TestRunOnce_RequestFailed(t *testing.T) {
	cfg := oneShotConfig(t, validParams)
	var out bytes.Buffer

	code := runOnce(context.Background(), cfg, &stubService{imageErr: errors.New("status 500")}, nil, &out, zaptest.NewLogger(t))
	if code != core.ExitCodeError {
		t.Fatalf("exit code = %d, want %d", code, core.ExitCodeError)
	}
	if !strings.Contains(out.String(), "status 500") {
		t.Errorf("report:\n%s", out.String())
	}
}

func TestRunOnce_Cancelled(t *testing.T) {
	cfg := oneShotConfig(t, validParams)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	code := runOnce(ctx, cfg, &stubService{imageErr: context.Canceled}, nil, &out, zaptest.NewLogger(t))
	if code != core.ExitCodeSIGINT {
		t.Errorf("exit code = %d, want %d", code, core.ExitCodeSIGINT)
	}
}

func TestRunOnce_BadParamsFile(t *testing.T) {
	cfg := &core.Config{ParamsFile: filepath.Join(t.TempDir(), "missing.yaml")}
	var out bytes.Buffer

	if code := runOnce(context.Background(), cfg, &stubService{}, nil, &out, zaptest.NewLogger(t)); code != core.ExitCodeError {
		t.Errorf("exit code = %d, want %d", code, core.ExitCodeError)
	}
}

func TestRunOnce_RecordsHistory(t *testing.T) {
	cfg := oneShotConfig(t, validParams)
	ctx := context.Background()

	h, err := db.OpenHistory(ctx, filepath.Join(t.TempDir(), "history.db"), 0, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if code := runOnce(ctx, cfg, &stubService{imageErr: errors.New("status 500")}, h, &out, zaptest.NewLogger(t)); code != core.ExitCodeError {
		t.Fatalf("exit code = %d", code)
	}
	if err := h.Writer.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	defer h.Database.Close()

	renders, err := h.RecentRenders(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(renders) != 1 || renders[0].Outcome != "failed" || !strings.Contains(renders[0].Error, "status 500") {
		t.Errorf("renders = %+v", renders)
	}
}
