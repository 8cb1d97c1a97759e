package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"postgen/config"
	"postgen/generator"
	"postgen/imagegen"
	"postgen/placeholder"
	"postgen/retry"
	"postgen/sheet"
)

var downloaded = []byte("\x89PNG\r\n\x1a\nknown-bytes")

// stubDownloads answers requests for host "x" with known bytes and sends
// everything else to the real transport.
type stubDownloads struct{}

func (stubDownloads) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host == "x" {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"image/png"}},
			Body:       io.NopCloser(bytes.NewReader(downloaded)),
			Request:    req,
		}, nil
	}
	return http.DefaultTransport.RoundTrip(req)
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", ref, &row))
	}
	path := filepath.Join(t.TempDir(), "calendar.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func textServer(t *testing.T, status int, content string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"down"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "c1",
			"object":  "chat.completion",
			"model":   "m",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fixture struct {
	cfg      config.Config
	runner   *Runner
	imageDir string
}

func newFixture(t *testing.T, workbook, textURL, imageURL string) fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Workbook.Path = workbook
	cfg.LLM.APIKey = "test"
	cfg.LLM.BaseURL = textURL + "/"
	cfg.LLM.ImageURL = imageURL
	cfg.Images.Dir = filepath.Join(t.TempDir(), "images")

	httpClient := &http.Client{Transport: stubDownloads{}, Timeout: 5 * time.Second}
	llm, err := generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
		Model:   cfg.LLM.TextModel,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	}, httpClient)
	require.NoError(t, err)
	policy := retry.New(cfg.LLM.MaxRetries)
	agent, err := generator.NewAgent(llm, policy, false, nil)
	require.NoError(t, err)

	imgClient := imagegen.NewClient(imagegen.Config{
		URL:    cfg.LLM.ImageURL,
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.ImageModel,
	}, httpClient, nil)
	acq, err := imagegen.NewAcquirer(imgClient, placeholder.New(nil, cfg.Placeholder.Footer), policy, cfg.Images.Dir, httpClient, nil)
	require.NoError(t, err)

	fixed := time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC)
	runner, err := New(cfg, agent, acq, nil, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return fixture{cfg: cfg, runner: runner, imageDir: cfg.Images.Dir}
}

func readRow(t *testing.T, path string, idx int) sheet.Row {
	t.Helper()
	wb, err := sheet.Open(path, "")
	require.NoError(t, err)
	defer wb.Close()
	hm, err := wb.Headers()
	require.NoError(t, err)
	row, err := wb.ReadRow(hm, idx)
	require.NoError(t, err)
	return row
}

func TestRunOneEndToEnd(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"topic", "blog", "image", "status"},
		{"Cloud Migration", "", "", ""},
	})
	var textCalls int32
	text := textServer(t, http.StatusOK, "T", &textCalls)
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"url":"http://x/y.png"}]}`))
	}))
	defer images.Close()

	fx := newFixture(t, path, text.URL, images.URL)
	out, err := fx.runner.RunOne(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Equal(t, 2, out.Row)
	assert.Equal(t, path, out.SavedTo)
	assert.False(t, out.Alternate)

	row := readRow(t, path, 2)
	assert.Equal(t, "T", row.Blog)
	assert.Equal(t, sheet.StatusGenerated, row.Status)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} UTC$`), row.GeneratedAt)
	assert.Equal(t, "2026-10-19 07:30:00 UTC", row.GeneratedAt)
	assert.Equal(t, fx.imageDir, filepath.Dir(row.Image))

	got, err := os.ReadFile(row.Image)
	require.NoError(t, err)
	assert.Equal(t, downloaded, got)

	again, err := fx.runner.RunOne(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Row)
	assert.EqualValues(t, 1, textCalls)
}

func TestRunOneKeepsExistingBlogAndFallsBackToPlaceholder(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"topic", "angle", "format", "blog"},
		{"Done", "", "", "x"},
		{"Streaming ETL", "latency", "story", "already written"},
	})
	require.NoError(t, func() error {
		wb, err := sheet.Open(path, "")
		if err != nil {
			return err
		}
		defer wb.Close()
		hm, err := wb.EnsureColumns(sheet.OutputColumns...)
		if err != nil {
			return err
		}
		if err := wb.SetStatus(hm, 2, "generated"); err != nil {
			return err
		}
		_, err = wb.Save()
		return err
	}())

	var textCalls int32
	text := textServer(t, http.StatusOK, "unused", &textCalls)
	var imageCalls int32
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&imageCalls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer images.Close()

	fx := newFixture(t, path, text.URL, images.URL)
	out, err := fx.runner.RunOne(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.Err)
	assert.Equal(t, 3, out.Row)
	assert.Zero(t, textCalls)
	assert.EqualValues(t, 2, imageCalls)

	row := readRow(t, path, 3)
	assert.Equal(t, "already written", row.Blog)
	assert.Equal(t, sheet.StatusGenerated, row.Status)
	_, err = os.Stat(row.Image)
	assert.NoError(t, err)
}

func TestRunOneRecordsErrorStatusAndRepicksRow(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"topic", "blog", "image", "status", "generated_at"},
		{"Cloud Migration", "", "", "", ""},
	})
	var textCalls int32
	text := textServer(t, http.StatusInternalServerError, "", &textCalls)
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("image endpoint must not be called when text fails")
	}))
	defer images.Close()

	fx := newFixture(t, path, text.URL, images.URL)
	out, err := fx.runner.RunOne(context.Background())
	require.NoError(t, err)
	require.Error(t, out.Err)
	assert.EqualValues(t, 2, textCalls)
	assert.Regexp(t, `^error: `, out.Status)

	row := readRow(t, path, 2)
	assert.Equal(t, out.Status, row.Status)
	assert.LessOrEqual(t, len([]rune(row.Status)), len("error: ")+200)
	assert.Empty(t, row.Blog)

	again, err := fx.runner.RunOne(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, again.Row)
}

func TestRunOneNoPendingRows(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"topic", "status"}, {"A", "generated"}})
	fx := newFixture(t, path, "http://127.0.0.1:1", "http://127.0.0.1:1")

	out, err := fx.runner.RunOne(context.Background())
	require.NoError(t, err)
	assert.Zero(t, out.Row)
}

func TestRunOneMissingWorkbook(t *testing.T) {
	fx := newFixture(t, filepath.Join(t.TempDir(), "absent.xlsx"), "http://127.0.0.1:1", "http://127.0.0.1:1")
	_, err := fx.runner.RunOne(context.Background())
	assert.Error(t, err)
}

func TestRunBatchLegacyLayout(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Topic list", "Blog"},
		{"Data Mesh", ""},
		{"Lakehouse", "existing"},
		{"", ""},
		{"dbt tests", ""},
	})
	var textCalls int32
	text := textServer(t, http.StatusOK, "A blog.", &textCalls)

	fx := newFixture(t, path, text.URL, "http://127.0.0.1:1")
	sum, err := fx.runner.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Generated)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, path, sum.SavedTo)
	assert.False(t, sum.Alternate)
	assert.EqualValues(t, 2, textCalls)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	for cell, want := range map[string]string{"B2": "A blog.", "B3": "existing", "B4": "", "B5": "A blog."} {
		v, err := f.GetCellValue("Sheet1", cell)
		require.NoError(t, err)
		assert.Equal(t, want, v, cell)
	}
}

func TestRunBatchContinuesAfterFailure(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"status", "topic"},
		{"", "One"},
		{"", "Two"},
	})
	var textCalls int32
	text := textServer(t, http.StatusBadGateway, "", &textCalls)

	fx := newFixture(t, path, text.URL, "http://127.0.0.1:1")
	sum, err := fx.runner.RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Failed)
	assert.Zero(t, sum.Generated)
	assert.EqualValues(t, 4, textCalls)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Sheet1", "C1")
	require.NoError(t, err)
	assert.Equal(t, "blog", v)
}

func TestNewRequiresAgent(t *testing.T) {
	_, err := New(config.Default(), nil, nil, nil)
	assert.Error(t, err)
}
