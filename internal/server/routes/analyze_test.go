package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestGetStopwordsHandler(t *testing.T) {
	t.Parallel()

	app := newApp()
	rec := invoke(t, app, GetStopwordsHandler, nil, httptest.NewRequest(http.MethodGet, "/api/stopwords", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeBody(t, rec)
	words, ok := body["stopwords"].([]any)
	if !ok || len(words) == 0 {
		t.Fatalf("stopwords missing or empty: %v", body)
	}
	found := false
	for _, w := range words {
		if w == "the" {
			found = true
			break
		}
	}
	if !found {
		t.Error(`default stopwords do not contain "the"`)
	}
}

func TestPreviewFileHandler(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/preview",
		map[string]string{"num_rows": "2"},
		[]uploadFile{{field: "file", name: "data.csv", content: csvGroupA}})

	rec := invoke(t, app, PreviewFileHandler, nil, req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true || body["filename"] != "data.csv" {
		t.Errorf("unexpected header fields: %v", body)
	}
	if body["num_rows"] != float64(3) || body["num_columns"] != float64(2) {
		t.Errorf("num_rows = %v, num_columns = %v", body["num_rows"], body["num_columns"])
	}
	preview := body["preview"].([]any)
	if len(preview) != 2 {
		t.Fatalf("preview rows = %d, want 2", len(preview))
	}
	first := preview[0].(map[string]any)
	if first["text"] != "alpha beta gamma" {
		t.Errorf("first preview row = %v", first)
	}
	columnPreview := body["text_column_preview"].([]any)
	if len(columnPreview) != 2 || columnPreview[1] != "alpha beta delta" {
		t.Errorf("text_column_preview = %v", columnPreview)
	}
}

func TestPreviewFileHandlerRejectsDoc(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/preview", nil,
		[]uploadFile{{field: "file", name: "notes.txt", content: "just some prose"}})

	rec := invoke(t, app, PreviewFileHandler, nil, req, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPreviewFileHandlerNoFile(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/preview", map[string]string{"text_column": "1"}, nil)
	rec := invoke(t, app, PreviewFileHandler, nil, req, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeSingleHandler(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/analyze/single",
		map[string]string{"group_name": "Sample"},
		[]uploadFile{{field: "file", name: "data.csv", content: csvGroupA}})

	rec := invoke(t, app, AnalyzeSingleHandler, nil, req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true || body["group_name"] != "Sample" {
		t.Errorf("unexpected header fields: %v", body)
	}
	if body["num_texts"] != float64(3) {
		t.Errorf("num_texts = %v, want 3", body["num_texts"])
	}
	nodes := body["nodes"].([]any)
	if len(nodes) != 4 {
		t.Fatalf("nodes = %d, want 4 (alpha beta gamma delta)", len(nodes))
	}
	top := nodes[0].(map[string]any)
	if top["word"] != "beta" {
		t.Errorf("top node = %v, want beta (most frequent)", top["word"])
	}
	stats := body["stats"].(map[string]any)
	if stats["num_nodes"] != float64(4) {
		t.Errorf("stats.num_nodes = %v, want 4", stats["num_nodes"])
	}

	profile, err := app.Store.EnsureProfile(context.Background(), "dev-user", "dev@example.com")
	if err != nil {
		t.Fatalf("failed to load profile: %v", err)
	}
	if profile.AnalysesToday != 1 {
		t.Errorf("analyses counter = %d, want 1", profile.AnalysesToday)
	}
}

func TestAnalyzeSingleHandlerCaches(t *testing.T) {
	t.Parallel()

	app := newApp()
	build := func() *http.Request {
		return multipartRequest(t, "/api/analyze/single",
			map[string]string{"group_name": "Sample"},
			[]uploadFile{{field: "file", name: "data.csv", content: csvGroupA}})
	}

	if rec := invoke(t, app, AnalyzeSingleHandler, nil, build(), nil); rec.Code != http.StatusOK {
		t.Fatalf("first call status = %d", rec.Code)
	}
	if rec := invoke(t, app, AnalyzeSingleHandler, nil, build(), nil); rec.Code != http.StatusOK {
		t.Fatalf("second call status = %d", rec.Code)
	}
	if app.Cache.Len() != 1 {
		t.Errorf("cache entries = %d, want 1 (identical requests share a slot)", app.Cache.Len())
	}
}

func TestAnalyzeSingleHandlerNoFile(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/analyze/single", map[string]string{"group_name": "X"}, nil)
	rec := invoke(t, app, AnalyzeSingleHandler, nil, req, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeCompareHandler(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/analyze/compare", nil, []uploadFile{
		{field: "file_a", name: "a.csv", content: csvGroupA},
		{field: "file_b", name: "b.csv", content: csvGroupB},
	})

	rec := invoke(t, app, AnalyzeCompareHandler, nil, req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true || body["num_groups"] != float64(2) {
		t.Errorf("unexpected header fields: %v", body)
	}
	if body["num_texts_a"] != float64(3) || body["num_texts_b"] != float64(3) {
		t.Errorf("num_texts_a = %v, num_texts_b = %v", body["num_texts_a"], body["num_texts_b"])
	}
	keys := body["group_keys"].([]any)
	if keys[0] != "group_a" || keys[1] != "group_b" {
		t.Errorf("group_keys = %v", keys)
	}

	rows := body["analysis_data"].([]any)
	if len(rows) != 6 {
		t.Fatalf("analysis_data rows = %d, want 6", len(rows))
	}
	first := rows[0].(map[string]any)
	for _, key := range []string{"word", "avg_normalized", "difference", "group_a_count", "group_b_count"} {
		if _, ok := first[key]; !ok {
			t.Errorf("row missing %q: %v", key, first)
		}
	}
}

func TestAnalyzeCompareHandlerEmptyFile(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/analyze/compare", nil, []uploadFile{
		{field: "file_a", name: "a.csv", content: "id,text\n"},
		{field: "file_b", name: "b.csv", content: csvGroupB},
	})

	rec := invoke(t, app, AnalyzeCompareHandler, nil, req, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "No texts found in Group A file" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestAnalyzeMultiHandlerGroupLimit(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/analyze",
		map[string]string{"group_names": `["One","Two"]`},
		[]uploadFile{
			{field: "files", name: "a.csv", content: csvGroupA},
			{field: "files", name: "b.csv", content: csvGroupB},
		})

	rec := invoke(t, app, AnalyzeMultiHandler, nil, req, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["max_groups"] != float64(1) {
		t.Errorf("max_groups = %v, want 1", body["max_groups"])
	}
}

func TestAnalyzeMultiHandler(t *testing.T) {
	t.Parallel()

	app := newApp()
	ctx := context.Background()
	if _, err := app.Store.EnsureProfile(ctx, "dev-user", "dev@example.com"); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if err := app.Store.SetTier(ctx, "dev-user", tier.Pro); err != nil {
		t.Fatalf("failed to set tier: %v", err)
	}

	req := multipartRequest(t, "/api/analyze",
		map[string]string{"group_names": `["One","Two"]`},
		[]uploadFile{
			{field: "files", name: "a.csv", content: csvGroupA},
			{field: "files", name: "b.csv", content: csvGroupB},
		})

	rec := invoke(t, app, AnalyzeMultiHandler, nil, req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["num_groups"] != float64(2) {
		t.Errorf("num_groups = %v, want 2", body["num_groups"])
	}
	numTexts := body["num_texts"].([]any)
	if len(numTexts) != 2 || numTexts[0] != float64(3) || numTexts[1] != float64(3) {
		t.Errorf("num_texts = %v", numTexts)
	}
	names := body["group_names"].([]any)
	if names[0] != "One" || names[1] != "Two" {
		t.Errorf("group_names = %v", names)
	}
}

func TestAnalyzeMultiHandlerBadFileGroups(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/analyze",
		map[string]string{
			"group_names": `["One"]`,
			"file_groups": `[5]`,
		},
		[]uploadFile{{field: "files", name: "a.csv", content: csvGroupA}})

	rec := invoke(t, app, AnalyzeMultiHandler, nil, req, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeWordPairsHandler(t *testing.T) {
	t.Parallel()

	app := newApp()
	req := multipartRequest(t, "/api/analyze/word-pairs", nil, []uploadFile{
		{field: "file_a", name: "a.csv", content: csvGroupA},
		{field: "file_b", name: "b.csv", content: csvGroupB},
	})

	rec := invoke(t, app, AnalyzeWordPairsHandler, nil, req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	pairs := body["word_pairs"].([]any)
	if len(pairs) == 0 {
		t.Fatal("no word pairs returned")
	}
	if body["total_pairs"] != float64(len(pairs)) {
		t.Errorf("total_pairs = %v, want %d", body["total_pairs"], len(pairs))
	}
	first := pairs[0].(map[string]any)
	for _, key := range []string{"word_1", "word_2", "group_a_connections", "group_b_connections", "total_connections", "difference"} {
		if _, ok := first[key]; !ok {
			t.Errorf("pair missing %q: %v", key, first)
		}
	}
}
