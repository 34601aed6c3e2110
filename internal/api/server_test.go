package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/nmtdecode/internal/inference"
	"github.com/samcharles93/nmtdecode/internal/model"
	"github.com/samcharles93/nmtdecode/internal/search"
	"github.com/samcharles93/nmtdecode/internal/vocab"
)

type testEngine struct {
	err  error
	seen *inference.Request
}

func (e *testEngine) Translate(ctx context.Context, req *inference.Request) (*inference.Result, error) {
	e.seen = req
	if e.err != nil {
		return nil, e.err
	}
	return &inference.Result{
		ID:     "tr-1",
		Source: vocab.Tokenize(req.Text),
		Translations: []inference.Translation{
			{Text: "ok", Words: []string{"ok"}, Tokens: []int{2}, Score: -0.5},
		},
	}, nil
}

func (e *testEngine) Info() inference.ModelInfo {
	return inference.ModelInfo{
		Config:   model.Config{DimEmb: 4, DimRnn: 3, DimOut: 2, SrcVocab: 10, TrgVocab: 11},
		Defaults: search.Config{BeamSize: 5, NBest: 1, Normalize: true},
	}
}

func (e *testEngine) Close() error { return nil }

func newTestEcho(engine inference.Engine) *echo.Echo {
	service := NewTranslationService(NewLockedEngineProvider(engine))
	server := NewServer(NewTranslationStore(4), service)
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestTranslateLifecycle(t *testing.T) {
	t.Parallel()

	engine := &testEngine{}
	e := newTestEcho(engine)
	rec := doJSON(t, e, http.MethodPost, "/v1/translate", `{"text":"das haus","beam_size":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("translate status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[TranslateResponse](t, rec)
	if resp.ID != "tr-1" || resp.Object != "translation" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Translations) != 1 || resp.Translations[0].Text != "ok" {
		t.Fatalf("unexpected translations: %+v", resp.Translations)
	}
	if engine.seen.BeamSize != 3 || engine.seen.NBest != 1 || !engine.seen.Normalize {
		t.Fatalf("request not resolved against defaults: %+v", engine.seen)
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/translations/tr-1", "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d", getRec.Code)
	}
	delRec := doJSON(t, e, http.MethodDelete, "/v1/translations/tr-1", "")
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", delRec.Code)
	}
	missRec := doJSON(t, e, http.MethodGet, "/v1/translations/tr-1", "")
	if missRec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", missRec.Code)
	}
	env := decodeBody[ErrorEnvelope](t, missRec)
	if env.Error.Type != "not_found_error" {
		t.Fatalf("unexpected error type %q", env.Error.Type)
	}
}

func TestTranslateRejectsBadRequests(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testEngine{})
	for _, body := range []string{
		`{"text":""}`,
		`{"text":"a\nb"}`,
		`{"text":"a","beam_size":0}`,
		`{"text":"a","beam_size":1000}`,
		`{"text":"a","n_best":0}`,
		`{"text":"a","max_length":-1}`,
		`{"text":"a","temperature":1}`,
		`not json`,
	} {
		rec := doJSON(t, e, http.MethodPost, "/v1/translate", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d body=%s", body, rec.Code, rec.Body.String())
		}
		env := decodeBody[ErrorEnvelope](t, rec)
		if env.Error.Type != "invalid_request_error" || env.Error.Message == "" {
			t.Fatalf("%s: unexpected envelope %+v", body, env)
		}
	}
}

func TestTranslateEngineErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testEngine{err: inference.ErrDecodePanic})
	rec := doJSON(t, e, http.MethodPost, "/v1/translate", `{"text":"a"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rec.Code)
	}
	if env := decodeBody[ErrorEnvelope](t, rec); env.Error.Type != "server_error" {
		t.Fatalf("unexpected envelope %+v", env)
	}

	e = newTestEcho(&testEngine{err: inference.ErrEmptyInput})
	rec = doJSON(t, e, http.MethodPost, "/v1/translate", `{"text":"a"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rec.Code)
	}
}

func TestModelAndHealth(t *testing.T) {
	t.Parallel()

	e := newTestEcho(&testEngine{})
	rec := doJSON(t, e, http.MethodGet, "/v1/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("model status: got %d", rec.Code)
	}
	m := decodeBody[ModelResponse](t, rec)
	if m.TrgVocab != 11 || m.Defaults.BeamSize != 5 {
		t.Fatalf("unexpected model response %+v", m)
	}

	rec = doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status: got %d", rec.Code)
	}
	if h := decodeBody[HealthResponse](t, rec); h.Status != "ok" {
		t.Fatalf("unexpected health %+v", h)
	}

	rec = doJSON(t, e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status: got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/html") {
		t.Fatalf("index content type: %q", rec.Header().Get(echo.HeaderContentType))
	}
}

func TestTranslateWithRandomModel(t *testing.T) {
	t.Parallel()

	w, err := model.Random(model.Config{DimEmb: 6, DimRnn: 5, DimOut: 4, SrcVocab: 6, TrgVocab: 7}, 3)
	if err != nil {
		t.Fatal(err)
	}
	src, err := vocab.New([]string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatal(err)
	}
	trg, err := vocab.New([]string{"w", "x", "y", "z", "q"})
	if err != nil {
		t.Fatal(err)
	}
	engine := inference.NewEngine(w, src, trg, nil, search.Config{BeamSize: 3, MaxLength: 5, Normalize: true})
	e := newTestEcho(engine)

	rec := doJSON(t, e, http.MethodPost, "/v1/translate", `{"text":"a b c","n_best":2,"alignment":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("translate status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[TranslateResponse](t, rec)
	if len(resp.Translations) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(resp.Translations))
	}
	if resp.Stats.SourceTokens != 4 || resp.Stats.Steps == 0 {
		t.Fatalf("unexpected stats %+v", resp.Stats)
	}
	for _, tr := range resp.Translations {
		if len(tr.Tokens) > 0 && len(tr.Alignment) != len(tr.Tokens) {
			t.Fatalf("alignment rows %d for %d tokens", len(tr.Alignment), len(tr.Tokens))
		}
	}
}

func TestTranslationStoreEvictsOldest(t *testing.T) {
	t.Parallel()

	s := NewTranslationStore(2)
	for _, id := range []string{"a", "b", "c"} {
		s.Put(TranslateResponse{ID: id})
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("oldest entry not evicted")
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatal("newest entry missing")
	}
}
