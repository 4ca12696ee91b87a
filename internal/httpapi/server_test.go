package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/Flipello-KakaoTalk-bot/internal/adapter/flippresenter"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/flipello"
	"github.com/park285/Flipello-KakaoTalk-bot/internal/pvpflip"
	"github.com/park285/Flipello-KakaoTalk-bot/pkg/flipdto"
)

const startBoard = "......../......../......../...xo.../...ox.../......../......../........"

func newTestServer(t *testing.T) (*httptest.Server, *pvpflip.Manager) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	games, err := pvpflip.NewManager("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = games.Close() })

	srv := httptest.NewServer(NewServer(games, flippresenter.NewFormatter(nil, nil), nil).Handler())
	t.Cleanup(srv.Close)
	return srv, games
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body["ok"] != true || body["active_games"] != float64(0) {
		t.Fatalf("healthz = %d %v", resp.StatusCode, body)
	}
}

func TestGameJSONAndBoard(t *testing.T) {
	srv, games := newTestServer(t)
	ctx := context.Background()
	g, err := games.CreateGame(ctx, "room1", "room1", "u1", "Alice", "u2", "Bob", "first", flipello.VariantFlipello)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, _, err := games.PlayMove(ctx, "u1", "d3"); err != nil {
		t.Fatalf("PlayMove: %v", err)
	}

	resp, err := http.Get(srv.URL + "/games/" + g.ID)
	if err != nil {
		t.Fatalf("GET game: %v", err)
	}
	defer resp.Body.Close()
	var body gameJSON
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body.ID != g.ID || body.Turn != "second" || body.LastMove != "d3" {
		t.Fatalf("game = %d %+v", resp.StatusCode, body)
	}
	if body.Score != [2]int{4, 1} || body.Status != "started" || body.StatusText == "" {
		t.Fatalf("score/status = %v %q %q", body.Score, body.Status, body.StatusText)
	}

	img, err := http.Get(srv.URL + "/games/" + g.ID + "/board.png?viewer=u2")
	if err != nil {
		t.Fatalf("GET board: %v", err)
	}
	defer img.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(img.Body)
	if img.StatusCode != http.StatusOK || img.Header.Get("Content-Type") != "image/png" || !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("board = %d %q %d bytes", img.StatusCode, img.Header.Get("Content-Type"), buf.Len())
	}
}

func TestGameNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/games/flip-missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func postCaptures(t *testing.T, url, body string) (int, capturesResponse) {
	t.Helper()
	resp, err := http.Post(url+"/preview/captures", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	var out capturesResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestPreviewCaptures(t *testing.T) {
	srv, _ := newTestServer(t)

	code, out := postCaptures(t, srv.URL, `{"board":"`+startBoard+`","at":"d3","side":"first"}`)
	if code != http.StatusOK || len(out.Captures) != 1 || out.Captures[0] != "d4" || out.Origin != "d3" {
		t.Fatalf("d3 = %d %+v", code, out)
	}

	code, out = postCaptures(t, srv.URL, `{"board":"`+startBoard+`","at":"a1","side":"black"}`)
	if code != http.StatusOK || out.Captures == nil || len(out.Captures) != 0 || out.Side != "first" {
		t.Fatalf("a1 = %d %+v", code, out)
	}

	for _, bad := range []string{
		`{"board":"` + startBoard + `","at":"i1","side":"first"}`,
		`{"board":"` + startBoard + `","at":"d3","side":"red"}`,
		`{"board":"..x/..","at":"a1","side":"first"}`,
		`{"board":"` + startBoard + `","at":"??","side":"first"}`,
		`not json`,
	} {
		if code, _ := postCaptures(t, srv.URL, bad); code != http.StatusBadRequest {
			t.Fatalf("payload %s: status %d, want 400", bad, code)
		}
	}
}

func TestPreviewOutOfBoundsErrorBody(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/preview/captures", "application/json",
		strings.NewReader(`{"board":"`+startBoard+`","at":"i1","side":"first"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Error flipdto.DomainError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "out_of_bounds" || body.Error.Message == "" || body.Error.Retryable {
		t.Fatalf("error body = %+v", body.Error)
	}
}
