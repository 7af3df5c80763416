package state

import (
	"testing"
	"time"

	"github.com/tilezen/ogctiles/pkg/tile"
)

func TestTileRequestStateJsonMap(t *testing.T) {
	reqState := TileRequestState{
		ResponseState: ResponseState_NoContent,
		FetchState:    FetchState_NotFound,
		Collection:    "world",
		Tileset:       tile.WebMercatorQuad,
		Coord:         &tile.Coord{Z: 3, X: 1, Y: 2, Format: "pbf"},
		HttpData:      HttpRequestData{Path: "/collections/world/tiles", UserAgent: "curl"},
		Duration:      ReqDuration{Fetch: 12 * time.Millisecond},
	}

	m := reqState.AsJsonMap()

	httpData := m["http"].(map[string]interface{})
	if httpData["status"] != 204 {
		t.Fatalf("Expected status 204, got %#v", httpData["status"])
	}
	if httpData["format"] != "pbf" {
		t.Fatalf("Expected format pbf, got %#v", httpData["format"])
	}
	if _, ok := httpData["referer"]; ok {
		t.Fatalf("Expected empty referer to be left out")
	}
	fetch := m["fetch"].(map[string]interface{})
	if fetch["state"] != "notfound" {
		t.Fatalf("Unexpected fetch state %#v", fetch["state"])
	}
	timing := m["timing"].(map[string]int64)
	if timing["fetch"] != 12 {
		t.Fatalf("Expected fetch timing 12ms, got %d", timing["fetch"])
	}
	coord := m["coord"].(map[string]int)
	if coord["z"] != 3 || coord["x"] != 1 || coord["y"] != 2 {
		t.Fatalf("Unexpected coord %#v", coord)
	}
	if _, ok := m["error"]; ok {
		t.Fatalf("Expected no errors, got %#v", m["error"])
	}
}

func TestDescriptionRequestStateJsonMap(t *testing.T) {
	descReqState := DescriptionRequestState{
		Kind:          DescriptionKind_Tiles,
		Collection:    "world",
		Encoding:      "msgpack",
		ResponseState: ResponseState_Error,
		IsBuildError:  true,
	}

	m := descReqState.AsJsonMap()
	if m["kind"] != "tiles" {
		t.Fatalf("Unexpected kind %#v", m["kind"])
	}
	errs := m["error"].(map[string]bool)
	if !errs["build"] {
		t.Fatalf("Expected build error, got %#v", errs)
	}
	httpData := m["http"].(map[string]interface{})
	if httpData["status"] != 500 || httpData["format"] != "msgpack" {
		t.Fatalf("Unexpected http data %#v", httpData)
	}
}

func TestStateNames(t *testing.T) {
	for rs := ResponseState_Nil; rs < ResponseState_Count; rs++ {
		if rs.String() == "unknown" {
			t.Fatalf("Missing name for response state %d", rs)
		}
	}
	for fs := FetchState_Nil; fs < FetchState_Count; fs++ {
		if fs.String() == "unknown" {
			t.Fatalf("Missing name for fetch state %d", fs)
		}
	}
}
