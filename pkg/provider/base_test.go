package provider

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/tilezen/ogctiles/pkg/tile"
)

func testConfig(data string) Config {
	return Config{
		Name:     "MVT",
		Data:     data,
		Format:   FormatConfig{Name: "pbf"},
		MimeType: "application/vnd.mapbox-vector-tile",
		Schemes:  []string{tile.WebMercatorQuad},
	}
}

func mustBase(t *testing.T, data string) *Base {
	b, err := NewBase(testConfig(data))
	if err != nil {
		t.Fatalf("Unable to create provider for %q: %s", data, err.Error())
	}
	return b
}

func TestLayerName(t *testing.T) {
	cases := []struct {
		data, layer string
	}{
		{"https://tiles.example.org/world/{z}/{x}/{y}", "world"},
		{"https://tiles.example.org/world/{z}/{x}/{y}.pbf", "world"},
		{"http://localhost:9000/a/b/{z}/{x}/{y}?key=123", "a/b"},
		{"https://tiles.example.org:8443/buildings/{z}/{x}/{y}.mvt", "buildings"},
	}
	for _, c := range cases {
		layer, err := mustBase(t, c.data).LayerName()
		if err != nil {
			t.Fatalf("Unable to get layer name for %q: %s", c.data, err.Error())
		}
		if layer != c.layer {
			t.Fatalf("Expected layer %q for %q, got %q", c.layer, c.data, layer)
		}
	}
}

func TestMissingMarkerIsConfigurationError(t *testing.T) {
	for _, data := range []string{
		"https://tiles.example.org/world/{z}/{y}/{x}",
		"https://tiles.example.org/world/tiles.pbf",
		"https://tiles.example.org/a/{z}/{x}/{y}/b/{z}/{x}/{y}",
		"https://tiles.example.org/world/{z/{x}/{y}",
	} {
		_, err := NewBase(testConfig(data))
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("Expected ConfigurationError for %q, got %#v", data, err)
		}
		if ce.Field != "data" {
			t.Fatalf("Expected data field error, got %q", ce.Field)
		}
	}
}

func TestMissingFieldsAreConfigurationErrors(t *testing.T) {
	cfg := testConfig("https://tiles.example.org/world/{z}/{x}/{y}")
	cfg.Format.Name = ""
	_, err := NewBase(cfg)
	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "format.name" {
		t.Fatalf("Expected format.name ConfigurationError, got %#v", err)
	}

	cfg = testConfig("")
	_, err = NewBase(cfg)
	if !errors.As(err, &ce) || ce.Field != "data" {
		t.Fatalf("Expected data ConfigurationError, got %#v", err)
	}
}

func TestTilingSchemes(t *testing.T) {
	cfg := testConfig("https://tiles.example.org/world/{z}/{x}/{y}")
	cfg.Schemes = []string{tile.WebMercatorQuad, tile.WorldCRS84Quad}
	b, err := NewBase(cfg)
	if err != nil {
		t.Fatalf("Unable to create provider: %s", err.Error())
	}

	schemes := b.TilingSchemes()
	if len(schemes) != 2 || schemes[0].ID != tile.WorldCRS84Quad || schemes[1].ID != tile.WebMercatorQuad {
		t.Fatalf("Expected both schemes in catalog order, got %#v", schemes)
	}

	cfg.Schemes = nil
	b, err = NewBase(cfg)
	if err != nil {
		t.Fatalf("Unable to create provider: %s", err.Error())
	}
	if len(b.TilingSchemes()) != 0 {
		t.Fatalf("Expected no schemes, got %#v", b.TilingSchemes())
	}
}

func TestServiceDescriptionExplicit(t *testing.T) {
	b := mustBase(t, "https://tiles.example.org/world/{z}/{x}/{y}")

	desc, err := b.TileServiceDescription(ServiceOptions{
		BaseURL:     "https://example.org",
		ServicePath: "/collections/buildings/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}.pbf",
	})
	if err != nil {
		t.Fatalf("Unable to build service description: %s", err.Error())
	}
	if len(desc.Links) != 2 {
		t.Fatalf("Expected 2 links, got %d", len(desc.Links))
	}

	item := desc.Links[0]
	if item.Rel != RelItem || !item.Templated || item.Type != "application/vnd.mapbox-vector-tile" {
		t.Fatalf("Unexpected item link %#v", item)
	}
	if item.Href != "https://example.org/collections/buildings/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}.pbf" {
		t.Fatalf("Unexpected item href %s", item.Href)
	}

	describedBy := desc.Links[1]
	if describedBy.Rel != RelDescribedBy || describedBy.Type != "application/json" || !describedBy.Templated {
		t.Fatalf("Unexpected describedby link %#v", describedBy)
	}
	if describedBy.Href != "https://example.org/collections/buildings/tiles/metadata?f=json" {
		t.Fatalf("Unexpected describedby href %s", describedBy.Href)
	}
}

func TestServiceDescriptionDefaults(t *testing.T) {
	b := mustBase(t, "https://tiles.example.org/world/{z}/{x}/{y}")

	desc, err := b.TileServiceDescription(ServiceOptions{})
	if err != nil {
		t.Fatalf("Unable to build service description: %s", err.Error())
	}

	expItem := "https://tiles.example.org/world/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}.pbf"
	if desc.Links[0].Href != expItem {
		t.Fatalf("Expected item href %s, got %s", expItem, desc.Links[0].Href)
	}
	expMeta := "https://tiles.example.org/world/tiles/metadata?f=json"
	if desc.Links[1].Href != expMeta {
		t.Fatalf("Expected metadata href %s, got %s", expMeta, desc.Links[1].Href)
	}
}

func TestServiceDescriptionTileTypeVerbatim(t *testing.T) {
	b := mustBase(t, "https://tiles.example.org/world/{z}/{x}/{y}")

	desc, err := b.TileServiceDescription(ServiceOptions{BaseURL: "https://example.org/api/", TileType: ".mvt"})
	if err != nil {
		t.Fatalf("Unable to build service description: %s", err.Error())
	}
	exp := "https://example.org/world/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}.mvt"
	if desc.Links[0].Href != exp {
		t.Fatalf("Expected %s, got %s", exp, desc.Links[0].Href)
	}
}

func TestServiceDescriptionRelativePath(t *testing.T) {
	b := mustBase(t, "https://tiles.example.org/world/{z}/{x}/{y}")

	desc, err := b.TileServiceDescription(ServiceOptions{
		BaseURL:     "https://example.org/api/",
		ServicePath: "tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}.pbf",
	})
	if err != nil {
		t.Fatalf("Unable to build service description: %s", err.Error())
	}
	exp := "https://example.org/api/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}.pbf"
	if desc.Links[0].Href != exp {
		t.Fatalf("Expected %s, got %s", exp, desc.Links[0].Href)
	}
	expMeta := "https://example.org/api/tiles/metadata?f=json"
	if desc.Links[1].Href != expMeta {
		t.Fatalf("Expected %s, got %s", expMeta, desc.Links[1].Href)
	}
}

func TestServiceDescriptionIdempotent(t *testing.T) {
	b := mustBase(t, "https://tiles.example.org/world/{z}/{x}/{y}")
	opts := ServiceOptions{BaseURL: "https://example.org"}

	first, err := b.TileServiceDescription(opts)
	if err != nil {
		t.Fatalf("Unable to build service description: %s", err.Error())
	}
	second, err := b.TileServiceDescription(opts)
	if err != nil {
		t.Fatalf("Unable to build service description: %s", err.Error())
	}

	a, _ := json.Marshal(first)
	c, _ := json.Marshal(second)
	if string(a) != string(c) {
		t.Fatalf("Expected identical output, got %s and %s", a, c)
	}
}

func TestMetadata(t *testing.T) {
	b := mustBase(t, "https://tiles.example.org/world/{z}/{x}/{y}")
	md, err := b.Metadata()
	if err != nil {
		t.Fatalf("Unable to get metadata: %s", err.Error())
	}
	buf, _ := json.Marshal(md)
	if string(buf) != `{"tilejson":"3.0.0"}` {
		t.Fatalf("Unexpected metadata %s", buf)
	}
	if len(b.Fields()) != 0 {
		t.Fatalf("Expected no fields")
	}
}

func TestTilesetNotFoundRefinesTileQueryError(t *testing.T) {
	var err error = NewTilesetNotFoundError("http://example.org/0/0/0.pbf", 404)

	var qe *TileQueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Expected TilesetNotFoundError to be a TileQueryError")
	}
	if qe.StatusCode != 404 {
		t.Fatalf("Expected status 404, got %d", qe.StatusCode)
	}

	err = &TileQueryError{URL: "http://example.org/0/0/0.pbf", StatusCode: 500}
	var nf *TilesetNotFoundError
	if errors.As(err, &nf) {
		t.Fatalf("Expected a plain TileQueryError not to be a TilesetNotFoundError")
	}
}
