package tile

import (
	"testing"
)

var zxyMarker = MustParseTemplate("/{z}/{x}/{y}")

func TestParseTemplate(t *testing.T) {
	tpl, err := ParseTemplate("https://tiles.example.org/world/{z}/{x}/{y}.pbf")
	if err != nil {
		t.Fatalf("Unable to parse template: %s", err.Error())
	}

	segs := tpl.Segments()
	if len(segs) != 7 {
		t.Fatalf("Expected 7 segments, got %d: %#v", len(segs), segs)
	}
	if segs[0].Placeholder || segs[0].Value != "https://tiles.example.org/world/" {
		t.Fatalf("Unexpected first segment %#v", segs[0])
	}
	if !segs[1].Placeholder || segs[1].Value != "z" {
		t.Fatalf("Unexpected second segment %#v", segs[1])
	}

	names := tpl.Placeholders()
	exp := []string{"z", "x", "y"}
	if len(names) != len(exp) {
		t.Fatalf("Expected placeholders %v, got %v", exp, names)
	}
	for i := range exp {
		if names[i] != exp[i] {
			t.Fatalf("Expected placeholders %v, got %v", exp, names)
		}
	}

	if tpl.String() != "https://tiles.example.org/world/{z}/{x}/{y}.pbf" {
		t.Fatalf("Template did not keep its raw form: %s", tpl.String())
	}
}

func TestParseTemplateMalformed(t *testing.T) {
	for _, s := range []string{
		"/world/{z/{x}/{y}",
		"/world/{}/{x}/{y}",
		"/world/z}/{x}/{y}",
		"/world/{z",
	} {
		_, err := ParseTemplate(s)
		if err == nil {
			t.Fatalf("Expected %q to fail parsing", s)
		}
		if _, ok := err.(*TemplateParseError); !ok {
			t.Fatalf("Expected a TemplateParseError for %q, got %#v", s, err)
		}
	}
}

func TestSplit(t *testing.T) {
	tpl := MustParseTemplate("/world/{z}/{x}/{y}.pbf")
	before, after, err := tpl.Split(zxyMarker)
	if err != nil {
		t.Fatalf("Unable to split template: %s", err.Error())
	}
	if before != "/world" {
		t.Fatalf("Expected prefix \"/world\", got %q", before)
	}
	if after != ".pbf" {
		t.Fatalf("Expected suffix \".pbf\", got %q", after)
	}
}

func TestSplitNestedPrefix(t *testing.T) {
	tpl := MustParseTemplate("/a/b/c/{z}/{x}/{y}")
	before, after, err := tpl.Split(zxyMarker)
	if err != nil {
		t.Fatalf("Unable to split template: %s", err.Error())
	}
	if before != "/a/b/c" || after != "" {
		t.Fatalf("Unexpected split %q / %q", before, after)
	}
}

func TestSplitKeepsOtherPlaceholders(t *testing.T) {
	tpl := MustParseTemplate("https://example.org/tiles/{tileMatrixSetId}/{tileMatrix}/{tileRow}/{tileCol}.pbf")
	marker := MustParseTemplate("/{tileMatrix}/{tileRow}/{tileCol}")
	before, after, err := tpl.Split(marker)
	if err != nil {
		t.Fatalf("Unable to split template: %s", err.Error())
	}
	if before != "https://example.org/tiles/{tileMatrixSetId}" {
		t.Fatalf("Unexpected prefix %q", before)
	}
	if after != ".pbf" {
		t.Fatalf("Unexpected suffix %q", after)
	}
}

func TestSplitMissing(t *testing.T) {
	tpl := MustParseTemplate("/world/{z}/{y}/{x}")
	_, _, err := tpl.Split(zxyMarker)
	me, ok := err.(*TemplateMatchError)
	if !ok {
		t.Fatalf("Expected TemplateMatchError, got %#v", err)
	}
	if me.Count != 0 {
		t.Fatalf("Expected no match, got %d", me.Count)
	}
}

func TestSplitAmbiguous(t *testing.T) {
	tpl := MustParseTemplate("/a/{z}/{x}/{y}/b/{z}/{x}/{y}")
	_, _, err := tpl.Split(zxyMarker)
	me, ok := err.(*TemplateMatchError)
	if !ok {
		t.Fatalf("Expected TemplateMatchError, got %#v", err)
	}
	if me.Count != 2 {
		t.Fatalf("Expected 2 matches, got %d", me.Count)
	}
}

func TestRender(t *testing.T) {
	tpl := MustParseTemplate("{layer}/{z}/{x}/{y}.{fmt}")
	values := Coord{Z: 3, X: 2, Y: 1, Format: "pbf"}.Values()
	values["layer"] = "world"

	s, err := tpl.Render(values)
	if err != nil {
		t.Fatalf("Unable to render template: %s", err.Error())
	}
	if s != "world/3/2/1.pbf" {
		t.Fatalf("Unexpected rendering %q", s)
	}

	delete(values, "layer")
	if _, err := tpl.Render(values); err == nil {
		t.Fatalf("Expected an error rendering without a layer value")
	}
}
