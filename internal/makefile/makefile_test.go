package makefile

import (
	"encoding/json"
	"reflect"
	"testing"
)

func sampleCatalog() *Catalog {
	return &Catalog{
		Source: "Makefile",
		Targets: map[string]*Target{
			"deploy": {Name: "deploy", Description: "Deploy", Category: "Release", Dependencies: []string{"build"}},
			"build":  {Name: "build", Description: "Build", Category: "Build", Phony: true},
			"lint":   {Name: "lint", Description: "Lint", Category: "Build", Internal: true},
			"setup":  {Name: "setup", Description: "Set up tools"},
		},
		Categories: []string{"Build", "Release"},
	}
}

func names(targets []*Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.Name
	}
	return out
}

func TestCatalogNames(t *testing.T) {
	got := sampleCatalog().Names()
	want := []string{"build", "deploy", "lint", "setup"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestCatalogExposed(t *testing.T) {
	got := names(sampleCatalog().Exposed())
	want := []string{"build", "deploy", "setup"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Exposed = %v, want %v", got, want)
	}
}

func TestCatalogHidden(t *testing.T) {
	got := names(sampleCatalog().Hidden())
	want := []string{"lint"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Hidden = %v, want %v", got, want)
	}
}

func TestCatalogByCategory(t *testing.T) {
	cat := sampleCatalog()

	if got := names(cat.ByCategory("Build")); !reflect.DeepEqual(got, []string{"build", "lint"}) {
		t.Errorf("Build group = %v, want [build lint]", got)
	}
	if got := names(cat.ByCategory("Release")); !reflect.DeepEqual(got, []string{"deploy"}) {
		t.Errorf("Release group = %v, want [deploy]", got)
	}
	if got := names(cat.ByCategory("")); !reflect.DeepEqual(got, []string{"setup"}) {
		t.Errorf("uncategorized group = %v, want [setup]", got)
	}
}

func TestCatalogLookupMissing(t *testing.T) {
	if _, ok := sampleCatalog().Lookup("nope"); ok {
		t.Error("Lookup(nope) = found, want missing")
	}
}

func TestTargetJSON(t *testing.T) {
	in := Target{
		Name:         "deploy",
		Description:  "Deploy to production",
		Category:     "Release",
		Dependencies: []string{"build", "test"},
		Phony:        true,
		Internal:     false,
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out Target
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestTargetJSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(Target{Name: "build", Description: "Build"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["category"]; ok {
		t.Error("empty category serialized, want omitted")
	}
	if _, ok := m["dependencies"]; ok {
		t.Error("empty dependencies serialized, want omitted")
	}
}
